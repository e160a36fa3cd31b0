package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"gigmarket/pkg/auth"
	"gigmarket/pkg/config"
	apperrors "gigmarket/pkg/errors"
)

func ExtractLimitOffset(r *http.Request, maxLimit int) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	}

	return config.NormalizePaginationLimit(limit, maxLimit), config.NormalizeOffset(offset), nil
}

// DecodeJSON decodes the request body into v. An empty body is allowed
// when allowEmpty is set.
func DecodeJSON(r *http.Request, v any, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return apperrors.InvalidInput("Request body is required")
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.New(apperrors.KindValidation, apperrors.CodeInvalidInput, "Request body too large", http.StatusRequestEntityTooLarge)
		}
		return apperrors.InvalidInput("Invalid request body")
	}
	return nil
}

// Caller returns the authenticated caller put on the request by the auth middleware
func Caller(r *http.Request) (auth.Context, error) {
	a, ok := auth.FromContext(r.Context())
	if !ok || a.Anonymous() {
		return auth.Context{}, apperrors.Unauthorized("Authentication required")
	}
	return a, nil
}
