package http

import (
	"encoding/json"
	"net/http"

	apperrors "gigmarket/pkg/errors"
)

type ErrorResponse struct {
	Code    string         `json:"code,omitempty"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

type SuccessResponse struct {
	Data any `json:"data,omitempty"`
}

type PaginatedResponse struct {
	Data       any   `json:"data"`
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int64 `json:"offset"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError maps an error to its HTTP status. Errors that are not
// *AppError are reported as internal without leaking their text.
func WriteError(w http.ResponseWriter, err error) error {
	if !apperrors.IsAppError(err) {
		return WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Code:  apperrors.CodeInternal,
			Error: "Internal server error",
		})
	}

	appErr := apperrors.AsAppError(err)
	resp := ErrorResponse{
		Code:    appErr.Code,
		Error:   appErr.Message,
		Details: appErr.Details,
	}
	if appErr.Kind == apperrors.KindInternal && appErr.Code == apperrors.CodeInternal {
		resp.Error = "Internal server error"
	}
	return WriteJSON(w, appErr.StatusCode(), resp)
}

func WriteSuccess(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

func WriteCreated(w http.ResponseWriter, data any) error {
	return WriteJSON(w, http.StatusCreated, SuccessResponse{Data: data})
}

func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func WritePaginated(w http.ResponseWriter, data any, totalCount int64, limit int, offset int64) error {
	return WriteJSON(w, http.StatusOK, PaginatedResponse{
		Data:       data,
		TotalCount: totalCount,
		Limit:      limit,
		Offset:     offset,
	})
}
