package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigmarket/internal/bookings/bookingstest"
	"gigmarket/internal/escrow/service"
	"gigmarket/pkg/auth"
	"gigmarket/pkg/config"
	apperrors "gigmarket/pkg/errors"
	"gigmarket/pkg/logger"
	"gigmarket/pkg/model"
)

func setup(t *testing.T, bookings ...*model.Booking) (*httprouter.Router, *bookingstest.Repository) {
	t.Helper()
	log := logger.Discard()
	repo := bookingstest.NewRepository(bookings...)
	svc := service.NewEscrowService(repo, nil, &config.Config{Log: log, SweepBatchSize: 10})

	router := httprouter.New()
	NewEscrowHandler(svc, log).RegisterRoutes(router)
	return router, repo
}

func completed() *model.Booking {
	return &model.Booking{
		CustomerID:   "cust-1",
		TotalAmount:  200,
		PayoutAmount: 170,
		Status:       model.BookingCompleted,
		EscrowStatus: model.EscrowHeld,
	}
}

func post(router http.Handler, path, body string, caller auth.Context) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req = req.WithContext(auth.WithContext(req.Context(), caller))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRelease(t *testing.T) {
	b := completed()
	router, repo := setup(t, b)
	customer := auth.New("cust-1", auth.RoleCustomer)

	rec := post(router, "/api/v1/bookings/id/"+b.ID+"/escrow/release", "", customer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.EscrowReleased, repo.Get(b.ID).EscrowStatus)

	rec = post(router, "/api/v1/bookings/id/"+b.ID+"/escrow/release", "", customer)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeAlreadyReleased)
}

func TestBulkRelease(t *testing.T) {
	a, b := completed(), completed()
	open := completed()
	open.Status = model.BookingConfirmed
	router, _ := setup(t, a, b, open)

	body := fmt.Sprintf(`{"booking_ids":[%q,%q,%q]}`, a.ID, b.ID, open.ID)
	rec := post(router, "/api/v1/bookings/escrow/release", body, auth.System())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data BulkReleaseResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, BulkReleaseResponse{Requested: 3, Released: 2}, resp.Data)

	rec = post(router, "/api/v1/bookings/escrow/release", `{"booking_ids":[]}`, auth.System())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeMissingField)
}

func TestMarkHeld(t *testing.T) {
	b := completed()
	b.Status = model.BookingConfirmed
	b.EscrowStatus = model.EscrowPending
	router, repo := setup(t, b)

	rec := post(router, "/api/v1/bookings/id/"+b.ID+"/escrow/hold", `{"full":true}`, auth.New("cust-1", auth.RoleCustomer))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = post(router, "/api/v1/bookings/id/"+b.ID+"/escrow/hold", "", auth.System())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.EscrowHeld, repo.Get(b.ID).EscrowStatus)

	rec = post(router, "/api/v1/bookings/id/"+b.ID+"/escrow/hold", `{"full":true}`, auth.System())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.EscrowFullHeld, repo.Get(b.ID).EscrowStatus)
}
