package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigmarket/internal/bookings/bookingstest"
	bookingservice "gigmarket/internal/bookings/service"
	bookingvalidator "gigmarket/internal/bookings/validator"
	"gigmarket/internal/market/markettest"
	"gigmarket/internal/market/service"
	"gigmarket/internal/market/validator"
	"gigmarket/pkg/auth"
	"gigmarket/pkg/config"
	apperrors "gigmarket/pkg/errors"
	"gigmarket/pkg/logger"
	"gigmarket/pkg/model"
)

const performerID = "65a1b2c3d4e5f60718293a4b"

var (
	customer  = auth.New("cust-1", auth.RoleCustomer)
	stranger  = auth.New("cust-9", auth.RoleCustomer)
	performer = auth.New("perf-1", auth.RolePerformer)
)

func newTestRouter(t *testing.T) (*httprouter.Router, *markettest.Store) {
	t.Helper()
	log := logger.Discard()
	cfg := &config.Config{
		Log:                log,
		CommissionRateFree: 15,
		AutoReleaseDays:    7,
		SweepBatchSize:     100,
		MaxPaginationLimit: 100,
	}
	performers := bookingstest.NewPerformers(&model.Performer{
		ID:                performerID,
		AccountID:         "perf-1",
		Tier:              model.TierFree,
		DepositPercentage: 25,
		Status:            model.PerformerApproved,
	})
	bookings := bookingservice.NewBookingService(bookingstest.NewRepository(), bookingvalidator.NewBookingValidator(log), performers, nil, cfg)

	store := markettest.NewStore()
	svc := service.NewMarketService(store.Events(), store.Bids(), store.Tx(), bookings, performers, validator.NewMarketValidator(log), nil, cfg)

	router := httprouter.New()
	NewMarketHandler(svc, log, cfg.MaxPaginationLimit).RegisterRoutes(router)
	return router, store
}

func do(router http.Handler, method, path, body string, caller *auth.Context) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if caller != nil {
		req = req.WithContext(auth.WithContext(req.Context(), *caller))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func eventBody() string {
	date := time.Now().UTC().AddDate(0, 1, 0).Format(time.RFC3339)
	return fmt.Sprintf(`{"title":"Summer fair","description":"Two sets on the main stage","event_date":%q,"budget_min":200,"budget_max":500}`, date)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var body struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Data
}

func postEvent(t *testing.T, router http.Handler) model.MarketEvent {
	t.Helper()
	rec := do(router, http.MethodPost, "/api/v1/market/events", eventBody(), &customer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.MarketEvent](t, rec)
}

func TestCreateEvent(t *testing.T) {
	router, _ := newTestRouter(t)
	event := postEvent(t, router)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "cust-1", event.CustomerID)
	assert.Equal(t, model.EventOpen, event.Status)

	rec := do(router, http.MethodPost, "/api/v1/market/events", eventBody(), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(router, http.MethodPost, "/api/v1/market/events", `{"title":"x"}`, &customer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeMissingField)
}

func TestBidFlow(t *testing.T) {
	router, store := newTestRouter(t)
	event := postEvent(t, router)
	bidsPath := "/api/v1/market/events/id/" + event.ID + "/bids"

	rec := do(router, http.MethodPost, bidsPath, fmt.Sprintf(`{"performer_id":%q,"bid_amount":750}`, performerID), &performer)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bid := decode[model.Bid](t, rec)
	assert.Equal(t, event.ID, bid.EventID)
	assert.Equal(t, model.BidPending, bid.Status)

	rec = do(router, http.MethodPost, bidsPath, fmt.Sprintf(`{"performer_id":%q,"bid_amount":700}`, performerID), &performer)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeConflict)

	rec = do(router, http.MethodGet, bidsPath, "", &stranger)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(router, http.MethodGet, bidsPath, "", &customer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Bid](t, rec), 1)

	rec = do(router, http.MethodPost, "/api/v1/market/bids/id/"+bid.ID+"/accept", "", &stranger)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, model.BidPending, store.Bid(bid.ID).Status)

	rec = do(router, http.MethodPost, "/api/v1/market/bids/id/"+bid.ID+"/accept", "", &customer)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[model.AcceptedBid](t, rec)
	require.NotNil(t, result.Booking)
	assert.Equal(t, 750.0, result.Booking.TotalAmount)
	assert.Equal(t, model.SourceMarket, result.Booking.Source)
	assert.Equal(t, model.EventFilled, result.Event.Status)

	rec = do(router, http.MethodPost, bidsPath, fmt.Sprintf(`{"performer_id":%q,"bid_amount":600}`, performerID), &performer)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeEventClosed)
}

func TestEventActions(t *testing.T) {
	router, _ := newTestRouter(t)
	event := postEvent(t, router)
	base := "/api/v1/market/events/id/" + event.ID

	rec := do(router, http.MethodPost, base+"/close", "", &stranger)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(router, http.MethodPost, base+"/close", "", &customer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.EventClosed, decode[model.MarketEvent](t, rec).Status)

	rec = do(router, http.MethodPost, base+"/cancel", "", &customer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.EventCancelled, decode[model.MarketEvent](t, rec).Status)

	rec = do(router, http.MethodPost, base+"/close", "", &customer)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeInvalidState)

	rec = do(router, http.MethodGet, base, "", &stranger)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, event.ID, decode[model.MarketEvent](t, rec).ID)

	rec = do(router, http.MethodGet, "/api/v1/market/events/id/nope", "", &customer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueries(t *testing.T) {
	router, _ := newTestRouter(t)
	for i := 0; i < 3; i++ {
		postEvent(t, router)
	}

	rec := do(router, http.MethodGet, "/api/v1/market/events?status=open&limit=2", "", &stranger)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data       []model.MarketEvent `json:"data"`
		TotalCount int64               `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Data, 2)
	assert.Equal(t, int64(3), page.TotalCount)

	rec = do(router, http.MethodGet, "/api/v1/market/events?status=bogus", "", &stranger)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeInvalidStatus)

	rec = do(router, http.MethodGet, "/api/v1/market/events/customer/cust-1", "", &customer)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/market/bids/performer/"+performerID, "", &performer)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/market/bids/performer/"+performerID, "", &stranger)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(router, http.MethodGet, "/api/v1/market/bids/performer/"+performerID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
