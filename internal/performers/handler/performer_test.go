package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gigmarket/pkg/auth"
	apperrors "gigmarket/pkg/errors"
	"gigmarket/pkg/logger"
	"gigmarket/pkg/model"
)

// Mock service for testing
type mockPerformerService struct {
	registerFunc    func(ctx context.Context, caller auth.Context, p *model.Performer) error
	listFunc        func(ctx context.Context, filter model.PerformerFilter, limit int, offset int64) ([]*model.Performer, int64, error)
	getByAccount    func(ctx context.Context, accountID string) (*model.Performer, error)
	setVerifiedFunc func(ctx context.Context, caller auth.Context, id string, verified bool) (*model.Performer, error)
}

func (m *mockPerformerService) Register(ctx context.Context, caller auth.Context, p *model.Performer) error {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, caller, p)
	}
	return nil
}

func (m *mockPerformerService) GetByID(ctx context.Context, id string) (*model.Performer, error) {
	return nil, apperrors.NotFoundWithID("Performer", id)
}

func (m *mockPerformerService) GetByAccount(ctx context.Context, accountID string) (*model.Performer, error) {
	if m.getByAccount != nil {
		return m.getByAccount(ctx, accountID)
	}
	return nil, nil
}

func (m *mockPerformerService) List(ctx context.Context, filter model.PerformerFilter, limit int, offset int64) ([]*model.Performer, int64, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter, limit, offset)
	}
	return []*model.Performer{}, 0, nil
}

func (m *mockPerformerService) Update(ctx context.Context, caller auth.Context, id string, update *model.PerformerUpdate) (*model.Performer, error) {
	return nil, nil
}

func (m *mockPerformerService) SetStatus(ctx context.Context, caller auth.Context, id string, status string) (*model.Performer, error) {
	return nil, nil
}

func (m *mockPerformerService) SetVerified(ctx context.Context, caller auth.Context, id string, verified bool) (*model.Performer, error) {
	if m.setVerifiedFunc != nil {
		return m.setVerifiedFunc(ctx, caller, id, verified)
	}
	return nil, nil
}

func (m *mockPerformerService) RecordCompletedBooking(ctx context.Context, id string) error {
	return nil
}

func newRouter(svc *mockPerformerService) *httprouter.Router {
	router := httprouter.New()
	NewPerformerHandler(svc, logger.Discard(), 100).RegisterRoutes(router)
	return router
}

func withCaller(r *http.Request, a auth.Context) *http.Request {
	return r.WithContext(auth.WithContext(r.Context(), a))
}

func TestList_QueryParameters(t *testing.T) {
	var received model.PerformerFilter
	var receivedLimit int
	var receivedOffset int64
	svc := &mockPerformerService{
		listFunc: func(ctx context.Context, filter model.PerformerFilter, limit int, offset int64) ([]*model.Performer, int64, error) {
			received, receivedLimit, receivedOffset = filter, limit, offset
			return []*model.Performer{{ID: "p1"}}, 7, nil
		},
	}
	router := newRouter(svc)

	tests := []struct {
		name           string
		queryString    string
		expectHTTPCode int
	}{
		{name: "defaults", queryString: "", expectHTTPCode: http.StatusOK},
		{name: "filters", queryString: "?status=approved&tier=pro&verified=true&limit=5&offset=10", expectHTTPCode: http.StatusOK},
		{name: "bad limit", queryString: "?limit=abc", expectHTTPCode: http.StatusBadRequest},
		{name: "bad offset", queryString: "?offset=1.5", expectHTTPCode: http.StatusBadRequest},
		{name: "bad verified", queryString: "?verified=maybe", expectHTTPCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/performers"+tt.queryString, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.expectHTTPCode, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/performers?status=approved&tier=pro&verified=true&limit=5&offset=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.PerformerApproved, received.Status)
	assert.Equal(t, model.TierPro, received.Tier)
	require.NotNil(t, received.Verified)
	assert.True(t, *received.Verified)
	assert.Equal(t, 5, receivedLimit)
	assert.Equal(t, int64(10), receivedOffset)

	var body struct {
		Data       []model.Performer `json:"data"`
		TotalCount int64             `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.TotalCount)
	assert.Len(t, body.Data, 1)
}

func TestList_ByAccount(t *testing.T) {
	svc := &mockPerformerService{
		getByAccount: func(ctx context.Context, accountID string) (*model.Performer, error) {
			return &model.Performer{ID: "p1", AccountID: accountID}, nil
		},
	}
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/performers?account_id=acct-3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"account_id":"acct-3"`)
}

func TestRegister_RequiresCaller(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/performers", strings.NewReader(`{"display_name":"Solo"}`))
	newRouter(&mockPerformerService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegister_Created(t *testing.T) {
	var gotCaller auth.Context
	svc := &mockPerformerService{
		registerFunc: func(ctx context.Context, caller auth.Context, p *model.Performer) error {
			gotCaller = caller
			p.ID = "65a1b2c3d4e5f60718293a4b"
			return nil
		},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/performers", strings.NewReader(`{"display_name":"Solo","hourly_rate":50,"deposit_percentage":20}`))
	req = withCaller(req, auth.New("acct-1", auth.RolePerformer))
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "acct-1", gotCaller.AccountID)
	assert.Contains(t, rec.Body.String(), `"id":"65a1b2c3d4e5f60718293a4b"`)
}

func TestRegister_InvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/performers", strings.NewReader(`{not json`))
	req = withCaller(req, auth.New("acct-1", auth.RolePerformer))
	rec := httptest.NewRecorder()
	newRouter(&mockPerformerService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetByID_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&mockPerformerService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/performers/id/abc", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeNotFound)
}

func TestSetVerified_RequiresFlag(t *testing.T) {
	called := false
	svc := &mockPerformerService{
		setVerifiedFunc: func(ctx context.Context, caller auth.Context, id string, verified bool) (*model.Performer, error) {
			called = true
			return &model.Performer{ID: id, Verified: verified}, nil
		},
	}
	router := newRouter(svc)

	req := withCaller(httptest.NewRequest(http.MethodPut, "/api/v1/performers/id/p1/verification", strings.NewReader(`{}`)), auth.System())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)

	req = withCaller(httptest.NewRequest(http.MethodPut, "/api/v1/performers/id/p1/verification", strings.NewReader(`{"verified":true}`)), auth.System())
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
	assert.Contains(t, rec.Body.String(), `"verified":true`)
}
