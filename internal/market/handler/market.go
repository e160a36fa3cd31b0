package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"gigmarket/internal/market/service"
	"gigmarket/pkg/auth"
	apperrors "gigmarket/pkg/errors"
	httputil "gigmarket/pkg/http"
	"gigmarket/pkg/logger"
	"gigmarket/pkg/model"
)

type MarketHandler struct {
	service  service.MarketService
	log      *logger.Logger
	maxLimit int
}

func NewMarketHandler(service service.MarketService, log *logger.Logger, maxLimit int) *MarketHandler {
	return &MarketHandler{
		service:  service,
		log:      log,
		maxLimit: maxLimit,
	}
}

func (h *MarketHandler) CreateEvent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "CreateEvent", err)
		return
	}

	var event model.MarketEvent
	if err := httputil.DecodeJSON(r, &event, false); err != nil {
		h.writeError(w, "CreateEvent", err)
		return
	}

	if err := h.service.CreateEvent(r.Context(), caller, &event); err != nil {
		h.writeError(w, "CreateEvent", err)
		return
	}

	if err := httputil.WriteCreated(w, event); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateEvent", "operation", "WriteCreated", "error", err)
	}
}

func (h *MarketHandler) GetEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	event, err := h.service.GetEvent(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetEvent", err)
		return
	}

	if err := httputil.WriteSuccess(w, event); err != nil {
		h.log.Error("failed to write success response", "handler", "GetEvent", "operation", "WriteSuccess", "error", err)
	}
}

func (h *MarketHandler) Query(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	filter := model.MarketEventFilter{
		Status: model.MarketEventStatus(r.URL.Query().Get("status")),
	}
	paginated(h, w, r, "Query", func(limit int, offset int64) ([]*model.MarketEvent, int64, error) {
		return h.service.Query(r.Context(), filter, limit, offset)
	})
}

func (h *MarketHandler) GetCustomerEvents(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	paginated(h, w, r, "GetCustomerEvents", func(limit int, offset int64) ([]*model.MarketEvent, int64, error) {
		return h.service.GetCustomerEvents(r.Context(), ps.ByName("customer_id"), limit, offset)
	})
}

func (h *MarketHandler) CloseEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.eventAction(w, r, "CloseEvent", func(caller auth.Context) (*model.MarketEvent, error) {
		return h.service.CloseEvent(r.Context(), caller, ps.ByName("id"))
	})
}

func (h *MarketHandler) CancelEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.eventAction(w, r, "CancelEvent", func(caller auth.Context) (*model.MarketEvent, error) {
		return h.service.CancelEvent(r.Context(), caller, ps.ByName("id"))
	})
}

func (h *MarketHandler) SubmitBid(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "SubmitBid", err)
		return
	}

	var bid model.Bid
	if err := httputil.DecodeJSON(r, &bid, false); err != nil {
		h.writeError(w, "SubmitBid", err)
		return
	}
	bid.EventID = ps.ByName("id")

	if err := h.service.SubmitBid(r.Context(), caller, &bid); err != nil {
		h.writeError(w, "SubmitBid", err)
		return
	}

	if err := httputil.WriteCreated(w, bid); err != nil {
		h.log.Error("failed to write created response", "handler", "SubmitBid", "operation", "WriteCreated", "error", err)
	}
}

func (h *MarketHandler) GetEventBids(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "GetEventBids", err)
		return
	}

	bids, err := h.service.GetEventBids(r.Context(), caller, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetEventBids", err)
		return
	}

	if err := httputil.WriteSuccess(w, bids); err != nil {
		h.log.Error("failed to write success response", "handler", "GetEventBids", "operation", "WriteSuccess", "error", err)
	}
}

func (h *MarketHandler) GetPerformerBids(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	paginated(h, w, r, "GetPerformerBids", func(limit int, offset int64) ([]*model.Bid, int64, error) {
		caller, err := httputil.Caller(r)
		if err != nil {
			return nil, 0, err
		}
		return h.service.GetPerformerBids(r.Context(), caller, ps.ByName("performer_id"), limit, offset)
	})
}

func (h *MarketHandler) AcceptBid(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "AcceptBid", err)
		return
	}

	result, err := h.service.AcceptBid(r.Context(), caller, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "AcceptBid", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "AcceptBid", "operation", "WriteSuccess", "error", err)
	}
}

func (h *MarketHandler) RejectBid(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.bidAction(w, r, "RejectBid", func(caller auth.Context) (*model.Bid, error) {
		return h.service.RejectBid(r.Context(), caller, ps.ByName("id"))
	})
}

func (h *MarketHandler) WithdrawBid(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.bidAction(w, r, "WithdrawBid", func(caller auth.Context) (*model.Bid, error) {
		return h.service.WithdrawBid(r.Context(), caller, ps.ByName("id"))
	})
}

func (h *MarketHandler) eventAction(w http.ResponseWriter, r *http.Request, name string, act func(auth.Context) (*model.MarketEvent, error)) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	event, err := act(caller)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	if err := httputil.WriteSuccess(w, event); err != nil {
		h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
	}
}

func (h *MarketHandler) bidAction(w http.ResponseWriter, r *http.Request, name string, act func(auth.Context) (*model.Bid, error)) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	bid, err := act(caller)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	if err := httputil.WriteSuccess(w, bid); err != nil {
		h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
	}
}

func paginated[T any](h *MarketHandler, w http.ResponseWriter, r *http.Request, name string, fetch func(limit int, offset int64) ([]T, int64, error)) {
	limit, offset, err := httputil.ExtractLimitOffset(r, h.maxLimit)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	items, total, err := fetch(limit, offset)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	if err := httputil.WritePaginated(w, items, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", name, "operation", "WritePaginated", "error", err)
	}
}

func (h *MarketHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if appErr := apperrors.AsAppError(err); appErr.Kind == apperrors.KindInternal {
		h.log.Error("market request failed", "handler", handler, "error", err)
	}
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *MarketHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/market/events", h.CreateEvent)
	router.GET("/api/v1/market/events", h.Query)
	router.GET("/api/v1/market/events/id/:id", h.GetEvent)
	router.GET("/api/v1/market/events/customer/:customer_id", h.GetCustomerEvents)
	router.POST("/api/v1/market/events/id/:id/close", h.CloseEvent)
	router.POST("/api/v1/market/events/id/:id/cancel", h.CancelEvent)
	router.POST("/api/v1/market/events/id/:id/bids", h.SubmitBid)
	router.GET("/api/v1/market/events/id/:id/bids", h.GetEventBids)
	router.GET("/api/v1/market/bids/performer/:performer_id", h.GetPerformerBids)
	router.POST("/api/v1/market/bids/id/:id/accept", h.AcceptBid)
	router.POST("/api/v1/market/bids/id/:id/reject", h.RejectBid)
	router.POST("/api/v1/market/bids/id/:id/withdraw", h.WithdrawBid)
}
