package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"gigmarket/internal/bookings/service"
	apperrors "gigmarket/pkg/errors"
	httputil "gigmarket/pkg/http"
	"gigmarket/pkg/logger"
	"gigmarket/pkg/model"
)

type BookingHandler struct {
	service  service.BookingService
	log      *logger.Logger
	maxLimit int
}

func NewBookingHandler(service service.BookingService, log *logger.Logger, maxLimit int) *BookingHandler {
	return &BookingHandler{
		service:  service,
		log:      log,
		maxLimit: maxLimit,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var b model.Booking
	if err := httputil.DecodeJSON(r, &b, false); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), caller, &b); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, b); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	b, err := h.service.GetByID(r.Context(), caller, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, b); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListForCustomer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.list(w, r, "ListForCustomer", func(limit int, offset int64) ([]*model.Booking, int64, error) {
		caller, err := httputil.Caller(r)
		if err != nil {
			return nil, 0, err
		}
		return h.service.ListForCustomer(r.Context(), caller, ps.ByName("customer_id"), limit, offset)
	})
}

func (h *BookingHandler) ListForPerformer(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.list(w, r, "ListForPerformer", func(limit int, offset int64) ([]*model.Booking, int64, error) {
		caller, err := httputil.Caller(r)
		if err != nil {
			return nil, 0, err
		}
		return h.service.ListForPerformer(r.Context(), caller, ps.ByName("performer_id"), limit, offset)
	})
}

func (h *BookingHandler) list(w http.ResponseWriter, r *http.Request, name string, fetch func(limit int, offset int64) ([]*model.Booking, int64, error)) {
	limit, offset, err := httputil.ExtractLimitOffset(r, h.maxLimit)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	bookings, total, err := fetch(limit, offset)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", name, "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	var req model.StatusUpdateRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}
	if req.Status == "" {
		h.writeError(w, "UpdateStatus", apperrors.MissingField("status"))
		return
	}

	b, err := h.service.UpdateStatus(r.Context(), caller, ps.ByName("id"), req.Status)
	if err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, b); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	var req model.CancelRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	b, err := h.service.Cancel(r.Context(), caller, ps.ByName("id"), req.Reason)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, b); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) PerformerConfirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "PerformerConfirm", err)
		return
	}

	b, err := h.service.PerformerConfirm(r.Context(), caller, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "PerformerConfirm", err)
		return
	}

	if err := httputil.WriteSuccess(w, b); err != nil {
		h.log.Error("failed to write success response", "handler", "PerformerConfirm", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) CustomerConfirmCompletion(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "CustomerConfirmCompletion", err)
		return
	}

	b, err := h.service.CustomerConfirmCompletion(r.Context(), caller, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "CustomerConfirmCompletion", err)
		return
	}

	if err := httputil.WriteSuccess(w, b); err != nil {
		h.log.Error("failed to write success response", "handler", "CustomerConfirmCompletion", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.GET("/api/v1/bookings/customer/:customer_id", h.ListForCustomer)
	router.GET("/api/v1/bookings/performer/:performer_id", h.ListForPerformer)
	router.PUT("/api/v1/bookings/id/:id/status", h.UpdateStatus)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/bookings/id/:id/performer-confirmation", h.PerformerConfirm)
	router.POST("/api/v1/bookings/id/:id/completion-confirmation", h.CustomerConfirmCompletion)
}
