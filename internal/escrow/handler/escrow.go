package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"gigmarket/internal/escrow/service"
	apperrors "gigmarket/pkg/errors"
	httputil "gigmarket/pkg/http"
	"gigmarket/pkg/logger"
	"gigmarket/pkg/model"
)

type EscrowHandler struct {
	service service.EscrowService
	log     *logger.Logger
}

func NewEscrowHandler(service service.EscrowService, log *logger.Logger) *EscrowHandler {
	return &EscrowHandler{
		service: service,
		log:     log,
	}
}

type BulkReleaseResponse struct {
	Requested int `json:"requested"`
	Released  int `json:"released"`
}

func (h *EscrowHandler) Release(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "Release", err)
		return
	}

	b, err := h.service.Release(r.Context(), caller, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Release", err)
		return
	}

	if err := httputil.WriteSuccess(w, b); err != nil {
		h.log.Error("failed to write success response", "handler", "Release", "operation", "WriteSuccess", "error", err)
	}
}

func (h *EscrowHandler) BulkRelease(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "BulkRelease", err)
		return
	}

	var req model.BulkReleaseRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "BulkRelease", err)
		return
	}

	if len(req.BookingIDs) == 0 {
		h.writeError(w, "BulkRelease", apperrors.MissingField("booking_ids"))
		return
	}

	released, err := h.service.BulkRelease(r.Context(), caller, req.BookingIDs)
	if err != nil {
		h.writeError(w, "BulkRelease", err)
		return
	}

	if err := httputil.WriteSuccess(w, BulkReleaseResponse{Requested: len(req.BookingIDs), Released: released}); err != nil {
		h.log.Error("failed to write success response", "handler", "BulkRelease", "operation", "WriteSuccess", "error", err)
	}
}

func (h *EscrowHandler) MarkHeld(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "MarkHeld", err)
		return
	}

	var req model.EscrowHoldRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil {
		h.writeError(w, "MarkHeld", err)
		return
	}

	id := ps.ByName("id")
	if id == "" {
		h.writeError(w, "MarkHeld", apperrors.InvalidInput("ID parameter is required"))
		return
	}

	b, err := h.service.MarkHeld(r.Context(), caller, id, req.Full)
	if err != nil {
		h.writeError(w, "MarkHeld", err)
		return
	}

	if err := httputil.WriteSuccess(w, b); err != nil {
		h.log.Error("failed to write success response", "handler", "MarkHeld", "operation", "WriteSuccess", "error", err)
	}
}

func (h *EscrowHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *EscrowHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings/id/:id/escrow/release", h.Release)
	router.POST("/api/v1/bookings/id/:id/escrow/hold", h.MarkHeld)
	router.POST("/api/v1/bookings/escrow/release", h.BulkRelease)
}
