package handler

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"gigmarket/internal/performers/service"
	apperrors "gigmarket/pkg/errors"
	httputil "gigmarket/pkg/http"
	"gigmarket/pkg/logger"
	"gigmarket/pkg/model"
)

type PerformerHandler struct {
	service  service.PerformerService
	log      *logger.Logger
	maxLimit int
}

func NewPerformerHandler(service service.PerformerService, log *logger.Logger, maxLimit int) *PerformerHandler {
	return &PerformerHandler{
		service:  service,
		log:      log,
		maxLimit: maxLimit,
	}
}

func (h *PerformerHandler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "Register", err)
		return
	}

	var p model.Performer
	if err := httputil.DecodeJSON(r, &p, false); err != nil {
		h.writeError(w, "Register", err)
		return
	}

	if err := h.service.Register(r.Context(), caller, &p); err != nil {
		h.writeError(w, "Register", err)
		return
	}

	if err := httputil.WriteCreated(w, p); err != nil {
		h.log.Error("failed to write created response", "handler", "Register", "operation", "WriteCreated", "error", err)
	}
}

func (h *PerformerHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		h.writeError(w, "GetByID", apperrors.InvalidInput("ID parameter is required"))
		return
	}

	p, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, p); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

// List serves GET /api/v1/performers. With ?account_id= it resolves the
// single profile of that account instead of paging.
func (h *PerformerHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	if accountID := query.Get("account_id"); accountID != "" {
		p, err := h.service.GetByAccount(r.Context(), accountID)
		if err != nil {
			h.writeError(w, "List", err)
			return
		}
		if err := httputil.WriteSuccess(w, p); err != nil {
			h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
		}
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r, h.maxLimit)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	filter := model.PerformerFilter{
		Status: model.PerformerStatus(query.Get("status")),
		Tier:   model.PerformerTier(query.Get("tier")),
	}
	if v := query.Get("verified"); v != "" {
		verified, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, "List", apperrors.InvalidInput("invalid verified parameter: "+v))
			return
		}
		filter.Verified = &verified
	}

	performers, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, performers, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *PerformerHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var update model.PerformerUpdate
	if err := httputil.DecodeJSON(r, &update, false); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	p, err := h.service.Update(r.Context(), caller, ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, p); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PerformerHandler) SetStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "SetStatus", err)
		return
	}

	var req model.StatusUpdateRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "SetStatus", err)
		return
	}
	if req.Status == "" {
		h.writeError(w, "SetStatus", apperrors.MissingField("status"))
		return
	}

	p, err := h.service.SetStatus(r.Context(), caller, ps.ByName("id"), req.Status)
	if err != nil {
		h.writeError(w, "SetStatus", err)
		return
	}

	if err := httputil.WriteSuccess(w, p); err != nil {
		h.log.Error("failed to write success response", "handler", "SetStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PerformerHandler) SetVerified(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	caller, err := httputil.Caller(r)
	if err != nil {
		h.writeError(w, "SetVerified", err)
		return
	}

	var req model.VerificationRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "SetVerified", err)
		return
	}
	if req.Verified == nil {
		h.writeError(w, "SetVerified", apperrors.MissingField("verified"))
		return
	}

	p, err := h.service.SetVerified(r.Context(), caller, ps.ByName("id"), *req.Verified)
	if err != nil {
		h.writeError(w, "SetVerified", err)
		return
	}

	if err := httputil.WriteSuccess(w, p); err != nil {
		h.log.Error("failed to write success response", "handler", "SetVerified", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PerformerHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *PerformerHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/performers", h.Register)
	router.GET("/api/v1/performers", h.List)
	router.GET("/api/v1/performers/id/:id", h.GetByID)
	router.PATCH("/api/v1/performers/id/:id", h.Update)
	router.PUT("/api/v1/performers/id/:id/status", h.SetStatus)
	router.PUT("/api/v1/performers/id/:id/verification", h.SetVerified)
}
