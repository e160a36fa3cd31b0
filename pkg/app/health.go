package app

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	httputil "gigmarket/pkg/http"
	"gigmarket/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Cache    string `json:"cache,omitempty"`
}

// HealthHandler serves liveness and readiness. Redis is checked only when
// the service was configured with it.
type HealthHandler struct {
	mongoClient *mongo.Client
	redisClient *redis.Client
	log         *logger.Logger
}

func NewHealthHandler(mongoClient *mongo.Client, redisClient *redis.Client, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		mongoClient: mongoClient,
		redisClient: redisClient,
		log:         log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ready", Database: "ok"}
	status := http.StatusOK

	if err := h.mongoClient.Ping(ctx, nil); err != nil {
		h.log.Error("Database health check failed", "error", err, "path", r.URL.Path)
		resp.Status, resp.Database, status = "unavailable", "error", http.StatusServiceUnavailable
	}

	if h.redisClient != nil {
		resp.Cache = "ok"
		if err := h.redisClient.Ping(ctx).Err(); err != nil {
			h.log.Error("Cache health check failed", "error", err, "path", r.URL.Path)
			resp.Status, resp.Cache, status = "unavailable", "error", http.StatusServiceUnavailable
		}
	}

	if err := httputil.WriteJSON(w, status, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
