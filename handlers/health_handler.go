package handlers

import (
	"net/http"

	"github.com/upb/llm-fallback-proxy/utils"
	"go.uber.org/zap"
)

// HealthHandler handles liveness checks
type HealthHandler struct {
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		logger: logger,
	}
}

// HandleHealth handles GET /health
// Always returns 200 OK while the process is serving
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := utils.WriteText(w, http.StatusOK, "OK"); err != nil {
		h.logger.Error("failed to write health response", zap.Error(err))
	}
}
