package handlers

import (
	"context"
	"net/http"
	"time"

	"webhook-gateway/internal/common/errors"
	httpclient "webhook-gateway/internal/common/http"
	"webhook-gateway/internal/common/logging"
)

const healthTimeout = 2 * time.Second

type healthResponse struct {
	Status string `json:"status"`
}

// HealthCheck reports whether the webhook store is reachable
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := h.health.Health(ctx); err != nil {
			h.logger.WithContext(r.Context()).Warn("Store unhealthy", logging.Field{Key: "error", Value: err.Error()})
			httpclient.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
	}

	httpclient.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// NotFound answers requests no route matched
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	httpclient.WriteError(w, r, errors.NotFoundError("route"))
}

// MethodNotAllowed answers requests whose path matched under another method
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httpclient.WriteError(w, r, errors.MethodNotAllowedError(r.Method))
}
