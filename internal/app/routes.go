package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"webhook-gateway/internal/handlers"
	"webhook-gateway/internal/metrics"
	"webhook-gateway/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, h *handlers.Handlers, authMiddleware func(http.Handler) http.Handler) {
	router.Use(middleware.RequestID, middleware.Logging, middleware.Recovery)

	// Route misses bypass router.Use, so they get the same chain explicitly
	router.NotFoundHandler = middleware.RequestID(middleware.Logging(http.HandlerFunc(h.NotFound)))
	router.MethodNotAllowedHandler = middleware.RequestID(middleware.Logging(http.HandlerFunc(h.MethodNotAllowed)))

	// Operational endpoints (no auth required)
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// Activities posted by the bot platform carry a signed token
	router.Handle("/bot/message", authMiddleware(http.HandlerFunc(h.HandleBotMessage))).Methods(http.MethodPost)

	// Webhook calls authenticate with the webhook secret
	router.HandleFunc("/webhook/{id:.+}", h.HandleWebhook).Methods(http.MethodPost)
}
