// Package handlers implements the gateway's HTTP endpoints: the bot platform's
// activity callback, the public webhook endpoint, and health.
package handlers

import (
	"context"

	"webhook-gateway/internal/activity"
	"webhook-gateway/internal/common/logging"
	"webhook-gateway/internal/delivery"
	"webhook-gateway/internal/webhooks"
)

// DefaultMaxMessageChars is used when Handlers is created with a ceiling of 0
const DefaultMaxMessageChars = 5000

// Authenticator resolves a webhook id and secret to its record
type Authenticator interface {
	Authenticate(ctx context.Context, id, secret string) (*webhooks.Record, error)
}

// Queue accepts webhook messages for background delivery
type Queue interface {
	Submit(ctx context.Context, job delivery.Job) error
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

type Handlers struct {
	router   *activity.Router
	webhooks Authenticator
	queue    Queue
	health   HealthChecker
	maxChars int
	logger   logging.Logger
}

func New(router *activity.Router, webhooks Authenticator, queue Queue, health HealthChecker, maxMessageChars int) *Handlers {
	if maxMessageChars <= 0 {
		maxMessageChars = DefaultMaxMessageChars
	}
	return &Handlers{
		router:   router,
		webhooks: webhooks,
		queue:    queue,
		health:   health,
		maxChars: maxMessageChars,
		logger:   logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "handlers"}),
	}
}
