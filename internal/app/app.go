package app

import (
	"context"

	"webhook-gateway/internal/activity"
	"webhook-gateway/internal/auth"
	"webhook-gateway/internal/bot"
	"webhook-gateway/internal/common/logging"
	"webhook-gateway/internal/config"
	"webhook-gateway/internal/delivery"
	"webhook-gateway/internal/oauth2"
	"webhook-gateway/internal/redis"
	"webhook-gateway/internal/store"
	"webhook-gateway/internal/webhooks"
)

// WebhookNamespace prefixes every webhook record in the store
const WebhookNamespace = "webhooks:"

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	RedisClient *redis.Client
	Store       store.Store
	Webhooks    *webhooks.Service
	KeyCache    *auth.KeyCache
	Validator   *auth.Validator
	Tokens      *oauth2.TokenCache
	Bot         *bot.Client
	Router      *activity.Router
	Dispatcher  *delivery.Dispatcher
	Logger      logging.Logger
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "app"}),
	}

	// Initialize components in order of dependency
	if err := app.initializeStore(); err != nil {
		return nil, err
	}

	app.initializeAuth()

	if err := app.initializeBot(); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeCommands(); err != nil {
		app.Cleanup()
		return nil, err
	}

	app.Dispatcher = delivery.New(app.Bot, cfg.DeliveryWorkers, cfg.DeliveryQueueSize)
	return app, nil
}

// Shutdown drains the background deliveries
func (app *App) Shutdown(ctx context.Context) error {
	if app.Dispatcher == nil {
		return nil
	}
	return app.Dispatcher.Shutdown(ctx)
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.RedisClient != nil {
		if err := app.RedisClient.Close(); err != nil {
			app.Logger.Warn("Error closing Redis client", logging.Field{Key: "error", Value: err.Error()})
		}
		app.RedisClient = nil
	}
}
