package app

import (
	"webhook-gateway/internal/common/errors"
	"webhook-gateway/internal/common/logging"
	"webhook-gateway/internal/config"
	"webhook-gateway/internal/redis"
	"webhook-gateway/internal/store"
	"webhook-gateway/internal/webhooks"
)

// initializeStore opens the configured backend. Webhook records live under
// WebhookNamespace; the shared bot token is kept at the root of the backend.
func (app *App) initializeStore() error {
	switch app.Config.StoreBackend {
	case config.BackendMemory:
		app.Store = store.NewMemoryStore()
		app.Logger.Warn("Store: in-memory, webhooks are lost on restart")

	case config.BackendRedis:
		client, err := redis.NewClient(&redis.Config{
			Address:  app.Config.RedisAddress,
			Password: app.Config.RedisPassword,
			DB:       app.Config.RedisDB,
			PoolSize: app.Config.RedisPoolSize,
		})
		if err != nil {
			return err
		}
		app.RedisClient = client
		app.Store = store.NewRedisStore(client)
		app.Logger.Info("Store: Redis connected", logging.Field{Key: "address", Value: app.Config.RedisAddress})

	default:
		return errors.ConfigError("unknown store backend " + app.Config.StoreBackend)
	}

	app.Webhooks = webhooks.NewService(store.WithNamespace(app.Store, WebhookNamespace), app.Config.MaxWebhooksPerConversation)
	return nil
}
