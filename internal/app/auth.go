package app

import (
	"context"

	"webhook-gateway/internal/activity"
	"webhook-gateway/internal/auth"
	"webhook-gateway/internal/bot"
	"webhook-gateway/internal/commands"
	"webhook-gateway/internal/common/logging"
	"webhook-gateway/internal/oauth2"
)

func (app *App) initializeAuth() {
	app.KeyCache = auth.NewKeyCache(app.Config.JWKSURL)
	app.Validator = auth.NewValidator(app.KeyCache, app.Config.AuthIssuer, app.Config.BotAppID)
}

// WarmKeys loads the platform signing keys ahead of the first request. A failure
// is logged and left to the lazy fetch on first use.
func (app *App) WarmKeys(ctx context.Context) error {
	if err := app.KeyCache.Refresh(ctx); err != nil {
		app.Logger.Warn("Signing keys not loaded at startup", logging.Field{Key: "error", Value: err.Error()})
		return err
	}
	return nil
}

// initializeBot sets up the outbound side: the client-credentials token, shared
// through the store, and the conversation client
func (app *App) initializeBot() error {
	tokens, err := oauth2.NewTokenCache(oauth2.Config{
		ClientID:     app.Config.BotAppID,
		ClientSecret: app.Config.BotAppPassword,
		TokenURL:     app.Config.TokenURL,
		Scope:        app.Config.TokenScope,
	}, oauth2.NewStoreTokenStorage(app.Store))
	if err != nil {
		return err
	}
	app.Tokens = tokens

	var opts []bot.Option
	if app.Config.ServiceURLOverride != "" {
		opts = append(opts, bot.WithServiceURLOverride(app.Config.ServiceURLOverride))
		app.Logger.Warn("Outbound calls use a fixed service URL",
			logging.Field{Key: "service_url", Value: app.Config.ServiceURLOverride})
	}
	app.Bot = bot.NewClient(tokens, opts...)
	return nil
}

func (app *App) initializeCommands() error {
	app.Router = activity.NewRouter()
	cmds := commands.New(app.Webhooks, app.Bot, commands.Config{
		BaseURL:       app.Config.BaseURL,
		AutoProvision: app.Config.AutoProvisionWebhook,
	})
	if err := cmds.Register(app.Router); err != nil {
		return err
	}
	app.Logger.Info("Commands registered", logging.Field{Key: "routes", Value: app.Router.Len()})
	return nil
}
