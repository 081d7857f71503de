package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"webhook-gateway/internal/auth"
	"webhook-gateway/internal/handlers"
	"webhook-gateway/internal/server"
)

// Handler builds the routed HTTP handler of the gateway
func (app *App) Handler() http.Handler {
	h := handlers.New(app.Router, app.Webhooks, app.Dispatcher, app.Store, app.Config.MaxMessageChars)

	router := mux.NewRouter()
	SetupRoutes(router, h, auth.Middleware(app.Validator))
	return router
}

// RunServer starts the delivery workers and creates the HTTP server
func (app *App) RunServer() *server.Server {
	app.Dispatcher.Start()
	return server.New(app.Handler(), app.Config.Port, app.Config.TLSCert, app.Config.TLSKey)
}
