package api

import (
	"net/http"

	"sameday-dispatch-service/internal/adapters/events"
	"sameday-dispatch-service/internal/api/handlers"
	"sameday-dispatch-service/internal/ports"
	"sameday-dispatch-service/internal/services"
)

// Deps bundles everything the HTTP layer needs. Handlers stay unaware
// of concrete adapters.
type Deps struct {
	Stops     *services.StopService
	Optimize  *services.OptimizeService
	Lifecycle *services.LifecycleService
	Importer  *services.ImportService
	Tracking  *services.TrackingService
	Settings  ports.SettingsRepository
	Hub       *events.Hub
}

// NewRouter wires HTTP handlers with their dependencies and returns an
// http.Handler. This is the API composition root.
func NewRouter(deps Deps) http.Handler {
	mux := http.NewServeMux()

	stopHandler := &handlers.StopHandler{Stops: deps.Stops}
	routeHandler := &handlers.RouteHandler{
		Optimize:  deps.Optimize,
		Lifecycle: deps.Lifecycle,
		Settings:  services.NewSettingsReader(deps.Settings),
	}
	importHandler := &handlers.ImportHandler{Importer: deps.Importer}
	trackingHandler := &handlers.TrackingHandler{Tracking: deps.Tracking}
	settingsHandler := &handlers.SettingsHandler{Settings: deps.Settings}
	wsHandler := &handlers.WSHandler{Hub: deps.Hub}

	mux.HandleFunc("GET /health", handlers.Health)

	mux.HandleFunc("POST /stops", stopHandler.Create)
	mux.HandleFunc("GET /stops", stopHandler.List)
	mux.HandleFunc("DELETE /stops", stopHandler.ClearDate)
	mux.HandleFunc("GET /stops/{id}", stopHandler.Get)
	mux.HandleFunc("PUT /stops/{id}", stopHandler.Update)
	mux.HandleFunc("DELETE /stops/{id}", stopHandler.Delete)
	mux.HandleFunc("POST /stops/{id}/complete", stopHandler.Complete)

	mux.HandleFunc("POST /routes/optimize", routeHandler.RunOptimize)
	mux.HandleFunc("GET /routes", routeHandler.GetByDate)
	mux.HandleFunc("POST /routes/archive-sweep", routeHandler.ArchiveSweep)
	mux.HandleFunc("POST /routes/{id}/start", routeHandler.Start)
	mux.HandleFunc("POST /routes/{id}/complete", routeHandler.Complete)
	mux.HandleFunc("POST /routes/{id}/cancel", routeHandler.Cancel)
	mux.HandleFunc("POST /routes/{id}/archive", routeHandler.Archive)
	mux.HandleFunc("POST /routes/{id}/unarchive", routeHandler.Unarchive)

	mux.HandleFunc("POST /imports", importHandler.Run)

	mux.HandleFunc("POST /tracking", trackingHandler.Record)
	mux.HandleFunc("GET /tracking", trackingHandler.List)

	mux.HandleFunc("GET /settings", settingsHandler.List)
	mux.HandleFunc("PUT /settings", settingsHandler.Put)

	mux.HandleFunc("GET /ws", wsHandler.Subscribe)

	return recoverMiddleware(loggingMiddleware(mux))
}
