package httpapi

import (
	"expvar"
	"net/http"

	"github.com/fairyhunter13/pantry-inventory-service/internal/obs"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/inventory", app.getInventoryHandler)
	mux.HandleFunc("/inventory/", app.getRecordHandler)
	mux.HandleFunc("/constraints", app.constraintsHandler)
	mux.HandleFunc("/constraints/", app.constraintsHandler)
	mux.HandleFunc("/healthz", app.healthHandler)
	mux.Handle("/metrics", obs.MetricsHandler())
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/openapi.yaml", app.openapiHandler)
	mux.HandleFunc("/docs", app.docsHandler)
	return WithRequestID(WithLogging(mux))
}
