package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fairyhunter13/pantry-inventory-service/internal/catalog"
	"github.com/fairyhunter13/pantry-inventory-service/internal/config"
	httpopenapi "github.com/fairyhunter13/pantry-inventory-service/internal/http/openapi"
	"github.com/fairyhunter13/pantry-inventory-service/internal/inventory"
	"github.com/fairyhunter13/pantry-inventory-service/internal/model"
	"github.com/fairyhunter13/pantry-inventory-service/internal/obs"
	"github.com/fairyhunter13/pantry-inventory-service/internal/store"
)

// Service is the inventory behaviour the HTTP layer exposes.
type Service interface {
	Snapshot(ctx context.Context) (model.Inventory, error)
	UpdateConstraint(ctx context.Context, class string, value int) error
	Constraints(ctx context.Context) ([]inventory.Constraint, error)
	Catalog() *catalog.Catalog
	LastSequence() uint64
}

type App struct {
	Cfg       config.Config
	Inventory Service
	closing   atomic.Bool
	started   time.Time
}

type constraintBody struct {
	Constraint *int `json:"constraint"`
}

type constraintsResp struct {
	Constraints []inventory.Constraint `json:"constraints"`
}

func NewApp(cfg config.Config, svc Service) *App {
	return &App{Cfg: cfg, Inventory: svc, started: time.Now()}
}

// StartShutdown makes health checks fail so load balancers stop routing here.
func (a *App) StartShutdown() {
	a.closing.Store(true)
}

func (a *App) snapshotContext(r *http.Request) (context.Context, context.CancelFunc) {
	if a.Cfg.SnapshotTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), a.Cfg.SnapshotTimeout)
}

func (a *App) getInventoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	ctx, cancel := a.snapshotContext(r)
	defer cancel()
	inv, err := a.Inventory.Snapshot(ctx)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv.View())
}

func (a *App) getRecordHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	name := catalog.Normalize(strings.TrimPrefix(r.URL.Path, "/inventory/"))
	if name == "" {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	if !a.Inventory.Catalog().Contains(name) {
		WriteJSONError(w, http.StatusNotFound, "unknown_class", name)
		return
	}
	ctx, cancel := a.snapshotContext(r)
	defer cancel()
	inv, err := a.Inventory.Snapshot(ctx)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rec, ok := inv.Get(name)
	if !ok {
		writeServiceError(w, r, fmt.Errorf("%w: %q missing from snapshot", inventory.ErrUnknownClass, name))
		return
	}
	writeJSON(w, http.StatusOK, rec.View())
}

func (a *App) listConstraintsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	cs, err := a.Inventory.Constraints(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, constraintsResp{Constraints: cs})
}

func (a *App) putConstraintHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/constraints/")
	if name == "" {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return
	}
	var body constraintBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if body.Constraint == nil {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "constraint is required")
		return
	}
	if err := a.Inventory.UpdateConstraint(r.Context(), name, *body.Constraint); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inventory.Constraint{
		Class:      catalog.Normalize(name),
		Constraint: *body.Constraint,
	})
}

func (a *App) constraintsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/constraints" {
		a.listConstraintsHandler(w, r)
		return
	}
	a.putConstraintHandler(w, r)
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	if a.closing.Load() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"uptime_sec":    time.Since(a.started).Seconds(),
		"last_snapshot": a.Inventory.LastSequence(),
	})
}

func (a *App) openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(httpopenapi.YAML)
}

func (a *App) docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	html := `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Pantry Inventory API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`
	_, _ = w.Write([]byte(html))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps inventory errors onto status codes. The malformed
// store check runs first because snapshot errors wrap it together with
// ErrInvalidConstraint.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, store.ErrMalformedStore):
		status, code = http.StatusInternalServerError, "invalid_constraints"
	case errors.Is(err, inventory.ErrUnknownClass):
		status, code = http.StatusNotFound, "unknown_class"
	case errors.Is(err, inventory.ErrInvalidConstraint):
		status, code = http.StatusBadRequest, "invalid_constraint"
	case errors.Is(err, inventory.ErrNoRow):
		status, code = http.StatusConflict, "constraint_row_missing"
	case errors.Is(err, inventory.ErrDetectorInconsistency):
		status, code = http.StatusBadGateway, "detector_inconsistency"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		status, code = http.StatusServiceUnavailable, "canceled"
	case errors.Is(err, store.ErrStoreWrite):
		status, code = http.StatusInternalServerError, "store_write_failed"
	}
	if status >= http.StatusInternalServerError {
		obs.Logger.Error("request_failed",
			"path", r.URL.Path,
			"status", status,
			"error", err,
			"request_id", RequestIDFromContext(r.Context()),
		)
	}
	WriteJSONError(w, status, code, err.Error())
}
