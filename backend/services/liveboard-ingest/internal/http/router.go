package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Trigger paths. The legacy path keeps existing schedulers working.
const (
	ScrapePath       = "/api/liveboard/scrape"
	LegacyScrapePath = "/api/scraping_function"
	LastRunPath      = "/api/liveboard/runs/last"
	HealthPath       = "/health"
)

// RouterDeps collects handler dependencies. LastRunHandler may be nil when no
// run store is configured.
type RouterDeps struct {
	IngestHandler  http.Handler
	LastRunHandler http.Handler
	HealthHandler  http.HandlerFunc
}

// NewRouter wires HTTP routes. authMiddleware guards the trigger and may be nil.
func NewRouter(deps RouterDeps, authMiddleware func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)

	r.Get(HealthPath, deps.HealthHandler)

	r.Group(func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}
		for _, path := range []string{ScrapePath, LegacyScrapePath} {
			r.Method(http.MethodGet, path, deps.IngestHandler)
			r.Method(http.MethodPost, path, deps.IngestHandler)
		}
		if deps.LastRunHandler != nil {
			r.Method(http.MethodGet, LastRunPath, deps.LastRunHandler)
		}
	})

	return r
}
