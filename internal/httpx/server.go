package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mkulima/sokoni/internal/metrics"
)

// NewRouter mounts the full API surface. Auth routes skip the Identity
// middleware; everything else under /api/v1 requires a caller id.
func NewRouter(authing *AuthHandler, handlers ...interface{ Register(chi.Router) }) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if authing != nil {
			authing.Register(r)
		}
		r.Group(func(r chi.Router) {
			r.Use(Identity)
			for _, h := range handlers {
				h.Register(r)
			}
		})
	})
	return r
}
