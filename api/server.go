/*
server.go - HTTP server assembly

PURPOSE:
  Builds the chi router, mounts middleware, and wraps everything in an
  http.Server with sane timeouts. /healthz is open; everything under
  /api requires a valid bearer token.

SEE ALSO:
  - handlers.go: The route handlers
  - auth.go:     Bearer-token middleware
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/ehslabs/labledger/ledger"
)

// NewRouter assembles the full route tree.
func NewRouter(engine *ledger.Service, auth *Authenticator, log zerolog.Logger) http.Handler {
	h := NewHandler(engine, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/families", h.listFamilies)

		r.Route("/{domain}/{family}", func(r chi.Router) {
			r.Post("/", h.createEntity)
			r.Get("/", h.listEntities)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getEntity)
				r.Put("/", h.updateEntity)
				r.Patch("/quantity", h.changeQuantity)
				r.Post("/deactivate", h.deactivateEntity)
				r.Get("/history", h.getHistory)
				r.Get("/verify", h.verifyHistory)
			})
		})
	})

	return r
}

// NewServer wraps the router in an http.Server with timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
