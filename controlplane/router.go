package controlplane

import (
	"crypto/rsa"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter returns a configured chi.Router for the control-plane API.
//
// Route layout:
//
//	GET    /healthz                           – liveness probe (no auth)
//	POST   /api/v1/tables/{name}/entries       – add an entry (JWT required)
//	DELETE /api/v1/tables/{name}/entries/{id}  – remove an entry (JWT required)
//	POST   /api/v1/tables/{name}/clear         – clear a table (JWT required)
//	PUT    /api/v1/tables/{name}/default       – set the default entry (JWT required)
//	GET    /api/v1/tables/{name}/stats         – read hit counters (JWT required)
//
// pubKey is the RSA public key used to verify RS256 Bearer tokens on
// every /api route. Pass nil to disable JWT validation, for tests that
// cover only request parsing and response formatting.
func NewRouter(srv *Server, pubKey *rsa.PublicKey) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", srv.handleHealthz)

	r.Route("/api/v1", func(r chi.Router) {
		if pubKey != nil {
			r.Use(JWTMiddleware(pubKey))
		}

		r.Post("/tables/{name}/entries", srv.handleAddEntry)
		r.Delete("/tables/{name}/entries/{id}", srv.handleRemoveEntry)
		r.Post("/tables/{name}/clear", srv.handleClearTable)
		r.Put("/tables/{name}/default", srv.handleSetDefaultEntry)
		r.Get("/tables/{name}/stats", srv.handleTableStats)
	})

	return r
}
