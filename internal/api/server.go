package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewHandler composes the visitor-facing and admin route sets on a single
// router. Registering both sets on one mux keeps the patterns disjoint
// without nested mounts.
func NewHandler(pub PublicDeps, adm AdminDeps) http.Handler {
	r := chi.NewRouter()
	registerPublicRoutes(r, pub)
	registerAdminRoutes(r, adm)
	return r
}
