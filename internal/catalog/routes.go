package catalog

import (
	"github.com/go-chi/chi/v5"

	"github.com/lenana-drops/lenana/internal/rbac"
	"github.com/lenana-drops/lenana/internal/shared"
)

// MountRoutes registers product catalog endpoints.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(shared.RoleOwner, shared.RoleMaker, shared.RoleChecker))
		r.Get("/products", h.List)
		r.Get("/products/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(shared.RoleOwner))
		r.Post("/products", h.Create)
		r.Put("/products/{id}", h.Update)
	})
}
