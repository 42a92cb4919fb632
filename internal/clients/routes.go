package clients

import (
	"github.com/go-chi/chi/v5"

	"github.com/lenana-drops/lenana/internal/rbac"
	"github.com/lenana-drops/lenana/internal/shared"
)

// MountRoutes registers client endpoints.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(shared.RoleOwner, shared.RoleMaker, shared.RoleChecker))
		r.Get("/clients", h.List)
		r.Get("/clients/{id}", h.Show)
		r.Post("/clients", h.Create)
		r.Put("/clients/{id}", h.Update)
	})
}
