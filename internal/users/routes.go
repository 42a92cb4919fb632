package users

import (
	"github.com/go-chi/chi/v5"

	"github.com/lenana-drops/lenana/internal/rbac"
	"github.com/lenana-drops/lenana/internal/shared"
)

// MountRoutes registers user management endpoints, owner only.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(shared.RoleOwner))
		r.Get("/users", h.List)
		r.Get("/users/{id}", h.Show)
		r.Post("/users", h.Create)
		r.Post("/users/{id}/deactivate", h.Deactivate)
		r.Post("/users/{id}/activate", h.Activate)
	})
}
