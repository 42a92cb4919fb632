package orders

import (
	"github.com/go-chi/chi/v5"

	"github.com/lenana-drops/lenana/internal/rbac"
	"github.com/lenana-drops/lenana/internal/shared"
)

// MountRoutes registers order endpoints.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(shared.RoleOwner, shared.RoleMaker, shared.RoleChecker))
		r.Get("/orders", h.List)
		r.Get("/orders/{id}", h.Show)
		r.Post("/orders", h.Create)
		r.Post("/orders/{id}/fulfil", h.Fulfil)
		r.Post("/orders/{id}/cancel", h.Cancel)
	})
}
