package inventory

import (
	"github.com/go-chi/chi/v5"

	"github.com/lenana-drops/lenana/internal/rbac"
	"github.com/lenana-drops/lenana/internal/shared"
)

// MountRoutes registers inventory endpoints.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(shared.RoleOwner, shared.RoleMaker, shared.RoleChecker))
		r.Get("/inventory", h.List)
		r.Get("/inventory/{productID}", h.Show)
		r.Get("/inventory/{productID}/movements", h.Movements)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(shared.RoleOwner, shared.RoleChecker))
		r.Post("/inventory/{productID}/adjust", h.Adjust)
	})
}
