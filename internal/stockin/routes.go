package stockin

import (
	"github.com/go-chi/chi/v5"

	"github.com/lenana-drops/lenana/internal/rbac"
	"github.com/lenana-drops/lenana/internal/shared"
)

// MountRoutes registers stock intake endpoints. Makers record intakes,
// checkers settle them.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(shared.RoleOwner, shared.RoleMaker, shared.RoleChecker))
		r.Get("/stock-intakes", h.List)
		r.Get("/stock-intakes/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(shared.RoleOwner, shared.RoleMaker))
		r.Post("/stock-intakes", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(shared.RoleOwner, shared.RoleChecker))
		r.Post("/stock-intakes/{id}/approve", h.Approve)
		r.Post("/stock-intakes/{id}/reject", h.Reject)
	})
}
