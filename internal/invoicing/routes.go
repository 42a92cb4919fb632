package invoicing

import (
	"github.com/go-chi/chi/v5"

	"github.com/lenana-drops/lenana/internal/rbac"
	"github.com/lenana-drops/lenana/internal/shared"
)

// MountRoutes registers invoice endpoints. Voiding is restricted to owners.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(shared.RoleOwner, shared.RoleMaker, shared.RoleChecker))
		r.Get("/invoices", h.List)
		r.Get("/invoices/{id}", h.Show)
		r.Post("/invoices", h.Issue)
		r.Post("/invoices/{id}/pay", h.MarkPaid)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(shared.RoleOwner))
		r.Post("/invoices/{id}/void", h.Void)
	})
}
