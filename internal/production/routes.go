package production

import (
	"github.com/go-chi/chi/v5"

	"github.com/lenana-drops/lenana/internal/rbac"
	"github.com/lenana-drops/lenana/internal/shared"
)

// MountRoutes registers production batch endpoints. Makers run the batch
// through its lifecycle; checkers own the QC verdict.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(shared.RoleOwner, shared.RoleMaker, shared.RoleChecker))
		r.Get("/batches", h.List)
		r.Get("/batches/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(shared.RoleOwner, shared.RoleMaker))
		r.Post("/batches", h.Create)
		r.Post("/batches/{id}/start", h.Start)
		r.Post("/batches/{id}/complete", h.Complete)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireRole(shared.RoleOwner, shared.RoleChecker))
		r.Post("/batches/{id}/qc-approve", h.QCApprove)
		r.Post("/batches/{id}/reject", h.Reject)
	})
}
