package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lenana-drops/lenana/internal/auth"
	"github.com/lenana-drops/lenana/internal/catalog"
	"github.com/lenana-drops/lenana/internal/clients"
	"github.com/lenana-drops/lenana/internal/inventory"
	"github.com/lenana-drops/lenana/internal/invoicing"
	"github.com/lenana-drops/lenana/internal/orders"
	"github.com/lenana-drops/lenana/internal/production"
	"github.com/lenana-drops/lenana/internal/rbac"
	"github.com/lenana-drops/lenana/internal/stockin"
	"github.com/lenana-drops/lenana/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Authenticator     *auth.Authenticator
	RBACMiddleware    rbac.Middleware
	AuthHandler       *auth.Handler
	UsersHandler      *users.Handler
	ClientsHandler    *clients.Handler
	CatalogHandler    *catalog.Handler
	ProductionHandler *production.Handler
	InventoryHandler  *inventory.Handler
	StockInHandler    *stockin.Handler
	OrdersHandler     *orders.Handler
	InvoicingHandler  *invoicing.Handler
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	var authn func(http.Handler) http.Handler
	if params.Authenticator != nil {
		authn = params.Authenticator.Middleware
	}
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:        params.Logger,
		Config:        params.Config,
		Authenticator: authn,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	params.AuthHandler.MountRoutes(r)

	r.Route("/api/v1", func(r chi.Router) {
		guard := params.RBACMiddleware
		params.UsersHandler.MountRoutes(r, guard)
		params.ClientsHandler.MountRoutes(r, guard)
		params.CatalogHandler.MountRoutes(r, guard)
		params.ProductionHandler.MountRoutes(r, guard)
		params.InventoryHandler.MountRoutes(r, guard)
		params.StockInHandler.MountRoutes(r, guard)
		params.OrdersHandler.MountRoutes(r, guard)
		params.InvoicingHandler.MountRoutes(r, guard)
	})

	return r
}
