package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/inkroute/inkroute/internal/billing"
	"github.com/inkroute/inkroute/internal/customers"
	"github.com/inkroute/inkroute/internal/insights"
	"github.com/inkroute/inkroute/internal/inventory"
	"github.com/inkroute/inkroute/internal/masterdata"
	"github.com/inkroute/inkroute/internal/observability"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Metrics           *observability.Metrics
	MasterDataHandler *masterdata.Handler
	CustomersHandler  *customers.Handler
	InventoryHandler  *inventory.Handler
	BillingHandler    *billing.Handler
	InsightsHandler   *insights.Handler
}

// NewRouter constructs the chi.Router with inkroute defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		params.MasterDataHandler.MountRoutes(api)
		params.CustomersHandler.MountRoutes(api)
		params.InventoryHandler.MountRoutes(api)
		params.BillingHandler.MountRoutes(api)
		params.InsightsHandler.MountRoutes(api)
	})

	return r
}
