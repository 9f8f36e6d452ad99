package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/renpay/renpay-backend/api/controllers"
	"github.com/renpay/renpay-backend/api/middleware"
	"github.com/renpay/renpay-backend/internal/mailer"
	"github.com/renpay/renpay-backend/internal/media"
	"github.com/renpay/renpay-backend/internal/orders"
	"github.com/renpay/renpay-backend/internal/subscriptions"
	"github.com/renpay/renpay-backend/internal/users"
	"github.com/renpay/renpay-backend/internal/wallet"
	"github.com/renpay/renpay-backend/pkg/config"
	"github.com/renpay/renpay-backend/pkg/db"
	"github.com/renpay/renpay-backend/pkg/logger"
	"github.com/renpay/renpay-backend/pkg/metrics"
	"github.com/renpay/renpay-backend/pkg/paypal"
)

// Deps carries everything the HTTP surface needs. The gateway may be nil when
// PayPal credentials are absent; the affected routes answer 503.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      db.Pinger
	Gateway *paypal.Client

	Users         users.Repository
	Wallet        wallet.Service
	Orders        orders.Service
	Subscriptions subscriptions.Service
	Mailer        mailer.Mailer
	Media         *media.Service

	Metrics  *metrics.PaymentMetrics
	Registry *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, logg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletGet(deps.Users, deps.Wallet, logg))
			r.Post("/", controllers.WalletAction(deps.Users, deps.Wallet, deps.Mailer, logg))
		})

		r.Route("/paypal", func(r chi.Router) {
			r.Get("/config", controllers.PayPalConfig(gatewayOrNil(deps.Gateway), logg))
			r.Post("/", controllers.PayPalAction(gatewayOrNil(deps.Gateway), deps.Users, deps.Wallet, deps.Metrics, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(deps.Users, deps.Orders, logg))
			r.Post("/", controllers.OrdersCreate(deps.Users, deps.Orders, logg))
			r.Put("/", controllers.OrdersUpdateStatus(deps.Users, deps.Orders, logg))
			r.Delete("/", controllers.OrdersDelete(deps.Users, deps.Orders, logg))
		})

		r.Route("/subscription", func(r chi.Router) {
			r.Get("/", controllers.SubscriptionGet(deps.Users, deps.Subscriptions, logg))
			r.Post("/", controllers.SubscriptionAction(deps.Users, deps.Subscriptions, logg))
		})

		r.Get("/media", controllers.MediaFetch(deps.Media, logg))
	})

	return r
}

// gatewayOrNil keeps a nil *paypal.Client from becoming a non-nil interface.
func gatewayOrNil(client *paypal.Client) controllers.PayPalGateway {
	if client == nil {
		return nil
	}
	return client
}
