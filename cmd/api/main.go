package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/renpay/renpay-backend/api/routes"
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
	"github.com/renpay/renpay-backend/pkg/migrate"
	"github.com/renpay/renpay-backend/pkg/paypal"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	// The gateway is optional: without credentials the PayPal routes answer
	// 503 and the rest of the API keeps working.
	var gateway *paypal.Client
	if cfg.PayPal.ClientID != "" && cfg.PayPal.ClientSecret != "" {
		gateway, err = paypal.NewClient(cfg.PayPal, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create paypal client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "paypal credentials not set, gateway routes disabled")
	}

	userRepo := users.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())
	walletRepo := wallet.NewRepository(dbClient.DB())
	subscriptionRepo := subscriptions.NewRepository(dbClient.DB())

	walletSvc, err := wallet.NewService(walletRepo, orderRepo, dbClient, paymentMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orderRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	var subscriptionsSvc subscriptions.Service
	if gateway != nil {
		subscriptionsSvc, err = subscriptions.NewService(subscriptionRepo, dbClient, gateway, logg)
	} else {
		// an untyped nil keeps the service's gateway check meaningful
		subscriptionsSvc, err = subscriptions.NewService(subscriptionRepo, dbClient, nil, logg)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Gateway:       gateway,
			Users:         userRepo,
			Wallet:        walletSvc,
			Orders:        ordersSvc,
			Subscriptions: subscriptionsSvc,
			Mailer:        mailer.New(cfg.SMTP, cfg.App.PublicURL, logg),
			Media:         media.NewService(cfg.Media, logg),
			Metrics:       paymentMetrics,
			Registry:      registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
