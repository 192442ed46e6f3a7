package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/es"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	httpserver "github.com/Skotchmaster/storefront/internal/transport/http"
	"github.com/Skotchmaster/storefront/pkg/db"
)

func main() {
	cfg := config.Load()

	logger := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile}).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	// Money goes over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx := context.Background()

	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db init: %v", err)
	}
	r := &repo.GormRepo{DB: gdb}

	var events mykafka.Publisher = mykafka.Nop{}
	var prod *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod, err = mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Fatal(err)
		}
		events = prod
	} else {
		logger.Info("kafka disabled, events are dropped")
	}

	catalog := &service.CatalogService{Repo: r, Events: events}
	if cfg.ESURL != "" {
		client, err := es.NewClient(ctx, es.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			logger.Warn("elasticsearch unavailable, search uses the database", "error", err)
		} else {
			catalog.Index = &es.ProductIndex{Client: client, Index: cfg.ESIndex}
		}
	}

	gateway := newGateway(cfg.Payment, logger)
	authSvc := &service.AuthService{
		Repo:      r,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  time.Duration(cfg.JWTExpirationMins) * time.Minute,
		Events:    events,
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(metrics.Middleware())

	httpserver.Register(e, &httpserver.Deps{
		DB:             gdb,
		AuthHandler:    &httpserver.AuthHTTP{Svc: authSvc},
		ProductHandler: &httpserver.ProductHTTP{Svc: catalog},
		CartHandler:    &httpserver.CartHTTP{Svc: &service.CartService{Repo: r, Events: events}},
		CheckoutHandler: &httpserver.CheckoutHTTP{Svc: &service.CheckoutService{
			Repo:     r,
			Gateway:  gateway,
			Currency: cfg.Payment.Currency,
			Events:   events,
		}},
		Authenticator: authSvc,
		Metrics:       metrics.Handler(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	go func() {
		<-quit
		logger.Warn("force exit")
		os.Exit(1)
	}()

	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := db.Close(gdb); err != nil {
		logger.Error("db close error", "error", err)
	}

	if prod != nil {
		if err := prod.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func newGateway(cfg config.PaymentConfig, logger *slog.Logger) payment.Gateway {
	if !cfg.UseMulticard() {
		logger.Info("payment gateway: mock")
		return payment.MockGateway{}
	}
	logger.Info("payment gateway: multicard", "test_mode", cfg.MulticardTestMode)
	return payment.NewMulticardGateway(payment.MulticardConfig{
		AppID:       cfg.MulticardAppID,
		Secret:      cfg.MulticardSecret,
		StoreID:     cfg.MulticardStoreID,
		TestMode:    cfg.MulticardTestMode,
		BaseURL:     cfg.MulticardBaseURL,
		ReturnURL:   cfg.ReturnURL,
		CallbackURL: cfg.CallbackURL,
	})
}
