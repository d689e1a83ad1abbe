package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/liushenghao/taixuan_shop/internal/config"
	"github.com/liushenghao/taixuan_shop/internal/db"
	"github.com/liushenghao/taixuan_shop/internal/es"
	"github.com/liushenghao/taixuan_shop/internal/httpserver"
	"github.com/liushenghao/taixuan_shop/internal/logging"
	"github.com/liushenghao/taixuan_shop/internal/mailer"
	"github.com/liushenghao/taixuan_shop/internal/mykafka"
	"github.com/liushenghao/taixuan_shop/internal/payments"
	"github.com/liushenghao/taixuan_shop/internal/repo"
	"github.com/liushenghao/taixuan_shop/internal/service"
	"github.com/liushenghao/taixuan_shop/internal/service/token"
)

func main() {
	cfg := config.Load()
	cfg.Require()

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()
	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	producer := mykafka.NewProducer(cfg.KafkaBrokers)
	if !producer.Enabled() {
		logger.Warn("kafka brokers not configured, domain events disabled")
	}

	esClient, err := es.NewClient(cfg)
	if err != nil {
		log.Fatalf("elasticsearch init failed: %v", err)
	}
	indexer := es.NewIndexer(esClient)
	if !indexer.Enabled() {
		logger.Warn("elasticsearch not configured, catalog search uses sql fallback")
	}

	mail := mailer.New(cfg.ResendAPIKey, cfg.MailFrom)
	if !mail.Enabled() {
		logger.Warn("resend not configured, confirmation mail disabled")
	}

	provider := payments.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	if cfg.StripeSecretKey == "" {
		logger.Warn("stripe not configured, checkout sessions will fail until STRIPE_SECRET_KEY is set")
	}

	r := repo.New(gdb)
	tokens := &token.Service{DB: gdb, JWTSecret: cfg.JWTSecret, RefreshSecret: cfg.RefreshSecret}

	deps := &httpserver.Deps{
		AuthHandler: &httpserver.AuthHandler{
			Svc: &service.AuthService{Repo: r, Tokens: tokens, Producer: producer},
		},
		ProductHandler: &httpserver.ProductHandler{
			Svc: &service.CatalogService{Repo: r, Indexer: indexer, Producer: producer, PublicDir: cfg.PublicDir},
		},
		CartHandler: &httpserver.CartHandler{
			Svc: &service.CartService{Repo: r, Producer: producer},
		},
		CheckoutHandler: &httpserver.CheckoutHandler{
			Svc: &service.CheckoutService{Repo: r, Provider: provider, Producer: producer, BaseURL: cfg.BaseURL},
		},
		WebhookHandler: &httpserver.WebhookHandler{
			Svc:      &service.WebhookService{Repo: r, Producer: producer, Mailer: mail},
			Provider: provider,
		},
		OrderHandler: &httpserver.OrderHandler{
			Svc: &service.OrderService{Repo: r, Producer: producer},
		},
		UploadHandler: &httpserver.UploadHandler{PublicDir: cfg.PublicDir},
		Tokens:        tokens,
		PublicDir:     cfg.PublicDir,
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), logging.RequestLogger(logger))

	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("server started", "port", cfg.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
