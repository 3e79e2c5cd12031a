package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	httpserver "github.com/Skotchmaster/storefront/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(log)
	ctx := logging.IntoContext(context.Background(), log)

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db init error", "error", err)
		os.Exit(1)
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, gdb); err != nil {
			log.Error("migration error", "error", err)
			os.Exit(1)
		}
	}

	var publisher events.Publisher = events.Nop{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
		publisher = producer
		log.Info("kafka producer ready", "brokers", cfg.KafkaBrokers)
	}

	var index search.Index = search.Nop{}
	created := false
	if cfg.ESURL != "" {
		es, err := search.NewClient(ctx, search.Options{
			URL:      cfg.ESURL,
			User:     cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		if err != nil {
			log.Warn("search disabled", "error", err)
		} else if created, err = es.EnsureIndex(ctx); err != nil {
			log.Warn("search disabled", "reason", "cannot create index", "error", err)
		} else {
			index = es
		}
	}

	metrics.Init()

	r := repo.New(gdb)
	adminSvc := &service.AdminService{Repo: r, Events: publisher, Search: index}
	if created {
		// backfill products stored before the index existed
		if _, err := adminSvc.ReindexAll(ctx); err != nil {
			log.Warn("search backfill error", "error", err)
		}
	}
	authSvc := &service.AuthService{Repo: r, Events: publisher, Secret: cfg.SessionSecret, TTL: cfg.SessionTTL}

	if cfg.AdminEmail != "" {
		if _, err := authSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Error("admin bootstrap error", "error", err)
			os.Exit(1)
		}
	}

	e, err := httpserver.New(&httpserver.Deps{
		DB:       gdb,
		Logger:   log,
		Auth:     authSvc,
		Catalog:  &service.CatalogService{Repo: r, Search: index},
		Cart:     &service.CartService{Repo: r, Events: publisher},
		Checkout: &service.CheckoutService{Repo: r, Events: publisher, Search: index},
		Address:  &service.AddressService{Repo: r},
		Orders:   &service.OrderService{Repo: r},
		Admin:    adminSvc,

		SessionSecret: cfg.SessionSecret,
		CookieSecure:  cfg.CookieSecure,
	})
	if err != nil {
		log.Error("http init error", "error", err)
		os.Exit(1)
	}

	srv := httpserver.NewHTTPServer(cfg.Addr(), e)
	go func() {
		log.Info("http server listening", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	go func() {
		<-quit
		log.Warn("force exit")
		os.Exit(1)
	}()

	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		log.Error("db close error", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("kafka close error", "error", err)
		}
	}

	log.Info("shutdown complete")
}
