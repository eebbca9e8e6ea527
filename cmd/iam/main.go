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

	"github.com/Skotchmaster/iam/internal/config"
	"github.com/Skotchmaster/iam/internal/db"
	"github.com/Skotchmaster/iam/internal/events"
	"github.com/Skotchmaster/iam/internal/hash"
	"github.com/Skotchmaster/iam/internal/httpserver"
	"github.com/Skotchmaster/iam/internal/logging"
	"github.com/Skotchmaster/iam/internal/middleware"
	"github.com/Skotchmaster/iam/internal/repo"
	"github.com/Skotchmaster/iam/internal/revocation"
	"github.com/Skotchmaster/iam/internal/service"
	"github.com/Skotchmaster/iam/internal/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_invalid", "err", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel).With("service", "iam")
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, log)

	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Error("db_open_failed", "err", err)
		os.Exit(1)
	}
	if err := db.Migrate(ctx, gdb); err != nil {
		log.Error("db_migrate_failed", "err", err)
		os.Exit(1)
	}

	store := repo.New(gdb)
	if _, err := service.SeedRoles(ctx, store); err != nil {
		log.Error("seed_roles_failed", "err", err)
		os.Exit(1)
	}

	codec, err := tokens.NewCodec(cfg.JWTSecret, cfg.TokenExpirationDays)
	if err != nil {
		log.Error("token_codec_invalid", "err", err)
		os.Exit(1)
	}
	registry := revocation.NewRegistry(store, codec)

	var publisher events.Publisher = events.Nop{}
	if p := events.NewKafkaProducer(cfg.KafkaBrokers, cfg.UserEventsTopic); p != nil {
		publisher = p
		log.Info("kafka_enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.UserEventsTopic)
	}

	svc := &service.AuthService{
		Users:           store,
		Roles:           store,
		Hasher:          hash.NewBcrypt(cfg.BcryptCost),
		Tokens:          codec,
		Registry:        registry,
		Events:          publisher,
		DefaultRole:     cfg.DefaultRole,
		RevokeOnRefresh: cfg.RevokeOnRefresh,
	}

	e := httpserver.New(log, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: svc},
		Gate:        middleware.NewGate(codec, registry, store),
		Ready: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})

	sweeper := &revocation.Sweeper{Registry: registry, Interval: cfg.RevocationSweepInterval}
	go sweeper.Run(ctx)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("http_listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_server_error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server_shutdown_error", "err", err)
	}
	if err := publisher.Close(); err != nil {
		log.Error("kafka_close_error", "err", err)
	}
	if err := db.Close(gdb); err != nil {
		log.Error("db_close_error", "err", err)
	}

	log.Info("shutdown_complete")
}
