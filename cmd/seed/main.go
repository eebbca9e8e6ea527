// Command seed creates the role catalog and exits.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/Skotchmaster/iam/internal/config"
	"github.com/Skotchmaster/iam/internal/db"
	"github.com/Skotchmaster/iam/internal/logging"
	"github.com/Skotchmaster/iam/internal/repo"
	"github.com/Skotchmaster/iam/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_invalid", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel).With("service", "iam-seed")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = logging.IntoContext(ctx, log)

	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Error("db_open_failed", "err", err)
		os.Exit(1)
	}
	defer db.Close(gdb)

	if err := db.Migrate(ctx, gdb); err != nil {
		log.Error("db_migrate_failed", "err", err)
		os.Exit(1)
	}

	created, err := service.SeedRoles(ctx, repo.New(gdb))
	if err != nil {
		log.Error("seed_roles_failed", "err", err)
		os.Exit(1)
	}
	log.Info("seed_complete", "created", created)
}
