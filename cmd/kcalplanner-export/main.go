package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/kcalplanner/internal/config"
	"github.com/claude/kcalplanner/internal/export"
	"github.com/claude/kcalplanner/internal/logging"
	"github.com/claude/kcalplanner/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	driver := flag.String("driver", "", "override export.driver: sqlite or postgres")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *driver != "" {
		if *driver != "sqlite" && *driver != "postgres" {
			fmt.Fprintf(os.Stderr, "Usage: kcalplanner-export [-config config.yaml] [-driver sqlite|postgres]\n")
			flag.PrintDefaults()
			os.Exit(1)
		}
		cfg.Export.Driver = *driver
	}

	log, closer := logging.New(cfg.Log, os.Stdout)
	defer closer.Close()

	store, err := storage.Open(storage.Options{
		Dir:          cfg.Storage.Dir,
		UsersFile:    cfg.Storage.UsersFile,
		WorkoutsFile: cfg.Storage.WorkoutsFile,
	}, log)
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	sink, err := export.Open(ctx, cfg.Export)
	if err != nil {
		log.Error("failed to open export database", "driver", cfg.Export.Driver, "error", err)
		os.Exit(1)
	}
	defer sink.Close()
	log.Info("export database connected", "driver", cfg.Export.Driver)

	sum, err := export.Run(ctx, store, sink, log)
	if err != nil {
		log.Error("export failed", "error", err)
		os.Exit(1)
	}
	log.Info("export complete", "users", sum.Users, "records", sum.Records)
}
