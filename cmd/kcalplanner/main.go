package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/claude/kcalplanner/internal/config"
	"github.com/claude/kcalplanner/internal/console"
	"github.com/claude/kcalplanner/internal/logging"
	"github.com/claude/kcalplanner/internal/planner"
	"github.com/claude/kcalplanner/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Diagnostics go to stderr so they don't interleave with the menus.
	log, closer := logging.New(cfg.Log, os.Stderr)
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

	svc := planner.New(store, nil, log)
	if err := console.New(svc, os.Stdin, os.Stdout, log).Run(context.Background()); err != nil {
		log.Error("console stopped", "error", err)
		os.Exit(1)
	}
}
