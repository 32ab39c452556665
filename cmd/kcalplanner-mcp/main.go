package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/claude/kcalplanner/internal/config"
	"github.com/claude/kcalplanner/internal/logging"
	kcalmcp "github.com/claude/kcalplanner/internal/mcp"
	"github.com/claude/kcalplanner/internal/planner"
	"github.com/claude/kcalplanner/internal/storage"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	remote := flag.String("remote", "", "base URL of a kcalplanner server; when set, tools call its REST API instead of the local files")
	userID := flag.String("user", "", "default user ID for tools that take one")
	flag.Parse()

	// stdout carries the MCP protocol, so every log line goes to stderr.
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log, closer := logging.New(cfg.Log, os.Stderr)
	defer closer.Close()

	var ds kcalmcp.DataSource
	if *remote != "" {
		ds = kcalmcp.NewHTTPClient(*remote)
		log.Info("mcp using remote server", "url", *remote)
	} else {
		store, err := storage.Open(storage.Options{
			Dir:          cfg.Storage.Dir,
			UsersFile:    cfg.Storage.UsersFile,
			WorkoutsFile: cfg.Storage.WorkoutsFile,
		}, log)
		if err != nil {
			log.Error("failed to open storage", "error", err)
			os.Exit(1)
		}
		ds = kcalmcp.NewLocal(planner.New(store, nil, log))
	}

	s := kcalmcp.New(ds, Version, log)
	err = server.ServeStdio(s, server.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return kcalmcp.WithUserID(ctx, *userID)
	}))
	if err != nil {
		log.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
