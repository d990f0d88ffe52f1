package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pagegraph/pagegraph/internal/config"
	"github.com/pagegraph/pagegraph/internal/server/api"
	"github.com/pagegraph/pagegraph/internal/server/events"
	"github.com/pagegraph/pagegraph/internal/server/graph"
	"github.com/pagegraph/pagegraph/internal/server/store"
)

func main() {
	configDir := flag.String("config", ".", "Directory holding config.json")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		slog.Error("loading config failed", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg)
	slog.SetDefault(log)

	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("opening store failed", "backend", cfg.Backend, "error", err)
		os.Exit(1)
	}
	defer st.Close(ctx)

	log.Info("store ready", "backend", cfg.Backend)

	// Fan mutation events out to the configured webhooks
	eventMgr := events.NewManager(cfg.Webhooks, log)
	eventMgr.Start()
	defer eventMgr.Stop()
	st.SetEventEmitter(eventMgr.GetEmitter())

	svc := graph.NewService(st)
	apiServer := api.New(svc, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", api.NewRouter(apiServer))

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("starting pagegraph server", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server exited")
}

// newLogger builds the slog logger selected by the configuration.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// openStore opens the store backend selected by the configuration.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return store.NewSQLite(ctx, cfg.SQLitePath)
	case "neo4j":
		return store.NewNeo4j(ctx, store.Neo4jConfig{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.Username,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		})
	default:
		return nil, fmt.Errorf("unknown backend %q (use sqlite or neo4j)", cfg.Backend)
	}
}
