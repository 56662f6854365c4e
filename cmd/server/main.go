package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"GoMatch/internal/config"
	"GoMatch/internal/server"
	"GoMatch/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting GoMatch",
		"version", Version,
		"port", cfg.Server.Port,
		"patterns_dir", cfg.Patterns.Dir,
		"config", *configPath,
	)

	// Compile the pattern sets shipped with the deployment.
	mgr := server.NewManager(logger)
	if cfg.Patterns.Persist {
		store, err := storage.NewStore(cfg.Patterns.Dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open pattern store: %v\n", err)
			os.Exit(1)
		}
		mgr.SetStore(store)
	}
	if cfg.Patterns.Dir != "" {
		if err := mgr.LoadDir(cfg.Patterns.Dir); err != nil {
			fmt.Fprintf(os.Stderr, "failed to load pattern sets: %v\n", err)
			os.Exit(1)
		}
	}

	// Create HTTP handler and register API routes.
	handler := server.NewHandler(mgr, cfg.Scan, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	// Health check endpoint.
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"version": Version,
		})
	})

	// Readiness probe. Pattern sets are compiled before we listen.
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "ready",
			"patternsets": len(mgr.List()),
		})
	})

	// Root info endpoint.
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"name":    "GoMatch",
			"version": Version,
		})
	})

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	logger.Info("listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
