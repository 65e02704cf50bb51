// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/marknote/internal/api"
	"github.com/starford/marknote/internal/dialog"
	"github.com/starford/marknote/internal/index"
	"github.com/starford/marknote/internal/mcpserver"
	"github.com/starford/marknote/internal/metrics"
	"github.com/starford/marknote/internal/notestore"
	"github.com/starford/marknote/internal/repository"
	"github.com/starford/marknote/internal/rootdir"
	"github.com/starford/marknote/internal/sse"
	"github.com/starford/marknote/internal/storage"
)

// core is what both the HTTP server and the MCP server run on.
type core struct {
	config   *Config
	logger   *slog.Logger
	resolver *rootdir.Resolver
	files    *storage.FS
	db       *index.DB
}

// setup applies opts, installs the logger, resolves the notes root and
// opens the index.
func setup(ctx context.Context, opts []Option, logOut io.Writer) (*core, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config
	mode := cfg.App.RootMode()
	if app.mode != "" {
		mode = app.mode
	}
	rootOverride := cfg.Notes.Root
	if app.root != "" {
		rootOverride = app.root
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	resolver := rootdir.New(rootdir.Options{
		Mode:       mode,
		AppDirName: cfg.Notes.AppDirName,
		Logger:     logger,
	})
	if rootOverride != "" {
		if err := resolver.Set(rootOverride); err != nil {
			return nil, fmt.Errorf("set notes root: %w", err)
		}
	}
	root, err := resolver.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve notes root: %w", err)
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("mode", string(mode)),
		slog.String("notes_root", root),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Storage view of the root for the index and the watcher. Note files
	// are otherwise only touched through the repository.
	files, err := storage.Open(root)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, files, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &core{
		config:   cfg,
		logger:   logger,
		resolver: resolver,
		files:    files,
		db:       db,
	}, nil
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	c, err := setup(ctx, opts, os.Stdout)
	if err != nil {
		return err
	}
	defer c.db.Close()

	cfg := c.config
	logger := c.logger

	// HTTP requests carry their own dialog answers; see api.CreateNote and
	// api.DeleteSelected.
	repo := repository.New(c.resolver, dialog.Capabilities{
		SavePath: dialog.RequestPicker{},
		Confirm:  dialog.RequestConfirmer{Fallback: dialog.Static(cfg.Notes.AutoConfirmDelete)},
		Notify:   dialog.RequestNotifier{Next: dialog.LogNotifier{Logger: logger}},
	}, logger)

	// SSE broker.
	broker := sse.NewBroker(time.Duration(cfg.Events.Throttle))
	defer broker.Close()

	var recorder metrics.Store
	store := notestore.New(repo,
		notestore.WithLogger(logger),
		notestore.WithRecorder(recorder),
		notestore.WithObservers(
			&index.Indexer{DB: c.db, Store: c.files, Logger: logger},
			broker,
			recorder,
		),
	)

	handler := api.NewHandler(store, c.db, logger)
	apiRouter := api.NewRouter(handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if err := c.db.Ping(); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher; edits made outside the process go to SSE clients.
	g.Go(func() error {
		err := index.Watch(gCtx, c.db, c.files, logger, func(kind, title string) {
			metrics.RecordExternalChange(kind)
			broker.PublishExternal(kind, title)
		})
		if err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals. Cancelling stops the watcher as well.
	g.Go(func() error {
		defer cancel()
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they
// never mix with the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	c, err := setup(ctx, opts, os.Stderr)
	if err != nil {
		return err
	}
	defer c.db.Close()

	repo := repository.New(c.resolver, dialog.Capabilities{}, c.logger)
	srv := mcpserver.New(repo, c.db, c.logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := index.Watch(gCtx, c.db, c.files, c.logger, func(kind, title string) {
			c.logger.Debug("external change", slog.String("change", kind), slog.String("title", title))
		})
		if err != nil {
			c.logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		defer cancel()
		c.logger.Info("MCP server starting on stdio")
		return srv.ServeStdio()
	})

	return g.Wait()
}
