// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	slogmulti "github.com/samber/slog-multi"
	"golang.org/x/sync/errgroup"

	"github.com/starford/pagebot/internal/api"
	"github.com/starford/pagebot/internal/history"
	"github.com/starford/pagebot/internal/interpreter"
	"github.com/starford/pagebot/internal/llm"
	"github.com/starford/pagebot/internal/mcpserver"
	"github.com/starford/pagebot/internal/messaging"
	"github.com/starford/pagebot/internal/pageservice"
	"github.com/starford/pagebot/internal/sse"
	"github.com/starford/pagebot/internal/state"
	"github.com/starford/pagebot/internal/storage"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(os.Stdout, opts...)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger, closeLog, err := newLogger(cfg.App, app.logOut)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("state_backend", cfg.State.Backend),
		slog.String("interpreter", cfg.Interpreter.Strategy),
		slog.String("reply_mode", cfg.Messaging.ReplyMode),
		slog.Bool("history", cfg.History.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker()
	defer broker.Close()

	deps, err := build(ctx, cfg, logger, pageservice.WithPublisher(broker))
	if err != nil {
		return err
	}
	defer deps.close()

	var sender messaging.Sender
	if cfg.Messaging.ReplyMode == ReplyModeAPI {
		sender = messaging.NewTwilioSender(messaging.TwilioConfig{
			AccountSID: cfg.Messaging.Twilio.AccountSID,
			AuthToken:  cfg.Messaging.Twilio.AuthToken,
			From:       cfg.Messaging.Twilio.From,
			BaseURL:    cfg.Messaging.Twilio.BaseURL,
		})
	}

	apiRouter := api.NewRouter(deps.svc, api.Options{
		AuthEnabled: cfg.Auth.AuthEnabled(),
		Token:       cfg.Auth.Token,
		Events:      broker,
		ReplyMode:   cfg.Messaging.ReplyMode,
		Sender:      sender,
		RateLimit:   api.RateLimit{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst},
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(api.CORSMiddleware(cfg.App.CORSOrigins))

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	if cfg.App.StaticDir != "" {
		r.Handle("/*", api.StaticHandler(cfg.App.StaticDir))
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Reload the document when the state file is edited by hand.
	if cfg.State.Backend == BackendFile && cfg.State.Watch {
		g.Go(func() error {
			if err := state.Watch(gCtx, deps.store, cfg.State.Path, logger); err != nil {
				logger.Warn("state watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
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

		// SSE streams never finish on their own.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
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

// RunMCP serves the MCP tools over stdio until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(os.Stderr, opts...)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger, closeLog, err := newLogger(cfg.App, app.logOut)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	deps, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close()

	// Pick up edits made by a concurrently running HTTP server.
	if cfg.State.Backend == BackendFile && cfg.State.Watch {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := state.Watch(watchCtx, deps.store, cfg.State.Path, logger); err != nil {
				logger.Warn("state watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	logger.Info("Starting MCP server", slog.String("version", app.version))
	return mcpserver.New(deps.svc, app.version).ServeStdio()
}

// components are shared by the HTTP and MCP entry points.
type components struct {
	store   *state.Store
	svc     *pageservice.Service
	closers []func() error
}

func (d *components) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			slog.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}

func build(ctx context.Context, cfg *Config, logger *slog.Logger, extra ...pageservice.Option) (_ *components, err error) {
	d := &components{}
	defer func() {
		if err != nil {
			d.close()
		}
	}()

	backend, err := newBackend(cfg.State)
	if err != nil {
		return nil, fmt.Errorf("init state backend: %w", err)
	}
	d.store = state.New(backend, logger)
	if err := d.store.Load(ctx); err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	var completer llm.Completer
	if cfg.Interpreter.Strategy == StrategyAI {
		client, err := llm.NewGeminiClient(ctx, llm.Config{
			APIKey: cfg.LLM.APIKey,
			Model:  cfg.LLM.Model,
			RPS:    cfg.LLM.RPS,
			Burst:  cfg.LLM.Burst,
		})
		if err != nil {
			return nil, fmt.Errorf("init llm: %w", err)
		}
		d.closers = append(d.closers, client.Close)
		completer = client
		logger.Info("LLM client ready", slog.String("client", client.Name()))
	}

	interp, err := interpreter.New(interpreter.Options{
		Strategy:   cfg.Interpreter.Strategy,
		Timeout:    cfg.Interpreter.Timeout,
		StrictText: cfg.Interpreter.StrictText,
		CacheSize:  cfg.Interpreter.CacheSize,
		CacheTTL:   cfg.Interpreter.CacheTTL,
	}, completer, logger)
	if err != nil {
		return nil, fmt.Errorf("init interpreter: %w", err)
	}

	opts := []pageservice.Option{pageservice.WithLogger(logger)}
	if cfg.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("init history: %w", err)
		}
		d.closers = append(d.closers, db.Close)
		opts = append(opts, pageservice.WithRecorder(db))
	}
	opts = append(opts, extra...)

	d.svc = pageservice.New(interp, d.store, opts...)
	return d, nil
}

func newBackend(cfg StateConfig) (storage.Provider, error) {
	switch cfg.Backend {
	case BackendMemory:
		return storage.NewMemory(), nil
	case BackendS3:
		return storage.NewS3(storage.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Key:       cfg.S3.Key,
			UseSSL:    cfg.S3.UseSSL,
		})
	default:
		return storage.NewFS(cfg.Path)
	}
}

// newLogger builds the JSON logger on out and, when a log file is configured,
// fans every record out to a text handler on that file as well.
func newLogger(cfg ApplicationConfig, out io.Writer) (*slog.Logger, func(), error) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	primary := slog.NewJSONHandler(out, opts)
	if cfg.LogFile == "" {
		return slog.New(primary), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slogmulti.Fanout(primary, slog.NewTextHandler(f, opts)))
	return logger, func() { _ = f.Close() }, nil
}
