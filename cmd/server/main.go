package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/assessment"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/curriculum"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/gate"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/platform/cache"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/platform/config"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/platform/database"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/recommend"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/remote"
	"github.com/jerryfel13/MINDMORPH-FE-sub000/internal/resolve"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, cleanup, err := buildApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	go a.syncLoop(ctx, cfg.SyncInterval)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newMux(a),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.API.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "api", cfg.API.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	// Last chance to push attempts the service has not accepted yet.
	if n, err := a.engine.SyncPending(shutdownCtx); err != nil {
		slog.Warn("pending attempts left unsynced", "synced", n, "error", err)
	}
}

// newLogger builds the process logger from the log settings.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// buildApp wires the content pipeline from configuration. The returned
// cleanup releases the cache and database connections; on error nothing is
// left open.
func buildApp(ctx context.Context, cfg *config.Config) (*app, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	client := remote.New(cfg.API.BaseURL,
		remote.WithTokenSource(remote.StaticToken(cfg.API.Token)),
		remote.WithTimeout(cfg.API.Timeout),
	)

	var checks []healthCheck

	var store cache.Store
	if cfg.UsesRedis() {
		rdb, err := cache.Dial(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect cache: %w", err)
		}
		rs := cache.NewRedisStore(rdb, cfg.Cache.Prefix, cfg.Cache.TTL)
		closers = append(closers, func() { _ = rs.Close() })
		store = rs
		slog.Info("cache store ready", "driver", "redis")
	} else {
		store = cache.NewMemoryStore()
		slog.Info("cache store ready", "driver", "memory")
	}
	checks = append(checks, healthCheck{name: "cache", check: store.HealthCheck})

	var attempts assessment.AttemptStore
	if cfg.UsesDatabase() {
		db, err := database.New(ctx, database.Options{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		closers = append(closers, db.Close)
		checks = append(checks, healthCheck{name: "database", check: db.HealthCheck})

		pg, err := assessment.NewPostgresAttemptStore(ctx, db.Pool)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		attempts = pg
	} else {
		attempts = assessment.NewMemoryAttemptStore()
	}

	catalog, err := curriculum.NewCatalog(cfg.CurriculumPath)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	recs := recommend.NewConsumer(client)
	content := resolve.NewContentResolver(client, store)

	a := &app{
		catalog:    catalog,
		content:    content,
		topics:     resolve.NewTopicResolver(client, store, resolve.WithTopicCount(cfg.Learning.TopicsCount)),
		recs:       recs,
		gate:       gate.New(client),
		topicCount: cfg.Learning.TopicsCount,
		checks:     checks,
		engine: assessment.NewEngine(assessment.EngineConfig{
			Content:       content,
			Quizzes:       client,
			Activity:      client,
			Recommender:   recs,
			Attempts:      attempts,
			QuestionCount: cfg.Learning.QuizQuestionCount,
			SessionTTL:    cfg.Learning.SessionTTL,
		}),
	}
	return a, cleanup, nil
}

// syncLoop periodically retries attempts whose remote save failed and
// evicts idle sessions.
func (a *app) syncLoop(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.engine.SyncPending(ctx); err != nil {
				slog.Warn("attempt sync failed", "error", err)
			}
			a.engine.EvictIdle()
		}
	}
}
