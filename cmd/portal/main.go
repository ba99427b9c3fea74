package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/capassotech/epefi-cursos/internal/content"
	"github.com/capassotech/epefi-cursos/internal/contentapi"
	"github.com/capassotech/epefi-cursos/internal/continuation"
	"github.com/capassotech/epefi-cursos/internal/deeplink"
	"github.com/capassotech/epefi-cursos/internal/platform/cache"
	"github.com/capassotech/epefi-cursos/internal/platform/config"
	"github.com/capassotech/epefi-cursos/internal/platform/database"
	"github.com/capassotech/epefi-cursos/internal/progress"
	"github.com/capassotech/epefi-cursos/internal/viewer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	source, err := buildSource(cfg)
	if err != nil {
		slog.Error("failed to build content source", "error", err)
		os.Exit(1)
	}

	loader := content.NewLoader(source, content.WithMaxInFlight(cfg.Loader.MaxInFlight))
	defer loader.Close()

	srv := &server{
		loader:   loader,
		resolver: deeplink.NewResolver(nil, resolverOptions(cfg.DeepLink)...),
	}

	store := continuation.Store(continuation.NewMemoryStore())
	if cfg.HasCache() {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer c.Close()
		srv.cache = c
		store = continuation.NewRedisStore(c.Client, "portal:")
	}
	srv.tracker = continuation.NewTracker(store)

	recorder := progress.Recorder(progress.NopRecorder{})
	if cfg.HasDatabase() {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		srv.db = db

		pg, err := progress.NewPostgresRecorder(db.Pool)
		if err != nil {
			slog.Error("failed to create progress recorder", "error", err)
			os.Exit(1)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("failed to ensure progress schema", "error", err)
			os.Exit(1)
		}
		recorder = pg
		srv.progress = pg
	}

	srv.opener = &relayOpener{}
	// No default user: completion requests name the acting user.
	srv.session = viewer.NewSession(srv.opener, recorder, "")
	srv.feed = viewer.NewFeed(srv.session)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      newMux(srv),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("portal starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// buildSource assembles the content source: remote API, static
// filesystem content, or a fallback chain when both are configured.
func buildSource(cfg *config.Config) (contentapi.Source, error) {
	var sources []contentapi.Source

	if cfg.ContentAPI.BaseURL != "" {
		var opts []contentapi.HTTPOption
		if cfg.ContentAPI.APIKey != "" {
			opts = append(opts, contentapi.WithAPIKey(cfg.ContentAPI.APIKey))
		}
		sources = append(sources, contentapi.NewHTTPSource(cfg.ContentAPI.BaseURL, opts...))
	}

	if cfg.ContentAPI.StaticDir != "" {
		static, err := contentapi.NewStaticSource(cfg.ContentAPI.StaticDir)
		if err != nil {
			return nil, err
		}
		sources = append(sources, static)
	}

	if len(sources) == 1 {
		return sources[0], nil
	}
	return contentapi.NewChain(sources...), nil
}

func resolverOptions(cfg config.DeepLinkConfig) []deeplink.ResolverOption {
	return []deeplink.ResolverOption{
		deeplink.WithMountDelay(time.Duration(cfg.MountDelayMS) * time.Millisecond),
		deeplink.WithHighlightDwell(time.Duration(cfg.HighlightDwellMS) * time.Millisecond),
	}
}
