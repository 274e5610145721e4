// Command server runs the chat service HTTP API.
//
// Startup order: environment/config, logging, tracing, storage backend,
// optional Redis profile cache, router, then the HTTP server with graceful
// shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nadimakk/go-chat-service/internal/cache"
	"github.com/nadimakk/go-chat-service/internal/config"
	"github.com/nadimakk/go-chat-service/internal/docstore"
	"github.com/nadimakk/go-chat-service/internal/docstore/gormstore"
	"github.com/nadimakk/go-chat-service/internal/docstore/mongostore"
	httpapi "github.com/nadimakk/go-chat-service/internal/http"
	"github.com/nadimakk/go-chat-service/internal/observability"
	"github.com/nadimakk/go-chat-service/internal/sysutil"
)

// version is injected at build time via -ldflags.
var version = "dev"

// docstore collections indexed by the Mongo backend at startup.
var collections = []string{"profiles", "messages", "user_conversations"}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("store setup failed")
	}
	defer closeStore()

	profileCache, closeCache := openCache(ctx, cfg.Cache)
	defer closeCache()

	r := gin.New()
	httpapi.RegisterRoutes(r, store, profileCache, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("base_path", cfg.APIBasePath).
			Str("backend", cfg.Store.Backend).
			Str("version", version).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// openStore builds the configured document-store backend and a cleanup
// function.
func openStore(ctx context.Context, cfg config.StoreConfig) (docstore.Store, func(), error) {
	switch cfg.Backend {
	case config.StoreBackendMongo:
		store, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureIndexes(ctx, collections...); err != nil {
			_ = store.Close(ctx)
			return nil, nil, err
		}
		return store, func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = store.Close(cctx)
		}, nil
	default:
		store, err := gormstore.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

// openCache connects the optional Redis profile cache, degrading to a no-op
// when unconfigured or unreachable.
func openCache(ctx context.Context, cfg config.CacheConfig) (cache.ProfileCache, func()) {
	if cfg.RedisURL == "" {
		return cache.Noop{}, func() {}
	}
	rc, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.ProfileTTL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, profile cache disabled")
		return cache.Noop{}, func() {}
	}
	log.Info().Msg("profile cache enabled")
	return rc, func() { _ = rc.Close() }
}
