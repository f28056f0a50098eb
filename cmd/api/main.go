package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"campus_coffee/internal/adapters/directory"
	server "campus_coffee/internal/adapters/http_server"
	"campus_coffee/internal/adapters/observability"
	redisad "campus_coffee/internal/adapters/redis"
	"campus_coffee/internal/app"
	"campus_coffee/internal/domain"
	"campus_coffee/internal/shared"
	"campus_coffee/internal/storage"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	shutdownTracing, err := observability.InitTracing(cfg.TracesExporter, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing init failed")
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// store
	backend, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store init failed")
	}
	defer func() { _ = closeStore() }()

	// POS and users come from the directory service when configured,
	// otherwise from the store's own tables.
	var (
		posLookup  domain.POSLookup  = backend
		userLookup domain.UserLookup = backend
	)
	if cfg.DirectoryBase != "" {
		dir, err := directory.New(cfg.DirectoryBase, cfg.DirectoryRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize directory client")
		}
		// entities the directory resolves are mirrored into the store's
		// reference tables so review foreign keys hold
		mirrored := storage.Mirror(dir, backend)
		posLookup, userLookup = mirrored, mirrored
		log.Info().Str("base", cfg.DirectoryBase).Msg("using directory lookups")
	}

	svc, err := app.NewReviewService(backend, posLookup, userLookup, cfg.ApprovalQuorum)
	if err != nil {
		log.Fatal().Err(err).Msg("review service init failed")
	}

	if cfg.RedisAddr != "" {
		cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := cache.Ping(pingCtx); err != nil {
			log.Warn().Err(err).Msg("redis unreachable; cache errors will fall through to the store")
		}
		cancel()
		defer func() { _ = cache.Close() }()
		svc.WithCache(cache, cfg.CacheTTL)
	}

	log.Info().
		Str("driver", cfg.StoreDriver).
		Int("approval_quorum", svc.Quorum()).
		Msg("review workflow ready")

	// http
	srv := server.New()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Reviews: svc, WriteRPS: cfg.WriteRPS})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
