package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/gallery-platform/internal/platform/analytics"
	"github.com/example/gallery-platform/internal/platform/assets"
	"github.com/example/gallery-platform/internal/platform/auth"
	"github.com/example/gallery-platform/internal/platform/config"
	"github.com/example/gallery-platform/internal/platform/db"
	"github.com/example/gallery-platform/internal/platform/httpserver"
	"github.com/example/gallery-platform/internal/platform/logging"
	"github.com/example/gallery-platform/internal/platform/natsconn"
	"github.com/example/gallery-platform/internal/platform/run"
	"github.com/example/gallery-platform/services/social/internal/cache"
	socialcfg "github.com/example/gallery-platform/services/social/internal/config"
	"github.com/example/gallery-platform/services/social/internal/handlers"
	"github.com/example/gallery-platform/services/social/internal/service"
	"github.com/example/gallery-platform/services/social/internal/store"
	"github.com/example/gallery-platform/services/social/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	scfg, err := socialcfg.Load()
	if err != nil {
		log.Error("config", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}

	comments, pool := initComments(log, scfg)
	if pool != nil {
		defer pool.Close()
	}

	mapper, err := assets.New(scfg.CDNBaseURL, scfg.CDNSecret, scfg.CDNURLTTL)
	if err != nil {
		log.Error("CDN_BASE_URL is invalid", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}

	opts := []service.Option{service.WithLogger(log)}
	var dedupe worker.Deduper = worker.NewMemoryDeduper()

	if scfg.RedisURL != "" {
		tc, err := cache.NewRedisThreadCache(scfg.RedisURL, scfg.ThreadCacheTTL)
		if err != nil {
			log.Warn("redis unavailable, thread cache disabled", zap.Error(err))
		} else {
			defer func() { _ = tc.Close() }()
			opts = append(opts, service.WithThreadCache(tc))
			dedupe = &worker.RedisDeduper{Client: tc.Client, TTL: 24 * time.Hour}
			log.Info("thread cache: redis", zap.Duration("ttl", scfg.ThreadCacheTTL))
		}
	}

	var js nats.JetStreamContext
	if scfg.NATSURL != "" {
		nc, jsc, err := initJetStream(scfg.NATSURL, cfg.ServiceName, log)
		if err != nil {
			// Analytics is fire-and-forget; the service runs without it.
			log.Warn("nats unavailable, analytics disabled", zap.Error(err))
		} else {
			defer nc.Close()
			js = jsc
			opts = append(opts, service.WithAnalytics(analytics.New(js, log)))
		}
	}

	svc := service.New(comments, mapper, opts...)
	verifier := auth.JWTVerifier{Secret: []byte(scfg.JWTSecret)}

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{ReadyFunc: readyFunc(pool), Logger: log})

	// Gallery threads are public; a valid token only adds the caller's selections.
	r.With(auth.OptionalUser(verifier)).Get("/v1/galleries/{gallery_id}/comments", handlers.GetComments(svc, log))
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Post("/v1/galleries/{gallery_id}/comments", handlers.CreateComment(svc, log))
		r.Post("/v1/comments/{comment_id}/reactions", handlers.ToggleReaction(svc, log))
		r.Get("/v1/comments", handlers.ListComments(svc, log))
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		if js != nil {
			consumer := worker.NewConsumer(svc, dedupe, log)
			runner.Go(ctx, "commands", func(ctx context.Context) error {
				return consumer.Run(ctx, js)
			})
		}
		return srv.Start()
	}, srv.Shutdown)

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initComments selects the CommentStore backend.
// In production it requires a working Postgres connection and terminates the
// process otherwise; elsewhere it falls back to the in-memory store.
func initComments(log *zap.Logger, cfg socialcfg.Config) (store.CommentStore, *pgxpool.Pool) {
	fallback := func(msg string, err error) (store.CommentStore, *pgxpool.Pool) {
		if cfg.Production {
			log.Error(msg, zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn(msg+", using in-memory comment store (development only)", zap.Error(err))
		return store.NewInMemoryCommentStore(), nil
	}

	if cfg.DatabaseURL == "" {
		return fallback("DATABASE_URL not set", errors.New("missing DATABASE_URL"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.OpenDSN(ctx, cfg.DatabaseURL)
	if err != nil {
		return fallback("postgres unavailable", err)
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return fallback("postgres migration failed", err)
	}

	log.Info("comments store: postgres")
	return store.NewPostgresCommentStore(pool), pool
}

func initJetStream(url, name string, log *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	nc, js, err := natsconn.Connect(natsconn.Options{URL: url, Name: name, Logger: log})
	if err != nil {
		return nil, nil, err
	}
	if err := analytics.EnsureStream(js); err != nil {
		nc.Close()
		return nil, nil, err
	}
	if err := worker.EnsureStream(js); err != nil {
		nc.Close()
		return nil, nil, err
	}
	return nc, js, nil
}

func readyFunc(pool *pgxpool.Pool) func() error {
	if pool == nil {
		return nil
	}
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(ctx)
	}
}
