// Package app wires the trymylook server runtime: config, logging, the demo
// API, and the stores behind it.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"trymylook/cmd/internal/demo"
	demoapi "trymylook/cmd/internal/demo/api"
	"trymylook/cmd/internal/kling"
	"trymylook/cmd/security/token"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
)

// devDemoLimit is the per-principal allowance auto-provisioned in the
// in-memory dev store.
const devDemoLimit = 5

// App is the server runtime: it owns the HTTP server and the lifecycles of
// the stores behind the demo API.
type App struct {
	cfg Config
	log Logger

	store demo.Store

	dbPool    *pgxpool.Pool
	dbEnabled bool

	redis *goredis.Client

	demo *demoapi.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	store, dbPool, dbEnabled, err := newStore(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	closeOnErr := func() {
		_ = store.Close(context.Background())
		if dbPool != nil {
			dbPool.Close()
		}
	}

	jobs, err := kling.New(kling.Config{
		BaseURL:      cfg.KlingBaseURL,
		AccessKey:    cfg.KlingAccessKey,
		SecretKey:    cfg.KlingSecretKey,
		MaxRetries:   cfg.KlingMaxRetries,
		InitialDelay: cfg.KlingInitialDelay,
		PollBudget:   cfg.KlingPollBudget,
	}, log)
	if err != nil {
		closeOnErr()
		return nil, err
	}

	apiCfg := demoapi.LoadConfigFromEnv()

	opts := []demoapi.HandlerOption{}
	if key, err := token.KeyFromEnv(32); err == nil {
		opts = append(opts, demoapi.WithAuthenticator(demoapi.NewHMACAuthenticator(key)))
	} else {
		// Without a principal key every submission is rejected; a
		// misconfigured deployment fails loudly instead of serving
		// unauthenticated traffic.
		log.Warn("auth.principal_key.unset", "err", err)
	}

	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient, err = NewRedisClient(context.Background(), cfg)
		if err != nil {
			closeOnErr()
			return nil, err
		}
		opts = append(opts, demoapi.WithIPLimiter(
			demoapi.NewRedisIPLimiter(redisClient, apiCfg.IPLimit, apiCfg.IPWindow),
		))
		log.Info("ip_window.enabled.redis")
	} else {
		log.Info("ip_window.disabled")
	}

	handler, err := demoapi.NewHandler(log, apiCfg, store, jobs, opts...)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		closeOnErr()
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		store:     store,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		redis:     redisClient,
		demo:      handler,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.demo)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 60*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 90*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.close(shutdownCtx)
	a.log.Info("server.stopped")
	return nil
}

func (a *App) close(ctx context.Context) {
	if err := a.store.Close(ctx); err != nil {
		a.log.Error("store.close.fail", "err", err)
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("redis.close.fail", "err", err)
		}
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// newStore decides between Postgres-backed persistence and the in-memory dev
// store.
func newStore(ctx context.Context, cfg Config, log Logger) (demo.Store, *pgxpool.Pool, bool, error) {
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		return demo.NewMemoryStore(demo.WithAutoProvision(devDemoLimit)), nil, false, nil
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, nil, false, err
	}

	// Ownership model:
	// - app owns pool lifecycle
	// - PostgresStore.Close() is a no-op
	store, err := demo.NewPostgresStore(pool)
	if err != nil {
		pool.Close()
		return nil, nil, false, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, false, err
	}

	log.Info("db.enabled.postgres_store")
	return store, pool, true, nil
}
