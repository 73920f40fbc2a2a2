package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/stash/internal/auth"
	"github.com/MrSnakeDoc/stash/internal/bookmark"
	"github.com/MrSnakeDoc/stash/internal/config"
	"github.com/MrSnakeDoc/stash/internal/extractor"
	"github.com/MrSnakeDoc/stash/internal/httpserver"
	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/stash/internal/httpserver/routes"
	"github.com/MrSnakeDoc/stash/internal/index"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/redis"
	"github.com/MrSnakeDoc/stash/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/stash/internal/store/redis"
	sqlstore "github.com/MrSnakeDoc/stash/internal/store/sql"
	"github.com/MrSnakeDoc/stash/internal/utils"
	"github.com/MrSnakeDoc/stash/internal/version"
)

const (
	CacheOff    = "off"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// App owns the process-wide resources of a stash instance.
type App struct {
	cfg         *config.Config
	logger      logger.Logger
	store       *sqlstore.Store
	redisClient *goredis.Client
	cacheMode   string
	extractor   deps.Extractor
	cache       deps.MetadataCache
	bookmarks   *bookmark.Service
}

// New opens the database, applies the schema and wires the extractor and
// the bookmark service. Redis is only dialled when the metadata cache is
// enabled and an address is configured.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	log.Info("opening database",
		logger.String("driver", cfg.DBDriver),
		logger.String("dsn", config.RedactDSN(cfg.DBDSN)))

	store, err := sqlstore.Open(ctx, cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		utils.CloseLogged(store, "database", log)
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	a := &App{
		cfg:       cfg,
		logger:    log,
		store:     store,
		cacheMode: CacheOff,
		bookmarks: bookmark.NewService(store, log),
	}

	base := extractor.New(extractor.Options{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FetchTimeout,
	}, log)
	a.extractor = base

	if cfg.MetadataCacheTTL > 0 {
		cache, err := a.metadataCache(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.cache = cache
		a.extractor = extractor.NewCached(base, cache, cfg.MetadataCacheTTL, log)
	}

	log.Info("stash initialized",
		logger.String("cache", a.cacheMode),
		logger.Duration("fetch_timeout", cfg.FetchTimeout))
	return a, nil
}

// metadataCache is the extraction cache; both implementations also serve
// the admin flush endpoint.
type metadataCache interface {
	extractor.Cache
	deps.MetadataCache
}

func (a *App) metadataCache(ctx context.Context) (metadataCache, error) {
	if a.cfg.RedisAddr == "" {
		a.cacheMode = CacheMemory
		return index.NewMemoryIndex(), nil
	}

	a.logger.Infof("Connecting to Redis at %s", a.cfg.RedisAddr)
	client, err := redis.New(ctx, redis.ConnectOptions{
		Addr:           a.cfg.RedisAddr,
		User:           a.cfg.RedisUser,
		Password:       a.cfg.RedisPassword,
		RedisDB:        a.cfg.RedisDB,
		DialTimeout:    a.cfg.RedisDT,
		ReadTimeout:    a.cfg.RedisRT,
		WriteTimeout:   a.cfg.RedisWT,
		PoolSize:       a.cfg.RedisPoolSize,
		ConnectTimeout: a.cfg.RedisConnectTimeout,
		RetryInterval:  a.cfg.RedisRetryInterval,
		MaxWait:        a.cfg.RedisMaxWait,
		PingTimeout:    a.cfg.RedisPingTimeout,
		WarnThreshold:  a.cfg.RedisWarnThreshold,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	a.redisClient = client
	a.cacheMode = CacheRedis
	a.logger.Info("Redis initialized successfully")
	return redisstore.NewStore(client), nil
}

// Bookmarks returns the bookmark service.
func (a *App) Bookmarks() *bookmark.Service { return a.bookmarks }

// Extractor returns the (possibly cached) metadata extractor.
func (a *App) Extractor() deps.Extractor { return a.extractor }

// MetadataCache returns the extraction cache, nil when caching is off.
func (a *App) MetadataCache() deps.MetadataCache { return a.cache }

// CacheMode reports which metadata cache is active.
func (a *App) CacheMode() string { return a.cacheMode }

// Run serves HTTP and runs the orphan tag collector until ctx is done or
// the process receives SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	a.cfg.RequireAuth()

	a.logger.Infof("Starting stash %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("stash %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(a.cfg.AllowedCIDRS) == 0 {
		a.logger.Warn("STASH_ALLOWED_CIDRS is empty, admin, readiness and metrics endpoints only answer loopback clients",
			logger.Strings("cidrs", routes.LoopbackCIDRs))
	}

	sweepTrigger := make(chan struct{}, 1)
	collector := scheduler.NewTagCollector(a.store, a.logger, a.cfg.TagGCInterval, a.cfg.TagGCGrace, sweepTrigger)
	collector.Start(ctx)
	defer collector.Stop()
	a.logger.Info("tag collector started",
		logger.Duration("interval", a.cfg.TagGCInterval),
		logger.Duration("grace", a.cfg.TagGCGrace))

	d := deps.Deps{
		Logger:        a.logger,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		TimeNow:       time.Now,
		AllowedHosts:  a.cfg.AllowedHosts,
		AllowedCIDRS:  a.cfg.AllowedCIDRS,
		TrustProxy:    a.cfg.TrustProxy,
		DB:            a.store,
		DBDriver:      a.store.Driver(),
		RedisClient:   a.redisClient,
		CacheMode:     a.cacheMode,
		Cache:         a.cache,
		Extractor:     a.extractor,
		Bookmarks:     a.bookmarks,
		Verifier:      auth.NewVerifier(a.cfg.AuthSecret, a.cfg.AuthIssuer, a.cfg.AuthAudience),
		Validator:     handlers.NewValidator(),
		SweepTrigger:  sweepTrigger,
		Collector:     collector,
		ExtractBurst:  a.cfg.ExtractBurst,
		ExtractRefill: a.cfg.ExtractRefill,
	}

	server := httpserver.New(a.cfg, a.logger, d)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.logger.Info("stash stopped cleanly")
	return nil
}

// Close releases the database and redis connections.
func (a *App) Close() {
	if a.redisClient != nil {
		utils.CloseLogged(a.redisClient, "redis", a.logger)
	}
	utils.CloseLogged(a.store, "database", a.logger)
}
