// Proximity API
//
// In-memory geo-proximity index: point updates climb a sector
// hierarchy per subject, nearest-neighbor queries descend it.
//
//	@title			Proximity API
//	@version		1.0
//	@description	Token-gated geo-proximity index: UpdatePoint, NearestPoints, PointsCoords.
//
//	@license.name	MIT
//
//	@host			localhost:8080
//	@BasePath		/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Tenant auth key for the management surface.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/geomesh/proximity/internal/appstore"
	"github.com/geomesh/proximity/internal/config"
	"github.com/geomesh/proximity/internal/core"
	"github.com/geomesh/proximity/internal/httpapi"
	"github.com/geomesh/proximity/internal/pointcache"
	"github.com/geomesh/proximity/internal/ratelimit"
	"github.com/geomesh/proximity/internal/snapshot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx := context.Background()

	store, closeStore := buildStore(ctx, cfg)
	defer closeStore()

	var limiter *ratelimit.Limiter
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opt)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("warning: redis unavailable, rate limiting disabled: %v", err)
			redisClient = nil
		} else {
			limiter = ratelimit.New(redisClient)
			store = appstore.NewCachedStore(store, redisClient)
			slog.Info("redis connected", "addr", opt.Addr)
		}
		cancel()
	}

	var snapshots httpapi.SnapshotStore
	if cfg.S3Bucket != "" {
		s3Store, err := snapshot.NewStore(ctx, cfg.S3Bucket, cfg.S3Region)
		if err != nil {
			log.Printf("warning: snapshot export disabled: %v", err)
		} else {
			snapshots = s3Store
		}
	}

	world := core.NewWorld(store, pointcache.New())

	if cfg.ClerkSecretKey != "" {
		clerk.SetKey(cfg.ClerkSecretKey)
	}

	server := &httpapi.Server{
		World:           world,
		RateLimiter:     limiter,
		Snapshots:       snapshots,
		OpsEnabled:      cfg.ClerkSecretKey != "",
		OriginVerifyKey: cfg.OriginVerifyKey,
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	log.Println("server exited")
}

// buildStore chooses appstore.Postgres when DATABASE_URL is set,
// falling back to appstore.Memory for local/dev runs. The returned
// close func is always safe to defer.
func buildStore(ctx context.Context, cfg *config.Config) (appstore.Store, func()) {
	if cfg.DatabaseURL == "" {
		return appstore.NewMemory(), func() {}
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := appstore.Migrate(ctx, pool); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	slog.Info("database connection established")
	return appstore.NewPostgres(pool), pool.Close
}
