// Package bootstrap wires the process-level dependencies shared by the
// server and the maintenance commands.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"canopy/internal/cache"
	"canopy/internal/config"
	"canopy/internal/database"
	"canopy/internal/middleware"
	"canopy/internal/models"
	"canopy/internal/observability"
	"canopy/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty development database with demo content.
	SeedDemo bool
	// SkipRedis leaves Runtime.Redis nil, for commands that only touch the database.
	SkipRedis bool
}

// Runtime holds the initialized dependencies.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client

	shutdownTracing func(context.Context) error
}

// TracingConfig maps the application config onto the tracer settings.
func TracingConfig(cfg *config.Config) observability.TracingConfig {
	return observability.TracingConfig{
		ServiceName:  observability.ServiceName,
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplerRatio: cfg.TracingSamplerRatio,
	}
}

// InitRuntime starts tracing, connects to the database and Redis, and
// optionally seeds demo data.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	shutdown, err := observability.InitTracing(TracingConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}
	rt := &Runtime{shutdownTracing: shutdown}

	if rt.DB, err = database.Connect(ctx, cfg); err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional: a nil client disables caching and cross-instance fan-out.
	if !opts.SkipRedis {
		rt.Redis = cache.InitRedis(cfg.RedisURL)
	}

	if opts.SeedDemo && strings.EqualFold(cfg.Env, "development") {
		if err := SeedIfEmpty(ctx, rt.DB, seed.DefaultOptions()); err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return rt, nil
}

// SeedIfEmpty runs the seeder when the users table has no rows. It reports
// nothing when data already exists.
func SeedIfEmpty(ctx context.Context, db *gorm.DB, opts seed.Options) error {
	var users int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	summary, err := seed.NewSeeder(db, opts).Run(ctx)
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "Seeded demo data",
		"users", summary.Users, "projects", summary.Projects, "interactions", summary.Interactions)
	return nil
}

// Close flushes traces and releases connections the server did not take over.
func (r *Runtime) Close(ctx context.Context) error {
	if r.Redis != nil {
		_ = r.Redis.Close()
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return r.ShutdownTracing(ctx)
}

// ShutdownTracing flushes pending spans.
func (r *Runtime) ShutdownTracing(ctx context.Context) error {
	if r.shutdownTracing == nil {
		return nil
	}
	return r.shutdownTracing(ctx)
}
