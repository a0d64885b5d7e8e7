package container

import (
	"context"
	"fmt"
	"time"

	"rally-api/internal/config"
	"rally-api/internal/domain"
	"rally-api/internal/repository"
	"rally-api/internal/repository/memory"
	"rally-api/internal/service"
	"rally-api/internal/service/auth"
	"rally-api/pkg/database"
	"rally-api/pkg/logger"
	"rally-api/pkg/metrics"
	"rally-api/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           *database.PostgresDB // nil when running on the memory store
	Store        *memory.Store        // nil when running on PostgreSQL
	RedisClient  *redis.Client
	Metrics      *metrics.Manager
	Repositories *repository.Repositories
	Cache        *service.CacheService
	Services     *service.Services
	Scheduler    service.CrownScheduler
}

// New creates a new dependency injection container. Redis is optional: a
// failed connection is logged and the service runs without caching.
func New(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	if cfg.MetricsEnabled {
		c.Metrics = metrics.NewManager()
	}

	if cfg.UseMemoryStore() {
		c.Store = memory.New()
		seedDevelopment(c.Store)
		c.Repositories = c.Store.Repositories()
		logger.Warn("DATABASE_URL not set, using in-memory store with demo data")
	} else {
		db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL, cfg.DatabaseReadURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		c.DB = db
		c.Repositories = repository.NewPostgresRepositories(db)
		logger.Info("Connected to PostgreSQL")
	}

	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, logger.Logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			c.RedisClient = client
			logger.Info("Redis client initialized successfully")
		}
	} else {
		logger.Info("Redis URL not configured, proceeding without caching")
	}

	c.Cache = service.NewCacheService(c.RedisClient, logger.Logger, c.Metrics)

	crowns := service.NewCrownService(c.Repositories, c.Cache, logger, c.Metrics)
	c.Services = &service.Services{
		Auth:     auth.NewService(cfg.JWTSecret, logger),
		Captures: service.NewCaptureService(c.Repositories, c.Cache, logger, c.Metrics),
		Rallies:  service.NewRallyService(c.Repositories, c.Cache, logger, c.Metrics),
		Crowns:   crowns,
		Reports:  service.NewReportService(c.Repositories, c.Cache, logger, cfg.SeasonStart),
	}
	c.Scheduler = service.NewCrownScheduler(c.Repositories.Events, crowns, logger, c.Metrics, cfg.CrownSweepInterval)

	return c, nil
}

// HealthCheck reports the status of every backing store. Redis failures
// degrade the service but do not fail the check.
func (c *Container) HealthCheck(ctx context.Context) (map[string]string, error) {
	components := map[string]string{}

	var dbErr error
	switch {
	case c.DB != nil:
		if dbErr = c.DB.Health(ctx); dbErr != nil {
			components["database"] = "unhealthy"
		} else {
			components["database"] = "healthy"
		}
	default:
		components["database"] = "memory"
	}

	switch {
	case !c.Cache.Enabled():
		components["redis"] = "disabled"
	case c.Cache.HealthCheck(ctx) != nil:
		components["redis"] = "degraded"
	default:
		components["redis"] = "healthy"
	}

	if dbErr != nil {
		return components, fmt.Errorf("database health check failed: %w", dbErr)
	}
	return components, nil
}

// GetAuthService returns the auth service
func (c *Container) GetAuthService() service.AuthService {
	return c.Services.Auth
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// seedDevelopment loads a small demo schedule into the memory store
func seedDevelopment(store *memory.Store) {
	now := time.Now().UTC()
	store.PutEvent(domain.Event{
		ID:           "demo-final",
		Name:         "Championship Final",
		Significance: domain.SignificanceChampionship,
		Status:       domain.EventStatusLive,
		HomeSchoolID: "demo-school",
		StartsAt:     now.Add(-time.Hour),
	})
	store.PutEvent(domain.Event{
		ID:           "demo-rivalry",
		Name:         "Rivalry Week",
		Significance: domain.SignificanceRivalry,
		Status:       domain.EventStatusUpcoming,
		HomeSchoolID: "demo-school",
		StartsAt:     now.Add(24 * time.Hour),
	})
}
