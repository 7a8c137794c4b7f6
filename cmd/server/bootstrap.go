package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/picketer/internal/api"
	"github.com/charlesng35/picketer/internal/app"
	"github.com/charlesng35/picketer/internal/app/maintenance"
	"github.com/charlesng35/picketer/internal/auth"
	"github.com/charlesng35/picketer/internal/cache"
	"github.com/charlesng35/picketer/internal/database"
	"github.com/charlesng35/picketer/internal/security"
	"github.com/charlesng35/picketer/internal/services"
	"github.com/charlesng35/picketer/internal/tasks"
	"github.com/charlesng35/picketer/pkg/logger"
	"github.com/charlesng35/picketer/pkg/push"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Tasks   *tasks.Pool
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises databases, caches, services, and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mode
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	generated, err := app.ApplyRuntimeDefaults(ctx, cfg, func(ctx context.Context, key string, generate func() (string, error)) (string, bool, error) {
		return database.EnsureSystemSetting(ctx, stack.DB, key, generate)
	})
	if err != nil {
		return nil, fmt.Errorf("apply runtime defaults: %w", err)
	}
	for key := range generated {
		log.Info("generated runtime secret", zap.String("key", key))
	}

	dbStore := cache.NewDatabaseStore(stack.DB)
	var rateStore cache.Store = dbStore
	var redisStore *cache.RedisStore

	if cfg.Cache.Redis.Enabled {
		if stack.Redis, err = cache.NewRedisClient(ctx, cfg.Cache.RedisClientConfig()); err != nil {
			log.Warn("redis unavailable; falling back to database-backed rate limiting", zap.Error(err))
		} else {
			redisStore = cache.NewRedisStore(stack.Redis)
			rateStore = redisStore
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	jwtSvc, err := auth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	mailer, err := cfg.Email.NewMailer()
	if err != nil {
		return nil, fmt.Errorf("initialise mailer: %w", err)
	}

	store, err := cfg.Storage.NewStorage(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialise storage: %w", err)
	}

	pushSender := push.NewWebPushSender(cfg.Push.PushSettings())
	stack.Tasks = tasks.NewPool(cfg.Tasks.PoolOptions())

	stack.Router, err = api.NewRouter(cfg, api.Dependencies{
		DB:            stack.DB,
		JWT:           jwtSvc,
		Hasher:        cfg.Auth.PasswordHasher(),
		Mailer:        mailer,
		Storage:       store,
		Push:          pushSender,
		PushPublicKey: pushSender.PublicKey(),
		Tasks:         stack.Tasks,
		RateStore:     rateStore,
		Redis:         redisStore,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	logPosture(ctx, security.NewPostureService(stack.DB, jwtSvc, cfg), log)

	if cfg.Maintenance.Enabled {
		auditSvc, err := services.NewAuditService(stack.DB)
		if err != nil {
			return nil, fmt.Errorf("initialise audit service: %w", err)
		}
		stack.Cleaner = maintenance.NewCleaner(stack.DB, auditSvc,
			maintenance.WithSchedule(cfg.Maintenance.Schedule),
			maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
			maintenance.WithCacheStore(dbStore),
		)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	success = true
	return stack, nil
}

// Shutdown stops background work and releases resources. Queued tasks are
// drained before the database closes.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		select {
		case <-s.Cleaner.Stop().Done():
		case <-ctx.Done():
			log.Warn("maintenance run still in progress at shutdown")
		}
	}

	if s.Tasks != nil {
		if err := s.Tasks.Shutdown(ctx); err != nil {
			log.Warn("background tasks did not drain", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

// logPosture reports every check that did not pass so operators see weak
// settings without calling the audit endpoint.
func logPosture(ctx context.Context, posture *security.PostureService, log *zap.Logger) {
	for _, check := range posture.Run(ctx).Checks {
		switch check.Status {
		case security.StatusFail:
			log.Error("security check failed", zap.String("check", check.ID), zap.String("message", check.Message))
		case security.StatusWarn:
			log.Warn("security check warning", zap.String("check", check.ID), zap.String("message", check.Message))
		}
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.MigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver:          strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:            strings.TrimSpace(cfg.Database.Path),
		DSN:             strings.TrimSpace(cfg.Database.DSN),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogQueries:      cfg.Database.LogQueries,
	}

	var auth app.DBAuthConfig
	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
		return dbCfg
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		auth = cfg.Database.Postgres
	case "mysql":
		auth = cfg.Database.MySQL
	default:
		// Leave driver as-is to surface unsupported driver error during open.
		return dbCfg
	}

	dbCfg.Host = strings.TrimSpace(auth.Host)
	dbCfg.Port = auth.Port
	dbCfg.Name = strings.TrimSpace(auth.Database)
	dbCfg.User = strings.TrimSpace(auth.Username)
	dbCfg.Password = auth.Password
	dbCfg.Options = auth.Options
	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
