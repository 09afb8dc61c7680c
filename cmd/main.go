package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clipsify/internal/auth"
	"clipsify/internal/cache"
	"clipsify/internal/cdn"
	"clipsify/internal/config"
	"clipsify/internal/handlers"
	"clipsify/internal/middleware"
	"clipsify/internal/repository"
	service "clipsify/internal/services"
	"clipsify/internal/storage"
	utils "clipsify/internal/utis"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func main() {
	// load config
	path := flag.String("config", envOr("CONFIG_PATH", "config/config.yaml"), "path to the YAML config file")
	flag.Parse()
	cfg, err := config.Load(*path)
	if err != nil {
		panic(err)
	}
	dev := cfg.App.Env == "development"

	// logger
	logger, err := utils.NewLogger(dev, cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	// Mongo, connected lazily on first request
	store := repository.NewStore(cfg.Mongo.URI, cfg.Mongo.Database, cfg.ConnectTimeout, cfg.Mongo.MaxPoolSize, logger)
	mediaRepo := repository.NewMediaRepo(store, cfg.Mongo.ImageCollection, cfg.Mongo.VideoCollection)
	userRepo := repository.NewUserRepo(store, cfg.Mongo.UserCollection)
	ictx, icancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	if err := mediaRepo.EnsureIndexes(ictx); err != nil {
		logger.Warn("media indexes", zap.Error(err))
	}
	if err := userRepo.EnsureIndexes(ictx); err != nil {
		logger.Warn("user indexes", zap.Error(err))
	}
	icancel()

	// CDN
	cdnClient := cdn.New(cdn.Config{
		PublicKey:      cfg.CDN.PublicKey,
		PrivateKey:     cfg.CDN.PrivateKey,
		URLEndpoint:    cfg.CDN.URLEndpoint,
		UploadEndpoint: cfg.CDN.UploadEndpoint,
	}, nil)
	if !cdnClient.Configured() {
		logger.Warn("cdn credentials missing; upload auth and playback will fail")
	}

	// Redis is optional: without it the rate limiter runs in memory and playback
	// URLs are signed on every request.
	var (
		limiter       middleware.Limiter = middleware.NewMemoryLimiter(cfg.RateLimit.UploadAuthPerMinute, cfg.RateLimit.UploadAuthPerMinute)
		playbackCache service.Cache
	)
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("redis unavailable, using in-memory limiter", zap.Error(err))
		} else {
			defer func() { _ = rc.Close() }()
			limiter = middleware.NewRedisLimiter(rc.Cli, "ratelimit:upload-auth", cfg.RateLimit.UploadAuthPerMinute, time.Minute)
			playbackCache = rc
		}
	}

	// S3 archive
	var archive service.Archiver
	if cfg.Archive.Enabled {
		s3store, err := storage.NewS3Store(context.Background(), cfg.AWS.Region, cfg.AWS.Bucket, cfg.AWS.Endpoint)
		if err != nil {
			logger.Fatal("s3 init", zap.Error(err))
		}
		archive = s3store
	}

	// JWT
	jwtm, err := auth.NewJWTManager(cfg.JWT.Secret, cfg.SessionTTL)
	if err != nil {
		logger.Fatal("jwt init", zap.Error(err))
	}

	// services
	msvc := service.NewMediaService(mediaRepo, logger)
	psvc := service.NewProfileService(userRepo, msvc, logger)
	asvc := service.NewAccountService(userRepo, jwtm)
	issuer := service.NewUploadAuthIssuer(cdnClient, cfg.UploadAuthTTL, logger)
	proxy := service.NewUploadProxy(cdnClient, archive, logger)
	resolver := service.NewPlaybackResolver(cdnClient, playbackCache, cfg.PlaybackURLExpiry, cfg.SignedURLCacheTTL, logger)

	// fiber app & routes
	app := fiber.New(fiber.Config{
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		BodyLimit:    int(utils.MaxUploadBytes) + 1<<20,
	})
	app.Use(recover.New())
	app.Use(middleware.ZapLogger(logger))
	handlers.Register(app, handlers.Deps{
		Verifier: jwtm,
		Limiter:  limiter,
		Log:      logger,
		Auth:     handlers.NewAuthHandler(asvc, logger),
		Upload:   handlers.NewUploadHandler(issuer, proxy, logger),
		Media:    handlers.NewMediaHandler(msvc, logger),
		Playback: handlers.NewPlaybackHandler(resolver, logger),
		Profile:  handlers.NewProfileHandler(psvc, logger),
	})

	// start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		logger.Info("starting clipsify", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown requested")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	_ = app.ShutdownWithContext(ctx)
	_ = store.Disconnect(ctx)
	logger.Info("shutdown completed")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
