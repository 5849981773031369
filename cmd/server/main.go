package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lunchroom/lunchroom/internal/auth"
	"github.com/lunchroom/lunchroom/internal/config"
	"github.com/lunchroom/lunchroom/internal/database"
	"github.com/lunchroom/lunchroom/internal/handler"
	"github.com/lunchroom/lunchroom/internal/middleware"
	"github.com/lunchroom/lunchroom/internal/queue"
	"github.com/lunchroom/lunchroom/internal/repository"
	"github.com/lunchroom/lunchroom/internal/router"
	"github.com/lunchroom/lunchroom/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("database open failed", zap.Error(err))
	}
	defer db.Close()

	dsn := database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err := database.Migrate(dsn); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, response cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	resets := repository.NewResetTokenRepo(db)
	shops := repository.NewShopRepo(db)
	menus := repository.NewMenuRepo(db)
	events := repository.NewEventRepo(db)
	orders := repository.NewOrderRepo(db)

	hasher := auth.Hasher{Cost: cfg.BcryptCost}
	tokens := auth.NewManager(
		cfg.AccessSecret, cfg.RefreshSecret,
		time.Duration(cfg.AccessTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTTLDays)*24*time.Hour,
		time.Duration(cfg.ResetTTLMin)*time.Minute,
	)
	publisher := service.NewPublisher(logger)
	authSvc := auth.NewService(users, resets, hasher, tokens, publisher, logger)

	authH := handler.NewAuthHandler(cfg, authSvc, users)
	adminH := handler.NewUserAdminHandler(users, hasher)
	shopH := handler.NewShopHandler(shops)
	menuH := handler.NewMenuHandler(menus, shops)
	eventH := handler.NewEventHandler(events, shops, orders)
	orderH := handler.NewOrderHandler(orders, events, menus, shops, users, publisher, logger)
	publicH := handler.NewPublicHandler(shops, menus)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.NewHTTPMetrics(prometheus.DefaultRegisterer).Middleware())

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterCore(e)
	router.RegisterAuth(e, authH, tokens, limiter)
	router.RegisterPublic(e, publicH, cache)
	router.RegisterMember(e, tokens, eventH, orderH)
	router.RegisterStaff(e, tokens, shopH, menuH, eventH, adminH)

	go queue.StartOrderConsumer(logger)
	go queue.StartResetConsumer(logger)
	go purgeResetsLoop(resets, logger)

	addr := ":" + cfg.Port
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := e.Start(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// purgeResetsLoop drops expired, never-used reset rows once an hour so the
// table does not grow unbounded.
func purgeResetsLoop(resets *repository.ResetTokenRepo, log *zap.Logger) {
	for {
		time.Sleep(time.Hour)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := resets.PurgeExpired(ctx); err != nil {
			log.Warn("reset purge failed", zap.Error(err))
		}
		cancel()
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
