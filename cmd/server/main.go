package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/gym-session-reservation/internal/booking"
	"github.com/iliyamo/gym-session-reservation/internal/config"
	"github.com/iliyamo/gym-session-reservation/internal/database"
	"github.com/iliyamo/gym-session-reservation/internal/handler"
	"github.com/iliyamo/gym-session-reservation/internal/middleware"
	"github.com/iliyamo/gym-session-reservation/internal/repository"
	"github.com/iliyamo/gym-session-reservation/internal/router"
	"github.com/iliyamo/gym-session-reservation/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	logger := cfg.NewLogger("gym-api")

	db, err := database.Open(cfg.DatabaseOptions())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db, database.Dialect(cfg.DBDriver)); err != nil {
		cancel()
		log.Fatalf("migrate: %v", err)
	}
	cancel()

	members := repository.NewMemberRepo(db)
	sessions := repository.NewSessionRepo(db)
	reservations := repository.NewReservationRepo(db)
	tokens := repository.NewTokenRepo(db)

	opts := []booking.Option{
		booking.WithLocation(cfg.Location),
		booking.WithCancelWindow(cfg.CancelWindow),
		booking.WithLogger(logger),
	}
	if cfg.RabbitURL != "" {
		pub := service.NewPublisher(cfg.RabbitURL, logger)
		defer pub.Close()
		opts = append(opts, booking.WithPublisher(pub))
	} else {
		logger.Warn("RABBITMQ_URL not set; reservation events are not published")
	}
	engine := booking.NewEngine(db, sessions, members, reservations, opts...)

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	rl := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()
	purger := middleware.NewCachePurger(cacheCfg, rdb)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.NewTokenBucket(rl, rdb))

	router.Register(e, db, router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, members, tokens, logger),
		Sessions:     handler.NewSessionHandler(sessions, members, reservations, cfg.Location, purger, logger),
		Reservations: handler.NewReservationHandler(engine, reservations, sessions, purger, logger),
		Admin:        handler.NewAdminHandler(reservations, members, cfg.Location, logger),
	}, router.Options{
		JWTSecret:    cfg.JWTSecret,
		BookingLimit: middleware.NewTokenBucket(rl.Booking(), rdb),
		Cache:        middleware.NewRedisCache(cacheCfg, rdb),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("http server started", "addr", addr, "env", cfg.Env, "db", cfg.DBDriver, "tz", cfg.Location.String())
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
