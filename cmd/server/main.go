package main // Entry point package

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/resort-booking/internal/config"
	"github.com/iliyamo/resort-booking/internal/database"
	"github.com/iliyamo/resort-booking/internal/handler"
	"github.com/iliyamo/resort-booking/internal/logging"
	"github.com/iliyamo/resort-booking/internal/metrics"
	"github.com/iliyamo/resort-booking/internal/middleware"
	"github.com/iliyamo/resort-booking/internal/payment"
	"github.com/iliyamo/resort-booking/internal/queue"
	"github.com/iliyamo/resort-booking/internal/repository"
	"github.com/iliyamo/resort-booking/internal/router"
	"github.com/iliyamo/resort-booking/internal/service"
	"github.com/iliyamo/resort-booking/internal/tasks"
	"github.com/iliyamo/resort-booking/internal/utils"
)

func main() {
	hashPassword := flag.String("hash-password", "", "print a bcrypt hash for ADMIN_PASSWORD_HASH and exit")
	flag.Parse()
	if *hashPassword != "" {
		h, err := utils.HashPassword(*hashPassword, 0)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(h)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func newGateway(cfg config.Config) payment.Gateway {
	if cfg.PaymentGateway == "stripe" {
		return payment.NewStripe(cfg.StripeSecret, cfg.StripePublic, nil)
	}
	return payment.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpaySecret)
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	metrics.Register()

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	redisCfg := config.LoadRedisConfig()
	rdb := config.NewRedisClient(redisCfg)
	if rdb == nil {
		log.Warn("redis unavailable; using local rate limiter, no response cache, no hold tasks", zap.String("addr", redisCfg.Addr))
	} else {
		defer rdb.Close()
	}

	rooms := repository.NewRoomRepo(db)
	bookings := repository.NewBookingRepo(db)

	opts := []service.Option{service.WithLogger(log)}
	if cfg.RabbitMQURL != "" {
		opts = append(opts, service.WithPublisher(queue.NewPublisher(cfg.RabbitMQURL, log)))
	}
	useAsynq := rdb != nil && cfg.AsynqEnabled
	if useAsynq {
		sched := tasks.NewScheduler(tasks.RedisOpt(redisCfg))
		defer sched.Close()
		opts = append(opts, service.WithScheduler(sched))
	}

	gw := newGateway(cfg)
	availability := service.NewAvailabilityService(rooms, bookings, cfg.MaxStayNights, opts...)
	bookingSvc := service.NewBookingService(rooms, bookings, gw, service.Settings{
		HoldTTL:       cfg.HoldTTL,
		MaxStayNights: cfg.MaxStayNights,
		Currency:      cfg.Currency,
	}, opts...)
	catalog := service.NewCatalogService(rooms, opts...)

	if useAsynq {
		stopWorkers, err := startWorkers(redisCfg, cfg.HoldSweepEvery, bookingSvc, log)
		if err != nil {
			return err
		}
		defer stopWorkers()
	}
	if cfg.RabbitMQURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.BookingLogPath, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("booking.paid consumer stopped", zap.Error(err))
			}
		}()
	}

	e := newEcho(cfg, rdb, log, db, availability, bookingSvc, catalog)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("gateway", gw.Name()))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func startWorkers(redisCfg config.RedisConfig, sweepSpec string, svc tasks.HoldService, log *zap.Logger) (func(), error) {
	opt := tasks.RedisOpt(redisCfg)
	srv, mux := tasks.NewServer(opt, svc, log)
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("asynq server: %w", err)
	}
	var periodic *asynq.Scheduler
	if sweepSpec != "" {
		s, err := tasks.NewPeriodicScheduler(opt, sweepSpec, log)
		if err != nil {
			srv.Shutdown()
			return nil, err
		}
		if err := s.Start(); err != nil {
			srv.Shutdown()
			return nil, fmt.Errorf("asynq scheduler: %w", err)
		}
		periodic = s
	}
	return func() {
		if periodic != nil {
			periodic.Shutdown()
		}
		srv.Shutdown()
	}, nil
}

func newEcho(cfg config.Config, rdb *redis.Client, log *zap.Logger, db handler.Pinger,
	availability *service.AvailabilityService, bookings *service.BookingService, catalog *service.CatalogService) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e, db)

	cacheCfg := config.LoadCacheConfig()
	api := e.Group("/api", middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb, log))
	router.RegisterBooking(api, handler.NewBookingHandler(availability, bookings, cfg.JWTSecret, log))
	router.RegisterCatalog(api, handler.NewRoomHandler(catalog, log), middleware.NewRedisCache(cacheCfg, rdb, log))
	router.RegisterAdmin(api, handler.NewAdminHandler(handler.AdminCredentials{
		Email:        cfg.AdminEmail,
		PasswordHash: cfg.AdminPasswordHash,
		JWTSecret:    cfg.JWTSecret,
		TokenTTL:     time.Duration(cfg.AccessTTLMin) * time.Minute,
	}, catalog, bookings, log), cfg.JWTSecret, middleware.InvalidateCache(cacheCfg, rdb, log))
	return e
}
