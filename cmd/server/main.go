package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/config"
	"github.com/iliyamo/bus-seat-reservation/internal/database"
	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/logger"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/notify"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/reservation"
	"github.com/iliyamo/bus-seat-reservation/internal/router"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel, cfg.IsDev())
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		zl.Info("signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		zl.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	migrateCtx, migrateCancel := context.WithTimeout(ctx, 30*time.Second)
	err = database.Migrate(migrateCtx, db)
	migrateCancel()
	if err != nil {
		zl.Fatal("schema bootstrap failed", zap.Error(err))
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		zl.Warn("redis unavailable: rate limiting disabled, live updates local to this instance")
	} else {
		defer rdb.Close()
	}

	// ---- Repositories ----
	buses := repository.NewBusRepo(db)
	seats := repository.NewSeatRepo(db)
	bookings := repository.NewBookingRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	store := repository.NewStore(db, cfg.LockWait)
	avail := reservation.NewAvailability(seats)

	// ---- Live seat maps ----
	var workers sync.WaitGroup
	hub := notify.NewHub(avail, zl.Named("hub"))
	dispatcher := notify.NewDispatcher(hub, logger.NewWatermill(zl.Named("watermill")), zl.Named("dispatcher"))
	ready := make(chan struct{})
	workers.Add(1)
	go func() {
		defer workers.Done()
		if err := dispatcher.Run(ctx, ready); err != nil && !errors.Is(err, context.Canceled) {
			zl.Error("dispatcher stopped", zap.Error(err))
		}
	}()
	<-ready

	var notifier reservation.Notifier = dispatcher
	if rdb != nil {
		relay := notify.NewRelay(rdb, dispatcher, zl.Named("relay"))
		notifier = relay
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("redis relay stopped", zap.Error(err))
			}
		}()
	}

	// ---- Booking events ----
	var events reservation.EventPublisher
	if cfg.RabbitURL != "" {
		events = queue.NewPublisher(cfg.RabbitURL, zl.Named("publisher"))
		if cfg.RunConsumer {
			consumer := queue.NewConsumer(cfg.RabbitURL, cfg.AuditLogPath, zl.Named("audit"))
			workers.Add(1)
			go func() {
				defer workers.Done()
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					zl.Error("audit consumer stopped", zap.Error(err))
				}
			}()
		}
	} else {
		zl.Info("RABBITMQ_URL not set: booking events disabled")
	}

	svc := reservation.NewService(store, notifier, events, zl.Named("reservation"))

	// ---- HTTP ----
	e := router.New(zl.Named("http"))
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterPublic(e,
		handler.NewBusHandler(buses, avail, zl.Named("bus")),
		handler.NewWSHandler(hub, buses, notify.DefaultQueueSize, zl.Named("ws")))
	router.RegisterCustomer(e,
		handler.NewBookingHandler(svc, bookings, users, zl.Named("booking")),
		cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, zl.Named("ratelimit")))
	router.RegisterAdmin(e,
		handler.NewAdminHandler(buses, bookings, users, notifier, zl.Named("admin")),
		cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("http server failed", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("http shutdown", zap.Error(err))
	}
	if err := dispatcher.Close(); err != nil {
		zl.Warn("dispatcher close", zap.Error(err))
	}
	workers.Wait()
	zl.Info("stopped")
}
