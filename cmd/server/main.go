package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/online-class-gate/internal/auth"
	"github.com/iliyamo/online-class-gate/internal/config" // Internal config loader
	"github.com/iliyamo/online-class-gate/internal/database"
	"github.com/iliyamo/online-class-gate/internal/handler"
	"github.com/iliyamo/online-class-gate/internal/logger"
	"github.com/iliyamo/online-class-gate/internal/middleware"
	"github.com/iliyamo/online-class-gate/internal/queue"
	"github.com/iliyamo/online-class-gate/internal/repository"
	"github.com/iliyamo/online-class-gate/internal/resetcode"
	"github.com/iliyamo/online-class-gate/internal/router" // Internal router setup
	"github.com/iliyamo/online-class-gate/internal/service"
	"github.com/iliyamo/online-class-gate/internal/utils"
)

func main() {
	cfg := config.Load() // Load environment config

	zl, err := logger.New(cfg.Production())
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync(zl)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		zl.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	if cfg.RunMigrations {
		mctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := database.Migrate(mctx, db)
		cancel()
		if err != nil {
			zl.Fatal("migrate database", zap.Error(err))
		}
	}

	// Background work (memory sweeper) stops with the server.
	appCtx, stop := context.WithCancel(context.Background())
	defer stop()

	rdb := config.NewRedisClient(zl)
	if rdb != nil {
		defer rdb.Close()
	}
	store, err := resetStore(appCtx, cfg, rdb, zl)
	if err != nil {
		zl.Fatal("reset store", zap.Error(err))
	}
	codes := resetcode.NewRegistry(store, cfg.ResetMaxTries)

	users := repository.NewUserRepo(db)
	payments := repository.NewPaymentRepo(db)
	tokens := utils.NewTokenCodec(cfg.JWTSecret, cfg.SessionTTL)
	gate := auth.NewGate(tokens, users, cfg.CookieName)

	var (
		paymentEvents service.PaymentEvents
		resetMailer   service.ResetMailer
	)
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL)
		paymentEvents, resetMailer = pub, pub
	} else {
		zl.Warn("AMQP_URL not set; payment events and reset emails are disabled")
	}
	workflow := service.NewPaymentWorkflow(payments, paymentEvents, zl)
	recovery := service.NewRecovery(users, codes, resetMailer, zl, cfg.ResetCodeTTL, cfg.BcryptCost)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = middleware.ErrorHandler()
	e.Use(middleware.RequestID(zl), middleware.RequestLogger())

	limiter := middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb, zl)
	router.RegisterRoutes(e, db) // Register application routes
	router.RegisterAuth(e, gate,
		handler.NewAuthHandler(users, tokens, gate.CookieName(), cfg.Production(), cfg.BcryptCost),
		handler.NewRecoveryHandler(recovery),
		limiter)
	router.RegisterPayments(e, gate, handler.NewPaymentHandler(workflow))

	addr := ":" + cfg.Port // Address string with port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		zl.Error("server shutdown", zap.Error(err))
	}
}

// resetStore picks the reset-code backend.  RESET_STORE=redis fails when
// Redis is unreachable; left unset it falls back to memory, which is only
// correct with a single instance.
func resetStore(ctx context.Context, cfg config.Config, rdb *redis.Client, zl *zap.Logger) (resetcode.Store, error) {
	backend, fallback, err := resetcode.ChooseBackend(cfg.ResetStore, rdb != nil)
	if err != nil {
		return nil, err
	}
	if backend == resetcode.BackendRedis {
		return resetcode.NewRedisStore(rdb, "reset"), nil
	}
	if fallback {
		zl.Warn("redis unavailable; reset codes kept in memory (single instance only)")
	}
	mem := resetcode.NewMemoryStore()
	go mem.RunSweeper(ctx, time.Minute, func(n int) {
		zl.Debug("reset codes swept", zap.Int("removed", n))
	})
	return mem, nil
}
