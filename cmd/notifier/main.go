// cmd/notifier/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/FreakyLetsFail/NKalendar/internal/common/config"
	"github.com/FreakyLetsFail/NKalendar/internal/common/database"
	"github.com/FreakyLetsFail/NKalendar/internal/common/logger"
	"github.com/FreakyLetsFail/NKalendar/internal/common/observability"
	"github.com/FreakyLetsFail/NKalendar/internal/dispatch"
	"github.com/FreakyLetsFail/NKalendar/internal/server"
	"github.com/FreakyLetsFail/NKalendar/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// observedRunner layers the OTel scan instruments over the scanner.
type observedRunner struct {
	scanner *dispatch.Scanner
	obs     *observability.Observability
}

func (r *observedRunner) Run(ctx context.Context) (int, error) {
	start := time.Now()
	sent, err := r.scanner.Run(ctx)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.obs.RecordScan(ctx, outcome)
	r.obs.RecordScanDuration(ctx, time.Since(start), outcome)

	return sent, err
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config load failed:", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting reminder notifier...",
		zap.String("environment", cfg.App.Environment))

	obs := observability.New("notifier")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Wire the dispatcher ---
	displayZone, err := time.LoadLocation(cfg.Scan.DisplayTimezone)
	if err != nil {
		zapLog.Fatal("invalid display timezone", zap.Error(err),
			zap.String("timezone", cfg.Scan.DisplayTimezone))
	}

	notifications := store.NewNotificationStore(pg.DB)
	subscriptions := store.NewSubscriptionStore(pg.DB)
	registrations := store.NewRegistrationStore(pg.DB)

	resolver := dispatch.NewResolver(subscriptions, registrations, displayZone, log)
	sender := dispatch.NewVAPIDSender(
		cfg.Push.Subscriber,
		cfg.Push.VAPIDPublicKey,
		cfg.Push.VAPIDPrivateKey,
		cfg.Push.TTL,
	)
	dispatcher := dispatch.NewDispatcher(
		dispatch.DispatcherConfig{Timeout: config.GetDuration(cfg.Push.Timeout)},
		sender, log,
	)
	lock := dispatch.NewRedisScanLock(rdb.Client, config.GetDuration(cfg.Scan.LockTTL))
	scanner := dispatch.NewScanner(
		dispatch.ScannerConfig{MaxInFlight: cfg.Push.MaxInFlight},
		notifications, resolver, dispatcher, lock, log,
	)

	srv := server.New(
		server.Config{AdminToken: cfg.Notify.AdminToken},
		&observedRunner{scanner: scanner, obs: obs},
		subscriptions, subscriptions, registrations, dispatcher, log,
	)

	httpServer := &http.Server{
		Addr:         cfg.HTTP.ListenAddress,
		Handler:      srv.Handler(),
		ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.ListenAddress))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Notifier stopped gracefully")
}
