package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/rentalz-backend/internal/cron"
	"github.com/angelmondragon/rentalz-backend/internal/events"
	"github.com/angelmondragon/rentalz-backend/internal/notifications"
	"github.com/angelmondragon/rentalz-backend/internal/reservations"
	"github.com/angelmondragon/rentalz-backend/internal/vehicles"
	"github.com/angelmondragon/rentalz-backend/pkg/config"
	"github.com/angelmondragon/rentalz-backend/pkg/db"
	"github.com/angelmondragon/rentalz-backend/pkg/instance"
	"github.com/angelmondragon/rentalz-backend/pkg/logger"
	"github.com/angelmondragon/rentalz-backend/pkg/metrics"
	"github.com/angelmondragon/rentalz-backend/pkg/migrate"
	"github.com/angelmondragon/rentalz-backend/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.New(logger.Options{ServiceName: serviceName}).Warn(context.Background(), "could not read .env: "+err.Error())
	}
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: serviceName}).Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName
	logg := logger.FromConfig(serviceName, cfg.App)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "cron worker stopped", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

// run owns every resource of the worker; deferred closes unwind in reverse
// order whichever way it returns.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeLogged(ctx, logg, "database", dbClient.Close)

	if err := migrate.ApplyOnBoot(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeLogged(ctx, logg, "redis", redisClient.Close)

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceName, env), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}
	schedule, err := buildSchedule(cfg, logg, dbClient)
	if err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Schedule: schedule,
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Tick:     cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	if cfg.Cron.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.Cron.MetricsAddr, logg)
	}
	logg.Info(ctx, "cron worker started")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func closeLogged(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "close "+what, err)
	}
}

// buildSchedule wires the reservation sweeps and the notification cleanup.
// Sweep transitions still emit events so customers get their inbox entries;
// the websocket hub lives in the api process, so nothing is pushed live.
func buildSchedule(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Schedule, error) {
	conn := dbClient.DB()
	notificationRepo := notifications.NewRepository(conn)
	dispatcher := events.NewDispatcher(logg, notifications.NewHook(notificationRepo, nil))

	vehicleRepo := vehicles.NewRepository(conn)
	ledger, err := vehicles.NewLedger(vehicleRepo, dbClient)
	if err != nil {
		return nil, err
	}
	reservationsService, err := reservations.NewService(reservations.ServiceParams{
		Repo:   reservations.NewRepository(conn),
		Ledger: ledger,
		Tx:     dbClient,
		Events: dispatcher,
	})
	if err != nil {
		return nil, err
	}

	sweepParams := cron.ReservationJobParams{
		Logger:       logg,
		Reservations: reservationsService,
		BatchSize:    cfg.Cron.BatchSize,
		PendingTTL:   cfg.Reservations.PendingTTL,
	}
	completion, err := cron.NewReservationCompletionJob(sweepParams)
	if err != nil {
		return nil, err
	}
	expiry, err := cron.NewPendingExpiryJob(sweepParams)
	if err != nil {
		return nil, err
	}
	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:        logg,
		Notifications: notificationRepo,
		Retention:     cfg.Cron.NotificationRetention,
		BatchSize:     cfg.Cron.PurgeBatchSize,
	})
	if err != nil {
		return nil, err
	}

	// sweeps run every tick, cleanup once per CleanupInterval
	return cron.NewSchedule().
		Every(0, completion).
		Every(0, expiry).
		Every(cfg.Cron.CleanupInterval, cleanup), nil
}

// serveMetrics exposes the default registry until ctx ends.
func serveMetrics(ctx context.Context, addr string, logg *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics listener stopped", err)
	}
}
