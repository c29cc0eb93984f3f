// cmd/reminder-service/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"payment-reminders/internal/common/config"
	"payment-reminders/internal/common/database"
	"payment-reminders/internal/common/logger"
	"payment-reminders/internal/common/observability"
	"payment-reminders/internal/notification/audit"
	"payment-reminders/internal/notification/dispatch"
	"payment-reminders/internal/notification/notiflog"
	"payment-reminders/internal/notification/reminder"
	"payment-reminders/internal/notification/scheduler"
	"payment-reminders/internal/notification/selection"
	"payment-reminders/internal/store/orders"
	"payment-reminders/internal/store/settings"
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

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting reminder service...",
		zap.String("environment", cfg.App.Environment),
		zap.String("storage", cfg.Storage.Driver),
	)

	ctx := context.Background()

	obs := observability.New(cfg.App.Name, zapLog)
	defer obs.Shutdown(ctx)

	if cfg.Tracing.Enabled {
		shutdownTracer, err := observability.InitTracer(cfg.App.Name, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			zapLog.Fatal("tracer init failed", zap.Error(err))
		}
		defer shutdownTracer(ctx)
		zapLog.Info("Tracing enabled", zap.String("endpoint", cfg.Tracing.CollectorEndpoint))
	}

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		zapLog.Fatal("invalid scheduler timezone", zap.Error(err))
	}

	// --- Order store ---
	var (
		orderStore orders.Store
		pg         *database.PostgresClient
	)
	switch cfg.Storage.Driver {
	case "postgres":
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Storage.Postgres)
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

		if cfg.Storage.Postgres.Migrate {
			if err := pg.Migrate(zapLog); err != nil {
				zapLog.Fatal("migrations failed", zap.Error(err))
			}
		}
		orderStore = orders.NewPostgresStore(pg)
	default:
		orderStore = orders.NewFileStore(cfg.Storage.File.OrdersPath)
		zapLog.Info("Using file order store", zap.String("path", cfg.Storage.File.OrdersPath))
	}

	// --- Settings store ---
	rdb := database.NewRedis(cfg.Redis)
	err = retryWithBackoff(func() error {
		return database.PingRedis(ctx, rdb)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	settingsStore := settings.NewRedisStore(rdb, cfg.Redis.SettingsKey)
	seeded, err := settingsStore.SeedSettings(ctx, &cfg.Notifications.Defaults)
	if err != nil {
		zapLog.Fatal("failed to seed notification settings", zap.Error(err))
	}
	if seeded {
		zapLog.Info("Seeded default notification settings", zap.String("key", cfg.Redis.SettingsKey))
	}

	// --- Channels ---
	senders, err := buildSenders(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("failed to build channel senders", zap.Error(err))
	}

	// --- Notification log ---
	var logOpts []notiflog.Option
	if cfg.Audit.Enabled {
		writer := audit.NewKafkaWriter(cfg.Audit.Brokers, cfg.Audit.Topic, log)
		publisher := audit.NewKafkaPublisher(writer, log)
		defer publisher.Close()
		logOpts = append(logOpts, notiflog.WithPublisher(publisher))
		zapLog.Info("Audit publishing enabled", zap.String("topic", cfg.Audit.Topic))
	}
	nlog := notiflog.New(orderStore, log, logOpts...)

	// --- Engine ---
	dispatcher := dispatch.New(dispatch.Config{
		StoreName:           cfg.Notifications.StoreName,
		CurrencySymbol:      cfg.Notifications.CurrencySymbol,
		DateLayout:          cfg.Notifications.DateLayout,
		PaymentLinkTemplate: cfg.Notifications.PaymentLinkTemplate,
		Location:            loc,
		SendTimeout:         config.GetDuration(cfg.Notifications.SendTimeoutMs),
	}, senders, log, dispatch.WithTracer(observability.Tracer()))

	selector := selection.New(orderStore, settingsStore, dispatcher, nlog, log,
		selection.WithLocation(loc),
		selection.WithObservability(obs),
	)

	sched := scheduler.New(scheduler.Config{
		Hour:           cfg.Scheduler.Hour,
		Minute:         cfg.Scheduler.Minute,
		CheckInterval:  config.GetDuration(cfg.Scheduler.CheckIntervalMs),
		Location:       loc,
		SkipInitialRun: cfg.Scheduler.SkipInitialRun,
	}, selector, log)

	service := reminder.NewService(reminder.ServiceDependencies{
		Orders:     orderStore,
		Settings:   settingsStore,
		Dispatcher: dispatcher,
		Log:        nlog,
		Scheduler:  sched,
		Logger:     log,
	}, reminder.Config{
		UpcomingWindowDays: cfg.Stats.UpcomingWindowDays,
		Location:           loc,
	})

	if cfg.Scheduler.Enabled {
		if err := service.Start(ctx); err != nil {
			zapLog.Fatal("scheduler start failed", zap.Error(err))
		}
		st := service.Status()
		zapLog.Info("Scheduler started", zap.Time("nextRun", st.NextRun))
	} else {
		zapLog.Info("Scheduler disabled")
	}

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           newMux(service, pg, rdb),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping scheduler...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := service.Stop(shutdownCtx); err != nil {
		zapLog.Error("Error stopping scheduler", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}

	zapLog.Info("Reminder service stopped gracefully")
}

func newMux(service *reminder.Service, pg *database.PostgresClient, rdb *redis.Client) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"time":      time.Now().Format(time.RFC3339),
			"scheduler": service.Status(),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"redis": "ok"}
		status := http.StatusOK
		if err := database.PingRedis(ctx, rdb); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if pg != nil {
			checks["postgres"] = "ok"
			if err := pg.Ping(ctx); err != nil {
				checks["postgres"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		state := "ready"
		if status != http.StatusOK {
			state = "not_ready"
		}
		writeJSON(w, status, map[string]interface{}{
			"status": state,
			"checks": checks,
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
