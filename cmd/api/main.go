package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resort/internal/api"
	"resort/internal/availability"
	"resort/internal/config"
	"resort/internal/database"
	"resort/internal/domain"
	"resort/internal/events"
	"resort/internal/jobs"
	"resort/internal/logging"
	"resort/internal/metrics"
	"resort/internal/models"
	"resort/internal/notify"
	"resort/internal/report"
	"resort/internal/repository"
	"resort/internal/service"
	"resort/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := initDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc := cfg.Booking.Location()
	clock := func() time.Time { return time.Now().In(loc) }
	bus := events.NewEventBus(logging.Component(logger, "events"))

	notifications := initNotifications(ctx, cfg, db, redisClient, bus, logger)

	engine := availability.NewEngine(db, clock, cfg.Booking.UnavailableWindowDays, logging.Component(logger, "availability"))
	policy := service.PolicyFromConfig(cfg.Booking)
	limiter := initRateLimiter(redisClient, logger)
	svcLogger := logging.Component(logger, "service")

	pricing := service.NewPricingService(db, svcLogger)
	sweeper := service.NewHoldSweeper(db, bus, clock, svcLogger)
	exporter := report.NewExporter(db, cfg.Exports.Path, logging.Component(logger, "report"))

	services := api.Services{
		Availability:   engine,
		Bookings:       service.NewBookingService(db, engine, pricing, limiter, bus, policy, clock, svcLogger),
		EventBookings:  service.NewEventBookingService(db, engine, pricing, limiter, bus, policy, clock, svcLogger),
		WalkIns:        service.NewWalkInService(db, engine, bus, clock, svcLogger),
		Pricing:        pricing,
		Accommodations: service.NewAccommodationService(db, svcLogger),
		Users:          db,
		Reports:        exporter,
	}

	scheduler := jobs.NewScheduler(loc, logging.Component(logger, "jobs"))
	if err := scheduleJobs(scheduler, cfg, db, sweeper, exporter, notifications, clock, logger); err != nil {
		return err
	}
	scheduler.Start()

	startMetrics(ctx, cfg, logger)

	httpServer := api.NewHTTPServer(cfg.API, services, logging.Component(logger, "api"))
	return serve(ctx, httpServer, scheduler, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.Open(cfg.Database.Path, database.Options{
		BusyTimeoutMS: cfg.Database.BusyTimeoutMS,
		MaxOpenConns:  cfg.Database.MaxOpenConns,
	}, logging.Component(logger, "database"))
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if err := db.Seed(context.Background(), cfg.Seed); err != nil {
		db.Close()
		logger.Error().Err(err).Msg("seed database")
		return nil, err
	}
	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := repository.Ping(ctx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// initRateLimiter prefers redis so limits hold across instances.
func initRateLimiter(client *redis.Client, logger *zerolog.Logger) domain.RateLimiter {
	memory := repository.NewMemoryRateLimiter()
	if client == nil {
		return memory
	}
	return repository.NewFailoverRateLimiter(
		repository.NewRedisRateLimiter(client, "booking_rate"),
		memory,
		logging.Component(logger, "rate-limit"),
	)
}

// initNotifications wires the outbox worker and subscribes it to booking events.
// It returns nil when notifications are disabled.
func initNotifications(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	redisClient *redis.Client,
	bus *events.EventBus,
	logger *zerolog.Logger,
) domain.NotificationQueue {
	nc := cfg.Notifications
	if !nc.Enabled {
		logger.Info().Msg("notifications disabled")
		return nil
	}

	router := notify.NewRouter()
	if nc.SMTP.Host != "" {
		router.Handle(models.ChannelEmail, notify.NewEmailSender(nc.SMTP))
	}
	staffChat := int64(0)
	if nc.Telegram.BotToken != "" {
		bot, err := notify.NewTelegramBot(nc.Telegram.BotToken)
		if err != nil {
			logger.Warn().Err(err).Msg("telegram init failed, continuing without telegram")
		} else {
			router.Handle(models.ChannelTelegram, notify.NewTelegramSender(bot, nc.Telegram.StaffChatID))
			staffChat = nc.Telegram.StaffChatID
		}
	}

	wlog := logging.Component(logger, "notifications")
	w := worker.NewNotificationWorker(db, router, redisClient, worker.RetryPolicyFromConfig(nc.Retry), wlog).
		WithPolling(nc.PollInterval, nc.BatchSize)
	worker.NewNotificationSubscriber(db, w, staffChat, wlog).Register(bus)
	go w.Start(ctx)

	logger.Info().Strs("channels", router.Channels()).Msg("notifications enabled")
	return w
}

func scheduleJobs(
	s *jobs.Scheduler,
	cfg *config.Config,
	db *database.DB,
	sweeper *service.HoldSweeper,
	exporter *report.Exporter,
	queue domain.NotificationQueue,
	clock domain.Clock,
	logger *zerolog.Logger,
) error {
	if err := s.Add("hold-sweep", cfg.Booking.HoldSweepSchedule, jobs.HoldSweep(sweeper)); err != nil {
		return err
	}
	if cfg.Backup.Enabled {
		backups := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
		if err := s.Add("backup", cfg.Backup.Schedule, jobs.Backup(backups)); err != nil {
			return err
		}
	}
	if err := s.Add("export", cfg.Exports.Schedule, jobs.ScheduleExport(exporter, clock, cfg.Exports.AheadDays)); err != nil {
		return err
	}
	if queue != nil {
		reminder := worker.NewReminder(db, queue, clock, logging.Component(logger, "reminders"))
		if err := s.Add("reminders", cfg.Notifications.ReminderSchedule, jobs.Reminders(reminder)); err != nil {
			return err
		}
	}
	return nil
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, scheduler *jobs.Scheduler, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Str("env", cfg.App.Environment).Msg("API server started")

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case serveErr = <-errCh:
		logger.Error().Err(serveErr).Msg("http server stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)
	scheduler.Stop(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return serveErr
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
