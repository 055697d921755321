// Package app assembles the services shared by the api, bot and cli binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"medbook/internal/booking"
	"medbook/internal/config"
	"medbook/internal/database"
	"medbook/internal/domain"
	"medbook/internal/events"
	"medbook/internal/google"
	"medbook/internal/intent"
	"medbook/internal/logging"
	"medbook/internal/metrics"
	"medbook/internal/notify"
	"medbook/internal/rag"
	"medbook/internal/repository"
	"medbook/internal/service"
	"medbook/internal/slots"
	"medbook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type App struct {
	Config   *config.Config
	DB       *database.DB
	Redis    *redis.Client
	Sessions domain.SessionRepository
	EventBus *events.EventBus
	Chat     *service.ChatService
	Admin    *service.AdminService
	Sheets   *worker.SheetsWorker
	Backup   *database.BackupService

	logger zerolog.Logger
}

// LoadConfigAndLogger reads CONFIG_PATH (default configs/config.yaml) and builds the root logger.
func LoadConfigAndLogger(component string) (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", component).Logger()

	return cfg, logger, closer, nil
}

// New opens storage and wires the services. Redis and Google Sheets are optional.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	notifier, err := notify.New(cfg.Notification, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &App{
		Config:   cfg,
		DB:       db,
		EventBus: events.NewEventBus(),
		Backup:   database.NewBackupService(cfg.Database.Path, cfg.Backup, logger),
		logger:   logging.Component(logger, "app"),
	}
	a.EventBus.OnError(func(ev *events.Event, err error) {
		a.logger.Error().Err(err).Str("event", ev.Type).Msg("event handler failed")
	})

	a.Redis = initRedis(ctx, cfg, logger)
	a.Sessions = initSessions(cfg, a.Redis, logger)

	if sheets := initGoogleSheets(ctx, cfg, logger); sheets != nil {
		a.Sheets = worker.NewSheetsWorker(sheets, a.Redis, worker.RetryPolicy{}, logger)
		a.EventBus.Subscribe(events.EventBookingConfirmed, a.Sheets.HandleEvent)
	}

	flow := booking.NewFlow(
		slots.NewChecker(db, logger),
		db,
		notifier,
		booking.Options{
			MaxSuggestions: cfg.Booking.MaxSuggestions,
			EmailSubject:   cfg.Booking.EmailSubject,
			NotifyTimeout:  cfg.Notification.Timeout,
		},
		logger,
	)

	a.Chat = service.NewChatService(
		a.Sessions,
		flow,
		intent.NewKeywordClassifier(),
		rag.New(cfg.LLM, logger),
		a.EventBus,
		service.ChatOptions{RateLimit: cfg.Session.RateLimit, RateWindow: cfg.Session.RateWindow},
		logger,
	)
	a.Admin = service.NewAdminService(db, a.EventBus, logger)
	return a, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, client); err != nil {
		// The failover store retries the primary later.
		logger.Warn().Err(err).Msg("redis unavailable, sessions start in memory")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}
	return client
}

func initSessions(cfg *config.Config, client *redis.Client, logger *zerolog.Logger) domain.SessionRepository {
	memory := repository.NewMemorySessionRepository(cfg.Session.TTL, cfg.Session.HistorySize)
	if client == nil {
		return memory
	}
	primary := repository.NewRedisSessionRepository(client, cfg.Session.TTL, cfg.Session.HistorySize)
	return repository.NewFailoverSessionRepository(primary, memory, logger)
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingsSpreadsheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile,
		cfg.Google.BookingsSpreadsheetID, cfg.Google.BookingsSheetName)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed, continuing without sheets")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

// StartBackground runs the sheets mirror and the backup loop until ctx is done.
func (a *App) StartBackground(ctx context.Context) {
	if a.Sheets != nil {
		go a.Sheets.Start(ctx)
	}
	if a.Config.Backup.Enabled {
		go a.Backup.Start(ctx)
	}
}

// StartMetrics serves /metrics when prometheus is enabled.
func (a *App) StartMetrics(ctx context.Context) {
	if !a.Config.Monitoring.PrometheusEnabled {
		return
	}
	metrics.Register()
	go startMetricsServer(ctx, a.Config.Monitoring.PrometheusPort, &a.logger)
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

// Health checks the database. Redis is optional and does not fail health.
func (a *App) Health(ctx context.Context) error {
	return a.DB.PingContext(ctx)
}

func (a *App) Close() error {
	return errors.Join(repository.Close(a.Redis), a.DB.Close())
}
