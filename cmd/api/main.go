package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/agency-backoffice/internal/analytics"
	"github.com/wolfman30/agency-backoffice/internal/api/router"
	"github.com/wolfman30/agency-backoffice/internal/app/bootstrap"
	appconfig "github.com/wolfman30/agency-backoffice/internal/config"
	"github.com/wolfman30/agency-backoffice/internal/contact"
	"github.com/wolfman30/agency-backoffice/internal/export"
	httpmiddleware "github.com/wolfman30/agency-backoffice/internal/http/middleware"
	"github.com/wolfman30/agency-backoffice/internal/leads"
	"github.com/wolfman30/agency-backoffice/internal/notify"
	"github.com/wolfman30/agency-backoffice/internal/observability/metrics"
	"github.com/wolfman30/agency-backoffice/internal/realtime"
	"github.com/wolfman30/agency-backoffice/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	var logOut io.Writer = os.Stdout
	if cfg.LogFile != "" {
		fileOut, err := logging.NewRotatingWriter(cfg.LogFile, 0)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		logOut = io.MultiWriter(os.Stdout, fileOut)
	}
	logger := logging.NewWithWriter(cfg.LogLevel, cfg.LogFormat, logOut)
	logger.Info("starting agency back-office API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	// Create HTTP server. No write timeout: the notification stream is long-lived.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if a.bridge != nil {
		go func() {
			if err := a.bridge.Run(ctx); err != nil {
				logger.Error("realtime bridge stopped", "error", err)
			}
		}()
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	a.close()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type app struct {
	handler http.Handler
	bridge  *realtime.RedisBridge
	closers []func()
}

// close runs teardown in reverse order of construction.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	a := &app{}
	metricsHandler, pipelineMetrics := setupMetrics()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
	}

	pool, err := bootstrap.ConnectPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, err
	}
	if pool != nil {
		a.closers = append(a.closers, pool.Close)
	} else {
		logger.Warn("DATABASE_URL not set; leads are kept in memory and notifications are disabled")
	}

	readDB, err := bootstrap.OpenReadDB(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if readDB != nil {
		a.closers = append(a.closers, func() { _ = readDB.Close() })
	}

	awsCfg, err := bootstrap.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	// Realtime: local hub, relayed through Redis when several instances run.
	hub := realtime.NewHub(logger)
	a.closers = append(a.closers, hub.Close)
	var publisher notify.Publisher = hub
	if bridge := realtime.NewRedisBridge(redisClient, hub, cfg.RealtimeChannel, logger); bridge != nil {
		a.bridge = bridge
		publisher = bridge
	}

	sender, senderName := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	logger.Info("lead alert email configured", "sender", senderName, "recipients", len(cfg.LeadAlertRecipients))

	fanout, notifyHandler := setupNotifications(cfg, pool, readDB, sender, publisher, pipelineMetrics, logger)
	if fanout != nil {
		a.closers = append(a.closers, fanout.Wait)
	}

	exporter, err := setupExporter(cfg, bootstrap.BuildS3Client(awsCfg, cfg), logger)
	if err != nil {
		return nil, err
	}

	leadStore := setupLeadStore(pool, fanout, pipelineMetrics, logger)
	a.closers = append(a.closers, leadStore.Wait)

	var exportNotifier leads.ExportNotifier
	var visitsNotifier analytics.ExportNotifier
	var reporter contact.FailureReporter
	if fanout != nil {
		exportNotifier, visitsNotifier, reporter = fanout, fanout, fanout
	}

	locator, err := bootstrap.BuildLocator(cfg, redisClient, pipelineMetrics, logger)
	if err != nil {
		return nil, err
	}
	flow := contact.NewFlow(leadStore, locator, submissionClock(redisClient), reporter, contact.Config{
		Channels: contact.Channels{
			WhatsAppNumber:  cfg.ContactWhatsAppNumber,
			ViberNumber:     cfg.ContactViberNumber,
			Email:           cfg.ContactEmail,
			EmailSubject:    cfg.ContactEmailSubject,
			MessengerHandle: cfg.ContactMessengerPage,
			PhoneNumber:     cfg.ContactPhoneNumber,
		},
		Cooldown:      cfg.ContactCooldown,
		RedirectAfter: cfg.ContactRedirectDelay,
	}, pipelineMetrics, logger)

	var visits analytics.VisitSource = noVisits{}
	if readDB != nil {
		visits = analytics.NewVisitReader(readDB)
	}
	analyticsHandler := analytics.NewHandler(
		visits,
		leadStore,
		exporter,
		visitsNotifier,
		analytics.NewTracker(cfg.AnalyticsEnabled, cfg.AnalyticsEndpoint, logger),
		exporterLocation(cfg),
		logger,
	)

	limiter := httpmiddleware.NewRateLimiter(cfg.PublicRateLimitRPS, cfg.PublicRateLimitBurst)
	a.closers = append(a.closers, limiter.Stop)

	a.handler = router.New(&router.Config{
		Logger:             logger,
		ContactHandler:     contact.NewHandler(flow, logger),
		AnalyticsHandler:   analyticsHandler,
		LeadsHandler:       leads.NewHandler(leadStore, exporter, exportNotifier, logger),
		NotifyHandler:      notifyHandler,
		StreamHandler:      realtime.NewHandler(hub, cfg.CORSAllowedOrigins),
		MetricsHandler:     metricsHandler,
		RateLimiter:        limiter,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HealthChecks:       healthChecks(pool, redisClient),
	})
	return a, nil
}

// setupMetrics registers pipeline counters alongside runtime collectors on a
// private registry.
func setupMetrics() (http.Handler, *metrics.PipelineMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewPipelineMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

func setupNotifications(
	cfg *appconfig.Config,
	pool *pgxpool.Pool,
	readDB *sqlx.DB,
	sender notify.EmailSender,
	publisher notify.Publisher,
	m *metrics.PipelineMetrics,
	logger *logging.Logger,
) (*notify.Fanout, *notify.Handler) {
	if pool == nil {
		return nil, nil
	}
	store := notify.NewStore(pool)
	service := notify.NewService(store, notify.NewSettingsStore(pool), publisher, logger)

	var directory notify.AdminDirectory
	switch {
	case len(cfg.AdminUserIDs) > 0:
		directory = notify.StaticAdminDirectory(cfg.AdminUserIDs)
	case readDB != nil:
		directory = notify.NewSQLAdminDirectory(readDB, cfg.AdminRoles...)
	default:
		directory = notify.StaticAdminDirectory(nil)
	}

	fanout := notify.NewFanout(
		directory,
		store,
		publisher,
		notify.NewEmailAlerter(sender, cfg.LeadAlertRecipients, logger),
		m,
		logger,
	)
	return fanout, notify.NewHandler(service, fanout, logger)
}

func setupLeadStore(pool *pgxpool.Pool, fanout *notify.Fanout, m *metrics.PipelineMetrics, logger *logging.Logger) *leads.Store {
	var repo leads.Repository
	if pool != nil {
		repo = leads.NewPostgresRepository(pool)
	} else {
		repo = leads.NewInMemoryRepository()
	}
	var notifier leads.Notifier
	if fanout != nil {
		notifier = fanout
	}
	return leads.NewStore(repo, notifier, m, logger)
}

func setupExporter(cfg *appconfig.Config, s3Client *s3.Client, logger *logging.Logger) (*export.Exporter, error) {
	var archiver export.Archiver
	if a := export.NewS3Archiver(s3Client, cfg.ExportS3Bucket, "exports"); a != nil {
		archiver = a
	}
	exporter, err := export.NewExporter(cfg.ExportTimezone, cfg.ExportTZLabel, archiver, logger)
	if err != nil {
		return nil, err
	}
	return exporter, nil
}

func exporterLocation(cfg *appconfig.Config) *time.Location {
	loc, err := time.LoadLocation(cfg.ExportTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func submissionClock(redisClient *redis.Client) contact.SubmissionClock {
	if rc := contact.NewRedisClock(redisClient, 0); rc != nil {
		return rc
	}
	return contact.NewMemoryClock()
}

func healthChecks(pool *pgxpool.Pool, redisClient *redis.Client) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	return checks
}

type noVisits struct{}

func (noVisits) ListSince(context.Context, time.Time) ([]analytics.Visit, error) {
	return []analytics.Visit{}, nil
}
