// Package bootstrap wires configuration, infrastructure and the sync engines
// into the components shared by the channelsync commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"slices"

	appintegration "github.com/erp/channelsync/internal/application/integration"
	"github.com/erp/channelsync/internal/application/report"
	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/erp/channelsync/internal/infrastructure/cache"
	"github.com/erp/channelsync/internal/infrastructure/carrier"
	"github.com/erp/channelsync/internal/infrastructure/config"
	"github.com/erp/channelsync/internal/infrastructure/ecommerce"
	"github.com/erp/channelsync/internal/infrastructure/logger"
	"github.com/erp/channelsync/internal/infrastructure/notification"
	"github.com/erp/channelsync/internal/infrastructure/persistence"
	"github.com/erp/channelsync/internal/infrastructure/remote"
	"github.com/erp/channelsync/internal/infrastructure/scheduler"
	"github.com/erp/channelsync/internal/infrastructure/storage"
	"github.com/erp/channelsync/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrMarketplaceDisabled is returned when a marketplace job is requested but
// no marketplace is configured.
var ErrMarketplaceDisabled = errors.New("bootstrap: marketplace not configured")

// App holds the wired components of a channelsync process.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Database *persistence.Database
	Runs     integration.SyncRunRepository
	Runner   *scheduler.JobRunner
	Meter    metric.Meter

	jobs    []scheduler.Job
	closers []closer
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// New builds an App from cfg. On error every component created so far is
// shut down again.
func New(ctx context.Context, cfg *config.Config) (app *App, err error) {
	app = &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = app.Shutdown(context.WithoutCancel(ctx))
			app = nil
		}
	}()

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return app, fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = log
	app.onShutdown("logger", func(context.Context) error {
		_ = app.Logger.Sync()
		return nil
	})

	if err := app.initTelemetry(ctx, logCfg); err != nil {
		return app, err
	}
	if err := app.initDatabase(); err != nil {
		return app, err
	}
	if err := app.initJobs(ctx); err != nil {
		return app, err
	}

	app.Logger.Info("Application wired",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Strings("jobs", app.jobNames()),
	)
	return app, nil
}

func (a *App) initTelemetry(ctx context.Context, logCfg *logger.Config) error {
	tc := a.Config.Telemetry

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.onShutdown("tracer", tp.Shutdown)

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ExportInterval:    tc.MetricsInterval,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	a.onShutdown("meter", mp.Shutdown)
	a.Meter = mp.Meter(telemetry.TracerName)

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.Enabled && tc.LogsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize log export: %w", err)
	}
	a.onShutdown("log exporter", lp.Shutdown)

	if lp.IsEnabled() {
		level, err := zapcore.ParseLevel(logCfg.Level)
		if err != nil {
			level = zapcore.InfoLevel
		}
		log, err := logger.New(logCfg, telemetry.NewZapOTELCore(tc.ServiceName, lp, level))
		if err != nil {
			return fmt.Errorf("failed to initialize exporting logger: %w", err)
		}
		a.Logger = log
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         tc.ProfilingEnabled,
		ServerAddress:   tc.ProfilerAddress,
		ApplicationName: tc.ServiceName,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize profiler: %w", err)
	}
	a.onShutdown("profiler", func(context.Context) error { return profiler.Stop() })
	if profiler.IsEnabled() && tp.IsEnabled() {
		tp.EnableSpanProfiles()
	}
	return nil
}

func (a *App) initDatabase() error {
	dc := a.Config.Database
	gormLog := logger.NewGormLogger(a.Logger, logger.MapGormLogLevel(dc.LogLevel), dc.SlowThreshold)

	db, err := persistence.NewDatabase(&dc, gormLog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.Database = db
	a.onShutdown("database", func(context.Context) error { return db.Close() })
	a.Logger.Info("Database connected", zap.String("host", dc.Host), zap.String("db", dc.DBName))

	tc := a.Config.Telemetry
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled: tc.Enabled && tc.DBTraceEnabled,
		DBName:  dc.DBName,
	}, a.Logger); err != nil {
		return fmt.Errorf("failed to register database tracing: %w", err)
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := telemetry.RegisterDBPoolMetrics(a.Meter, sqlDB); err != nil {
		return fmt.Errorf("failed to register pool metrics: %w", err)
	}
	return nil
}

func (a *App) initJobs(ctx context.Context) error {
	cfg := a.Config
	db := a.Database.DB

	products := persistence.NewGormProductRepository(db)
	sites := persistence.NewGormMerchantSiteRepository(db)
	orders := persistence.NewGormOrderRepository(db)
	shipments := persistence.NewGormShipmentRepository(db)
	carriers := persistence.NewGormCarrierRepository(db)
	txScope := persistence.NewGormTransactionScope(db)
	a.Runs = persistence.NewGormSyncRunRepository(db)

	metrics, err := telemetry.NewSyncMetrics(a.Meter)
	if err != nil {
		return fmt.Errorf("failed to create sync metrics: %w", err)
	}

	lock, closeLock, err := cache.NewRunLockFactory(cfg.Redis,
		cache.WithLogger(a.Logger),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).Create(ctx)
	if err != nil {
		return fmt.Errorf("failed to create run lock: %w", err)
	}
	a.onShutdown("run lock", func(context.Context) error { return closeLock() })

	reporter, err := a.newReporter(ctx)
	if err != nil {
		return err
	}

	a.Runner = scheduler.NewJobRunner(lock, a.Runs, reporter, metrics, scheduler.RunnerConfig{
		Timeout: cfg.Sync.JobTimeout,
		LockTTL: cfg.Sync.LockTTL,
	}, a.Logger)

	sc := cfg.Sync
	if cfg.Marketplace.BaseURL != "" {
		marketplace, err := ecommerce.NewMarketplaceAdapter(&ecommerce.MarketplaceConfig{
			Code:              cfg.Marketplace.Code,
			BaseURL:           cfg.Marketplace.BaseURL,
			Token:             cfg.Marketplace.Token,
			InventoryPath:     cfg.Marketplace.InventoryPath,
			OrdersPath:        cfg.Marketplace.OrdersPath,
			PushPath:          cfg.Marketplace.PushPath,
			Timeout:           cfg.Marketplace.Timeout,
			MaxRetries:        cfg.Marketplace.MaxRetries,
			RetryInterval:     cfg.Marketplace.RetryInterval,
			RequestsPerSecond: cfg.Marketplace.RequestsPerSecond,
		}, a.Logger, remote.WithRetryHook(metrics.RetryHook("marketplace")))
		if err != nil {
			return fmt.Errorf("failed to create marketplace adapter: %w", err)
		}

		reconciler := appintegration.NewInventoryReconciler(marketplace, products, txScope,
			appintegration.ReconcileConfig{
				PageSize:         sc.InventoryPageSize,
				MaxPages:         sc.InventoryMaxPages,
				ErrorSampleLimit: sc.ErrorSampleLimit,
			}, a.Logger)
		pusher := appintegration.NewInventoryPusher(marketplace, products,
			appintegration.PushConfig{
				BatchSize:        sc.PushBatchSize,
				ErrorSampleLimit: sc.ErrorSampleLimit,
			}, a.Logger)
		ingestor := appintegration.NewOrderIngestor(marketplace, orders, sites, txScope,
			appintegration.IngestConfig{
				PageSize:         sc.OrderPageSize,
				ErrorSampleLimit: sc.ErrorSampleLimit,
			}, a.Logger)

		a.jobs = append(a.jobs,
			scheduler.ReconcileJob(reconciler),
			scheduler.PushJob(pusher, appintegration.NewLoggingEventSink(a.Logger)),
			scheduler.OrderJob(appintegration.NewOrderIngestionRunner(ingestor, sc.OrderMaxPages, sc.ErrorSampleLimit, a.Logger)),
		)
	} else {
		a.Logger.Warn("Marketplace base URL not configured, marketplace jobs disabled")
	}

	tracker := carrier.NewTrackingAdapter(carrier.Config{
		Timeout:       cfg.Carrier.Timeout,
		MaxRetries:    cfg.Carrier.MaxRetries,
		RetryInterval: cfg.Carrier.RetryInterval,
	}, a.Logger, remote.WithRetryHook(metrics.RetryHook("carrier")))
	synchronizer := appintegration.NewShipmentSynchronizer(orders, shipments, carriers,
		tracker, carrier.NewStatusRegistry(), txScope,
		appintegration.ShipmentSyncConfig{
			BatchSize:        sc.ShipmentBatchSize,
			Throttle:         sc.ShipmentThrottle,
			ErrorSampleLimit: sc.ErrorSampleLimit,
		}, a.Logger)
	a.jobs = append(a.jobs, scheduler.ShipmentJob(synchronizer))
	return nil
}

func (a *App) newReporter(ctx context.Context) (*report.Reporter, error) {
	nc := a.Config.Notification

	var notifier report.Notifier
	if nc.WebhookURL != "" {
		webhook, err := notification.NewWebhookNotifier(notification.WebhookConfig{
			URL:           nc.WebhookURL,
			Token:         nc.WebhookToken,
			Timeout:       a.Config.Marketplace.Timeout,
			MaxRetries:    a.Config.Marketplace.MaxRetries,
			RetryInterval: a.Config.Marketplace.RetryInterval,
		}, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create webhook notifier: %w", err)
		}
		notifier = webhook
	} else {
		notifier = notification.NewLogNotifier(a.Logger)
	}

	var archive report.Archive
	if a.Config.Storage.Enabled {
		s3Archive, err := storage.NewS3ReportArchive(ctx, &a.Config.Storage, storage.WithLogger(a.Logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create report archive: %w", err)
		}
		if err := s3Archive.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare report bucket: %w", err)
		}
		archive = s3Archive
	}

	return report.NewReporter(notifier, archive, report.Config{
		Recipients:      nc.Recipients,
		SubjectPrefix:   nc.SubjectPrefix,
		Locale:          nc.Locale,
		NotifyOnSuccess: nc.NotifyOnSuccess,
	}, a.Logger), nil
}

// Jobs returns the enabled jobs.
func (a *App) Jobs() []scheduler.Job {
	return slices.Clone(a.jobs)
}

// Job returns the enabled job of the given type.
func (a *App) Job(jobType integration.JobType) (scheduler.Job, error) {
	for _, job := range a.jobs {
		if job.Type() == jobType {
			return job, nil
		}
	}
	switch jobType {
	case integration.JobInventoryReconcile, integration.JobInventoryPush, integration.JobOrderIngest:
		return nil, fmt.Errorf("%w: %s", ErrMarketplaceDisabled, jobType)
	}
	return nil, fmt.Errorf("%w: %s", scheduler.ErrUnknownJob, jobType)
}

// Shutdown releases every component in reverse creation order.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			if a.Logger != nil {
				a.Logger.Error("Shutdown failed", zap.String("component", c.name), zap.Error(err))
			}
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onShutdown(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

func (a *App) jobNames() []string {
	names := make([]string, 0, len(a.jobs))
	for _, job := range a.jobs {
		names = append(names, job.Type().String())
	}
	return names
}
