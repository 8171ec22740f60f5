// Command syncd runs the sync jobs on their configured intervals and serves
// the ops API (health, run history, manual triggers).
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/channelsync/internal/bootstrap"
	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/erp/channelsync/internal/infrastructure/config"
	"github.com/erp/channelsync/internal/infrastructure/scheduler"
	"github.com/erp/channelsync/internal/infrastructure/telemetry"
	"github.com/erp/channelsync/internal/interfaces/http/handler"
	"github.com/erp/channelsync/internal/interfaces/http/middleware"
	"github.com/erp/channelsync/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			channelsync API
//	@version		1.0
//	@description	Ops API of the channelsync daemon: run history, manual job triggers and system information.

//	@BasePath	/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		panic("Failed to start: " + err.Error())
	}
	log := app.Logger
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = app.Shutdown(shutdownCtx)
	}()

	log.Info("Starting channelsync daemon",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Int("workers", cfg.Sync.Workers),
	)

	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Workers: cfg.Sync.Workers,
	}, app.Runner, app.Jobs(), log)
	if err := sched.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	trigger := scheduler.NewIntervalTrigger(scheduler.IntervalTriggerConfig{
		Intervals: map[integration.JobType]time.Duration{
			integration.JobInventoryReconcile: cfg.Sync.InventoryInterval,
			integration.JobInventoryPush:      cfg.Sync.PushInterval,
			integration.JobOrderIngest:        cfg.Sync.OrderInterval,
			integration.JobShipmentSync:       cfg.Sync.ShipmentInterval,
		},
	}, sched, log)
	if err := trigger.Start(ctx); err != nil {
		log.Fatal("Failed to start interval trigger", zap.Error(err))
	}

	var srv *http.Server
	if cfg.HTTP.Enabled {
		srv, err = newServer(cfg, app, sched)
		if err != nil {
			log.Fatal("Failed to create HTTP server", zap.Error(err))
		}
		go func() {
			log.Info("Server starting", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal("Failed to start server", zap.Error(err))
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down daemon...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
		}
	}
	if err := trigger.Stop(shutdownCtx); err != nil {
		log.Error("Interval trigger did not stop cleanly", zap.Error(err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error("Scheduler did not stop cleanly", zap.Error(err))
	}

	log.Info("Daemon exited gracefully")
}

func newServer(cfg *config.Config, app *bootstrap.App, sched *scheduler.Scheduler) (*http.Server, error) {
	mode := gin.DebugMode
	if cfg.IsProduction() {
		mode = gin.ReleaseMode
	}
	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Mode:        mode,
		Logger:      app.Logger,
		Meter:       app.Meter,
	})
	if err != nil {
		return nil, err
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, map[string]handler.HealthCheck{
		"database": app.Database.Ping,
	})
	engine.GET("/healthz", systemHandler.Health)
	router.MountSwagger(engine, middleware.SwaggerConfig{
		Enabled:    cfg.HTTP.SwaggerEnabled,
		AllowedIPs: cfg.HTTP.SwaggerAllowedIPs,
	})

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(systemHandler).
		Register(handler.NewSyncHandler(app.Runs, sched))
	r.Setup()

	return &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}, nil
}
