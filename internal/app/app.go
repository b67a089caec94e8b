// Package app wires the service-mode process: HTTP API, scheduler, metrics,
// and the run-history database.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/huangsam/mailprune/internal/audit"
	"github.com/huangsam/mailprune/internal/cache"
	"github.com/huangsam/mailprune/internal/config"
	"github.com/huangsam/mailprune/internal/handlers"
	"github.com/huangsam/mailprune/internal/history"
	"github.com/huangsam/mailprune/internal/mail"
	"github.com/huangsam/mailprune/internal/metrics"
	"github.com/huangsam/mailprune/internal/report"
	"github.com/huangsam/mailprune/internal/scheduler"
	"github.com/huangsam/mailprune/internal/server"
)

// Run initializes and starts the service
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting mailprune service")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	dbConn, err := history.InitDatabase(cfg.Database.GetDSN())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	runs := history.NewRepository(dbConn)

	pool, err := newPool(cfg)
	if err != nil {
		return fmt.Errorf("failed to create mail pool: %w", err)
	}

	reports := report.NewStore(cfg.Audit.ReportPath)
	svc := audit.NewService(
		audit.NewFetcher(pool, cfg.Audit.FetchWorkers, cfg.Audit.MaxRetries),
		cache.NewStore(cfg.Audit.CachePath),
		reports,
	)
	svc.Metrics = metrics.NewMetrics()
	svc.Recorder = runs

	sched := scheduler.NewScheduler(&cfg.Scheduler, &cfg.Audit, svc)

	h := handlers.NewHandlers(dbConn, reports, runs, sched)
	router := server.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	if err := pool.Close(); err != nil {
		logrus.Errorf("Failed to close mail pool: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}

func newPool(cfg *config.Config) (*mail.Pool, error) {
	if cfg.Gmail.UseIMAP {
		logrus.Info("Using IMAP for mail access")
		return mail.NewIMAPPool(&cfg.Gmail, cfg.Audit.PoolSize)
	}
	logrus.Info("Using Gmail API for mail access")
	return mail.NewGmailPool(context.Background(), &cfg.Gmail, cfg.Audit.PoolSize)
}
