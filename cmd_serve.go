package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"account-dispenser/handlers"
	"account-dispenser/middleware"
	"account-dispenser/services"
	"account-dispenser/utils"
	"account-dispenser/workers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service and background jobs",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, d := current.cfg, current.log, current.d
	if cfg.ServiceToken == "" {
		return errors.New("SERVICE_TOKEN is not set, service cannot authenticate gateway")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := services.SchedulerOptions{
		Location:    cfg.Location,
		RestockCron: cfg.RestockCron,
	}
	if cfg.Archive.Enabled {
		uploader, err := utils.NewR2Uploader(ctx, utils.R2Config{
			AccountID:       cfg.Archive.AccountID,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			AccessKeySecret: cfg.Archive.AccessKeySecret,
			Bucket:          cfg.Archive.Bucket,
		})
		if err != nil {
			return err
		}
		archiver := workers.NewLedgerArchiveWorker(d.Ledger, uploader, cfg.Archive.Prefix, log)
		opts.Nightly = append(opts.Nightly, func() {
			archiver.ArchivePreviousDay(ctx)
		})
	}

	sched, err := d.StartScheduler(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := sched.Shutdown(); err != nil {
			log.Warn("scheduler shutdown", zap.Error(err))
		}
	}()

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})
	app.Use(recover.New())

	// 🔐❗ GLOBAL: Only gateway requests allowed
	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken, log))

	handlers.SetupMetricsRoute(app, prometheus.DefaultGatherer)
	handlers.SetupDispenserRoutes(app, handlers.NewDispenserHandler(d, log), log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(":" + cfg.Port)
	}()

	log.Info("✅ Server running", zap.String("port", cfg.Port), zap.String("timezone", cfg.Location.String()))
	log.Info("✅ GatewayAuthMiddleware enforced globally")
	if cfg.Archive.Enabled {
		log.Info("✅ Nightly ledger archive enabled", zap.String("bucket", cfg.Archive.Bucket))
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error("server error", zap.Error(err))
			return err
		}
	}

	log.Info("Shutting down server...")
	return app.ShutdownWithTimeout(10 * time.Second)
}
