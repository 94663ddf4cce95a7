// Package main provides the ressync-audit binary: the submission target and
// audit-trail API of the ResSync clinical data-capture platform.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ressync-audit-service/internal/adapters"
	"ressync-audit-service/internal/api/handlers"
	"ressync-audit-service/internal/config"
	"ressync-audit-service/internal/domain/entities"
	"ressync-audit-service/internal/domain/repositories"
	"ressync-audit-service/internal/services"

	"github.com/go-kit/log"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const appName = "ressync-audit"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   appName,
		Short: "ResSync form-submission and audit-trail service",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	serve.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")

	root.AddCommand(serve)
	root.AddCommand(submitCmd())
	return root
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadFromFile(path)
}

func run(cfg *config.Config) error {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "app", appName)

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	if err := db.AutoMigrate(&entities.FormRecord{}, &entities.AuditEntry{}); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	var publisher adapters.AuditEventPublisher
	if cfg.NATS.URL != "" {
		publisher, err = adapters.NewNATSEventPublisher(cfg.NATS.URL, logger)
		if err != nil {
			return err
		}
	} else {
		publisher = adapters.NewInMemoryEventPublisher(logger)
	}
	defer publisher.Close()

	recordRepo := repositories.NewGormFormRecordRepository(db)
	auditRepo := repositories.NewGormAuditEntryRepository(db)
	submissionService := services.NewSubmissionService(recordRepo, auditRepo, publisher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := submissionService.Start(ctx); err != nil {
		return fmt.Errorf("starting submission service: %w", err)
	}

	app := fiber.New(fiber.Config{AppName: appName})
	handlers.RegisterSubmissionRoutes(app, handlers.NewSubmissionHandler(submissionService, logger))

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Listen(cfg.Server.Addr)
	}()
	_ = logger.Log("msg", "listening", "addr", cfg.Server.Addr)

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	_ = logger.Log("msg", "shutting down")
	if err := app.Shutdown(); err != nil {
		_ = logger.Log("msg", "server shutdown failed", "err", err)
	}
	return submissionService.Stop(context.Background())
}
