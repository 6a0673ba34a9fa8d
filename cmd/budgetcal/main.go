package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"budgetcal/internal/backend"
	"budgetcal/internal/cli"
	"budgetcal/internal/engine"
	apphttp "budgetcal/internal/http"
	"budgetcal/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting budgetcal")

	cfg := cli.LoadAndValidateConfig(logger)

	result, err := backend.Create(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	eng := engine.New()
	var svc *services.BudgetService
	if result.AMQPClient != nil {
		svc = services.NewBudgetService(eng, result.Store, result.AMQPClient)
	} else {
		svc = services.NewBudgetService(eng, result.Store, nil)
	}
	defer svc.Close()

	if err := svc.Load(context.Background()); err != nil {
		logger.Error("Failed to load dataset", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		CacheTTL:         cfg.CacheTTL,
		ProjectionMonths: cfg.ProjectionMonths,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if result.AMQPClient != nil {
			if err := result.AMQPClient.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
	})

	go func() {
		logger.Info("Starting budgetcal server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("budgetcal stopped")
}
