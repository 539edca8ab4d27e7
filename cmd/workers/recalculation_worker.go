package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	v1 "carbex/compliance-portal/compliance-backend/api/v1"
	"carbex/compliance-portal/compliance-backend/internal/compliance/scheduler"
	"carbex/compliance-portal/compliance-backend/internal/config"
	"carbex/compliance-portal/compliance-backend/internal/database"
	"carbex/compliance-portal/compliance-backend/pkg/logger"
)

// schedulerConfig maps the compliance settings onto the recalculation manager
func schedulerConfig(cfg config.ComplianceConfig) scheduler.Config {
	sc := scheduler.DefaultConfig()
	if cfg.RecalculationSchedule != "" {
		sc.Schedule = cfg.RecalculationSchedule
	}
	if cfg.RecalculationWorkers > 0 {
		sc.MaxConcurrent = cfg.RecalculationWorkers
	}
	if cfg.RecalculationTimeout > 0 {
		sc.RunTimeout = cfg.RecalculationTimeout
	}
	return sc
}

func main() {
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Logging.Mode, cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, gormDB, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	log.Info("Connected to database")

	cfg.Compliance.CacheTTL = 0
	api, err := v1.SetupComplianceAPI(db, gormDB, cfg.Compliance, cfg.Database.AutoMigrate, log)
	if err != nil {
		log.Fatal("Failed to set up compliance services", zap.Error(err))
	}

	sc := schedulerConfig(cfg.Compliance)
	if err := scheduler.ValidateSchedule(sc.Schedule); err != nil {
		log.Fatal("Invalid recalculation schedule", zap.Error(err))
	}
	manager := scheduler.NewManager(api.Repository, api.Indicators, api.Uncertainty, nil, log, sc)

	// RUN_ONCE=2024 recalculates a single year and exits
	if year := os.Getenv("RUN_ONCE"); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			log.Fatal("Invalid RUN_ONCE year", zap.String("value", year))
		}
		ctx, cancel := context.WithTimeout(context.Background(), sc.RunTimeout)
		defer cancel()
		if _, err := manager.RunOnce(ctx, y); err != nil {
			log.Fatal("Recalculation failed", zap.Error(err))
		}
		return
	}

	if err := manager.Start(); err != nil {
		log.Fatal("Failed to start recalculation manager", zap.Error(err))
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	manager.Stop()
	log.Info("Recalculation worker stopped")
}
