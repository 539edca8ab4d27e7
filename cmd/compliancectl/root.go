package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	v1 "carbex/compliance-portal/compliance-backend/api/v1"
	"carbex/compliance-portal/compliance-backend/internal/config"
	"carbex/compliance-portal/compliance-backend/internal/database"
	"carbex/compliance-portal/compliance-backend/pkg/logger"
)

// session is an opened set of compliance services
type session struct {
	api    *v1.ComplianceAPI
	logger *zap.Logger
	close  func()
}

type connector func(ctx context.Context, configPath string) (*session, error)

func connectDatabase(ctx context.Context, configPath string) (*session, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Logging.Mode, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	db, gormDB, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	cfg.Compliance.CacheTTL = 0
	api, err := v1.SetupComplianceAPI(db, gormDB, cfg.Compliance, cfg.Database.AutoMigrate, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &session{
		api:    api,
		logger: log,
		close: func() {
			_ = log.Sync()
			db.Close()
		},
	}, nil
}

func newRootCmd(connect connector) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "compliancectl",
		Short:         "Compute compliance reports and run recalculations from the command line",
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "Path to JSON config file")

	open := func(cmd *cobra.Command) (*session, error) {
		return connect(cmd.Context(), configPath)
	}
	cmd.AddCommand(newReportCmd(open))
	cmd.AddCommand(newApplicabilityCmd(open))
	cmd.AddCommand(newRecalculateCmd(open))
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
