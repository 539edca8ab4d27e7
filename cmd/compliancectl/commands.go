package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"carbex/compliance-portal/compliance-backend/internal/compliance/scheduler"
)

type opener func(cmd *cobra.Command) (*session, error)

var frameworks = []string{"csrd", "german", "iso14064", "iso50001"}

func newReportCmd(open opener) *cobra.Command {
	var (
		orgID string
		year  int
	)

	cmd := &cobra.Command{
		Use:       "report <" + strings.Join(frameworks, "|") + ">",
		Short:     "Generate a compliance report for an organization and year",
		Args:      cobra.ExactArgs(1),
		ValidArgs: frameworks,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(orgID)
			if err != nil {
				return fmt.Errorf("invalid --org: %w", err)
			}

			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := cmd.Context()
			var report any
			switch args[0] {
			case "csrd":
				report, err = s.api.CSRD.GenerateReport(ctx, id, year)
			case "german":
				report, err = s.api.German.GenerateReport(ctx, id, year)
			case "iso14064":
				report, err = s.api.ISO14064.GenerateReport(ctx, id, year)
			case "iso50001":
				report, err = s.api.ISO50001.GenerateReport(ctx, id, year)
			default:
				return fmt.Errorf("unknown framework %q, expected one of %s", args[0], strings.Join(frameworks, ", "))
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "Organization UUID (required)")
	cmd.Flags().IntVar(&year, "year", 0, "Reporting year (required)")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func newApplicabilityCmd(open opener) *cobra.Command {
	var orgID string

	cmd := &cobra.Command{
		Use:   "applicability",
		Short: "Determine whether CSRD reporting applies to an organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(orgID)
			if err != nil {
				return fmt.Errorf("invalid --org: %w", err)
			}

			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			result, err := s.api.CSRD.Applicability(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "Organization UUID (required)")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func newRecalculateCmd(open opener) *cobra.Command {
	var (
		year        int
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "recalculate",
		Short: "Recalculate ESRS datapoints and uncertainty for every assessment of a year",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			cfg := scheduler.DefaultConfig()
			cfg.MaxConcurrent = concurrency
			manager := scheduler.NewManager(s.api.Repository, s.api.Indicators, s.api.Uncertainty, nil, s.logger, cfg)

			result, err := manager.RunOnce(cmd.Context(), year)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Assessment year (required)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Assessments recalculated in parallel")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}
