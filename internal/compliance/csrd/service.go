// Package csrd combines the ESRS datapoints, the double materiality assessment and static
// rule checks into one CSRD readiness report.
package csrd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

// Source is the inventory data read by the CSRD service
type Source interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (*inventory.Organization, error)
	GetAssessmentByYear(ctx context.Context, organizationID uuid.UUID, year int) (*inventory.Assessment, error)
	ListEmissionRecords(ctx context.Context, filter inventory.EmissionFilter) ([]inventory.EmissionRecord, error)
	ListReductionTargets(ctx context.Context, organizationID uuid.UUID) ([]inventory.ReductionTarget, error)
	ListVerifications(ctx context.Context, organizationID uuid.UUID, year int) ([]inventory.GhgVerification, error)
}

// Service builds CSRD reports
type Service struct {
	source      Source
	indicators  IndicatorStatus
	materiality MaterialityMatrix
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new CSRD service
func NewService(source Source, indicators IndicatorStatus, materiality MaterialityMatrix, logger *zap.Logger) *Service {
	return &Service{
		source:      source,
		indicators:  indicators,
		materiality: materiality,
		logger:      logger,
		now:         time.Now,
	}
}

// Applicability runs the CSRD scope test for an organization
func (s *Service) Applicability(ctx context.Context, organizationID uuid.UUID) (*Applicability, error) {
	org, err := s.source.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	a := DetermineApplicability(org)
	return &a, nil
}

// GenerateReport scores the six CSRD sections of an organization and year
func (s *Service) GenerateReport(ctx context.Context, organizationID uuid.UUID, year int) (*Report, error) {
	started := time.Now()

	e, err := s.gather(ctx, organizationID, year)
	if err != nil {
		compliance.ObserveFailure(compliance.FrameworkCSRD, started)
		return nil, err
	}

	sections := buildSections(*e)
	report := &Report{
		OrganizationID:  organizationID,
		Year:            year,
		Framework:       compliance.FrameworkCSRD,
		Applicability:   DetermineApplicability(e.org),
		Sections:        sections,
		OverallScore:    compliance.Mean(compliance.SectionScores(sections)...),
		EsrsStatus:      e.status,
		Materiality:     e.matrix,
		Taxonomy:        e.taxonomy,
		Recommendations: []compliance.Recommendation{},
		GeneratedAt:     s.now(),
	}
	if e.assessment != nil {
		report.AssessmentID = &e.assessment.ID
	}
	report.Level = compliance.LevelFor(report.OverallScore)
	for _, section := range sections {
		report.Recommendations = append(report.Recommendations, section.Recommendations(compliance.FrameworkCSRD)...)
	}
	compliance.SortRecommendations(report.Recommendations)

	compliance.ObserveScore(compliance.FrameworkCSRD, report.OverallScore, started)
	s.logger.Info("CSRD report generated",
		zap.String("organization_id", organizationID.String()),
		zap.Int("year", year),
		zap.Float64("overall_score", report.OverallScore),
		zap.Bool("applicable", report.Applicability.IsApplicable))

	return report, nil
}

func (s *Service) gather(ctx context.Context, organizationID uuid.UUID, year int) (*evidence, error) {
	org, err := s.source.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	assessment, err := s.source.GetAssessmentByYear(ctx, organizationID, year)
	if errors.Is(err, inventory.ErrNotFound) {
		assessment, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load assessment: %w", err)
	}

	e := &evidence{
		year:       year,
		org:        org,
		assessment: assessment,
		taxonomy:   EstimateTaxonomy(org.HasRenewableEnergy),
	}

	if assessment != nil {
		if e.status, err = s.indicators.ComplianceStatus(ctx, assessment.ID); err != nil {
			return nil, fmt.Errorf("failed to load ESRS status: %w", err)
		}
	}
	if e.matrix, err = s.materiality.Matrix(ctx, organizationID, year, 0); err != nil {
		return nil, fmt.Errorf("failed to load materiality matrix: %w", err)
	}
	if e.records, err = s.source.ListEmissionRecords(ctx, inventory.EmissionFilter{OrganizationID: &organizationID, Year: &year}); err != nil {
		return nil, fmt.Errorf("failed to load emission records: %w", err)
	}
	if e.targets, err = s.source.ListReductionTargets(ctx, organizationID); err != nil {
		return nil, fmt.Errorf("failed to load reduction targets: %w", err)
	}
	if e.verifications, err = s.source.ListVerifications(ctx, organizationID, year); err != nil {
		return nil, fmt.Errorf("failed to load verifications: %w", err)
	}
	return e, nil
}
