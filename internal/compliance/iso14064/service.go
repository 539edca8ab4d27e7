// Package iso14064 scores conformity with ISO 14064-1 and builds the organization-level
// GHG inventory, net emissions and base-year management on top of the emission records.
package iso14064

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

// Source is the inventory data read and written by the ISO 14064 service
type Source interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (*inventory.Organization, error)
	UpdateOrganizationBaseYear(ctx context.Context, org *inventory.Organization) error
	GetAssessmentByYear(ctx context.Context, organizationID uuid.UUID, year int) (*inventory.Assessment, error)
	ListEmissionRecords(ctx context.Context, filter inventory.EmissionFilter) ([]inventory.EmissionRecord, error)
	ListReductionTargets(ctx context.Context, organizationID uuid.UUID) ([]inventory.ReductionTarget, error)
	ListRemovals(ctx context.Context, organizationID uuid.UUID, year int) ([]inventory.GhgRemoval, error)
	ListVerifications(ctx context.Context, organizationID uuid.UUID, year int) ([]inventory.GhgVerification, error)
}

// Service implements ISO 14064-1 scoring and inventory management
type Service struct {
	source Source
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new ISO 14064 service
func NewService(source Source, logger *zap.Logger) *Service {
	return &Service{
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) yearRecords(ctx context.Context, organizationID uuid.UUID, year int) ([]inventory.EmissionRecord, error) {
	records, err := s.source.ListEmissionRecords(ctx, inventory.EmissionFilter{OrganizationID: &organizationID, Year: &year})
	if err != nil {
		return nil, fmt.Errorf("failed to load emission records: %w", err)
	}
	return records, nil
}

// CalculateGhgInventory builds the GHG inventory of an organization and year
func (s *Service) CalculateGhgInventory(ctx context.Context, organizationID uuid.UUID, year int) (*Inventory, error) {
	if _, err := s.source.GetOrganization(ctx, organizationID); err != nil {
		return nil, err
	}
	records, err := s.yearRecords(ctx, organizationID, year)
	if err != nil {
		return nil, err
	}
	removals, err := s.source.ListRemovals(ctx, organizationID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load removals: %w", err)
	}

	inv := BuildInventory(organizationID, year, records, removals)
	return &inv, nil
}

// CalculateNetEmissions nets the inventory against verified and net-zero-qualifying removals
func (s *Service) CalculateNetEmissions(ctx context.Context, organizationID uuid.UUID, year int) (*NetEmissions, error) {
	if _, err := s.source.GetOrganization(ctx, organizationID); err != nil {
		return nil, err
	}
	records, err := s.yearRecords(ctx, organizationID, year)
	if err != nil {
		return nil, err
	}
	removals, err := s.source.ListRemovals(ctx, organizationID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load removals: %w", err)
	}

	ne := BuildNetEmissions(BuildInventory(organizationID, year, records, removals), removals)
	return &ne, nil
}

// CheckRecalculationNeeded decides whether a change requires recalculating the base year.
// Structural events always do; other changes only when they reach the significance threshold.
func (s *Service) CheckRecalculationNeeded(ctx context.Context, organizationID uuid.UUID, req RecalculationRequest) (*RecalculationCheck, error) {
	event := RecalculationEvent(strings.ToLower(strings.TrimSpace(string(req.Event))))
	if event == "" {
		return nil, fmt.Errorf("recalculation event is required: %w", compliance.ErrInvalidArgument)
	}

	org, err := s.source.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	check := &RecalculationCheck{
		Event:            event,
		ChangePercent:    req.ChangePercent,
		ThresholdPercent: org.RecalculationThreshold(),
	}
	switch {
	case event.IsStructural():
		check.Required = true
		check.Reason = fmt.Sprintf("%s changes the inventory boundary", event)
	case math.Abs(req.ChangePercent) >= check.ThresholdPercent:
		check.Required = true
		check.Reason = fmt.Sprintf("change of %.2f%% reaches the %.2f%% significance threshold", math.Abs(req.ChangePercent), check.ThresholdPercent)
	default:
		check.Reason = fmt.Sprintf("change of %.2f%% is below the %.2f%% significance threshold", math.Abs(req.ChangePercent), check.ThresholdPercent)
	}
	return check, nil
}

// SetBaseYear stores the base year, its emissions and the recalculation policy
func (s *Service) SetBaseYear(ctx context.Context, organizationID uuid.UUID, req BaseYearRequest) (*BaseYear, error) {
	currentYear := s.now().Year()
	if req.Year < 1990 || req.Year > currentYear {
		return nil, fmt.Errorf("base year %d outside 1990-%d: %w", req.Year, currentYear, compliance.ErrInvalidArgument)
	}
	if req.ThresholdPercent != nil && (*req.ThresholdPercent <= 0 || *req.ThresholdPercent > 100) {
		return nil, fmt.Errorf("threshold %.2f outside (0, 100]: %w", *req.ThresholdPercent, compliance.ErrInvalidArgument)
	}
	for _, v := range []*float64{req.Scope1Tonnes, req.Scope2Tonnes, req.Scope3Tonnes} {
		if v != nil && *v < 0 {
			return nil, fmt.Errorf("base-year emissions must not be negative: %w", compliance.ErrInvalidArgument)
		}
	}

	org, err := s.source.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	base := &BaseYear{OrganizationID: organizationID, Year: req.Year, RecalculationPolicy: req.RecalculationPolicy}
	if req.Scope1Tonnes == nil && req.Scope2Tonnes == nil && req.Scope3Tonnes == nil {
		records, err := s.yearRecords(ctx, organizationID, req.Year)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("base year %d has no emission records: %w", req.Year, compliance.ErrNoData)
		}
		inv := BuildInventory(organizationID, req.Year, records, nil)
		base.Scope1Tonnes, base.Scope2Tonnes, base.Scope3Tonnes = inv.Scope1Tonnes, inv.Scope2Tonnes, inv.Scope3Tonnes
		base.FromInventory = true
	} else {
		base.Scope1Tonnes = valueOrZero(req.Scope1Tonnes)
		base.Scope2Tonnes = valueOrZero(req.Scope2Tonnes)
		base.Scope3Tonnes = valueOrZero(req.Scope3Tonnes)
	}
	base.TotalTonnes = compliance.SumRounded(4, base.Scope1Tonnes, base.Scope2Tonnes, base.Scope3Tonnes)

	org.BaseYear = &base.Year
	org.BaseYearScope1Tonnes = compliance.Float(base.Scope1Tonnes)
	org.BaseYearScope2Tonnes = compliance.Float(base.Scope2Tonnes)
	org.BaseYearScope3Tonnes = compliance.Float(base.Scope3Tonnes)
	org.BaseYearTotalTonnes = compliance.Float(base.TotalTonnes)
	if strings.TrimSpace(req.RecalculationPolicy) != "" {
		policy := req.RecalculationPolicy
		org.RecalculationPolicy = &policy
	}
	if req.ThresholdPercent != nil {
		org.RecalculationThresholdPercent = compliance.Float(*req.ThresholdPercent)
	}
	base.ThresholdPercent = org.RecalculationThreshold()
	if org.RecalculationPolicy != nil {
		base.RecalculationPolicy = *org.RecalculationPolicy
	}

	if err := s.source.UpdateOrganizationBaseYear(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to store base year: %w", err)
	}

	s.logger.Info("Base year set",
		zap.String("organization_id", organizationID.String()),
		zap.Int("base_year", base.Year),
		zap.Float64("total_tonnes", base.TotalTonnes),
		zap.Bool("from_inventory", base.FromInventory))

	return base, nil
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return compliance.Round(*v, 4)
}

// GenerateReport scores every ISO 14064-1 section and attaches the inventory
func (s *Service) GenerateReport(ctx context.Context, organizationID uuid.UUID, year int) (*Report, error) {
	started := time.Now()

	e, err := s.gather(ctx, organizationID, year)
	if err != nil {
		compliance.ObserveFailure(compliance.FrameworkISO14064, started)
		return nil, err
	}

	sections := buildSections(*e)
	report := &Report{
		OrganizationID:  organizationID,
		Year:            year,
		Framework:       compliance.FrameworkISO14064,
		Sections:        sections,
		OverallScore:    compliance.Mean(compliance.SectionScores(sections)...),
		Inventory:       &e.inventory,
		Recommendations: []compliance.Recommendation{},
		GeneratedAt:     s.now(),
	}
	report.Level = compliance.LevelFor(report.OverallScore)
	for _, section := range sections {
		report.Recommendations = append(report.Recommendations, section.Recommendations(compliance.FrameworkISO14064)...)
	}

	compliance.ObserveScore(compliance.FrameworkISO14064, report.OverallScore, started)
	s.logger.Info("ISO 14064 report generated",
		zap.String("organization_id", organizationID.String()),
		zap.Int("year", year),
		zap.Float64("overall_score", report.OverallScore))

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

	records, err := s.yearRecords(ctx, organizationID, year)
	if err != nil {
		return nil, err
	}
	targets, err := s.source.ListReductionTargets(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reduction targets: %w", err)
	}
	removals, err := s.source.ListRemovals(ctx, organizationID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load removals: %w", err)
	}
	verifications, err := s.source.ListVerifications(ctx, organizationID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load verifications: %w", err)
	}

	return &evidence{
		org:           org,
		assessment:    assessment,
		records:       records,
		targets:       targets,
		removals:      removals,
		verifications: verifications,
		inventory:     BuildInventory(organizationID, year, records, removals),
	}, nil
}
