// Package iso50001 scores energy management system readiness against ISO 50001 and keeps the
// energy review, baseline and energy performance indicators of an organization.
package iso50001

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

// Source is the inventory data read and written by the ISO 50001 service
type Source interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (*inventory.Organization, error)
	ListEmissionRecords(ctx context.Context, filter inventory.EmissionFilter) ([]inventory.EmissionRecord, error)
	GetCurrentEnergyBaseline(ctx context.Context, organizationID uuid.UUID) (*inventory.EnergyBaseline, error)
	SaveEnergyBaseline(ctx context.Context, baseline *inventory.EnergyBaseline) error
	GetEnergyReview(ctx context.Context, organizationID uuid.UUID, year int) (*inventory.EnergyReview, error)
	SaveEnergyReview(ctx context.Context, review *inventory.EnergyReview) error
	ListEnergyPerformanceIndicators(ctx context.Context, organizationID uuid.UUID, year int) ([]inventory.EnergyPerformanceIndicator, error)
	UpsertEnergyPerformanceIndicators(ctx context.Context, enpis []inventory.EnergyPerformanceIndicator) error
	ListEnergyTargets(ctx context.Context, organizationID uuid.UUID) ([]inventory.EnergyTarget, error)
	ListEnergyAudits(ctx context.Context, organizationID uuid.UUID) ([]inventory.EnergyAudit, error)
}

var (
	reviewNamespace   = uuid.MustParse("6d2b8f14-0c3a-5e97-a1d5-7f4e9b2c8a31")
	enpiNamespace     = uuid.MustParse("c5a1e7d3-2f9b-5c40-8b6e-4d1a7f3e9c02")
	baselineNamespace = uuid.MustParse("e81f4a26-9d5c-5b73-a0e2-3c6b8d4f1a97")
)

// Service implements ISO 50001 scoring and energy performance tracking
type Service struct {
	source Source
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new ISO 50001 service
func NewService(source Source, logger *zap.Logger) *Service {
	return &Service{
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// =====================================================
// Energy review
// =====================================================

// BuildEnergyReview groups scope 2 consumption by category and flags significant energy uses
func BuildEnergyReview(organizationID uuid.UUID, year int, records []inventory.EmissionRecord) EnergyReview {
	review := EnergyReview{
		OrganizationID:  organizationID,
		Year:            year,
		Uses:            []EnergyUse{},
		SignificantUses: []string{},
	}

	byCategory := map[string]*compliance.Accumulator{}
	var total compliance.Accumulator
	for _, r := range inventory.EnergyRecords(records) {
		review.RecordCount++
		mwh, ok := compliance.ToMWh(r.Quantity, r.Unit)
		if !ok {
			review.SkippedRecords++
			continue
		}
		category := strings.TrimSpace(r.Category)
		if category == "" {
			category = "uncategorized"
		}
		acc, ok := byCategory[category]
		if !ok {
			acc = &compliance.Accumulator{}
			byCategory[category] = acc
		}
		acc.Add(mwh)
		total.Add(mwh)
	}

	review.TotalMwh = compliance.Round(total.Float64(), 4)
	for category, acc := range byCategory {
		mwh := acc.Float64()
		share := compliance.Round(compliance.SafeDivide(mwh, total.Float64())*100, 2)
		review.Uses = append(review.Uses, EnergyUse{
			Category:      category,
			Mwh:           compliance.Round(mwh, 4),
			SharePercent:  share,
			IsSignificant: share >= SignificantUseThresholdPercent,
		})
	}
	sort.Slice(review.Uses, func(i, j int) bool {
		if review.Uses[i].Mwh != review.Uses[j].Mwh {
			return review.Uses[i].Mwh > review.Uses[j].Mwh
		}
		return review.Uses[i].Category < review.Uses[j].Category
	})
	for _, u := range review.Uses {
		if u.IsSignificant {
			review.SignificantUses = append(review.SignificantUses, u.Category)
		}
	}
	review.SeuCount = len(review.SignificantUses)
	return review
}

func (s *Service) yearRecords(ctx context.Context, organizationID uuid.UUID, year int) ([]inventory.EmissionRecord, error) {
	records, err := s.source.ListEmissionRecords(ctx, inventory.EmissionFilter{OrganizationID: &organizationID, Year: &year})
	if err != nil {
		return nil, fmt.Errorf("failed to load emission records: %w", err)
	}
	return records, nil
}

// CalculateEnergyReview computes the energy review of a year and optionally stores it
func (s *Service) CalculateEnergyReview(ctx context.Context, organizationID uuid.UUID, year int, persist bool) (*EnergyReview, error) {
	if _, err := s.source.GetOrganization(ctx, organizationID); err != nil {
		return nil, err
	}
	records, err := s.yearRecords(ctx, organizationID, year)
	if err != nil {
		return nil, err
	}

	review := BuildEnergyReview(organizationID, year, records)
	if !persist {
		return &review, nil
	}

	stored := &inventory.EnergyReview{
		ID:             compliance.NaturalKeyID(reviewNamespace, organizationID, year),
		OrganizationID: organizationID,
		Year:           year,
		TotalMwh:       review.TotalMwh,
		SeuCount:       review.SeuCount,
		ReviewedAt:     s.now(),
	}
	if err := s.source.SaveEnergyReview(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to store energy review: %w", err)
	}
	review.Persisted = true

	s.logger.Info("Energy review stored",
		zap.String("organization_id", organizationID.String()),
		zap.Int("year", year),
		zap.Float64("total_mwh", review.TotalMwh),
		zap.Int("seu_count", review.SeuCount))

	return &review, nil
}

// =====================================================
// EnPIs and baseline
// =====================================================

func improvement(current float64, baseline *float64) *float64 {
	if baseline == nil || *baseline <= 0 {
		return nil
	}
	return compliance.Float(compliance.Round((*baseline-current) / *baseline * 100, 2))
}

func intensities(org *inventory.Organization, totalMwh float64) (perArea, perEmployee *float64) {
	if org.FloorAreaM2 != nil && *org.FloorAreaM2 > 0 {
		perArea = compliance.Float(compliance.Round(totalMwh / *org.FloorAreaM2, 6))
	}
	if org.EmployeeCount != nil && *org.EmployeeCount > 0 {
		perEmployee = compliance.Float(compliance.Round(totalMwh/float64(*org.EmployeeCount), 4))
	}
	return perArea, perEmployee
}

// BuildEnPIs derives the energy performance indicators of a year against the current baseline.
// Intensity indicators are omitted when the organization has no floor area or headcount.
func BuildEnPIs(org *inventory.Organization, year int, totalMwh float64, baseline *inventory.EnergyBaseline, calculatedAt time.Time) []inventory.EnergyPerformanceIndicator {
	enpi := func(code, name, unit string, value float64, base *float64) inventory.EnergyPerformanceIndicator {
		return inventory.EnergyPerformanceIndicator{
			ID:                 compliance.NaturalKeyID(enpiNamespace, org.ID, year, code),
			OrganizationID:     org.ID,
			Year:               year,
			Code:               code,
			Name:               name,
			Unit:               unit,
			Value:              value,
			BaselineValue:      base,
			ImprovementPercent: improvement(value, base),
			CalculatedAt:       calculatedAt,
		}
	}

	var baseTotal, baseArea, baseEmployee *float64
	if baseline != nil {
		baseTotal = compliance.Float(baseline.TotalMwh)
		baseArea = baseline.MwhPerM2
		baseEmployee = baseline.MwhPerEmployee
	}

	totalMwh = compliance.Round(totalMwh, 4)
	out := []inventory.EnergyPerformanceIndicator{
		enpi(EnPITotal, "Total energy consumption", "MWh", totalMwh, baseTotal),
	}
	perArea, perEmployee := intensities(org, totalMwh)
	if perArea != nil {
		out = append(out, enpi(EnPIPerArea, "Energy intensity per floor area", "MWh/m2", *perArea, baseArea))
	}
	if perEmployee != nil {
		out = append(out, enpi(EnPIPerEmployee, "Energy intensity per employee", "MWh/employee", *perEmployee, baseEmployee))
	}
	return out
}

// CalculateEnPIs computes and stores the EnPIs of a year
func (s *Service) CalculateEnPIs(ctx context.Context, organizationID uuid.UUID, year int) ([]inventory.EnergyPerformanceIndicator, error) {
	org, err := s.source.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	records, err := s.yearRecords(ctx, organizationID, year)
	if err != nil {
		return nil, err
	}
	baseline, err := s.source.GetCurrentEnergyBaseline(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load energy baseline: %w", err)
	}

	review := BuildEnergyReview(organizationID, year, records)
	enpis := BuildEnPIs(org, year, review.TotalMwh, baseline, s.now())
	if err := s.source.UpsertEnergyPerformanceIndicators(ctx, enpis); err != nil {
		return nil, fmt.Errorf("failed to store energy performance indicators: %w", err)
	}

	s.logger.Info("EnPIs calculated",
		zap.String("organization_id", organizationID.String()),
		zap.Int("year", year),
		zap.Int("count", len(enpis)),
		zap.Bool("has_baseline", baseline != nil))

	return enpis, nil
}

// ListEnPIs returns the stored EnPIs of a year
func (s *Service) ListEnPIs(ctx context.Context, organizationID uuid.UUID, year int) ([]inventory.EnergyPerformanceIndicator, error) {
	if _, err := s.source.GetOrganization(ctx, organizationID); err != nil {
		return nil, err
	}
	enpis, err := s.source.ListEnergyPerformanceIndicators(ctx, organizationID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load energy performance indicators: %w", err)
	}
	if enpis == nil {
		enpis = []inventory.EnergyPerformanceIndicator{}
	}
	return enpis, nil
}

// SetBaseline stores the metrics of a year as the current energy baseline
func (s *Service) SetBaseline(ctx context.Context, organizationID uuid.UUID, year int) (*inventory.EnergyBaseline, error) {
	if year < 1990 || year > s.now().Year() {
		return nil, fmt.Errorf("baseline year %d outside 1990-%d: %w", year, s.now().Year(), compliance.ErrInvalidArgument)
	}
	org, err := s.source.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	records, err := s.yearRecords(ctx, organizationID, year)
	if err != nil {
		return nil, err
	}

	review := BuildEnergyReview(organizationID, year, records)
	if review.TotalMwh <= 0 {
		return nil, fmt.Errorf("year %d has no energy consumption: %w", year, compliance.ErrNoData)
	}

	perArea, perEmployee := intensities(org, review.TotalMwh)
	baseline := &inventory.EnergyBaseline{
		ID:             compliance.NaturalKeyID(baselineNamespace, organizationID, year),
		OrganizationID: organizationID,
		BaselineYear:   year,
		TotalMwh:       review.TotalMwh,
		MwhPerM2:       perArea,
		MwhPerEmployee: perEmployee,
		IsCurrent:      true,
		CreatedAt:      s.now(),
	}
	if err := s.source.SaveEnergyBaseline(ctx, baseline); err != nil {
		return nil, fmt.Errorf("failed to store energy baseline: %w", err)
	}

	s.logger.Info("Energy baseline set",
		zap.String("organization_id", organizationID.String()),
		zap.Int("baseline_year", year),
		zap.Float64("total_mwh", baseline.TotalMwh))

	return baseline, nil
}

// =====================================================
// Report
// =====================================================

// GenerateReport scores the seven EnMS clauses of an organization
func (s *Service) GenerateReport(ctx context.Context, organizationID uuid.UUID, year int) (*Report, error) {
	started := time.Now()

	e, err := s.gather(ctx, organizationID, year)
	if err != nil {
		compliance.ObserveFailure(compliance.FrameworkISO50001, started)
		return nil, err
	}

	sections := buildClauses(*e)
	report := &Report{
		OrganizationID:  organizationID,
		Year:            year,
		Framework:       compliance.FrameworkISO50001,
		Sections:        sections,
		OverallScore:    compliance.Mean(compliance.SectionScores(sections)...),
		EnergyReview:    &e.review,
		EnPIs:           e.enpis,
		Recommendations: []compliance.Recommendation{},
		GeneratedAt:     s.now(),
	}
	if report.EnPIs == nil {
		report.EnPIs = []inventory.EnergyPerformanceIndicator{}
	}
	report.Level = compliance.LevelFor(report.OverallScore)
	report.CertificationReady = report.OverallScore >= CertificationReadyScore
	for _, section := range sections {
		report.Recommendations = append(report.Recommendations, section.Recommendations(compliance.FrameworkISO50001)...)
	}

	compliance.ObserveScore(compliance.FrameworkISO50001, report.OverallScore, started)
	s.logger.Info("ISO 50001 report generated",
		zap.String("organization_id", organizationID.String()),
		zap.Int("year", year),
		zap.Float64("overall_score", report.OverallScore),
		zap.Bool("certification_ready", report.CertificationReady))

	return report, nil
}

func (s *Service) gather(ctx context.Context, organizationID uuid.UUID, year int) (*evidence, error) {
	org, err := s.source.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	records, err := s.yearRecords(ctx, organizationID, year)
	if err != nil {
		return nil, err
	}
	stored, err := s.source.GetEnergyReview(ctx, organizationID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load energy review: %w", err)
	}
	baseline, err := s.source.GetCurrentEnergyBaseline(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load energy baseline: %w", err)
	}
	enpis, err := s.source.ListEnergyPerformanceIndicators(ctx, organizationID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to load energy performance indicators: %w", err)
	}
	targets, err := s.source.ListEnergyTargets(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load energy targets: %w", err)
	}
	audits, err := s.source.ListEnergyAudits(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load energy audits: %w", err)
	}

	return &evidence{
		year:         year,
		org:          org,
		records:      records,
		review:       BuildEnergyReview(organizationID, year, records),
		storedReview: stored,
		baseline:     baseline,
		enpis:        enpis,
		targets:      targets,
		audits:       audits,
	}, nil
}
