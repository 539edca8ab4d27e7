// Package german scores an organization against German national rules (BDSG, TTDSG, KSG, PSD2)
// together with its CSRD readiness, folded into one weighted score.
package german

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/compliance/csrd"
	"carbex/compliance-portal/compliance-backend/internal/compliance/iso14064"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

// Component weights of the national score
const (
	WeightBDSG  = 0.15
	WeightTTDSG = 0.10
	WeightKSG   = 0.25
	WeightCSRD  = 0.35
	WeightPSD2  = 0.15
)

// Klimaschutzgesetz milestones
const (
	Ksg2030Year                = 2030
	Ksg2030ReductionPercent    = 65.0
	KsgNeutralityYear          = 2045
	NeutralityReductionPercent = 90.0
)

// Component keys
const (
	ComponentBDSG  = "bdsg"
	ComponentTTDSG = "ttdsg"
	ComponentKSG   = "ksg"
	ComponentCSRD  = "csrd"
	ComponentPSD2  = "psd2"
)

// DefaultWeights returns the weight of every component
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		ComponentBDSG:  WeightBDSG,
		ComponentTTDSG: WeightTTDSG,
		ComponentKSG:   WeightKSG,
		ComponentCSRD:  WeightCSRD,
		ComponentPSD2:  WeightPSD2,
	}
}

// ValidateWeights checks that component weights are non-negative and sum to 1
func ValidateWeights(weights map[string]float64) error {
	sum := 0.0
	for key, w := range weights {
		if w < 0 {
			return fmt.Errorf("weight of %s is negative: %w", key, compliance.ErrInvalidArgument)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("weights sum to %.4f: %w", sum, compliance.ErrInvalidArgument)
	}
	return nil
}

// Source is the inventory data read by the German compliance service
type Source interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (*inventory.Organization, error)
	GetAssessmentByYear(ctx context.Context, organizationID uuid.UUID, year int) (*inventory.Assessment, error)
	ListEmissionRecords(ctx context.Context, filter inventory.EmissionFilter) ([]inventory.EmissionRecord, error)
	ListReductionTargets(ctx context.Context, organizationID uuid.UUID) ([]inventory.ReductionTarget, error)
}

// Component is one weighted part of the national score
type Component struct {
	compliance.Section
	Weight float64 `json:"weight"`
}

// KsgProgress compares the inventory against the linear path to the 2030 milestone
type KsgProgress struct {
	BaseYear         *int     `json:"base_year"`
	BaseYearTonnes   *float64 `json:"base_year_tonnes"`
	CurrentTonnes    float64  `json:"current_tonnes"`
	ReductionPercent *float64 `json:"reduction_percent"`
	RequiredPercent  *float64 `json:"required_percent"`
	OnTrack          bool     `json:"on_track"`
}

// Report is the German national compliance report
type Report struct {
	OrganizationID               uuid.UUID                   `json:"organization_id"`
	Year                         int                         `json:"year"`
	Framework                    compliance.Framework        `json:"framework"`
	OverallScore                 float64                     `json:"overall_score"`
	Level                        compliance.Level            `json:"compliance_level"`
	Components                   []Component                 `json:"components"`
	Ksg                          KsgProgress                 `json:"ksg"`
	EsrsCompliancePercent        float64                     `json:"esrs_compliance_percent"`
	MaterialityCompletionPercent float64                     `json:"materiality_completion_percent"`
	Recommendations              []compliance.Recommendation `json:"recommendations"`
	GeneratedAt                  time.Time                   `json:"generated_at"`
}

// Service builds German national compliance reports
type Service struct {
	source      Source
	indicators  csrd.IndicatorStatus
	materiality csrd.MaterialityMatrix
	controls    Controls
	weights     map[string]float64
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new German compliance service over the platform controls in place
func NewService(source Source, indicators csrd.IndicatorStatus, materiality csrd.MaterialityMatrix, controls Controls, logger *zap.Logger) *Service {
	if controls == nil {
		controls = Controls{}
	}
	return &Service{
		source:      source,
		indicators:  indicators,
		materiality: materiality,
		controls:    controls,
		weights:     DefaultWeights(),
		logger:      logger,
		now:         time.Now,
	}
}

// =====================================================
// KSG
// =====================================================

// RequiredReduction is the reduction due by a year on the linear path from the base year to 2030
func RequiredReduction(baseYear, year int) float64 {
	if year >= Ksg2030Year || baseYear >= Ksg2030Year {
		return Ksg2030ReductionPercent
	}
	share := float64(year-baseYear) / float64(Ksg2030Year-baseYear)
	return compliance.Round(compliance.Clamp(Ksg2030ReductionPercent*share, 0, Ksg2030ReductionPercent), 2)
}

// AssessKsg measures the inventory of a year against the base year
func AssessKsg(org *inventory.Organization, year int, records []inventory.EmissionRecord) KsgProgress {
	progress := KsgProgress{
		BaseYear:       org.BaseYear,
		BaseYearTonnes: org.BaseYearTotalTonnes,
		CurrentTonnes:  iso14064.BuildInventory(org.ID, year, records, nil).GrossTonnes,
	}
	if org.BaseYear == nil || org.BaseYearTotalTonnes == nil || *org.BaseYearTotalTonnes <= 0 || len(records) == 0 {
		return progress
	}

	base := *org.BaseYearTotalTonnes
	progress.ReductionPercent = compliance.Float(compliance.Round((base-progress.CurrentTonnes)/base*100, 2))
	progress.RequiredPercent = compliance.Float(RequiredReduction(*org.BaseYear, year))
	progress.OnTrack = *progress.ReductionPercent >= *progress.RequiredPercent
	return progress
}

func ksgSection(org *inventory.Organization, year int, records []inventory.EmissionRecord, targets []inventory.ReductionTarget, progress KsgProgress) compliance.Section {
	var has2030, hasNeutrality bool
	for i := range targets {
		t := &targets[i]
		if !t.IsOpen(year) {
			continue
		}
		has2030 = has2030 || (t.TargetYear <= Ksg2030Year && t.TargetReductionPercent >= Ksg2030ReductionPercent)
		hasNeutrality = hasNeutrality || (t.TargetYear <= KsgNeutralityYear && t.TargetReductionPercent >= NeutralityReductionPercent)
	}

	return compliance.NewSection(ComponentKSG, "Klimaschutzgesetz", "KSG", []compliance.Criterion{
		{ID: "ksg-inventory", Clause: "§3 KSG", Description: "Annual GHG inventory available", Met: len(records) > 0,
			Priority: compliance.PriorityCritical, Action: "Record the emissions of the reporting year"},
		{ID: "ksg-baseyear", Clause: "§3 KSG", Description: "Base year emissions recorded", Met: org.BaseYear != nil && org.BaseYearTotalTonnes != nil,
			Priority: compliance.PriorityHigh, Action: "Set the base year and its emissions"},
		{ID: "ksg-2030", Clause: "§3(1) KSG", Description: "Target of at least 65 % reduction by 2030", Met: has2030,
			Priority: compliance.PriorityHigh, Action: "Adopt a reduction target of at least 65 % by 2030"},
		{ID: "ksg-2045", Clause: "§3(2) KSG", Description: "Climate neutrality target by 2045", Met: hasNeutrality,
			Priority: compliance.PriorityMedium, Action: "Adopt a climate neutrality target for 2045"},
		{ID: "ksg-trajectory", Clause: "§4 KSG", Description: "Emissions on the 2030 reduction path", Met: progress.OnTrack,
			Priority: compliance.PriorityHigh, Action: "Accelerate reductions to meet the linear path to 2030"},
	})
}

// =====================================================
// Report
// =====================================================

func csrdSection(esrsPercent, completionPercent float64, esrsCompliant bool) compliance.Section {
	return compliance.Section{
		Key:    ComponentCSRD,
		Name:   "CSRD",
		Clause: "CSRD",
		Score:  compliance.Mean(esrsPercent, completionPercent),
		Criteria: []compliance.Criterion{
			{ID: "csrd-esrs", Clause: "ESRS E1", Description: "All mandatory ESRS E1 datapoints reported", Met: esrsCompliant,
				Priority: compliance.PriorityHigh, Action: "Calculate and complete the ESRS E1 datapoints"},
			{ID: "csrd-materiality", Clause: "ESRS 1 §3", Description: "Double materiality assessment complete", Met: completionPercent >= 100,
				Priority: compliance.PriorityHigh, Action: "Assess every topic of the double materiality taxonomy"},
		},
	}
}

// GenerateReport computes the weighted German compliance score of an organization and year
func (s *Service) GenerateReport(ctx context.Context, organizationID uuid.UUID, year int) (*Report, error) {
	started := time.Now()

	report, err := s.generate(ctx, organizationID, year)
	if err != nil {
		compliance.ObserveFailure(compliance.FrameworkGerman, started)
		return nil, err
	}

	compliance.ObserveScore(compliance.FrameworkGerman, report.OverallScore, started)
	s.logger.Info("German compliance report generated",
		zap.String("organization_id", organizationID.String()),
		zap.Int("year", year),
		zap.Float64("overall_score", report.OverallScore))

	return report, nil
}

func (s *Service) generate(ctx context.Context, organizationID uuid.UUID, year int) (*Report, error) {
	if err := ValidateWeights(s.weights); err != nil {
		return nil, err
	}

	org, err := s.source.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	records, err := s.source.ListEmissionRecords(ctx, inventory.EmissionFilter{OrganizationID: &organizationID, Year: &year})
	if err != nil {
		return nil, fmt.Errorf("failed to load emission records: %w", err)
	}
	targets, err := s.source.ListReductionTargets(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reduction targets: %w", err)
	}

	esrsPercent, esrsCompliant := 0.0, false
	assessment, err := s.source.GetAssessmentByYear(ctx, organizationID, year)
	switch {
	case errors.Is(err, inventory.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to load assessment: %w", err)
	default:
		status, err := s.indicators.ComplianceStatus(ctx, assessment.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load ESRS status: %w", err)
		}
		esrsPercent, esrsCompliant = status.CompliancePercent, status.IsCompliant
	}

	matrix, err := s.materiality.Matrix(ctx, organizationID, year, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load materiality matrix: %w", err)
	}

	progress := AssessKsg(org, year, records)
	sections := []compliance.Section{
		s.controls.Checklist(ComponentBDSG, "Bundesdatenschutzgesetz", "BDSG", BdsgControls),
		s.controls.Checklist(ComponentTTDSG, "Telekommunikation-Telemedien-Datenschutz-Gesetz", "TTDSG", TtdsgControls),
		ksgSection(org, year, records, targets, progress),
		csrdSection(esrsPercent, matrix.CompletionPercent, esrsCompliant),
		s.controls.Checklist(ComponentPSD2, "Payment Services Directive 2", "PSD2", Psd2Controls),
	}

	report := &Report{
		OrganizationID:               organizationID,
		Year:                         year,
		Framework:                    compliance.FrameworkGerman,
		Ksg:                          progress,
		EsrsCompliancePercent:        esrsPercent,
		MaterialityCompletionPercent: matrix.CompletionPercent,
		Recommendations:              []compliance.Recommendation{},
		GeneratedAt:                  s.now(),
	}
	parts := make([]compliance.Weighted, 0, len(sections))
	for _, section := range sections {
		weight := s.weights[section.Key]
		report.Components = append(report.Components, Component{Section: section, Weight: weight})
		parts = append(parts, compliance.Weighted{Score: section.Score, Weight: weight})
		report.Recommendations = append(report.Recommendations, section.Recommendations(compliance.FrameworkGerman)...)
	}
	report.OverallScore = compliance.WeightedMean(parts...)
	report.Level = compliance.LevelFor(report.OverallScore)
	compliance.SortRecommendations(report.Recommendations)

	return report, nil
}
