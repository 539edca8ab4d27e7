// Package esrs calculates the ESRS E1 climate datapoints of an assessment and tracks
// which mandatory datapoints are still missing.
package esrs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

// Source is the inventory data the calculator reads
type Source interface {
	GetAssessment(ctx context.Context, id uuid.UUID) (*inventory.Assessment, error)
	ListEmissionRecords(ctx context.Context, filter inventory.EmissionFilter) ([]inventory.EmissionRecord, error)
	ListReductionTargets(ctx context.Context, organizationID uuid.UUID) ([]inventory.ReductionTarget, error)
}

// Calculator derives ESRS E1 indicators from emission records and targets
type Calculator struct {
	source Source
	store  Store
	logger *zap.Logger
}

// NewCalculator creates a new ESRS indicator calculator
func NewCalculator(source Source, store Store, logger *zap.Logger) *Calculator {
	return &Calculator{
		source: source,
		store:  store,
		logger: logger,
	}
}

// ComplianceStatus compares stored indicators with the mandatory datapoint list
type ComplianceStatus struct {
	AssessmentID      uuid.UUID                   `json:"assessment_id"`
	RequiredCount     int                         `json:"required_count"`
	CompletedCount    int                         `json:"completed_count"`
	Completed         []string                    `json:"completed"`
	Missing           []string                    `json:"missing"`
	CompliancePercent float64                     `json:"compliance_percent"`
	IsCompliant       bool                        `json:"is_compliant"`
	Recommendations   []compliance.Recommendation `json:"recommendations"`
}

// =====================================================
// Calculation entry points
// =====================================================

// CalculateEnergyIndicators returns the E1-5 energy consumption and mix datapoints
func (c *Calculator) CalculateEnergyIndicators(ctx context.Context, assessmentID uuid.UUID) ([]Indicator, error) {
	assessment, records, err := c.load(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	return EnergyIndicators(*assessment, records), nil
}

// CalculateGhgIndicators returns the E1-6 gross emissions datapoints
func (c *Calculator) CalculateGhgIndicators(ctx context.Context, assessmentID uuid.UUID) ([]Indicator, error) {
	assessment, records, err := c.load(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	return GhgIndicators(*assessment, records), nil
}

// CalculateTargetIndicators returns the E1-4 target datapoints, or none when no target is open
func (c *Calculator) CalculateTargetIndicators(ctx context.Context, assessmentID uuid.UUID) ([]Indicator, error) {
	assessment, records, err := c.load(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	targets, err := c.source.ListReductionTargets(ctx, assessment.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reduction targets: %w", err)
	}
	return TargetIndicators(*assessment, records, targets), nil
}

// CalculateAll computes every datapoint group and upserts the union. Target datapoints are
// dropped while no target is open.
func (c *Calculator) CalculateAll(ctx context.Context, assessmentID uuid.UUID) ([]Indicator, error) {
	started := time.Now()

	assessment, records, err := c.load(ctx, assessmentID)
	if err != nil {
		compliance.ObserveFailure(compliance.FrameworkESRS, started)
		return nil, err
	}
	targets, err := c.source.ListReductionTargets(ctx, assessment.OrganizationID)
	if err != nil {
		compliance.ObserveFailure(compliance.FrameworkESRS, started)
		return nil, fmt.Errorf("failed to load reduction targets: %w", err)
	}

	var indicators []Indicator
	indicators = append(indicators, EnergyIndicators(*assessment, records)...)
	indicators = append(indicators, GhgIndicators(*assessment, records)...)
	targetIndicators := TargetIndicators(*assessment, records, targets)
	indicators = append(indicators, targetIndicators...)

	if err := c.store.UpsertIndicators(ctx, indicators); err != nil {
		compliance.ObserveFailure(compliance.FrameworkESRS, started)
		return nil, err
	}
	// Rows from a target that has since closed must not keep counting as reported.
	if len(targetIndicators) == 0 {
		if err := c.store.DeleteIndicators(ctx, assessmentID, targetCodes); err != nil {
			compliance.ObserveFailure(compliance.FrameworkESRS, started)
			return nil, err
		}
	}

	reported := 0
	for _, ind := range indicators {
		if ind.Status == StatusReported {
			reported++
		}
	}
	c.logger.Info("ESRS indicators calculated",
		zap.String("assessment_id", assessmentID.String()),
		zap.Int("indicators", len(indicators)),
		zap.Int("reported", reported))

	return indicators, nil
}

// ComplianceStatus reports which mandatory datapoints have a stored value
func (c *Calculator) ComplianceStatus(ctx context.Context, assessmentID uuid.UUID) (*ComplianceStatus, error) {
	started := time.Now()

	if _, err := c.source.GetAssessment(ctx, assessmentID); err != nil {
		return nil, err
	}
	stored, err := c.store.ListIndicators(ctx, assessmentID)
	if err != nil {
		compliance.ObserveFailure(compliance.FrameworkESRS, started)
		return nil, err
	}

	result := Status(assessmentID, stored)
	compliance.ObserveScore(compliance.FrameworkESRS, result.CompliancePercent, started)
	return result, nil
}

// Status is the pure mandatory-datapoint check over stored indicators
func Status(assessmentID uuid.UUID, stored []Indicator) *ComplianceStatus {
	withValue := make(map[string]bool, len(stored))
	for _, ind := range stored {
		if ind.Value != nil {
			withValue[ind.IndicatorCode] = true
		}
	}

	mandatory := MandatoryDefinitions()
	result := &ComplianceStatus{
		AssessmentID:    assessmentID,
		RequiredCount:   len(mandatory),
		Completed:       []string{},
		Missing:         []string{},
		Recommendations: []compliance.Recommendation{},
	}
	for _, def := range mandatory {
		if withValue[def.Code] {
			result.Completed = append(result.Completed, def.Code)
			continue
		}
		result.Missing = append(result.Missing, def.Code)
		result.Recommendations = append(result.Recommendations, compliance.Recommendation{
			Framework: compliance.FrameworkESRS,
			Reference: def.Code,
			Title:     fmt.Sprintf("Missing mandatory datapoint: %s", def.Name),
			Action:    def.Action,
			Priority:  compliance.PriorityHigh,
		})
	}

	result.CompletedCount = len(result.Completed)
	if result.RequiredCount > 0 {
		result.CompliancePercent = compliance.Round(float64(result.CompletedCount)/float64(result.RequiredCount)*100, 2)
	}
	result.IsCompliant = len(result.Missing) == 0
	return result
}

func (c *Calculator) load(ctx context.Context, assessmentID uuid.UUID) (*inventory.Assessment, []inventory.EmissionRecord, error) {
	assessment, err := c.source.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, nil, err
	}
	records, err := c.source.ListEmissionRecords(ctx, inventory.EmissionFilter{AssessmentID: &assessmentID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load emission records: %w", err)
	}
	return assessment, records, nil
}

// =====================================================
// Pure datapoint derivations
// =====================================================

func scopeOf(a inventory.Assessment) indicatorScope {
	return indicatorScope{organizationID: a.OrganizationID, assessmentID: a.ID, year: a.Year}
}

func revenueMillions(a inventory.Assessment) float64 {
	if a.RevenueEur == nil {
		return 0
	}
	return *a.RevenueEur / 1_000_000
}

func employeeFTE(a inventory.Assessment) float64 {
	if a.EmployeeFTE == nil {
		return 0
	}
	return *a.EmployeeFTE
}

// EnergyIndicators derives E1-5-a..f from an assessment's records
func EnergyIndicators(a inventory.Assessment, records []inventory.EmissionRecord) []Indicator {
	scope := scopeOf(a)
	codes := []string{"E1-5-a", "E1-5-b", "E1-5-c", "E1-5-d", "E1-5-e", "E1-5-f"}

	energy := inventory.EnergyRecords(records)
	if len(energy) == 0 {
		out := make([]Indicator, len(codes))
		for i, code := range codes {
			out[i] = buildIndicator(scope, code, nil, nil)
		}
		return out
	}

	var total, renewable compliance.Accumulator
	skipped := 0
	for _, r := range energy {
		mwh, ok := compliance.ToMWh(r.Quantity, r.Unit)
		if !ok {
			skipped++
			continue
		}
		total.Add(mwh)
		if r.IsRenewable {
			renewable.Add(mwh)
		}
	}

	totalMwh := total.Float64()
	renewableMwh := renewable.Float64()
	meta := map[string]any{"records": len(energy), "skipped_non_energy_units": skipped}

	return []Indicator{
		buildIndicator(scope, "E1-5-a", compliance.Float(totalMwh), meta),
		buildIndicator(scope, "E1-5-b", compliance.Float(totalMwh-renewableMwh), nil),
		buildIndicator(scope, "E1-5-c", compliance.Float(renewableMwh), nil),
		buildIndicator(scope, "E1-5-d", compliance.Float(compliance.SafeDivide(renewableMwh, totalMwh)*100), nil),
		buildIndicator(scope, "E1-5-e", compliance.Float(compliance.SafeDivide(totalMwh, revenueMillions(a))), nil),
		buildIndicator(scope, "E1-5-f", compliance.Float(compliance.SafeDivide(totalMwh, employeeFTE(a))), nil),
	}
}

// ResolveScope3Category names the GHG Protocol category of a scope 3 record
func ResolveScope3Category(r inventory.EmissionRecord) string {
	if r.Scope3Category != nil && *r.Scope3Category >= 1 && *r.Scope3Category <= len(Scope3Categories) {
		return Scope3Categories[*r.Scope3Category-1]
	}
	normalized := normalizeCategory(r.Category)
	for _, name := range Scope3Categories {
		if normalizeCategory(name) == normalized {
			return name
		}
	}
	return UnallocatedScope3
}

func normalizeCategory(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", " ", "-", " ").Replace(s)
}

// GhgIndicators derives E1-6-a..g from an assessment's records
func GhgIndicators(a inventory.Assessment, records []inventory.EmissionRecord) []Indicator {
	scope := scopeOf(a)
	codes := []string{"E1-6-a", "E1-6-b", "E1-6-c", "E1-6-d", "E1-6-e", "E1-6-f", "E1-6-g"}

	if len(records) == 0 {
		out := make([]Indicator, len(codes))
		for i, code := range codes {
			out[i] = buildIndicator(scope, code, nil, nil)
		}
		return out
	}

	var scope1, location, market, scope3 compliance.Accumulator
	marketRecords := 0
	breakdown := make(map[string]*compliance.Accumulator)
	for _, r := range records {
		switch r.Scope {
		case 1:
			scope1.Add(r.Co2eKg)
		case 2:
			if r.IsMarketBased() {
				market.Add(r.Co2eKg)
				marketRecords++
			} else {
				location.Add(r.Co2eKg)
			}
		case 3:
			scope3.Add(r.Co2eKg)
			name := ResolveScope3Category(r)
			acc, ok := breakdown[name]
			if !ok {
				acc = &compliance.Accumulator{}
				breakdown[name] = acc
			}
			acc.Add(r.Co2eKg)
		}
	}

	s1 := scope1.Tonnes()
	s2Location := location.Tonnes()
	s2Market := market.Tonnes()
	fallback := marketRecords == 0
	if fallback {
		s2Market = s2Location
	}
	s3 := scope3.Tonnes()
	total := compliance.SumRounded(4, s1, s2Location, s3)

	categories := make(map[string]float64, len(breakdown))
	for name, acc := range breakdown {
		categories[name] = acc.Tonnes()
	}

	return []Indicator{
		buildIndicator(scope, "E1-6-a", compliance.Float(s1), nil),
		buildIndicator(scope, "E1-6-b", compliance.Float(s2Location), nil),
		buildIndicator(scope, "E1-6-c", compliance.Float(s2Market), map[string]any{"fallback_to_location": fallback}),
		buildIndicator(scope, "E1-6-d", compliance.Float(s3), map[string]any{"categories": categories}),
		buildIndicator(scope, "E1-6-e", compliance.Float(total), nil),
		buildIndicator(scope, "E1-6-f", compliance.Float(compliance.SafeDivide(total, revenueMillions(a))), nil),
		buildIndicator(scope, "E1-6-g", compliance.Float(compliance.SafeDivide(total, employeeFTE(a))), nil),
	}
}

// EarliestOpenTarget returns the open target with the nearest target year
func EarliestOpenTarget(targets []inventory.ReductionTarget, year int) *inventory.ReductionTarget {
	var earliest *inventory.ReductionTarget
	for i := range targets {
		t := &targets[i]
		if !t.IsOpen(year) {
			continue
		}
		if earliest == nil || t.TargetYear < earliest.TargetYear {
			earliest = t
		}
	}
	return earliest
}

var targetCodes = []string{"E1-4-a", "E1-4-b", "E1-4-c"}

// TargetIndicators derives E1-4-a..c against the earliest open reduction target
func TargetIndicators(a inventory.Assessment, records []inventory.EmissionRecord, targets []inventory.ReductionTarget) []Indicator {
	target := EarliestOpenTarget(targets, a.Year)
	if target == nil {
		return []Indicator{}
	}

	var s1, s2, s3 compliance.Accumulator
	for _, r := range records {
		switch r.Scope {
		case 1:
			s1.Add(r.Co2eKg)
		case 2:
			if !r.IsMarketBased() {
				s2.Add(r.Co2eKg)
			}
		case 3:
			s3.Add(r.Co2eKg)
		}
	}
	current := compliance.SumRounded(4, s1.Tonnes(), s2.Tonnes(), s3.Tonnes())

	actual := compliance.SafeDivide(target.BaselineEmissionsTonnes-current, target.BaselineEmissionsTonnes) * 100
	progress := compliance.Clamp(compliance.SafeDivide(actual, target.TargetReductionPercent)*100, 0, 100)

	scope := scopeOf(a)
	meta := map[string]any{
		"target_id":                 target.ID.String(),
		"target_name":               target.Name,
		"baseline_year":             target.BaselineYear,
		"baseline_emissions_tonnes": target.BaselineEmissionsTonnes,
		"target_year":               target.TargetYear,
		"current_emissions_tonnes":  current,
		"is_sbti_validated":         target.IsSbtiValidated,
	}

	return []Indicator{
		buildIndicator(scope, "E1-4-a", compliance.Float(target.TargetReductionPercent), meta),
		buildIndicator(scope, "E1-4-b", compliance.Float(actual), nil),
		buildIndicator(scope, "E1-4-c", compliance.Float(progress), nil),
	}
}
