// Package uncertainty quantifies GHG inventory uncertainty with the IPCC 2006 Tier 1
// approach: default emission-factor and activity-data ranges per record, combined in
// quadrature, and propagated to scope and assessment totals as a sum of independent terms.
package uncertainty

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

// Methodology is stored on assessments whose uncertainty was computed here
const Methodology = "IPCC 2006 Tier 1 error propagation"

// ConfidenceLevel of the default uncertainty ranges
const ConfidenceLevel = "95%"

const (
	StatusCalculated = "calculated"
	StatusNoData     = "no_data"
)

// RecordSource is the slice of the inventory repository this service needs
type RecordSource interface {
	GetAssessment(ctx context.Context, id uuid.UUID) (*inventory.Assessment, error)
	ListEmissionRecords(ctx context.Context, filter inventory.EmissionFilter) ([]inventory.EmissionRecord, error)
	UpdateRecordUncertainty(ctx context.Context, id uuid.UUID, update inventory.RecordUncertaintyUpdate) error
	UpdateAssessmentUncertainty(ctx context.Context, id uuid.UUID, percent *float64, methodology string) error
}

// RecordUncertainty is the uncertainty of a single emission record
type RecordUncertainty struct {
	RecordID                  uuid.UUID   `json:"record_id"`
	SourceClass               SourceClass `json:"source_class"`
	EmissionFactorUncertainty Band        `json:"ef_uncertainty"`
	ActivityDataUncertainty   Band        `json:"activity_data_uncertainty"`
	CombinedLowPercent        float64     `json:"combined_low_percent"`
	CombinedHighPercent       float64     `json:"combined_high_percent"`
	CombinedPercent           float64     `json:"combined_percent"`
	EmissionsKg               float64     `json:"emissions_kg"`
	LowKg                     float64     `json:"low_kg"`
	HighKg                    float64     `json:"high_kg"`
}

// ScopeUncertainty is the propagated uncertainty of one scope total
type ScopeUncertainty struct {
	Scope              int      `json:"scope"`
	RecordCount        int      `json:"record_count"`
	EmissionsKg        float64  `json:"emissions_kg"`
	UncertaintyPercent *float64 `json:"uncertainty_percent"`
	LowKg              float64  `json:"low_kg"`
	HighKg             float64  `json:"high_kg"`
}

// AssessmentUncertainty is the propagated uncertainty of a whole inventory
type AssessmentUncertainty struct {
	AssessmentID     uuid.UUID          `json:"assessment_id"`
	Status           string             `json:"status"`
	Methodology      string             `json:"methodology"`
	ConfidenceLevel  string             `json:"confidence_level"`
	RecordCount      int                `json:"record_count"`
	TotalEmissionsKg float64            `json:"total_emissions_kg"`
	OverallPercent   *float64           `json:"overall_percent"`
	LowKg            float64            `json:"low_kg"`
	HighKg           float64            `json:"high_kg"`
	Rating           string             `json:"rating"`
	Scopes           []ScopeUncertainty `json:"scopes"`
	DataQuality      map[string]int     `json:"data_quality_distribution"`
	CalculatedAt     time.Time          `json:"calculated_at"`
}

// Service computes and persists inventory uncertainty
type Service struct {
	repo   RecordSource
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new uncertainty assessment service
func NewService(repo RecordSource, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// CombineInQuadrature combines two independent uncertainty percentages
func CombineInQuadrature(a, b float64) float64 {
	return math.Sqrt(a*a + b*b)
}

// CalculateRecordUncertainty computes the uncertainty of a single record. It has no side effects.
func (s *Service) CalculateRecordUncertainty(record inventory.EmissionRecord) RecordUncertainty {
	return RecordAssessment(record)
}

// RecordAssessment is the pure per-record calculation
func RecordAssessment(record inventory.EmissionRecord) RecordUncertainty {
	class := ClassifySource(record.SourceType, record.Category)

	ef := EmissionFactorBand(class)
	if record.EfUncertaintyPercent != nil && *record.EfUncertaintyPercent >= 0 {
		ef = Band{Low: *record.EfUncertaintyPercent, High: *record.EfUncertaintyPercent}
	}

	ad := ActivityDataBand(record.DataQuality)
	if record.ActivityUncertaintyPercent != nil && *record.ActivityUncertaintyPercent >= 0 {
		ad = Band{Low: *record.ActivityUncertaintyPercent, High: *record.ActivityUncertaintyPercent}
	}

	low := CombineInQuadrature(ef.Low, ad.Low)
	high := CombineInQuadrature(ef.High, ad.High)
	combined := (low + high) / 2

	lowKg := record.Co2eKg * (1 - combined/100)
	if lowKg < 0 && record.Co2eKg >= 0 {
		lowKg = 0
	}

	return RecordUncertainty{
		RecordID:                  record.ID,
		SourceClass:               class,
		EmissionFactorUncertainty: ef,
		ActivityDataUncertainty:   ad,
		CombinedLowPercent:        compliance.Round(low, 2),
		CombinedHighPercent:       compliance.Round(high, 2),
		CombinedPercent:           compliance.Round(combined, 2),
		EmissionsKg:               record.Co2eKg,
		LowKg:                     compliance.Round(lowKg, 2),
		HighKg:                    compliance.Round(record.Co2eKg*(1+combined/100), 2),
	}
}

// Aggregate propagates record uncertainties to scope and inventory totals.
// Each total's uncertainty is sqrt(sum((e_i * u_i / 100)^2)) / sum(e_i) * 100.
func Aggregate(records []inventory.EmissionRecord) AssessmentUncertainty {
	type scopeAcc struct {
		count    int
		total    compliance.Accumulator
		variance float64
	}

	scopes := make(map[int]*scopeAcc)
	var total compliance.Accumulator
	var totalVariance float64
	quality := make(map[string]int)

	for _, r := range records {
		ru := RecordAssessment(r)
		acc, ok := scopes[r.Scope]
		if !ok {
			acc = &scopeAcc{}
			scopes[r.Scope] = acc
		}
		term := r.Co2eKg * ru.CombinedPercent / 100
		acc.count++
		acc.total.Add(r.Co2eKg)
		acc.variance += term * term
		total.Add(r.Co2eKg)
		totalVariance += term * term
		quality[string(NormalizeDataQuality(r.DataQuality))]++
	}

	result := AssessmentUncertainty{
		Status:          StatusNoData,
		Methodology:     Methodology,
		ConfidenceLevel: ConfidenceLevel,
		RecordCount:     len(records),
		DataQuality:     quality,
		Rating:          "unknown",
	}

	scopeKeys := make([]int, 0, len(scopes))
	for k := range scopes {
		scopeKeys = append(scopeKeys, k)
	}
	sort.Ints(scopeKeys)

	for _, k := range scopeKeys {
		acc := scopes[k]
		emissions := acc.total.Float64()
		su := ScopeUncertainty{
			Scope:       k,
			RecordCount: acc.count,
			EmissionsKg: compliance.Round(emissions, 2),
			LowKg:       compliance.Round(emissions, 2),
			HighKg:      compliance.Round(emissions, 2),
		}
		if pct := propagated(acc.variance, emissions); pct != nil {
			su.UncertaintyPercent = pct
			su.LowKg = compliance.Round(math.Max(0, emissions*(1-*pct/100)), 2)
			su.HighKg = compliance.Round(emissions*(1+*pct/100), 2)
		}
		result.Scopes = append(result.Scopes, su)
	}

	emissions := total.Float64()
	result.TotalEmissionsKg = compliance.Round(emissions, 2)
	result.LowKg = result.TotalEmissionsKg
	result.HighKg = result.TotalEmissionsKg
	if pct := propagated(totalVariance, emissions); pct != nil {
		result.Status = StatusCalculated
		result.OverallPercent = pct
		result.LowKg = compliance.Round(math.Max(0, emissions*(1-*pct/100)), 2)
		result.HighKg = compliance.Round(emissions*(1+*pct/100), 2)
		result.Rating = Rating(*pct)
	}

	return result
}

// propagated returns sqrt(variance)/total x 100, or nil when the total is not positive
func propagated(variance, total float64) *float64 {
	if total <= 0 {
		return nil
	}
	pct := compliance.Round(math.Sqrt(variance)/total*100, 2)
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return nil
	}
	return &pct
}

// Rating is the qualitative band of an inventory uncertainty percentage
func Rating(percent float64) string {
	switch {
	case percent <= 5:
		return "high"
	case percent <= 15:
		return "good"
	case percent <= 30:
		return "fair"
	default:
		return "poor"
	}
}

// CalculateAssessmentUncertainty computes the uncertainty of an assessment's inventory
func (s *Service) CalculateAssessmentUncertainty(ctx context.Context, assessmentID uuid.UUID) (*AssessmentUncertainty, error) {
	if _, err := s.repo.GetAssessment(ctx, assessmentID); err != nil {
		return nil, err
	}

	records, err := s.repo.ListEmissionRecords(ctx, inventory.EmissionFilter{AssessmentID: &assessmentID})
	if err != nil {
		return nil, fmt.Errorf("failed to load emission records: %w", err)
	}

	result := Aggregate(records)
	result.AssessmentID = assessmentID
	result.CalculatedAt = s.now()
	return &result, nil
}

// UpdateRecordUncertainties backfills the uncertainty fields of every record in an assessment
func (s *Service) UpdateRecordUncertainties(ctx context.Context, assessmentID uuid.UUID) (int, error) {
	records, err := s.repo.ListEmissionRecords(ctx, inventory.EmissionFilter{AssessmentID: &assessmentID})
	if err != nil {
		return 0, fmt.Errorf("failed to load emission records: %w", err)
	}

	for _, r := range records {
		ru := RecordAssessment(r)
		update := inventory.RecordUncertaintyUpdate{
			EfUncertaintyPercent:       compliance.Round(ru.EmissionFactorUncertainty.Mid(), 2),
			ActivityUncertaintyPercent: compliance.Round(ru.ActivityDataUncertainty.Mid(), 2),
			UncertaintyPercent:         ru.CombinedPercent,
			UncertaintyLowKg:           ru.LowKg,
			UncertaintyHighKg:          ru.HighKg,
		}
		if err := s.repo.UpdateRecordUncertainty(ctx, r.ID, update); err != nil {
			return 0, fmt.Errorf("failed to update record %s: %w", r.ID, err)
		}
	}

	s.logger.Info("Record uncertainties updated",
		zap.String("assessment_id", assessmentID.String()),
		zap.Int("records", len(records)))

	return len(records), nil
}

// UpdateAssessmentUncertainty computes and stores the overall uncertainty of an assessment
func (s *Service) UpdateAssessmentUncertainty(ctx context.Context, assessmentID uuid.UUID) (*AssessmentUncertainty, error) {
	result, err := s.CalculateAssessmentUncertainty(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateAssessmentUncertainty(ctx, assessmentID, result.OverallPercent, Methodology); err != nil {
		return nil, fmt.Errorf("failed to store assessment uncertainty: %w", err)
	}

	fields := []zap.Field{
		zap.String("assessment_id", assessmentID.String()),
		zap.String("status", result.Status),
	}
	if result.OverallPercent != nil {
		fields = append(fields, zap.Float64("overall_percent", *result.OverallPercent))
	}
	s.logger.Info("Assessment uncertainty updated", fields...)

	return result, nil
}
