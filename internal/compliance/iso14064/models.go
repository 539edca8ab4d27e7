package iso14064

import (
	"time"

	"github.com/google/uuid"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
)

// CategoryTotal is the emissions of one category within a scope
type CategoryTotal struct {
	Scope    int     `json:"scope"`
	Category string  `json:"category"`
	Tonnes   float64 `json:"tonnes"`
}

// Summary is the headline view of an inventory
type Summary struct {
	TotalKg       float64 `json:"total_kg"`
	TotalTonnes   float64 `json:"total_tonnes"`
	Scope1Percent int     `json:"scope1_percent"`
	Scope2Percent int     `json:"scope2_percent"`
	Scope3Percent int     `json:"scope3_percent"`
}

// Inventory is the ISO 14064-1 GHG inventory of an organization and year
type Inventory struct {
	OrganizationID        uuid.UUID          `json:"organization_id"`
	Year                  int                `json:"year"`
	RecordCount           int                `json:"record_count"`
	Scope1Tonnes          float64            `json:"scope1_tonnes"`
	Scope2Tonnes          float64            `json:"scope2_tonnes"`
	Scope2MarketTonnes    float64            `json:"scope2_market_tonnes"`
	Scope3Tonnes          float64            `json:"scope3_tonnes"`
	GrossTonnes           float64            `json:"gross_tonnes"`
	Categories            []CategoryTotal    `json:"categories"`
	RemovalsTonnes        float64            `json:"removals_tonnes"`
	RemovalsByType        map[string]float64 `json:"removals_by_type"`
	NetTonnes             float64            `json:"net_tonnes"`
	IsCarbonNeutral       bool               `json:"is_carbon_neutral"`
	OffsetCoveragePercent float64            `json:"offset_coverage_percent"`
	Summary               Summary            `json:"summary"`
}

// NetEmissions contrasts verified removals with removals that qualify for net zero claims
type NetEmissions struct {
	OrganizationID           uuid.UUID `json:"organization_id"`
	Year                     int       `json:"year"`
	GrossTonnes              float64   `json:"gross_tonnes"`
	VerifiedRemovalsTonnes   float64   `json:"verified_removals_tonnes"`
	QualifyingRemovalsTonnes float64   `json:"qualifying_removals_tonnes"`
	NetTonnes                float64   `json:"net_tonnes"`
	NetZeroTonnes            float64   `json:"net_zero_tonnes"`
	IsCarbonNeutral          bool      `json:"is_carbon_neutral"`
	IsNetZero                bool      `json:"is_net_zero"`
	RemovalCount             int       `json:"removal_count"`
	QualifyingCount          int       `json:"qualifying_count"`
}

// MinPermanenceYears is the storage duration a removal needs to count towards net zero
const MinPermanenceYears = 100

// RecalculationEvent is a change that may trigger a base-year recalculation
type RecalculationEvent string

const (
	EventStructuralChange     RecalculationEvent = "structural_change"
	EventBoundaryChange       RecalculationEvent = "boundary_change"
	EventAcquisition          RecalculationEvent = "acquisition"
	EventDivestment           RecalculationEvent = "divestment"
	EventMerger               RecalculationEvent = "merger"
	EventOutsourcing          RecalculationEvent = "outsourcing"
	EventInsourcing           RecalculationEvent = "insourcing"
	EventMethodologyChange    RecalculationEvent = "methodology_change"
	EventEmissionFactorUpdate RecalculationEvent = "emission_factor_update"
	EventErrorCorrection      RecalculationEvent = "error_correction"
)

var structuralEvents = map[RecalculationEvent]bool{
	EventStructuralChange: true,
	EventBoundaryChange:   true,
	EventAcquisition:      true,
	EventDivestment:       true,
	EventMerger:           true,
	EventOutsourcing:      true,
	EventInsourcing:       true,
}

// IsStructural reports whether an event always triggers a recalculation
func (e RecalculationEvent) IsStructural() bool {
	return structuralEvents[e]
}

// RecalculationRequest describes a change to evaluate
type RecalculationRequest struct {
	Event         RecalculationEvent `json:"event" binding:"required"`
	ChangePercent float64            `json:"change_percent"`
}

// RecalculationCheck is the outcome of a base-year recalculation check
type RecalculationCheck struct {
	Event            RecalculationEvent `json:"event"`
	ChangePercent    float64            `json:"change_percent"`
	ThresholdPercent float64            `json:"threshold_percent"`
	Required         bool               `json:"recalculation_required"`
	Reason           string             `json:"reason"`
}

// BaseYearRequest sets an organization's base year. Omitting every scope value
// computes them from that year's inventory.
type BaseYearRequest struct {
	Year                int      `json:"year" binding:"required"`
	Scope1Tonnes        *float64 `json:"scope1_tonnes"`
	Scope2Tonnes        *float64 `json:"scope2_tonnes"`
	Scope3Tonnes        *float64 `json:"scope3_tonnes"`
	RecalculationPolicy string   `json:"recalculation_policy"`
	ThresholdPercent    *float64 `json:"threshold_percent"`
}

// BaseYear is the stored base year of an organization
type BaseYear struct {
	OrganizationID      uuid.UUID `json:"organization_id"`
	Year                int       `json:"year"`
	Scope1Tonnes        float64   `json:"scope1_tonnes"`
	Scope2Tonnes        float64   `json:"scope2_tonnes"`
	Scope3Tonnes        float64   `json:"scope3_tonnes"`
	TotalTonnes         float64   `json:"total_tonnes"`
	RecalculationPolicy string    `json:"recalculation_policy,omitempty"`
	ThresholdPercent    float64   `json:"threshold_percent"`
	FromInventory       bool      `json:"from_inventory"`
}

// Report is the ISO 14064-1 conformity report of an organization and year
type Report struct {
	OrganizationID  uuid.UUID                   `json:"organization_id"`
	Year            int                         `json:"year"`
	Framework       compliance.Framework        `json:"framework"`
	OverallScore    float64                     `json:"overall_score"`
	Level           compliance.Level            `json:"compliance_level"`
	Sections        []compliance.Section        `json:"sections"`
	Inventory       *Inventory                  `json:"inventory"`
	Recommendations []compliance.Recommendation `json:"recommendations"`
	GeneratedAt     time.Time                   `json:"generated_at"`
}
