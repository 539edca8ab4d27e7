package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =====================================================
// Enums and Constants
// =====================================================

// ConsolidationMethod is the GHG Protocol organizational boundary approach
type ConsolidationMethod string

const (
	ConsolidationEquityShare        ConsolidationMethod = "equity_share"
	ConsolidationFinancialControl   ConsolidationMethod = "financial_control"
	ConsolidationOperationalControl ConsolidationMethod = "operational_control"
)

// Scope2Method distinguishes location-based from market-based scope 2 accounting
type Scope2Method string

const (
	Scope2Location Scope2Method = "location"
	Scope2Market   Scope2Method = "market"
)

// DataQuality is the activity data quality tier of an emission record
type DataQuality string

const (
	DataQualityMeasured   DataQuality = "measured"
	DataQualityCalculated DataQuality = "calculated"
	DataQualityEstimated  DataQuality = "estimated"
	DataQualityProxy      DataQuality = "proxy"
)

// TargetStatus represents the lifecycle of a reduction target
type TargetStatus string

const (
	TargetStatusActive    TargetStatus = "active"
	TargetStatusAchieved  TargetStatus = "achieved"
	TargetStatusAbandoned TargetStatus = "abandoned"
)

// VerificationStatus represents the state of a third-party verification
type VerificationStatus string

const (
	VerificationPlanned    VerificationStatus = "planned"
	VerificationInProgress VerificationStatus = "in_progress"
	VerificationCompleted  VerificationStatus = "completed"
)

// AssuranceLevel of a verification engagement
type AssuranceLevel string

const (
	AssuranceLimited    AssuranceLevel = "limited"
	AssuranceReasonable AssuranceLevel = "reasonable"
)

// AuditStatus represents the state of an energy audit
type AuditStatus string

const (
	AuditPlanned   AuditStatus = "planned"
	AuditCompleted AuditStatus = "completed"
)

// =====================================================
// Organization and Assessment
// =====================================================

// Organization is a tenant together with its static compliance attributes
type Organization struct {
	ID                            uuid.UUID           `json:"id" db:"id"`
	Name                          string              `json:"name" db:"name"`
	Country                       string              `json:"country" db:"country"`
	Sector                        string              `json:"sector" db:"sector"`
	ConsolidationMethod           ConsolidationMethod `json:"consolidation_method" db:"consolidation_method"`
	ReportingBoundary             *string             `json:"reporting_boundary,omitempty" db:"reporting_boundary"`
	BaseYear                      *int                `json:"base_year,omitempty" db:"base_year"`
	BaseYearScope1Tonnes          *float64            `json:"base_year_scope1_tonnes,omitempty" db:"base_year_scope1_tonnes"`
	BaseYearScope2Tonnes          *float64            `json:"base_year_scope2_tonnes,omitempty" db:"base_year_scope2_tonnes"`
	BaseYearScope3Tonnes          *float64            `json:"base_year_scope3_tonnes,omitempty" db:"base_year_scope3_tonnes"`
	BaseYearTotalTonnes           *float64            `json:"base_year_total_tonnes,omitempty" db:"base_year_total_tonnes"`
	RecalculationPolicy           *string             `json:"recalculation_policy,omitempty" db:"recalculation_policy"`
	RecalculationThresholdPercent *float64            `json:"recalculation_threshold_percent,omitempty" db:"recalculation_threshold_percent"`
	EnergyPolicy                  *string             `json:"energy_policy,omitempty" db:"energy_policy"`
	EnergyPolicyApprovedAt        *time.Time          `json:"energy_policy_approved_at,omitempty" db:"energy_policy_approved_at"`
	EnergyManagementScope         *string             `json:"energy_management_scope,omitempty" db:"energy_management_scope"`
	EnergyManagerName             *string             `json:"energy_manager_name,omitempty" db:"energy_manager_name"`
	LastManagementReviewAt        *time.Time          `json:"last_management_review_at,omitempty" db:"last_management_review_at"`
	FloorAreaM2                   *float64            `json:"floor_area_m2,omitempty" db:"floor_area_m2"`
	AnnualTurnoverEur             *float64            `json:"annual_turnover_eur,omitempty" db:"annual_turnover_eur"`
	BalanceSheetEur               *float64            `json:"balance_sheet_eur,omitempty" db:"balance_sheet_eur"`
	EmployeeCount                 *int                `json:"employee_count,omitempty" db:"employee_count"`
	IsListed                      bool                `json:"is_listed" db:"is_listed"`
	IsPublicInterestEntity        bool                `json:"is_public_interest_entity" db:"is_public_interest_entity"`
	HasRenewableEnergy            bool                `json:"has_renewable_energy" db:"has_renewable_energy"`
	Iso50001CertifiedAt           *time.Time          `json:"iso50001_certified_at,omitempty" db:"iso50001_certified_at"`
	CreatedAt                     time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt                     time.Time           `json:"updated_at" db:"updated_at"`
}

// DefaultRecalculationThresholdPercent applies when an organization has no explicit threshold
const DefaultRecalculationThresholdPercent = 5.0

// RecalculationThreshold returns the base-year recalculation significance threshold
func (o *Organization) RecalculationThreshold() float64 {
	if o.RecalculationThresholdPercent == nil || *o.RecalculationThresholdPercent <= 0 {
		return DefaultRecalculationThresholdPercent
	}
	return *o.RecalculationThresholdPercent
}

// Assessment is a GHG inventory snapshot for one organization and year
type Assessment struct {
	ID                        uuid.UUID `json:"id" db:"id"`
	OrganizationID            uuid.UUID `json:"organization_id" db:"organization_id"`
	Year                      int       `json:"year" db:"year"`
	Status                    string    `json:"status" db:"status"`
	RevenueEur                *float64  `json:"revenue_eur,omitempty" db:"revenue_eur"`
	EmployeeFTE               *float64  `json:"employee_fte,omitempty" db:"employee_fte"`
	OverallUncertaintyPercent *float64  `json:"overall_uncertainty_percent,omitempty" db:"overall_uncertainty_percent"`
	UncertaintyMethodology    *string   `json:"uncertainty_methodology,omitempty" db:"uncertainty_methodology"`
	CompletenessPercent       *float64  `json:"completeness_percent,omitempty" db:"completeness_percent"`
	CreatedAt                 time.Time `json:"created_at" db:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at" db:"updated_at"`
}

// =====================================================
// Emission Records
// =====================================================

// EmissionRecord is a single activity x factor emission line
type EmissionRecord struct {
	ID                         uuid.UUID    `json:"id" db:"id"`
	OrganizationID             uuid.UUID    `json:"organization_id" db:"organization_id"`
	AssessmentID               *uuid.UUID   `json:"assessment_id,omitempty" db:"assessment_id"`
	Year                       int          `json:"year" db:"year"`
	Scope                      int          `json:"scope" db:"scope"`
	Category                   string       `json:"category" db:"category"`
	SourceType                 string       `json:"source_type" db:"source_type"`
	Scope3Category             *int         `json:"scope3_category,omitempty" db:"scope3_category"`
	Scope2Method               Scope2Method `json:"scope2_method,omitempty" db:"scope2_method"`
	Quantity                   float64      `json:"quantity" db:"quantity"`
	Unit                       string       `json:"unit" db:"unit"`
	EmissionFactor             float64      `json:"emission_factor" db:"emission_factor"`
	EmissionFactorSource       string       `json:"emission_factor_source" db:"emission_factor_source"`
	Co2eKg                     float64      `json:"co2e_kg" db:"co2e_kg"`
	DataQuality                DataQuality  `json:"data_quality" db:"data_quality"`
	IsRenewable                bool         `json:"is_renewable" db:"is_renewable"`
	EfUncertaintyPercent       *float64     `json:"ef_uncertainty_percent,omitempty" db:"ef_uncertainty_percent"`
	ActivityUncertaintyPercent *float64     `json:"activity_uncertainty_percent,omitempty" db:"activity_uncertainty_percent"`
	UncertaintyPercent         *float64     `json:"uncertainty_percent,omitempty" db:"uncertainty_percent"`
	UncertaintyLowKg           *float64     `json:"uncertainty_low_kg,omitempty" db:"uncertainty_low_kg"`
	UncertaintyHighKg          *float64     `json:"uncertainty_high_kg,omitempty" db:"uncertainty_high_kg"`
	CreatedAt                  time.Time    `json:"created_at" db:"created_at"`
}

// IsMarketBased reports whether a scope 2 record uses the market-based method
func (r *EmissionRecord) IsMarketBased() bool {
	return strings.EqualFold(string(r.Scope2Method), string(Scope2Market))
}

// EnergyRecords picks the scope 2 records that carry consumption. Location-based lines are
// preferred so dual-reported electricity is not counted twice.
func EnergyRecords(records []EmissionRecord) []EmissionRecord {
	var location, market []EmissionRecord
	for _, r := range records {
		if r.Scope != 2 {
			continue
		}
		if r.IsMarketBased() {
			market = append(market, r)
		} else {
			location = append(location, r)
		}
	}
	if len(location) > 0 {
		return location
	}
	return market
}

// RecordUncertaintyUpdate holds the uncertainty fields backfilled onto an emission record
type RecordUncertaintyUpdate struct {
	EfUncertaintyPercent       float64 `db:"ef_uncertainty_percent"`
	ActivityUncertaintyPercent float64 `db:"activity_uncertainty_percent"`
	UncertaintyPercent         float64 `db:"uncertainty_percent"`
	UncertaintyLowKg           float64 `db:"uncertainty_low_kg"`
	UncertaintyHighKg          float64 `db:"uncertainty_high_kg"`
}

// EmissionFilter narrows emission record queries
type EmissionFilter struct {
	OrganizationID *uuid.UUID
	AssessmentID   *uuid.UUID
	Year           *int
	Scope          *int
}

// =====================================================
// Targets, Removals, Verifications
// =====================================================

// ReductionTarget is an emission reduction commitment
type ReductionTarget struct {
	ID                      uuid.UUID    `json:"id" db:"id"`
	OrganizationID          uuid.UUID    `json:"organization_id" db:"organization_id"`
	Name                    string       `json:"name" db:"name"`
	Scope                   string       `json:"scope" db:"scope"`
	BaselineYear            int          `json:"baseline_year" db:"baseline_year"`
	BaselineEmissionsTonnes float64      `json:"baseline_emissions_tonnes" db:"baseline_emissions_tonnes"`
	TargetYear              int          `json:"target_year" db:"target_year"`
	TargetReductionPercent  float64      `json:"target_reduction_percent" db:"target_reduction_percent"`
	IsSbtiValidated         bool         `json:"is_sbti_validated" db:"is_sbti_validated"`
	Status                  TargetStatus `json:"status" db:"status"`
	CreatedAt               time.Time    `json:"created_at" db:"created_at"`
}

// IsOpen reports whether the target is still being pursued in the given year
func (t *ReductionTarget) IsOpen(year int) bool {
	if t.Status != "" && t.Status != TargetStatusActive {
		return false
	}
	return t.TargetYear >= year
}

// GhgRemoval is a quantity of greenhouse gas removed or sequestered, in tonnes
type GhgRemoval struct {
	ID                     uuid.UUID `json:"id" db:"id"`
	OrganizationID         uuid.UUID `json:"organization_id" db:"organization_id"`
	Year                   int       `json:"year" db:"year"`
	RemovalType            string    `json:"removal_type" db:"removal_type"`
	Description            string    `json:"description" db:"description"`
	QuantityTonnes         float64   `json:"quantity_tonnes" db:"quantity_tonnes"`
	IsVerified             bool      `json:"is_verified" db:"is_verified"`
	AdditionalityConfirmed bool      `json:"additionality_confirmed" db:"additionality_confirmed"`
	PermanenceYears        *int      `json:"permanence_years,omitempty" db:"permanence_years"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
}

// GhgVerification is a third-party verification engagement for an inventory year
type GhgVerification struct {
	ID             uuid.UUID          `json:"id" db:"id"`
	OrganizationID uuid.UUID          `json:"organization_id" db:"organization_id"`
	Year           int                `json:"year" db:"year"`
	VerifierName   string             `json:"verifier_name" db:"verifier_name"`
	IsAccredited   bool               `json:"is_accredited" db:"is_accredited"`
	AssuranceLevel AssuranceLevel     `json:"assurance_level" db:"assurance_level"`
	Status         VerificationStatus `json:"status" db:"status"`
	Opinion        *string            `json:"opinion,omitempty" db:"opinion"`
	VerifiedAt     *time.Time         `json:"verified_at,omitempty" db:"verified_at"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
}

// =====================================================
// Energy Management
// =====================================================

// EnergyBaseline is the reference energy performance for an organization
type EnergyBaseline struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	BaselineYear   int       `json:"baseline_year" db:"baseline_year"`
	TotalMwh       float64   `json:"total_mwh" db:"total_mwh"`
	MwhPerM2       *float64  `json:"mwh_per_m2,omitempty" db:"mwh_per_m2"`
	MwhPerEmployee *float64  `json:"mwh_per_employee,omitempty" db:"mwh_per_employee"`
	IsCurrent      bool      `json:"is_current" db:"is_current"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// EnergyReview is the yearly significant-energy-use review
type EnergyReview struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Year           int       `json:"year" db:"year"`
	TotalMwh       float64   `json:"total_mwh" db:"total_mwh"`
	SeuCount       int       `json:"seu_count" db:"seu_count"`
	ReviewedAt     time.Time `json:"reviewed_at" db:"reviewed_at"`
}

// EnergyPerformanceIndicator is a stored EnPI value for a year
type EnergyPerformanceIndicator struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	OrganizationID     uuid.UUID `json:"organization_id" db:"organization_id"`
	Year               int       `json:"year" db:"year"`
	Code               string    `json:"code" db:"code"`
	Name               string    `json:"name" db:"name"`
	Unit               string    `json:"unit" db:"unit"`
	Value              float64   `json:"value" db:"value"`
	BaselineValue      *float64  `json:"baseline_value,omitempty" db:"baseline_value"`
	ImprovementPercent *float64  `json:"improvement_percent,omitempty" db:"improvement_percent"`
	CalculatedAt       time.Time `json:"calculated_at" db:"calculated_at"`
}

// EnergyTarget is an ISO 50001 energy objective
type EnergyTarget struct {
	ID                     uuid.UUID    `json:"id" db:"id"`
	OrganizationID         uuid.UUID    `json:"organization_id" db:"organization_id"`
	TargetYear             int          `json:"target_year" db:"target_year"`
	TargetReductionPercent float64      `json:"target_reduction_percent" db:"target_reduction_percent"`
	HasActionPlan          bool         `json:"has_action_plan" db:"has_action_plan"`
	Status                 TargetStatus `json:"status" db:"status"`
}

// EnergyAudit is an internal or external EnMS audit
type EnergyAudit struct {
	ID                    uuid.UUID   `json:"id" db:"id"`
	OrganizationID        uuid.UUID   `json:"organization_id" db:"organization_id"`
	AuditDate             time.Time   `json:"audit_date" db:"audit_date"`
	AuditType             string      `json:"audit_type" db:"audit_type"`
	Status                AuditStatus `json:"status" db:"status"`
	NonconformitiesOpen   int         `json:"nonconformities_open" db:"nonconformities_open"`
	NonconformitiesClosed int         `json:"nonconformities_closed" db:"nonconformities_closed"`
}
