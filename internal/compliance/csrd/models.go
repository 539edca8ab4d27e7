package csrd

import (
	"context"
	"time"

	"github.com/google/uuid"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/compliance/esrs"
	"carbex/compliance-portal/compliance-backend/internal/compliance/materiality"
)

// EU Taxonomy placeholder shares. These are not derived from activity-level data.
const (
	TaxonomyEligibleWithRenewables    = 15.0
	TaxonomyAlignedWithRenewables     = 5.0
	TaxonomyEligibleWithoutRenewables = 10.0
	TaxonomyAlignedWithoutRenewables  = 2.0
)

// IndicatorStatus reports the mandatory ESRS datapoint status of an assessment
type IndicatorStatus interface {
	ComplianceStatus(ctx context.Context, assessmentID uuid.UUID) (*esrs.ComplianceStatus, error)
}

// MaterialityMatrix builds the double materiality matrix of an organization and year
type MaterialityMatrix interface {
	Matrix(ctx context.Context, organizationID uuid.UUID, year int, threshold float64) (*materiality.Matrix, error)
}

// TaxonomyEstimate is the EU Taxonomy eligibility and alignment estimate
type TaxonomyEstimate struct {
	EligiblePercent float64 `json:"eligible_percent"`
	AlignedPercent  float64 `json:"aligned_percent"`
	IsEstimate      bool    `json:"is_estimate"`
	Basis           string  `json:"basis"`
}

// EstimateTaxonomy returns the placeholder taxonomy shares gated on renewable energy use
func EstimateTaxonomy(hasRenewableEnergy bool) TaxonomyEstimate {
	if hasRenewableEnergy {
		return TaxonomyEstimate{
			EligiblePercent: TaxonomyEligibleWithRenewables,
			AlignedPercent:  TaxonomyAlignedWithRenewables,
			IsEstimate:      true,
			Basis:           "renewable energy sourcing",
		}
	}
	return TaxonomyEstimate{
		EligiblePercent: TaxonomyEligibleWithoutRenewables,
		AlignedPercent:  TaxonomyAlignedWithoutRenewables,
		IsEstimate:      true,
		Basis:           "no renewable energy sourcing",
	}
}

// Report is the CSRD readiness report of an organization
type Report struct {
	OrganizationID  uuid.UUID                   `json:"organization_id"`
	Year            int                         `json:"year"`
	AssessmentID    *uuid.UUID                  `json:"assessment_id"`
	Framework       compliance.Framework        `json:"framework"`
	Applicability   Applicability               `json:"applicability"`
	OverallScore    float64                     `json:"overall_score"`
	Level           compliance.Level            `json:"compliance_level"`
	Sections        []compliance.Section        `json:"sections"`
	EsrsStatus      *esrs.ComplianceStatus      `json:"esrs_status"`
	Materiality     *materiality.Matrix         `json:"materiality"`
	Taxonomy        TaxonomyEstimate            `json:"eu_taxonomy"`
	Recommendations []compliance.Recommendation `json:"recommendations"`
	GeneratedAt     time.Time                   `json:"generated_at"`
}
