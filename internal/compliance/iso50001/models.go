package iso50001

import (
	"time"

	"github.com/google/uuid"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

// SignificantUseThresholdPercent is the share of total consumption above which a use is significant
const SignificantUseThresholdPercent = 5.0

// SupportClausePlaceholderScore is reported for clause 7 until it is backed by real checks
const SupportClausePlaceholderScore = 80.0

// CertificationReadyScore is the overall score at which an EnMS is ready for certification audit
const CertificationReadyScore = 80.0

// EnPI codes
const (
	EnPITotal       = "EnPI-1"
	EnPIPerArea     = "EnPI-2"
	EnPIPerEmployee = "EnPI-3"
)

// EnergyUse is the consumption of one category within an energy review
type EnergyUse struct {
	Category      string  `json:"category"`
	Mwh           float64 `json:"mwh"`
	SharePercent  float64 `json:"share_percent"`
	IsSignificant bool    `json:"is_significant"`
}

// EnergyReview is the computed significant-energy-use review of a year
type EnergyReview struct {
	OrganizationID  uuid.UUID   `json:"organization_id"`
	Year            int         `json:"year"`
	TotalMwh        float64     `json:"total_mwh"`
	Uses            []EnergyUse `json:"uses"`
	SignificantUses []string    `json:"significant_uses"`
	SeuCount        int         `json:"seu_count"`
	RecordCount     int         `json:"record_count"`
	SkippedRecords  int         `json:"skipped_records"`
	Persisted       bool        `json:"persisted"`
}

// Report is the ISO 50001 readiness report of an organization
type Report struct {
	OrganizationID     uuid.UUID                              `json:"organization_id"`
	Year               int                                    `json:"year"`
	Framework          compliance.Framework                   `json:"framework"`
	OverallScore       float64                                `json:"overall_score"`
	Level              compliance.Level                       `json:"compliance_level"`
	CertificationReady bool                                   `json:"certification_ready"`
	Sections           []compliance.Section                   `json:"sections"`
	EnergyReview       *EnergyReview                          `json:"energy_review"`
	EnPIs              []inventory.EnergyPerformanceIndicator `json:"enpis"`
	Recommendations    []compliance.Recommendation            `json:"recommendations"`
	GeneratedAt        time.Time                              `json:"generated_at"`
}
