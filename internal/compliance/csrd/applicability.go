package csrd

import (
	"fmt"

	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

// Size thresholds of a large undertaking
const (
	BalanceSheetThresholdEur  = 25_000_000.0
	TurnoverThresholdEur      = 50_000_000.0
	EmployeeThreshold         = 250
	LargePIEEmployeeThreshold = 500
	LargeCriteriaRequired     = 2
)

// First reporting years per wave
const (
	ReportingYearLargePIE  = 2024
	ReportingYearLarge     = 2025
	ReportingYearListedSME = 2026
)

// Category is the CSRD wave an organization falls into
type Category string

const (
	CategoryLargePIE      Category = "large_public_interest_entity"
	CategoryLarge         Category = "large_undertaking"
	CategoryListedSME     Category = "listed_sme"
	CategoryNotApplicable Category = "not_applicable"
)

// SizeCriterion is one of the three size tests
type SizeCriterion struct {
	Name      string   `json:"name"`
	Threshold float64  `json:"threshold"`
	Value     *float64 `json:"value"`
	Met       bool     `json:"met"`
}

// Applicability is the outcome of the CSRD scope test
type Applicability struct {
	Category           Category        `json:"category"`
	IsApplicable       bool            `json:"is_applicable"`
	IsLargeUndertaking bool            `json:"is_large_undertaking"`
	CriteriaMet        int             `json:"criteria_met"`
	Criteria           []SizeCriterion `json:"criteria"`
	ReportingFromYear  *int            `json:"reporting_from_year"`
	Reason             string          `json:"reason"`
}

func sizeCriterion(name string, threshold float64, value *float64) SizeCriterion {
	return SizeCriterion{
		Name:      name,
		Threshold: threshold,
		Value:     value,
		Met:       value != nil && *value >= threshold,
	}
}

// DetermineApplicability decides whether and from which year an organization reports under CSRD.
// Missing financial or headcount data counts as not meeting that criterion.
func DetermineApplicability(org *inventory.Organization) Applicability {
	var employees *float64
	if org.EmployeeCount != nil {
		e := float64(*org.EmployeeCount)
		employees = &e
	}

	a := Applicability{
		Criteria: []SizeCriterion{
			sizeCriterion("balance_sheet_eur", BalanceSheetThresholdEur, org.BalanceSheetEur),
			sizeCriterion("turnover_eur", TurnoverThresholdEur, org.AnnualTurnoverEur),
			sizeCriterion("employees", EmployeeThreshold, employees),
		},
	}
	for _, c := range a.Criteria {
		if c.Met {
			a.CriteriaMet++
		}
	}
	a.IsLargeUndertaking = a.CriteriaMet >= LargeCriteriaRequired

	year := 0
	switch {
	case a.IsLargeUndertaking && org.IsPublicInterestEntity && employees != nil && *employees > LargePIEEmployeeThreshold:
		a.Category, year = CategoryLargePIE, ReportingYearLargePIE
		a.Reason = fmt.Sprintf("large public-interest entity with more than %d employees", LargePIEEmployeeThreshold)
	case a.IsLargeUndertaking:
		a.Category, year = CategoryLarge, ReportingYearLarge
		a.Reason = fmt.Sprintf("meets %d of 3 large undertaking criteria", a.CriteriaMet)
	case org.IsListed:
		a.Category, year = CategoryListedSME, ReportingYearListedSME
		a.Reason = "listed small or medium-sized undertaking"
	default:
		a.Category = CategoryNotApplicable
		a.Reason = fmt.Sprintf("meets %d of 3 large undertaking criteria and is not listed", a.CriteriaMet)
	}

	if year > 0 {
		a.IsApplicable = true
		a.ReportingFromYear = &year
	}
	return a
}
