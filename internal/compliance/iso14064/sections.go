package iso14064

import (
	"strings"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

// evidence is everything the section checklists look at
type evidence struct {
	org           *inventory.Organization
	assessment    *inventory.Assessment
	records       []inventory.EmissionRecord
	targets       []inventory.ReductionTarget
	removals      []inventory.GhgRemoval
	verifications []inventory.GhgVerification
	inventory     Inventory
}

func criterion(id, clause, description string, met bool, priority compliance.Priority, action string) compliance.Criterion {
	return compliance.Criterion{
		ID:          id,
		Clause:      clause,
		Description: description,
		Met:         met,
		Priority:    priority,
		Action:      action,
	}
}

func hasText(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func (e evidence) hasScope(scope int) bool {
	for _, r := range e.records {
		if r.Scope == scope {
			return true
		}
	}
	return false
}

func (e evidence) allRecords(check func(inventory.EmissionRecord) bool) bool {
	if len(e.records) == 0 {
		return false
	}
	for _, r := range e.records {
		if !check(r) {
			return false
		}
	}
	return true
}

// primaryDataShare is the share of emissions backed by measured or calculated activity data
func (e evidence) primaryDataShare() float64 {
	var primary, total compliance.Accumulator
	for _, r := range e.records {
		total.Add(r.Co2eKg)
		q := inventory.DataQuality(strings.ToLower(string(r.DataQuality)))
		if q == inventory.DataQualityMeasured || q == inventory.DataQualityCalculated {
			primary.Add(r.Co2eKg)
		}
	}
	return compliance.SafeDivide(primary.Float64(), total.Float64()) * 100
}

func boundariesSection(e evidence) compliance.Section {
	validMethod := false
	switch e.org.ConsolidationMethod {
	case inventory.ConsolidationEquityShare, inventory.ConsolidationFinancialControl, inventory.ConsolidationOperationalControl:
		validMethod = true
	}

	return compliance.NewSection("organizational_boundaries", "Organizational boundaries", "5.1", []compliance.Criterion{
		criterion("5.1-consolidation", "5.1", "Consolidation approach selected", validMethod, compliance.PriorityHigh,
			"Select equity share, financial control or operational control consolidation"),
		criterion("5.1-boundary", "5.1", "Reporting boundary documented", hasText(e.org.ReportingBoundary), compliance.PriorityMedium,
			"Document the facilities and entities inside the reporting boundary"),
		criterion("5.1-inventory", "5.1", "Inventory exists for the reporting year", len(e.records) > 0, compliance.PriorityCritical,
			"Record the emission sources of the reporting year"),
	})
}

func sourcesSection(e evidence) compliance.Section {
	return compliance.NewSection("sources_and_sinks", "GHG sources and sinks", "5.2", []compliance.Criterion{
		criterion("5.2-direct", "5.2.2", "Direct emissions quantified", e.hasScope(1), compliance.PriorityCritical,
			"Quantify direct emissions from owned or controlled sources"),
		criterion("5.2-energy", "5.2.3", "Indirect emissions from imported energy quantified", e.hasScope(2), compliance.PriorityHigh,
			"Quantify emissions from purchased electricity, heat and steam"),
		criterion("5.2-indirect", "5.2.4", "Other indirect emissions assessed", e.hasScope(3), compliance.PriorityMedium,
			"Screen significant indirect emission categories"),
		criterion("5.2-removals", "5.2.5", "GHG removals accounted", len(e.removals) > 0, compliance.PriorityLow,
			"Quantify removals by sinks where they exist"),
		criterion("5.2-factors", "5.2.6", "Emission factor documented for every source",
			e.allRecords(func(r inventory.EmissionRecord) bool { return strings.TrimSpace(r.EmissionFactorSource) != "" }),
			compliance.PriorityMedium, "Document the source of each emission factor"),
	})
}

func uncertaintySection(e evidence) compliance.Section {
	assessed := e.assessment != nil && e.assessment.OverallUncertaintyPercent != nil
	documented := e.assessment != nil && hasText(e.assessment.UncertaintyMethodology)

	return compliance.NewSection("uncertainty", "Quantification uncertainty", "5.3", []compliance.Criterion{
		criterion("5.3-assessed", "5.3", "Inventory uncertainty assessed", assessed, compliance.PriorityHigh,
			"Run the uncertainty assessment for the reporting year"),
		criterion("5.3-methodology", "5.3", "Uncertainty methodology documented", documented, compliance.PriorityMedium,
			"Document the uncertainty propagation approach"),
		criterion("5.3-records", "5.3", "Uncertainty quantified per source",
			e.allRecords(func(r inventory.EmissionRecord) bool { return r.UncertaintyPercent != nil }),
			compliance.PriorityLow, "Backfill source-level uncertainty"),
		criterion("5.3-primary-data", "5.3", "Majority of emissions from measured or calculated data",
			len(e.records) > 0 && e.primaryDataShare() >= 50, compliance.PriorityMedium,
			"Replace estimated and proxy activity data with metered or invoiced data"),
	})
}

func baseYearSection(e evidence) compliance.Section {
	return compliance.NewSection("base_year", "Base year", "5.4", []compliance.Criterion{
		criterion("5.4-selected", "5.4.1", "Base year selected", e.org.BaseYear != nil, compliance.PriorityHigh,
			"Select a base year with verifiable data"),
		criterion("5.4-emissions", "5.4.1", "Base-year emissions quantified", e.org.BaseYearTotalTonnes != nil, compliance.PriorityHigh,
			"Record base-year emissions per scope"),
		criterion("5.4-policy", "5.4.2", "Base-year recalculation policy documented", hasText(e.org.RecalculationPolicy), compliance.PriorityMedium,
			"Document when the base year is recalculated"),
		criterion("5.4-threshold", "5.4.2", "Significance threshold defined", e.org.RecalculationThresholdPercent != nil, compliance.PriorityLow,
			"Define the significance threshold for recalculation"),
	})
}

func qualitySection(e evidence) compliance.Section {
	complete := e.assessment != nil && e.assessment.CompletenessPercent != nil && *e.assessment.CompletenessPercent >= 95
	hasTarget := false
	for _, t := range e.targets {
		if t.IsOpen(e.inventory.Year) {
			hasTarget = true
			break
		}
	}

	return compliance.NewSection("quality_management", "Inventory quality management", "6", []compliance.Criterion{
		criterion("6-data-quality", "6.2", "Data quality tier recorded for every source",
			e.allRecords(func(r inventory.EmissionRecord) bool { return strings.TrimSpace(string(r.DataQuality)) != "" }),
			compliance.PriorityMedium, "Classify the activity data quality of each source"),
		criterion("6-completeness", "6.2", "Inventory at least 95% complete", complete, compliance.PriorityMedium,
			"Close data gaps until the inventory is at least 95% complete"),
		criterion("6-targets", "6.3", "Reduction target defined", hasTarget, compliance.PriorityMedium,
			"Define a GHG reduction target"),
	})
}

func verificationSection(e evidence) compliance.Section {
	var engaged, accredited, completed, reasonable bool
	for _, v := range e.verifications {
		engaged = true
		accredited = accredited || v.IsAccredited
		if v.Status == inventory.VerificationCompleted {
			completed = true
			reasonable = reasonable || v.AssuranceLevel == inventory.AssuranceReasonable
		}
	}

	return compliance.NewSection("verification", "Verification", "7", []compliance.Criterion{
		criterion("7-engaged", "7", "Verification engagement planned", engaged, compliance.PriorityHigh,
			"Engage a third-party verifier for the inventory"),
		criterion("7-accredited", "7", "Verifier accredited", accredited, compliance.PriorityMedium,
			"Use an ISO 14065 accredited verification body"),
		criterion("7-completed", "7", "Verification completed", completed, compliance.PriorityHigh,
			"Complete the verification and obtain an opinion"),
		criterion("7-reasonable", "7", "Reasonable assurance obtained", reasonable, compliance.PriorityLow,
			"Move from limited to reasonable assurance"),
	})
}

func buildSections(e evidence) []compliance.Section {
	return []compliance.Section{
		boundariesSection(e),
		sourcesSection(e),
		uncertaintySection(e),
		baseYearSection(e),
		qualitySection(e),
		verificationSection(e),
	}
}
