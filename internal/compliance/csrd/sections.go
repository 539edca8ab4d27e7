package csrd

import (
	"strings"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/compliance/esrs"
	"carbex/compliance-portal/compliance-backend/internal/compliance/materiality"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

// Net-zero targets reduce at least this share by 2050
const (
	NetZeroReductionPercent = 90.0
	NetZeroYear             = 2050
)

type evidence struct {
	year          int
	org           *inventory.Organization
	assessment    *inventory.Assessment
	records       []inventory.EmissionRecord
	targets       []inventory.ReductionTarget
	verifications []inventory.GhgVerification
	status        *esrs.ComplianceStatus
	matrix        *materiality.Matrix
	taxonomy      TaxonomyEstimate
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

func (e evidence) has(check func(inventory.EmissionRecord) bool) bool {
	for _, r := range e.records {
		if check(r) {
			return true
		}
	}
	return false
}

func materialitySection(e evidence) compliance.Section {
	m := e.matrix
	climateAssessed := false
	for _, p := range m.Points {
		if p.TopicCode == "E1" && p.IsAssessed {
			climateAssessed = true
		}
	}

	return compliance.NewSection("double_materiality", "Double materiality assessment", "ESRS 1 §3", []compliance.Criterion{
		criterion("dma-complete", "ESRS 1 §3.4", "All sustainability topics assessed", m.CompletionPercent >= 100, compliance.PriorityCritical,
			"Score impact and financial materiality for every ESRS topic"),
		criterion("dma-climate", "ESRS 1 §3.4", "Climate change topic assessed", climateAssessed, compliance.PriorityHigh,
			"Assess the materiality of climate change (E1)"),
		criterion("dma-material", "ESRS 1 §3.5", "Material topics identified", m.MaterialCount > 0, compliance.PriorityHigh,
			"Run the materiality calculation to identify material topics"),
		criterion("dma-approved", "ESRS 1 §3.7", "Assessed topics approved by a second reviewer",
			m.AssessedCount > 0 && m.ApprovedCount == m.AssessedCount, compliance.PriorityMedium,
			"Have a second person approve every assessed topic"),
	})
}

func indicatorSection(e evidence) compliance.Section {
	completed := map[string]bool{}
	if e.status != nil {
		for _, code := range e.status.Completed {
			completed[code] = true
		}
	}

	criteria := make([]compliance.Criterion, 0, len(esrs.Definitions))
	for _, def := range esrs.MandatoryDefinitions() {
		criteria = append(criteria, criterion(def.Code, def.Disclosure, def.Name, completed[def.Code], compliance.PriorityHigh, def.Action))
	}
	return compliance.NewSection("esrs_e1_indicators", "ESRS E1 mandatory datapoints", "ESRS E1", criteria)
}

func emissionsSection(e evidence) compliance.Section {
	uncertainty := e.assessment != nil && e.assessment.OverallUncertaintyPercent != nil

	return compliance.NewSection("ghg_emissions", "GHG emissions", "ESRS E1-6", []compliance.Criterion{
		criterion("e1-6-scope1", "E1-6", "Scope 1 emissions reported",
			e.has(func(r inventory.EmissionRecord) bool { return r.Scope == 1 }), compliance.PriorityCritical,
			"Record direct emissions from owned sources"),
		criterion("e1-6-scope2-location", "E1-6", "Location-based scope 2 emissions reported",
			e.has(func(r inventory.EmissionRecord) bool { return r.Scope == 2 && !r.IsMarketBased() }), compliance.PriorityCritical,
			"Record purchased energy with grid-average factors"),
		criterion("e1-6-scope2-market", "E1-6", "Market-based scope 2 emissions reported",
			e.has(func(r inventory.EmissionRecord) bool { return r.Scope == 2 && r.IsMarketBased() }), compliance.PriorityMedium,
			"Record purchased energy with supplier-specific factors"),
		criterion("e1-6-scope3", "E1-6", "Significant scope 3 categories reported",
			e.has(func(r inventory.EmissionRecord) bool { return r.Scope == 3 }), compliance.PriorityHigh,
			"Screen and record significant scope 3 categories"),
		criterion("e1-6-uncertainty", "ESRS 1 §7.2", "Inventory uncertainty assessed", uncertainty, compliance.PriorityLow,
			"Run the uncertainty assessment for the inventory"),
	})
}

func targetsSection(e evidence) compliance.Section {
	var open, validated, covers2030, netZero bool
	for i := range e.targets {
		t := &e.targets[i]
		if !t.IsOpen(e.year) {
			continue
		}
		open = true
		validated = validated || t.IsSbtiValidated
		covers2030 = covers2030 || t.TargetYear <= 2030
		netZero = netZero || (t.TargetYear <= NetZeroYear && t.TargetReductionPercent >= NetZeroReductionPercent)
	}

	return compliance.NewSection("targets_transition_plan", "Targets and transition plan", "ESRS E1-1/E1-4", []compliance.Criterion{
		criterion("e1-4-target", "E1-4", "Emission reduction target set", open, compliance.PriorityCritical,
			"Set an absolute emission reduction target"),
		criterion("e1-4-2030", "E1-4", "Target covers 2030", covers2030, compliance.PriorityHigh,
			"Add an interim 2030 reduction target"),
		criterion("e1-1-netzero", "E1-1", "Net-zero target aligned with 2050", netZero, compliance.PriorityMedium,
			"Commit to a net-zero target of at least 90 % reduction by 2050"),
		criterion("e1-4-sbti", "E1-4", "Target validated by SBTi", validated, compliance.PriorityLow,
			"Submit the target for Science Based Targets initiative validation"),
		criterion("e1-1-baseyear", "E1-1", "Base year defined", e.org.BaseYear != nil, compliance.PriorityHigh,
			"Set the base year of the transition plan"),
	})
}

func taxonomySection(e evidence) compliance.Section {
	return compliance.NewSection("eu_taxonomy", "EU Taxonomy", "Article 8", []compliance.Criterion{
		criterion("tax-eligible", "Art. 8", "Taxonomy-eligible share reported", e.taxonomy.EligiblePercent > 0, compliance.PriorityMedium,
			"Report the taxonomy-eligible share of turnover"),
		criterion("tax-activity", "Art. 8", "Taxonomy alignment based on activity-level data", !e.taxonomy.IsEstimate, compliance.PriorityHigh,
			"Replace the eligibility estimate with an activity-level alignment assessment"),
		criterion("tax-renewables", "Art. 8", "Renewable energy in the energy mix", e.org.HasRenewableEnergy, compliance.PriorityMedium,
			"Source renewable electricity to raise the aligned share"),
	})
}

func assuranceSection(e evidence) compliance.Section {
	var completed, accredited bool
	for _, v := range e.verifications {
		if v.Status != inventory.VerificationCompleted {
			continue
		}
		completed = true
		accredited = accredited || v.IsAccredited
	}

	var primary, total compliance.Accumulator
	for _, r := range e.records {
		total.Add(r.Co2eKg)
		q := inventory.DataQuality(strings.ToLower(string(r.DataQuality)))
		if q == inventory.DataQualityMeasured || q == inventory.DataQualityCalculated {
			primary.Add(r.Co2eKg)
		}
	}
	primaryShare := compliance.SafeDivide(primary.Float64(), total.Float64()) * 100

	return compliance.NewSection("assurance_data_quality", "Assurance and data quality", "CSRD Art. 34", []compliance.Criterion{
		criterion("assurance-limited", "Art. 34", "Limited assurance obtained", completed, compliance.PriorityCritical,
			"Engage an assurance provider for limited assurance"),
		criterion("assurance-accredited", "Art. 34", "Assurance provider accredited", accredited, compliance.PriorityMedium,
			"Use an accredited assurance provider"),
		criterion("data-primary", "ESRS 1 §7.1", "Majority of emissions from primary data", primaryShare >= 50, compliance.PriorityMedium,
			"Replace estimates and proxies with measured or calculated activity data"),
	})
}

func buildSections(e evidence) []compliance.Section {
	return []compliance.Section{
		materialitySection(e),
		indicatorSection(e),
		emissionsSection(e),
		targetsSection(e),
		taxonomySection(e),
		assuranceSection(e),
	}
}
