package iso50001

import (
	"strings"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

type evidence struct {
	year         int
	org          *inventory.Organization
	records      []inventory.EmissionRecord
	review       EnergyReview
	storedReview *inventory.EnergyReview
	baseline     *inventory.EnergyBaseline
	enpis        []inventory.EnergyPerformanceIndicator
	targets      []inventory.EnergyTarget
	audits       []inventory.EnergyAudit
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

func (e evidence) recentYear(year int) bool {
	return year >= e.year-1 && year <= e.year
}

func (e evidence) enpi(code string) *inventory.EnergyPerformanceIndicator {
	for i := range e.enpis {
		if e.enpis[i].Code == code {
			return &e.enpis[i]
		}
	}
	return nil
}

func contextClause(e evidence) compliance.Section {
	return compliance.NewSection("context", "Context of the organization", "4", []compliance.Criterion{
		criterion("4.3-scope", "4.3", "EnMS scope and boundaries defined", hasText(e.org.EnergyManagementScope), compliance.PriorityHigh,
			"Define the scope and boundaries of the energy management system"),
		criterion("4.1-context", "4.1", "Organizational context recorded",
			strings.TrimSpace(e.org.Sector) != "" && strings.TrimSpace(e.org.Country) != "", compliance.PriorityLow,
			"Record the sector and country of operation"),
		criterion("4.4-data", "4.4", "Energy consumption data available", e.review.TotalMwh > 0, compliance.PriorityHigh,
			"Record energy consumption with energy units"),
	})
}

func leadershipClause(e evidence) compliance.Section {
	return compliance.NewSection("leadership", "Leadership", "5", []compliance.Criterion{
		criterion("5.2-policy", "5.2", "Energy policy documented", hasText(e.org.EnergyPolicy), compliance.PriorityCritical,
			"Document an energy policy committing to continual improvement"),
		criterion("5.2-approved", "5.2", "Energy policy approved by top management", e.org.EnergyPolicyApprovedAt != nil, compliance.PriorityHigh,
			"Have top management approve the energy policy"),
		criterion("5.3-manager", "5.3", "Energy management team appointed", hasText(e.org.EnergyManagerName), compliance.PriorityHigh,
			"Appoint an energy manager with defined responsibilities"),
	})
}

func planningClause(e evidence) compliance.Section {
	planned := false
	for _, t := range e.targets {
		if t.TargetYear >= e.year && t.HasActionPlan && (t.Status == "" || t.Status == inventory.TargetStatusActive) {
			planned = true
			break
		}
	}

	return compliance.NewSection("planning", "Planning", "6", []compliance.Criterion{
		criterion("6.3-review", "6.3", "Energy review performed for the year", e.storedReview != nil, compliance.PriorityHigh,
			"Perform and record the energy review"),
		criterion("6.5-enpi", "6.4", "Energy performance indicators defined", len(e.enpis) > 0, compliance.PriorityMedium,
			"Calculate energy performance indicators for the year"),
		criterion("6.5-baseline", "6.5", "Energy baseline established", e.baseline != nil, compliance.PriorityHigh,
			"Establish an energy baseline"),
		criterion("6.2-objectives", "6.2", "Energy objectives with action plans", planned, compliance.PriorityMedium,
			"Set energy targets and attach action plans"),
	})
}

// supportClause has no existence checks yet and reports a fixed score
func supportClause() compliance.Section {
	return compliance.Section{
		Key:         "support",
		Name:        "Support",
		Clause:      "7",
		Score:       SupportClausePlaceholderScore,
		Placeholder: true,
	}
}

func operationClause(e evidence) compliance.Section {
	var metered, total compliance.Accumulator
	for _, r := range inventory.EnergyRecords(e.records) {
		mwh, ok := compliance.ToMWh(r.Quantity, r.Unit)
		if !ok {
			continue
		}
		total.Add(mwh)
		if strings.EqualFold(string(r.DataQuality), string(inventory.DataQualityMeasured)) {
			metered.Add(mwh)
		}
	}
	meteredShare := compliance.SafeDivide(metered.Float64(), total.Float64()) * 100

	return compliance.NewSection("operation", "Operation", "8", []compliance.Criterion{
		criterion("8.1-seu", "8.1", "Significant energy uses identified", e.review.SeuCount > 0, compliance.PriorityHigh,
			"Identify significant energy uses in the energy review"),
		criterion("8.1-metering", "8.1", "Majority of energy consumption metered", meteredShare >= 50, compliance.PriorityMedium,
			"Install metering on significant energy uses"),
		criterion("8.3-procurement", "8.3", "Renewable energy procurement in place", e.org.HasRenewableEnergy, compliance.PriorityLow,
			"Consider energy performance and renewable supply in procurement"),
	})
}

func performanceClause(e evidence) compliance.Section {
	audited := false
	for _, a := range e.audits {
		if a.Status == inventory.AuditCompleted && e.recentYear(a.AuditDate.Year()) {
			audited = true
			break
		}
	}
	reviewed := e.org.LastManagementReviewAt != nil && e.recentYear(e.org.LastManagementReviewAt.Year())
	improving := false
	if total := e.enpi(EnPITotal); total != nil && total.ImprovementPercent != nil {
		improving = *total.ImprovementPercent > 0
	}

	return compliance.NewSection("performance_evaluation", "Performance evaluation", "9", []compliance.Criterion{
		criterion("9.1-monitoring", "9.1", "EnPIs monitored against the baseline",
			e.enpi(EnPITotal) != nil && e.baseline != nil, compliance.PriorityHigh,
			"Compare energy performance indicators against the baseline"),
		criterion("9.2-audit", "9.2", "Internal EnMS audit completed", audited, compliance.PriorityHigh,
			"Complete an internal audit of the energy management system"),
		criterion("9.3-review", "9.3", "Management review held", reviewed, compliance.PriorityHigh,
			"Hold a management review of energy performance"),
		criterion("9.1-improvement", "9.1", "Energy performance improving", improving, compliance.PriorityMedium,
			"Act on significant energy uses to improve energy performance"),
	})
}

func improvementClause(e evidence) compliance.Section {
	completedAudits, open := 0, 0
	for _, a := range e.audits {
		if a.Status == inventory.AuditCompleted {
			completedAudits++
			open += a.NonconformitiesOpen
		}
	}
	achieved := false
	for _, t := range e.targets {
		if t.Status == inventory.TargetStatusAchieved {
			achieved = true
			break
		}
	}

	return compliance.NewSection("improvement", "Improvement", "10", []compliance.Criterion{
		criterion("10.1-nonconformities", "10.1", "Audit nonconformities closed", completedAudits > 0 && open == 0, compliance.PriorityHigh,
			"Close open nonconformities with corrective actions"),
		criterion("10.2-objectives", "10.2", "Energy objective achieved", achieved, compliance.PriorityLow,
			"Track energy targets to completion"),
	})
}

func buildClauses(e evidence) []compliance.Section {
	return []compliance.Section{
		contextClause(e),
		leadershipClause(e),
		planningClause(e),
		supportClause(),
		operationClause(e),
		performanceClause(e),
		improvementClause(e),
	}
}
