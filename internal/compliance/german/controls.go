package german

import (
	"carbex/compliance-portal/compliance-backend/internal/compliance"
)

// Control is a platform-level safeguard checked by the static law checklists
type Control struct {
	ID          string
	Clause      string
	Description string
	Priority    compliance.Priority
	Action      string
}

// BDSG / GDPR data protection controls
var BdsgControls = []Control{
	{"dpo_appointed", "§38 BDSG", "Data protection officer appointed", compliance.PriorityHigh, "Appoint a data protection officer"},
	{"processing_records", "Art. 30 GDPR", "Records of processing activities maintained", compliance.PriorityHigh, "Maintain a record of processing activities"},
	{"encryption_at_rest", "Art. 32 GDPR", "Personal data encrypted at rest", compliance.PriorityCritical, "Encrypt stored personal and financial data"},
	{"access_control", "Art. 32 GDPR", "Role-based access control enforced", compliance.PriorityHigh, "Restrict data access by role"},
	{"breach_notification", "Art. 33 GDPR", "Breach notification procedure in place", compliance.PriorityMedium, "Define a 72-hour breach notification procedure"},
	{"retention_policy", "Art. 5 GDPR", "Data retention policy applied", compliance.PriorityMedium, "Define and enforce retention periods"},
}

// TTDSG telecommunications and telemedia controls
var TtdsgControls = []Control{
	{"cookie_consent", "§25 TTDSG", "Consent obtained before non-essential cookies", compliance.PriorityCritical, "Block non-essential cookies until consent is given"},
	{"consent_records", "§25 TTDSG", "Consent decisions recorded", compliance.PriorityMedium, "Store consent decisions with timestamp"},
	{"tracking_opt_out", "§25 TTDSG", "Consent can be withdrawn at any time", compliance.PriorityMedium, "Offer a persistent consent withdrawal link"},
}

// PSD2 payment services controls for bank data access
var Psd2Controls = []Control{
	{"strong_customer_authentication", "Art. 97 PSD2", "Strong customer authentication on bank connections", compliance.PriorityCritical, "Require SCA when connecting bank accounts"},
	{"consent_renewal", "Art. 10 RTS", "Bank access consent renewed every 180 days", compliance.PriorityHigh, "Prompt users to renew bank consent before it lapses"},
	{"licensed_aisp", "Art. 33 PSD2", "Account information accessed via a licensed provider", compliance.PriorityHigh, "Use a licensed account information service provider"},
}

// Controls reports which platform controls are in place, keyed by control ID
type Controls map[string]bool

// Checklist scores a control list against the controls in place
func (c Controls) Checklist(key, name, clause string, controls []Control) compliance.Section {
	criteria := make([]compliance.Criterion, len(controls))
	for i, ctl := range controls {
		criteria[i] = compliance.Criterion{
			ID:          ctl.ID,
			Clause:      ctl.Clause,
			Description: ctl.Description,
			Met:         c[ctl.ID],
			Priority:    ctl.Priority,
			Action:      ctl.Action,
		}
	}
	return compliance.NewSection(key, name, clause, criteria)
}
