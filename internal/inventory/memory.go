package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository used by tests and local tooling
type MemoryRepository struct {
	mu            sync.RWMutex
	organizations map[uuid.UUID]Organization
	assessments   map[uuid.UUID]Assessment
	records       []EmissionRecord
	targets       []ReductionTarget
	removals      []GhgRemoval
	verifications []GhgVerification
	baselines     []EnergyBaseline
	reviews       map[string]EnergyReview
	enpis         map[string]EnergyPerformanceIndicator
	energyTargets []EnergyTarget
	energyAudits  []EnergyAudit
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		organizations: make(map[uuid.UUID]Organization),
		assessments:   make(map[uuid.UUID]Assessment),
		reviews:       make(map[string]EnergyReview),
		enpis:         make(map[string]EnergyPerformanceIndicator),
	}
}

// =====================================================
// Seeding
// =====================================================

func (m *MemoryRepository) AddOrganization(org Organization) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.organizations[org.ID] = org
}

func (m *MemoryRepository) AddAssessment(a Assessment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments[a.ID] = a
}

func (m *MemoryRepository) AddEmissionRecords(records ...EmissionRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
}

func (m *MemoryRepository) AddReductionTargets(targets ...ReductionTarget) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets = append(m.targets, targets...)
}

// BaselineCount returns the number of stored energy baselines of an organization
func (m *MemoryRepository) BaselineCount(organizationID uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, b := range m.baselines {
		if b.OrganizationID == organizationID {
			n++
		}
	}
	return n
}

// SetReductionTargetStatus moves a seeded target to another lifecycle status
func (m *MemoryRepository) SetReductionTargetStatus(id uuid.UUID, status TargetStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.targets {
		if m.targets[i].ID == id {
			m.targets[i].Status = status
		}
	}
}

func (m *MemoryRepository) AddRemovals(removals ...GhgRemoval) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removals = append(m.removals, removals...)
}

func (m *MemoryRepository) AddVerifications(verifications ...GhgVerification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications = append(m.verifications, verifications...)
}

func (m *MemoryRepository) AddEnergyTargets(targets ...EnergyTarget) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.energyTargets = append(m.energyTargets, targets...)
}

func (m *MemoryRepository) AddEnergyAudits(audits ...EnergyAudit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.energyAudits = append(m.energyAudits, audits...)
}

// =====================================================
// Repository implementation
// =====================================================

func (m *MemoryRepository) GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	org, ok := m.organizations[id]
	if !ok {
		return nil, fmt.Errorf("organization %s: %w", id, ErrNotFound)
	}
	return &org, nil
}

func (m *MemoryRepository) UpdateOrganizationBaseYear(ctx context.Context, org *Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.organizations[org.ID]
	if !ok {
		return fmt.Errorf("organization %s: %w", org.ID, ErrNotFound)
	}
	existing.BaseYear = org.BaseYear
	existing.BaseYearScope1Tonnes = org.BaseYearScope1Tonnes
	existing.BaseYearScope2Tonnes = org.BaseYearScope2Tonnes
	existing.BaseYearScope3Tonnes = org.BaseYearScope3Tonnes
	existing.BaseYearTotalTonnes = org.BaseYearTotalTonnes
	existing.RecalculationPolicy = org.RecalculationPolicy
	existing.RecalculationThresholdPercent = org.RecalculationThresholdPercent
	m.organizations[org.ID] = existing
	return nil
}

func (m *MemoryRepository) GetAssessment(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.assessments[id]
	if !ok {
		return nil, fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	return &a, nil
}

func (m *MemoryRepository) GetAssessmentByYear(ctx context.Context, organizationID uuid.UUID, year int) (*Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.assessments {
		if a.OrganizationID == organizationID && a.Year == year {
			found := a
			return &found, nil
		}
	}
	return nil, fmt.Errorf("assessment for %s/%d: %w", organizationID, year, ErrNotFound)
}

func (m *MemoryRepository) ListAssessmentsByYear(ctx context.Context, year int) ([]Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Assessment
	for _, a := range m.assessments {
		if a.Year == year {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OrganizationID.String() < out[j].OrganizationID.String()
	})
	return out, nil
}

func (m *MemoryRepository) UpdateAssessmentUncertainty(ctx context.Context, id uuid.UUID, percent *float64, methodology string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assessments[id]
	if !ok {
		return fmt.Errorf("assessment %s: %w", id, ErrNotFound)
	}
	a.OverallUncertaintyPercent = percent
	a.UncertaintyMethodology = &methodology
	m.assessments[id] = a
	return nil
}

func (m *MemoryRepository) ListEmissionRecords(ctx context.Context, filter EmissionFilter) ([]EmissionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []EmissionRecord
	for _, r := range m.records {
		if filter.OrganizationID != nil && r.OrganizationID != *filter.OrganizationID {
			continue
		}
		if filter.AssessmentID != nil && (r.AssessmentID == nil || *r.AssessmentID != *filter.AssessmentID) {
			continue
		}
		if filter.Year != nil && r.Year != *filter.Year {
			continue
		}
		if filter.Scope != nil && r.Scope != *filter.Scope {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *MemoryRepository) UpdateRecordUncertainty(ctx context.Context, id uuid.UUID, update RecordUncertaintyUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.records {
		if m.records[i].ID != id {
			continue
		}
		ef, ad, combined := update.EfUncertaintyPercent, update.ActivityUncertaintyPercent, update.UncertaintyPercent
		low, high := update.UncertaintyLowKg, update.UncertaintyHighKg
		m.records[i].EfUncertaintyPercent = &ef
		m.records[i].ActivityUncertaintyPercent = &ad
		m.records[i].UncertaintyPercent = &combined
		m.records[i].UncertaintyLowKg = &low
		m.records[i].UncertaintyHighKg = &high
		return nil
	}
	return fmt.Errorf("emission record %s: %w", id, ErrNotFound)
}

func (m *MemoryRepository) ListReductionTargets(ctx context.Context, organizationID uuid.UUID) ([]ReductionTarget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ReductionTarget
	for _, t := range m.targets {
		if t.OrganizationID == organizationID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TargetYear != out[j].TargetYear {
			return out[i].TargetYear < out[j].TargetYear
		}
		return out[i].BaselineYear < out[j].BaselineYear
	})
	return out, nil
}

func (m *MemoryRepository) ListRemovals(ctx context.Context, organizationID uuid.UUID, year int) ([]GhgRemoval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []GhgRemoval
	for _, r := range m.removals {
		if r.OrganizationID == organizationID && r.Year == year {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryRepository) ListVerifications(ctx context.Context, organizationID uuid.UUID, year int) ([]GhgVerification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []GhgVerification
	for _, v := range m.verifications {
		if v.OrganizationID == organizationID && v.Year == year {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *MemoryRepository) GetCurrentEnergyBaseline(ctx context.Context, organizationID uuid.UUID) (*EnergyBaseline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var current *EnergyBaseline
	for i := range m.baselines {
		b := m.baselines[i]
		if b.OrganizationID != organizationID || !b.IsCurrent {
			continue
		}
		if current == nil || b.BaselineYear > current.BaselineYear {
			current = &b
		}
	}
	return current, nil
}

func (m *MemoryRepository) SaveEnergyBaseline(ctx context.Context, baseline *EnergyBaseline) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	replaced := false
	for i := range m.baselines {
		if m.baselines[i].OrganizationID != baseline.OrganizationID {
			continue
		}
		if m.baselines[i].ID == baseline.ID {
			created := m.baselines[i].CreatedAt
			m.baselines[i] = *baseline
			m.baselines[i].CreatedAt = created
			replaced = true
			continue
		}
		m.baselines[i].IsCurrent = false
	}
	if !replaced {
		m.baselines = append(m.baselines, *baseline)
	}
	return nil
}

func (m *MemoryRepository) GetEnergyReview(ctx context.Context, organizationID uuid.UUID, year int) (*EnergyReview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	review, ok := m.reviews[reviewKey(organizationID, year)]
	if !ok {
		return nil, nil
	}
	return &review, nil
}

func (m *MemoryRepository) SaveEnergyReview(ctx context.Context, review *EnergyReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := reviewKey(review.OrganizationID, review.Year)
	if existing, ok := m.reviews[key]; ok {
		review.ID = existing.ID
	}
	m.reviews[key] = *review
	return nil
}

func (m *MemoryRepository) ListEnergyPerformanceIndicators(ctx context.Context, organizationID uuid.UUID, year int) ([]EnergyPerformanceIndicator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []EnergyPerformanceIndicator
	for _, e := range m.enpis {
		if e.OrganizationID == organizationID && e.Year == year {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *MemoryRepository) UpsertEnergyPerformanceIndicators(ctx context.Context, enpis []EnergyPerformanceIndicator) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range enpis {
		key := fmt.Sprintf("%s/%d/%s", e.OrganizationID, e.Year, e.Code)
		if existing, ok := m.enpis[key]; ok {
			e.ID = existing.ID
		}
		m.enpis[key] = e
	}
	return nil
}

func (m *MemoryRepository) ListEnergyTargets(ctx context.Context, organizationID uuid.UUID) ([]EnergyTarget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []EnergyTarget
	for _, t := range m.energyTargets {
		if t.OrganizationID == organizationID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MemoryRepository) ListEnergyAudits(ctx context.Context, organizationID uuid.UUID) ([]EnergyAudit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []EnergyAudit
	for _, a := range m.energyAudits {
		if a.OrganizationID == organizationID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AuditDate.After(out[j].AuditDate) })
	return out, nil
}

func reviewKey(organizationID uuid.UUID, year int) string {
	return fmt.Sprintf("%s/%d", organizationID, year)
}
