package esrs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

type fixture struct {
	repo         *inventory.MemoryRepository
	store        *MemoryStore
	calc         *Calculator
	orgID        uuid.UUID
	assessmentID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:         inventory.NewMemoryRepository(),
		store:        NewMemoryStore(),
		orgID:        uuid.New(),
		assessmentID: uuid.New(),
	}
	f.repo.AddOrganization(inventory.Organization{ID: f.orgID, Name: "Acme GmbH"})
	f.repo.AddAssessment(inventory.Assessment{
		ID:             f.assessmentID,
		OrganizationID: f.orgID,
		Year:           2024,
		RevenueEur:     compliance.Float(2_000_000),
		EmployeeFTE:    compliance.Float(10),
	})
	f.calc = NewCalculator(f.repo, f.store, zap.NewNop())
	return f
}

func (f *fixture) record(scope int, co2eKg float64, mutate func(*inventory.EmissionRecord)) inventory.EmissionRecord {
	r := inventory.EmissionRecord{
		ID:             uuid.New(),
		OrganizationID: f.orgID,
		AssessmentID:   &f.assessmentID,
		Year:           2024,
		Scope:          scope,
		Co2eKg:         co2eKg,
		DataQuality:    inventory.DataQualityMeasured,
	}
	if mutate != nil {
		mutate(&r)
	}
	return r
}

func (f *fixture) seedInventory() {
	f.repo.AddEmissionRecords(
		f.record(1, 45000, func(r *inventory.EmissionRecord) { r.Category = "stationary_combustion"; r.Quantity = 9000; r.Unit = "m3" }),
		f.record(2, 20000, func(r *inventory.EmissionRecord) {
			r.Category = "electricity"
			r.Quantity = 50000
			r.Unit = "kWh"
		}),
		f.record(2, 10000, func(r *inventory.EmissionRecord) {
			r.Category = "electricity"
			r.Quantity = 50
			r.Unit = "MWh"
			r.IsRenewable = true
		}),
		f.record(2, 0, func(r *inventory.EmissionRecord) {
			r.Category = "refrigerant top-up"
			r.Quantity = 12
			r.Unit = "kg"
		}),
		f.record(3, 30000, func(r *inventory.EmissionRecord) {
			c := 1
			r.Scope3Category = &c
			r.Category = "suppliers"
		}),
		f.record(3, 20000, func(r *inventory.EmissionRecord) { r.Category = "business_travel" }),
	)
}

func byCode(indicators []Indicator) map[string]Indicator {
	out := make(map[string]Indicator, len(indicators))
	for _, ind := range indicators {
		out[ind.IndicatorCode] = ind
	}
	return out
}

func TestCalculateEnergyIndicators(t *testing.T) {
	f := newFixture(t)
	f.seedInventory()

	indicators, err := f.calc.CalculateEnergyIndicators(context.Background(), f.assessmentID)
	require.NoError(t, err)
	require.Len(t, indicators, 6)

	got := byCode(indicators)
	assert.Equal(t, 100.0, *got["E1-5-a"].Value)
	assert.Equal(t, 50.0, *got["E1-5-b"].Value)
	assert.Equal(t, 50.0, *got["E1-5-c"].Value)
	assert.Equal(t, 50.0, *got["E1-5-d"].Value)
	assert.Equal(t, 50.0, *got["E1-5-e"].Value)
	assert.Equal(t, 10.0, *got["E1-5-f"].Value)
	assert.False(t, got["E1-5-f"].IsMandatory)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(got["E1-5-a"].Metadata, &meta))
	assert.Equal(t, float64(1), meta["skipped_non_energy_units"])
}

func TestCalculateEnergyIndicators_NoScope2(t *testing.T) {
	f := newFixture(t)
	f.repo.AddEmissionRecords(f.record(1, 1000, nil))

	indicators, err := f.calc.CalculateEnergyIndicators(context.Background(), f.assessmentID)
	require.NoError(t, err)
	require.Len(t, indicators, 6)
	for _, ind := range indicators {
		assert.Nil(t, ind.Value, ind.IndicatorCode)
		assert.Equal(t, StatusMissing, ind.Status)
	}
}

func TestCalculateEnergyIndicators_ZeroDenominators(t *testing.T) {
	f := newFixture(t)
	f.repo.AddAssessment(inventory.Assessment{ID: f.assessmentID, OrganizationID: f.orgID, Year: 2024, RevenueEur: compliance.Float(0)})
	f.seedInventory()

	indicators, err := f.calc.CalculateEnergyIndicators(context.Background(), f.assessmentID)
	require.NoError(t, err)

	got := byCode(indicators)
	assert.Equal(t, 0.0, *got["E1-5-e"].Value)
	assert.Equal(t, 0.0, *got["E1-5-f"].Value)
	assert.Equal(t, StatusReported, got["E1-5-e"].Status)
}

func TestCalculateGhgIndicators(t *testing.T) {
	f := newFixture(t)
	f.seedInventory()

	indicators, err := f.calc.CalculateGhgIndicators(context.Background(), f.assessmentID)
	require.NoError(t, err)
	require.Len(t, indicators, 7)

	got := byCode(indicators)
	assert.Equal(t, 45.0, *got["E1-6-a"].Value)
	assert.Equal(t, 30.0, *got["E1-6-b"].Value)
	assert.Equal(t, 30.0, *got["E1-6-c"].Value, "market-based falls back to location-based")
	assert.Equal(t, 50.0, *got["E1-6-d"].Value)
	assert.Equal(t, 125.0, *got["E1-6-e"].Value)
	assert.Equal(t, 62.5, *got["E1-6-f"].Value)
	assert.Equal(t, 12.5, *got["E1-6-g"].Value)

	var meta struct {
		Categories map[string]float64 `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(got["E1-6-d"].Metadata, &meta))
	assert.Equal(t, 30.0, meta.Categories["Purchased goods and services"])
	assert.Equal(t, 20.0, meta.Categories["Business travel"])
}

func TestCalculateGhgIndicators_MarketBased(t *testing.T) {
	f := newFixture(t)
	f.repo.AddEmissionRecords(
		f.record(2, 30000, nil),
		f.record(2, 5000, func(r *inventory.EmissionRecord) { r.Scope2Method = inventory.Scope2Market }),
	)

	indicators, err := f.calc.CalculateGhgIndicators(context.Background(), f.assessmentID)
	require.NoError(t, err)

	got := byCode(indicators)
	assert.Equal(t, 30.0, *got["E1-6-b"].Value)
	assert.Equal(t, 5.0, *got["E1-6-c"].Value)
	assert.Equal(t, 30.0, *got["E1-6-e"].Value)
}

func TestCalculateGhgIndicators_NoRecords(t *testing.T) {
	f := newFixture(t)

	indicators, err := f.calc.CalculateGhgIndicators(context.Background(), f.assessmentID)
	require.NoError(t, err)
	require.Len(t, indicators, 7)
	for _, ind := range indicators {
		assert.Nil(t, ind.Value)
		assert.Equal(t, StatusMissing, ind.Status)
	}
}

func TestResolveScope3Category(t *testing.T) {
	seven := 7
	assert.Equal(t, "Employee commuting", ResolveScope3Category(inventory.EmissionRecord{Scope3Category: &seven}))
	assert.Equal(t, "Capital goods", ResolveScope3Category(inventory.EmissionRecord{Category: "capital_goods"}))
	assert.Equal(t, UnallocatedScope3, ResolveScope3Category(inventory.EmissionRecord{Category: "misc"}))
}

func TestCalculateTargetIndicators(t *testing.T) {
	f := newFixture(t)
	f.seedInventory()
	f.repo.AddReductionTargets(
		inventory.ReductionTarget{ID: uuid.New(), OrganizationID: f.orgID, Name: "old", BaselineYear: 2015,
			BaselineEmissionsTonnes: 400, TargetYear: 2020, TargetReductionPercent: 20, Status: inventory.TargetStatusActive},
		inventory.ReductionTarget{ID: uuid.New(), OrganizationID: f.orgID, Name: "achieved", BaselineYear: 2019,
			BaselineEmissionsTonnes: 300, TargetYear: 2025, TargetReductionPercent: 10, Status: inventory.TargetStatusAchieved},
		inventory.ReductionTarget{ID: uuid.New(), OrganizationID: f.orgID, Name: "2035", BaselineYear: 2019,
			BaselineEmissionsTonnes: 250, TargetYear: 2035, TargetReductionPercent: 90, Status: inventory.TargetStatusActive},
		inventory.ReductionTarget{ID: uuid.New(), OrganizationID: f.orgID, Name: "2030", BaselineYear: 2019,
			BaselineEmissionsTonnes: 250, TargetYear: 2030, TargetReductionPercent: 40, Status: inventory.TargetStatusActive},
	)

	indicators, err := f.calc.CalculateTargetIndicators(context.Background(), f.assessmentID)
	require.NoError(t, err)
	require.Len(t, indicators, 3)

	got := byCode(indicators)
	assert.Equal(t, 40.0, *got["E1-4-a"].Value)
	assert.Equal(t, 50.0, *got["E1-4-b"].Value)
	assert.Equal(t, 100.0, *got["E1-4-c"].Value, "progress is clamped")

	var meta map[string]any
	require.NoError(t, json.Unmarshal(got["E1-4-a"].Metadata, &meta))
	assert.Equal(t, "2030", meta["target_name"])
}

func TestCalculateTargetIndicators_NoOpenTarget(t *testing.T) {
	f := newFixture(t)
	f.seedInventory()

	indicators, err := f.calc.CalculateTargetIndicators(context.Background(), f.assessmentID)
	require.NoError(t, err)
	assert.Empty(t, indicators)
}

func TestCalculateAll_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedInventory()
	ctx := context.Background()

	first, err := f.calc.CalculateAll(ctx, f.assessmentID)
	require.NoError(t, err)
	assert.Len(t, first, 13)
	assert.Equal(t, 13, f.store.Len())

	second, err := f.calc.CalculateAll(ctx, f.assessmentID)
	require.NoError(t, err)
	assert.Equal(t, 13, f.store.Len())

	stored, err := f.store.ListIndicators(ctx, f.assessmentID)
	require.NoError(t, err)
	require.Len(t, stored, 13)

	firstByCode := byCode(first)
	for _, ind := range second {
		assert.Equal(t, firstByCode[ind.IndicatorCode].ID, ind.ID)
		assert.Equal(t, firstByCode[ind.IndicatorCode].Value, ind.Value)
	}
}

func TestCalculateAll_ClosedTargetDropsTargetIndicators(t *testing.T) {
	f := newFixture(t)
	f.seedInventory()
	ctx := context.Background()
	targetID := uuid.New()
	f.repo.AddReductionTargets(inventory.ReductionTarget{ID: targetID, OrganizationID: f.orgID, Name: "2030",
		BaselineYear: 2019, BaselineEmissionsTonnes: 250, TargetYear: 2030, TargetReductionPercent: 40,
		Status: inventory.TargetStatusActive})

	_, err := f.calc.CalculateAll(ctx, f.assessmentID)
	require.NoError(t, err)
	assert.Equal(t, 16, f.store.Len())
	status, err := f.calc.ComplianceStatus(ctx, f.assessmentID)
	require.NoError(t, err)
	assert.Empty(t, status.Missing)

	f.repo.SetReductionTargetStatus(targetID, inventory.TargetStatusAbandoned)

	_, err = f.calc.CalculateAll(ctx, f.assessmentID)
	require.NoError(t, err)
	assert.Equal(t, 13, f.store.Len())
	status, err = f.calc.ComplianceStatus(ctx, f.assessmentID)
	require.NoError(t, err)
	assert.Equal(t, []string{"E1-4-a", "E1-4-b"}, status.Missing)
	assert.False(t, status.IsCompliant)
}

func TestComplianceStatus(t *testing.T) {
	f := newFixture(t)
	f.seedInventory()
	ctx := context.Background()

	_, err := f.calc.CalculateAll(ctx, f.assessmentID)
	require.NoError(t, err)

	status, err := f.calc.ComplianceStatus(ctx, f.assessmentID)
	require.NoError(t, err)

	assert.Equal(t, 13, status.RequiredCount)
	assert.Equal(t, 11, status.CompletedCount)
	assert.Equal(t, []string{"E1-4-a", "E1-4-b"}, status.Missing)
	assert.False(t, status.IsCompliant)
	assert.Equal(t, 84.62, status.CompliancePercent)
	require.Len(t, status.Recommendations, 2)
	assert.Equal(t, compliance.PriorityHigh, status.Recommendations[0].Priority)
}

func TestComplianceStatus_FullyCompliant(t *testing.T) {
	f := newFixture(t)
	f.seedInventory()
	f.repo.AddReductionTargets(inventory.ReductionTarget{ID: uuid.New(), OrganizationID: f.orgID, BaselineYear: 2019,
		BaselineEmissionsTonnes: 250, TargetYear: 2030, TargetReductionPercent: 40, Status: inventory.TargetStatusActive})
	ctx := context.Background()

	_, err := f.calc.CalculateAll(ctx, f.assessmentID)
	require.NoError(t, err)

	status, err := f.calc.ComplianceStatus(ctx, f.assessmentID)
	require.NoError(t, err)
	assert.True(t, status.IsCompliant)
	assert.Equal(t, 100.0, status.CompliancePercent)
	assert.Empty(t, status.Recommendations)
}

func TestComplianceStatus_UnknownAssessment(t *testing.T) {
	f := newFixture(t)

	_, err := f.calc.ComplianceStatus(context.Background(), uuid.New())
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}
