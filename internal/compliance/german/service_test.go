package german

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/compliance/esrs"
	"carbex/compliance-portal/compliance-backend/internal/compliance/materiality"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

func newTestService(repo *inventory.MemoryRepository, controls Controls) *Service {
	calc := esrs.NewCalculator(repo, esrs.NewMemoryStore(), zap.NewNop())
	mat := materiality.NewService(materiality.NewMemoryStore(), 0, zap.NewNop())
	return NewService(repo, calc, mat, controls, zap.NewNop())
}

func allControls() Controls {
	c := Controls{}
	for _, list := range [][]Control{BdsgControls, TtdsgControls, Psd2Controls} {
		for _, ctl := range list {
			c[ctl.ID] = true
		}
	}
	return c
}

func component(t *testing.T, report *Report, key string) Component {
	t.Helper()
	for _, c := range report.Components {
		if c.Key == key {
			return c
		}
	}
	t.Fatalf("component %s not found", key)
	return Component{}
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	weights := DefaultWeights()
	require.NoError(t, ValidateWeights(weights))

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Len(t, weights, 5)
}

func TestValidateWeights_Rejects(t *testing.T) {
	assert.ErrorIs(t, ValidateWeights(map[string]float64{"a": 0.5, "b": 0.4}), compliance.ErrInvalidArgument)
	assert.ErrorIs(t, ValidateWeights(map[string]float64{"a": 1.2, "b": -0.2}), compliance.ErrInvalidArgument)
}

func TestRequiredReduction(t *testing.T) {
	assert.Equal(t, 32.5, RequiredReduction(2020, 2025))
	assert.Equal(t, 26.0, RequiredReduction(2020, 2024))
	assert.Equal(t, 0.0, RequiredReduction(2024, 2024))
	assert.Equal(t, 0.0, RequiredReduction(2024, 2022))
	assert.Equal(t, 65.0, RequiredReduction(2020, 2030))
	assert.Equal(t, 65.0, RequiredReduction(2020, 2035))
}

func TestChecklist(t *testing.T) {
	section := Controls{"cookie_consent": true}.Checklist(ComponentTTDSG, "TTDSG", "TTDSG", TtdsgControls)

	assert.Equal(t, 33.33, section.Score)
	recs := section.Recommendations(compliance.FrameworkGerman)
	assert.Len(t, recs, 2)
}

func seedOrganization(repo *inventory.MemoryRepository) (inventory.Organization, uuid.UUID) {
	baseYear := 2020
	org := inventory.Organization{
		ID:                  uuid.New(),
		Name:                "Stahlbau Mitte GmbH",
		Country:             "DE",
		BaseYear:            &baseYear,
		BaseYearTotalTonnes: compliance.Float(200),
	}
	repo.AddOrganization(org)

	assessmentID := uuid.New()
	repo.AddAssessment(inventory.Assessment{
		ID:             assessmentID,
		OrganizationID: org.ID,
		Year:           2024,
		RevenueEur:     compliance.Float(2_000_000),
		EmployeeFTE:    compliance.Float(10),
	})
	record := func(scope int, kg float64, quantity float64, unit string) inventory.EmissionRecord {
		return inventory.EmissionRecord{
			ID:             uuid.New(),
			OrganizationID: org.ID,
			AssessmentID:   &assessmentID,
			Year:           2024,
			Scope:          scope,
			Category:       "general",
			Quantity:       quantity,
			Unit:           unit,
			Co2eKg:         kg,
			DataQuality:    inventory.DataQualityMeasured,
		}
	}
	repo.AddEmissionRecords(
		record(1, 45000, 9000, "m3"),
		record(2, 30000, 75, "MWh"),
		record(3, 50000, 0, ""),
	)
	return org, assessmentID
}

func TestAssessKsg(t *testing.T) {
	repo := inventory.NewMemoryRepository()
	org, _ := seedOrganization(repo)
	year := 2024
	records, err := repo.ListEmissionRecords(context.Background(), inventory.EmissionFilter{OrganizationID: &org.ID, Year: &year})
	require.NoError(t, err)

	progress := AssessKsg(&org, 2024, records)

	assert.Equal(t, 125.0, progress.CurrentTonnes)
	require.NotNil(t, progress.ReductionPercent)
	assert.Equal(t, 37.5, *progress.ReductionPercent)
	require.NotNil(t, progress.RequiredPercent)
	assert.Equal(t, 26.0, *progress.RequiredPercent)
	assert.True(t, progress.OnTrack)

	progress = AssessKsg(&inventory.Organization{ID: org.ID}, 2024, records)
	assert.Nil(t, progress.ReductionPercent)
	assert.False(t, progress.OnTrack)
}

func TestGenerateReport_NoData(t *testing.T) {
	repo := inventory.NewMemoryRepository()
	org := inventory.Organization{ID: uuid.New(), Name: "Leer GmbH"}
	repo.AddOrganization(org)

	report, err := newTestService(repo, nil).GenerateReport(context.Background(), org.ID, 2024)
	require.NoError(t, err)

	require.Len(t, report.Components, 5)
	assert.Equal(t, 0.0, report.OverallScore)
	assert.Equal(t, compliance.LevelNonCompliant, report.Level)
	assert.Equal(t, WeightCSRD, component(t, report, ComponentCSRD).Weight)
	assert.Equal(t, compliance.PriorityCritical, report.Recommendations[0].Priority)
}

func TestGenerateReport_ControlsOnly(t *testing.T) {
	repo := inventory.NewMemoryRepository()
	org := inventory.Organization{ID: uuid.New(), Name: "Plattform GmbH"}
	repo.AddOrganization(org)

	report, err := newTestService(repo, allControls()).GenerateReport(context.Background(), org.ID, 2024)
	require.NoError(t, err)

	assert.Equal(t, 100.0, component(t, report, ComponentBDSG).Score)
	assert.Equal(t, 100.0, component(t, report, ComponentTTDSG).Score)
	assert.Equal(t, 100.0, component(t, report, ComponentPSD2).Score)
	assert.Equal(t, 40.0, report.OverallScore)
}

func TestGenerateReport_KsgAndCsrd(t *testing.T) {
	repo := inventory.NewMemoryRepository()
	org, assessmentID := seedOrganization(repo)
	repo.AddReductionTargets(
		inventory.ReductionTarget{ID: uuid.New(), OrganizationID: org.ID, BaselineYear: 2020, BaselineEmissionsTonnes: 200, TargetYear: 2030, TargetReductionPercent: 65, Status: inventory.TargetStatusActive},
		inventory.ReductionTarget{ID: uuid.New(), OrganizationID: org.ID, BaselineYear: 2020, BaselineEmissionsTonnes: 200, TargetYear: 2045, TargetReductionPercent: 100, Status: inventory.TargetStatusActive},
	)

	svc := newTestService(repo, nil)
	_, err := svc.indicators.(*esrs.Calculator).CalculateAll(context.Background(), assessmentID)
	require.NoError(t, err)

	report, err := svc.GenerateReport(context.Background(), org.ID, 2024)
	require.NoError(t, err)

	assert.Equal(t, 100.0, component(t, report, ComponentKSG).Score)
	assert.True(t, report.Ksg.OnTrack)

	assert.Equal(t, 100.0, report.EsrsCompliancePercent)
	assert.Equal(t, 0.0, report.MaterialityCompletionPercent)
	assert.Equal(t, 50.0, component(t, report, ComponentCSRD).Score)

	// 0.25 x 100 + 0.35 x 50
	assert.Equal(t, 42.5, report.OverallScore)
}
