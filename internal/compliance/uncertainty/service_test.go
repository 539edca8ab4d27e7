package uncertainty

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

func newTestService(t *testing.T) (*Service, *inventory.MemoryRepository, uuid.UUID) {
	t.Helper()
	repo := inventory.NewMemoryRepository()
	orgID := uuid.New()
	assessmentID := uuid.New()
	repo.AddOrganization(inventory.Organization{ID: orgID, Name: "Acme"})
	repo.AddAssessment(inventory.Assessment{ID: assessmentID, OrganizationID: orgID, Year: 2024})
	return NewService(repo, zap.NewNop()), repo, assessmentID
}

func pinned(ef, ad float64) (*float64, *float64) {
	return compliance.Float(ef), compliance.Float(ad)
}

func TestClassifySource(t *testing.T) {
	assert.Equal(t, ClassElectricity, ClassifySource("electricity", ""))
	assert.Equal(t, ClassNaturalGas, ClassifySource("NATURAL_GAS ", "stationary"))
	assert.Equal(t, ClassRefrigerant, ClassifySource("", "HFC leakage"))
	assert.Equal(t, ClassCommuting, ClassifySource("", "employee_commuting"))
	assert.Equal(t, ClassBusinessTravel, ClassifySource("flight", "scope3"))
	assert.Equal(t, ClassLiquidFuel, ClassifySource("diesel", "fleet"))
	assert.Equal(t, ClassDefault, ClassifySource("misc", "other"))
}

func TestActivityDataBand(t *testing.T) {
	assert.Equal(t, Band{Low: 1, High: 3}, ActivityDataBand(inventory.DataQualityMeasured))
	assert.Equal(t, Band{Low: 25, High: 50}, ActivityDataBand("extrapolated"))
	assert.Equal(t, Band{Low: 10, High: 25}, ActivityDataBand("unknown-tier"))
	assert.Equal(t, Band{Low: 3, High: 10}, ActivityDataBand("Invoice"))
}

func TestCalculateRecordUncertainty(t *testing.T) {
	svc, _, _ := newTestService(t)

	ru := svc.CalculateRecordUncertainty(inventory.EmissionRecord{
		ID:          uuid.New(),
		Scope:       2,
		SourceType:  "electricity",
		DataQuality: inventory.DataQualityMeasured,
		Co2eKg:      1000,
	})

	assert.Equal(t, ClassElectricity, ru.SourceClass)
	assert.Equal(t, 3.16, ru.CombinedLowPercent)
	assert.Equal(t, 10.44, ru.CombinedHighPercent)
	assert.Equal(t, 6.8, ru.CombinedPercent)
	assert.Equal(t, 931.99, ru.LowKg)
	assert.Equal(t, 1068.01, ru.HighKg)
}

func TestCalculateRecordUncertainty_ExplicitOverrides(t *testing.T) {
	ef, ad := pinned(4, 3)
	ru := RecordAssessment(inventory.EmissionRecord{
		SourceType:                 "purchased_goods",
		DataQuality:                inventory.DataQualityProxy,
		EfUncertaintyPercent:       ef,
		ActivityUncertaintyPercent: ad,
		Co2eKg:                     200,
	})

	assert.Equal(t, 5.0, ru.CombinedLowPercent)
	assert.Equal(t, 5.0, ru.CombinedHighPercent)
	assert.Equal(t, 5.0, ru.CombinedPercent)
	assert.Equal(t, 190.0, ru.LowKg)
	assert.Equal(t, 210.0, ru.HighKg)
}

func TestCalculateRecordUncertainty_LowBoundClampedAtZero(t *testing.T) {
	ef, ad := pinned(120, 0)
	ru := RecordAssessment(inventory.EmissionRecord{
		EfUncertaintyPercent:       ef,
		ActivityUncertaintyPercent: ad,
		Co2eKg:                     50,
	})

	assert.Equal(t, 0.0, ru.LowKg)
	assert.Equal(t, 110.0, ru.HighKg)
}

func TestCalculateAssessmentUncertainty(t *testing.T) {
	svc, repo, assessmentID := newTestService(t)
	ef, ad := pinned(0, 10)
	repo.AddEmissionRecords(
		inventory.EmissionRecord{ID: uuid.New(), AssessmentID: &assessmentID, Scope: 1, Co2eKg: 1000,
			EfUncertaintyPercent: ef, ActivityUncertaintyPercent: ad, DataQuality: inventory.DataQualityMeasured},
		inventory.EmissionRecord{ID: uuid.New(), AssessmentID: &assessmentID, Scope: 1, Co2eKg: 1000,
			EfUncertaintyPercent: ef, ActivityUncertaintyPercent: ad, DataQuality: "metered"},
	)

	result, err := svc.CalculateAssessmentUncertainty(context.Background(), assessmentID)
	require.NoError(t, err)

	assert.Equal(t, StatusCalculated, result.Status)
	assert.Equal(t, Methodology, result.Methodology)
	assert.Equal(t, ConfidenceLevel, result.ConfidenceLevel)
	require.NotNil(t, result.OverallPercent)
	assert.Equal(t, 7.07, *result.OverallPercent)
	assert.Equal(t, "good", result.Rating)
	assert.Equal(t, 2000.0, result.TotalEmissionsKg)
	require.Len(t, result.Scopes, 1)
	assert.Equal(t, 1, result.Scopes[0].Scope)
	assert.Equal(t, 2, result.DataQuality[string(inventory.DataQualityMeasured)])
}

func TestCalculateAssessmentUncertainty_NoEmissions(t *testing.T) {
	svc, _, assessmentID := newTestService(t)

	result, err := svc.CalculateAssessmentUncertainty(context.Background(), assessmentID)
	require.NoError(t, err)

	assert.Equal(t, StatusNoData, result.Status)
	assert.Nil(t, result.OverallPercent)
	assert.Equal(t, 0, result.RecordCount)
}

func TestCalculateAssessmentUncertainty_UnknownAssessment(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CalculateAssessmentUncertainty(context.Background(), uuid.New())
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestUpdateUncertainties_Persist(t *testing.T) {
	svc, repo, assessmentID := newTestService(t)
	recordID := uuid.New()
	repo.AddEmissionRecords(inventory.EmissionRecord{
		ID: recordID, AssessmentID: &assessmentID, Scope: 2,
		SourceType: "electricity", DataQuality: inventory.DataQualityMeasured, Co2eKg: 1000,
	})
	ctx := context.Background()

	n, err := svc.UpdateRecordUncertainties(ctx, assessmentID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := repo.ListEmissionRecords(ctx, inventory.EmissionFilter{AssessmentID: &assessmentID})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].UncertaintyPercent)
	assert.Equal(t, 6.8, *records[0].UncertaintyPercent)
	assert.Equal(t, 6.5, *records[0].EfUncertaintyPercent)
	assert.Equal(t, 2.0, *records[0].ActivityUncertaintyPercent)

	result, err := svc.UpdateAssessmentUncertainty(ctx, assessmentID)
	require.NoError(t, err)

	stored, err := repo.GetAssessment(ctx, assessmentID)
	require.NoError(t, err)
	require.NotNil(t, stored.OverallUncertaintyPercent)
	assert.Equal(t, *result.OverallPercent, *stored.OverallUncertaintyPercent)
	assert.Equal(t, Methodology, *stored.UncertaintyMethodology)
}

func TestRating(t *testing.T) {
	assert.Equal(t, "high", Rating(5))
	assert.Equal(t, "good", Rating(15))
	assert.Equal(t, "fair", Rating(30))
	assert.Equal(t, "poor", Rating(30.01))
}

// Property: max(a, b) <= sqrt(a^2 + b^2) <= a + b for non-negative a, b
func TestCombineInQuadratureBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("quadrature stays between max and sum", prop.ForAll(
		func(a, b float64) bool {
			c := CombineInQuadrature(a, b)
			if math.IsNaN(c) {
				return false
			}
			return c >= math.Max(a, b)-1e-9 && c <= a+b+1e-9
		},
		gen.Float64Range(0, 500),
		gen.Float64Range(0, 500),
	))

	properties.TestingRun(t)
}

// Property: record bands bracket the combined percentage for any pinned inputs
func TestRecordUncertaintyBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("combined percent within source bounds", prop.ForAll(
		func(ef, ad, kg float64) bool {
			ru := RecordAssessment(inventory.EmissionRecord{
				EfUncertaintyPercent:       compliance.Float(ef),
				ActivityUncertaintyPercent: compliance.Float(ad),
				Co2eKg:                     kg,
			})
			if math.IsNaN(ru.CombinedPercent) || math.IsNaN(ru.LowKg) || math.IsNaN(ru.HighKg) {
				return false
			}
			withinBounds := ru.CombinedPercent >= math.Max(ef, ad)-0.01 && ru.CombinedPercent <= ef+ad+0.01
			return withinBounds && ru.LowKg >= 0 && ru.LowKg <= ru.HighKg
		},
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 1e7),
	))

	properties.TestingRun(t)
}
