package csrd

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/compliance/esrs"
	"carbex/compliance-portal/compliance-backend/internal/compliance/materiality"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

type mockIndicatorStatus struct {
	mock.Mock
}

func (m *mockIndicatorStatus) ComplianceStatus(ctx context.Context, assessmentID uuid.UUID) (*esrs.ComplianceStatus, error) {
	args := m.Called(ctx, assessmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*esrs.ComplianceStatus), args.Error(1)
}

type fixture struct {
	repo        *inventory.MemoryRepository
	calc        *esrs.Calculator
	materiality *materiality.Service
	svc         *Service
	org         inventory.Organization
}

func newFixture(t *testing.T, org inventory.Organization) *fixture {
	t.Helper()
	f := &fixture{repo: inventory.NewMemoryRepository(), org: org}
	f.repo.AddOrganization(org)
	f.calc = esrs.NewCalculator(f.repo, esrs.NewMemoryStore(), zap.NewNop())
	f.materiality = materiality.NewService(materiality.NewMemoryStore(), 0, zap.NewNop())
	f.svc = NewService(f.repo, f.calc, f.materiality, zap.NewNop())
	return f
}

func sectionByKey(t *testing.T, report *Report, key string) compliance.Section {
	t.Helper()
	for _, s := range report.Sections {
		if s.Key == key {
			return s
		}
	}
	t.Fatalf("section %s not found", key)
	return compliance.Section{}
}

func TestDetermineApplicability(t *testing.T) {
	money := func(v float64) *float64 { return &v }
	people := func(v int) *int { return &v }

	tests := []struct {
		name     string
		org      inventory.Organization
		category Category
		year     *int
		criteria int
	}{
		{
			name:     "two of three criteria",
			org:      inventory.Organization{AnnualTurnoverEur: money(60_000_000), BalanceSheetEur: money(30_000_000), EmployeeCount: people(100)},
			category: CategoryLarge,
			year:     people(2025),
			criteria: 2,
		},
		{
			name:     "large public-interest entity",
			org:      inventory.Organization{BalanceSheetEur: money(30_000_000), EmployeeCount: people(600), IsPublicInterestEntity: true},
			category: CategoryLargePIE,
			year:     people(2024),
			criteria: 2,
		},
		{
			name:     "public-interest entity below 500 employees",
			org:      inventory.Organization{AnnualTurnoverEur: money(60_000_000), EmployeeCount: people(300), IsPublicInterestEntity: true},
			category: CategoryLarge,
			year:     people(2025),
			criteria: 2,
		},
		{
			name:     "listed SME",
			org:      inventory.Organization{AnnualTurnoverEur: money(8_000_000), EmployeeCount: people(20), IsListed: true},
			category: CategoryListedSME,
			year:     people(2026),
			criteria: 0,
		},
		{
			name:     "one criterion only",
			org:      inventory.Organization{AnnualTurnoverEur: money(80_000_000), EmployeeCount: people(120)},
			category: CategoryNotApplicable,
			criteria: 1,
		},
		{
			name:     "no size data",
			org:      inventory.Organization{},
			category: CategoryNotApplicable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := DetermineApplicability(&tt.org)
			assert.Equal(t, tt.category, a.Category)
			assert.Equal(t, tt.criteria, a.CriteriaMet)
			assert.Equal(t, tt.year, a.ReportingFromYear)
			assert.Equal(t, tt.year != nil, a.IsApplicable)
			assert.Len(t, a.Criteria, 3)
			assert.NotEmpty(t, a.Reason)
		})
	}
}

func TestEstimateTaxonomy(t *testing.T) {
	with := EstimateTaxonomy(true)
	assert.Equal(t, 15.0, with.EligiblePercent)
	assert.Equal(t, 5.0, with.AlignedPercent)
	assert.True(t, with.IsEstimate)

	without := EstimateTaxonomy(false)
	assert.Equal(t, 10.0, without.EligiblePercent)
	assert.Equal(t, 2.0, without.AlignedPercent)
	assert.True(t, without.IsEstimate)
}

func TestApplicability_UnknownOrganization(t *testing.T) {
	f := newFixture(t, inventory.Organization{ID: uuid.New()})

	_, err := f.svc.Applicability(context.Background(), uuid.New())
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestGenerateReport_NoData(t *testing.T) {
	f := newFixture(t, inventory.Organization{ID: uuid.New(), Name: "Blank SE"})

	report, err := f.svc.GenerateReport(context.Background(), f.org.ID, 2024)
	require.NoError(t, err)

	require.Len(t, report.Sections, 6)
	assert.Nil(t, report.AssessmentID)
	assert.Nil(t, report.EsrsStatus)
	require.NotNil(t, report.Materiality)
	assert.Equal(t, 33.33, sectionByKey(t, report, "eu_taxonomy").Score)
	assert.Equal(t, 5.56, report.OverallScore)
	assert.Equal(t, compliance.LevelNonCompliant, report.Level)
	assert.Equal(t, CategoryNotApplicable, report.Applicability.Category)
	assert.Equal(t, 10.0, report.Taxonomy.EligiblePercent)

	assert.Len(t, report.Recommendations, 32)
	assert.Equal(t, compliance.PriorityCritical, report.Recommendations[0].Priority)
	assert.Equal(t, compliance.PriorityLow, report.Recommendations[len(report.Recommendations)-1].Priority)
	for _, r := range report.Recommendations {
		assert.Equal(t, compliance.FrameworkCSRD, r.Framework)
	}
}

func TestGenerateReport_WithInventoryAndMateriality(t *testing.T) {
	f := newFixture(t, inventory.Organization{ID: uuid.New(), Name: "Acme SE", HasRenewableEnergy: true})
	ctx := context.Background()
	assessmentID := uuid.New()
	f.repo.AddAssessment(inventory.Assessment{
		ID:             assessmentID,
		OrganizationID: f.org.ID,
		Year:           2024,
		RevenueEur:     compliance.Float(2_000_000),
		EmployeeFTE:    compliance.Float(10),
	})
	record := func(scope int, kg float64, category string, quantity float64, unit string) inventory.EmissionRecord {
		return inventory.EmissionRecord{
			ID:             uuid.New(),
			OrganizationID: f.org.ID,
			AssessmentID:   &assessmentID,
			Year:           2024,
			Scope:          scope,
			Category:       category,
			Quantity:       quantity,
			Unit:           unit,
			Co2eKg:         kg,
			DataQuality:    inventory.DataQualityMeasured,
		}
	}
	f.repo.AddEmissionRecords(
		record(1, 45000, "stationary_combustion", 9000, "m3"),
		record(2, 30000, "electricity", 75, "MWh"),
		record(3, 50000, "business_travel", 0, ""),
	)

	_, err := f.calc.CalculateAll(ctx, assessmentID)
	require.NoError(t, err)

	assessor := uuid.New()
	_, err = f.materiality.UpdateImpact(ctx, f.org.ID, 2024, "E1", materiality.ImpactInput{Severity: 5, Likelihood: 4}, assessor)
	require.NoError(t, err)
	_, err = f.materiality.UpdateFinancial(ctx, f.org.ID, 2024, "E1", materiality.FinancialInput{Magnitude: 4, Likelihood: 4}, assessor)
	require.NoError(t, err)

	report, err := f.svc.GenerateReport(ctx, f.org.ID, 2024)
	require.NoError(t, err)

	require.NotNil(t, report.AssessmentID)
	assert.Equal(t, assessmentID, *report.AssessmentID)
	require.NotNil(t, report.EsrsStatus)
	assert.Equal(t, 84.62, report.EsrsStatus.CompliancePercent)
	assert.Equal(t, report.EsrsStatus.CompliancePercent, sectionByKey(t, report, "esrs_e1_indicators").Score)
	assert.Equal(t, 50.0, sectionByKey(t, report, "double_materiality").Score)
	assert.Equal(t, 60.0, sectionByKey(t, report, "ghg_emissions").Score)
	assert.Equal(t, 66.67, sectionByKey(t, report, "eu_taxonomy").Score)
	assert.Equal(t, 15.0, report.Taxonomy.EligiblePercent)
	assert.Equal(t, compliance.Mean(compliance.SectionScores(report.Sections)...), report.OverallScore)
}

func TestGenerateReport_IndicatorStatusFailure(t *testing.T) {
	org := inventory.Organization{ID: uuid.New(), Name: "Acme SE"}
	repo := inventory.NewMemoryRepository()
	repo.AddOrganization(org)
	assessmentID := uuid.New()
	repo.AddAssessment(inventory.Assessment{ID: assessmentID, OrganizationID: org.ID, Year: 2024})

	indicators := new(mockIndicatorStatus)
	indicators.On("ComplianceStatus", mock.Anything, assessmentID).Return(nil, errors.New("connection refused"))

	svc := NewService(repo, indicators, materiality.NewService(materiality.NewMemoryStore(), 0, zap.NewNop()), zap.NewNop())
	_, err := svc.GenerateReport(context.Background(), org.ID, 2024)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load ESRS status")
	indicators.AssertExpectations(t)
}
