package iso50001

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

func newTestService(t *testing.T, org inventory.Organization) (*Service, *inventory.MemoryRepository) {
	t.Helper()
	repo := inventory.NewMemoryRepository()
	repo.AddOrganization(org)
	svc := NewService(repo, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	return svc, repo
}

func baseOrg() inventory.Organization {
	area := 1000.0
	employees := 40
	return inventory.Organization{
		ID:            uuid.New(),
		Name:          "Werk Nord GmbH",
		Country:       "DE",
		FloorAreaM2:   &area,
		EmployeeCount: &employees,
	}
}

func energy(orgID uuid.UUID, year int, category string, quantity float64, unit string) inventory.EmissionRecord {
	return inventory.EmissionRecord{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Year:           year,
		Scope:          2,
		Category:       category,
		Quantity:       quantity,
		Unit:           unit,
		Co2eKg:         quantity * 0.4,
		DataQuality:    inventory.DataQualityMeasured,
	}
}

// seedConsumption records 1000 MWh for 2023 and 800 MWh for 2024
func seedConsumption(repo *inventory.MemoryRepository, orgID uuid.UUID) {
	fuel := energy(orgID, 2024, "boiler", 500, "litres")
	fuel.Scope = 1
	repo.AddEmissionRecords(
		energy(orgID, 2023, "electricity", 1000, "MWh"),
		energy(orgID, 2024, "electricity", 700, "MWh"),
		energy(orgID, 2024, "heating", 70000, "kWh"),
		energy(orgID, 2024, "cooling", 30, "mwh"),
		energy(orgID, 2024, "water", 120, "m3"),
		fuel,
	)
}

func TestBuildEnergyReview(t *testing.T) {
	orgID := uuid.New()
	repo := inventory.NewMemoryRepository()
	seedConsumption(repo, orgID)
	year := 2024
	records, err := repo.ListEmissionRecords(context.Background(), inventory.EmissionFilter{OrganizationID: &orgID, Year: &year})
	require.NoError(t, err)

	review := BuildEnergyReview(orgID, 2024, records)

	assert.Equal(t, 800.0, review.TotalMwh)
	assert.Equal(t, 4, review.RecordCount)
	assert.Equal(t, 1, review.SkippedRecords)
	require.Len(t, review.Uses, 3)
	assert.Equal(t, EnergyUse{Category: "electricity", Mwh: 700, SharePercent: 87.5, IsSignificant: true}, review.Uses[0])
	assert.Equal(t, EnergyUse{Category: "heating", Mwh: 70, SharePercent: 8.75, IsSignificant: true}, review.Uses[1])
	assert.Equal(t, EnergyUse{Category: "cooling", Mwh: 30, SharePercent: 3.75, IsSignificant: false}, review.Uses[2])
	assert.Equal(t, []string{"electricity", "heating"}, review.SignificantUses)
	assert.Equal(t, 2, review.SeuCount)
}

func TestBuildEnergyReview_PrefersLocationBased(t *testing.T) {
	orgID := uuid.New()
	location := energy(orgID, 2024, "electricity", 100, "MWh")
	market := energy(orgID, 2024, "electricity", 100, "MWh")
	market.Scope2Method = inventory.Scope2Market

	review := BuildEnergyReview(orgID, 2024, []inventory.EmissionRecord{location, market})
	assert.Equal(t, 100.0, review.TotalMwh)

	review = BuildEnergyReview(orgID, 2024, []inventory.EmissionRecord{market})
	assert.Equal(t, 100.0, review.TotalMwh)
}

func TestBuildEnergyReview_Empty(t *testing.T) {
	review := BuildEnergyReview(uuid.New(), 2024, nil)

	assert.Zero(t, review.TotalMwh)
	assert.Empty(t, review.Uses)
	assert.NotNil(t, review.SignificantUses)
	assert.Zero(t, review.SeuCount)
}

func TestCalculateEnergyReview_Persist(t *testing.T) {
	org := baseOrg()
	svc, repo := newTestService(t, org)
	seedConsumption(repo, org.ID)
	ctx := context.Background()

	review, err := svc.CalculateEnergyReview(ctx, org.ID, 2024, false)
	require.NoError(t, err)
	assert.False(t, review.Persisted)
	stored, err := repo.GetEnergyReview(ctx, org.ID, 2024)
	require.NoError(t, err)
	assert.Nil(t, stored)

	review, err = svc.CalculateEnergyReview(ctx, org.ID, 2024, true)
	require.NoError(t, err)
	assert.True(t, review.Persisted)

	stored, err = repo.GetEnergyReview(ctx, org.ID, 2024)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 800.0, stored.TotalMwh)
	assert.Equal(t, 2, stored.SeuCount)
	assert.Equal(t, svc.now(), stored.ReviewedAt)
}

func TestCalculateEnergyReview_UnknownOrganization(t *testing.T) {
	svc, _ := newTestService(t, baseOrg())

	_, err := svc.CalculateEnergyReview(context.Background(), uuid.New(), 2024, true)
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestSetBaseline(t *testing.T) {
	org := baseOrg()
	svc, repo := newTestService(t, org)
	seedConsumption(repo, org.ID)
	ctx := context.Background()

	baseline, err := svc.SetBaseline(ctx, org.ID, 2023)
	require.NoError(t, err)
	assert.Equal(t, 2023, baseline.BaselineYear)
	assert.Equal(t, 1000.0, baseline.TotalMwh)
	require.NotNil(t, baseline.MwhPerM2)
	assert.Equal(t, 1.0, *baseline.MwhPerM2)
	require.NotNil(t, baseline.MwhPerEmployee)
	assert.Equal(t, 25.0, *baseline.MwhPerEmployee)
	assert.True(t, baseline.IsCurrent)

	current, err := repo.GetCurrentEnergyBaseline(ctx, org.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, baseline.ID, current.ID)
}

func TestSetBaseline_SameYearTwice(t *testing.T) {
	org := baseOrg()
	svc, repo := newTestService(t, org)
	seedConsumption(repo, org.ID)
	ctx := context.Background()

	first, err := svc.SetBaseline(ctx, org.ID, 2023)
	require.NoError(t, err)
	_, err = svc.SetBaseline(ctx, org.ID, 2024)
	require.NoError(t, err)
	again, err := svc.SetBaseline(ctx, org.ID, 2023)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	assert.Equal(t, 2, repo.BaselineCount(org.ID))
	current, err := repo.GetCurrentEnergyBaseline(ctx, org.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, 2023, current.BaselineYear)
}

func TestSetBaseline_Rejections(t *testing.T) {
	org := baseOrg()
	svc, repo := newTestService(t, org)
	seedConsumption(repo, org.ID)
	ctx := context.Background()

	_, err := svc.SetBaseline(ctx, org.ID, 2022)
	assert.ErrorIs(t, err, compliance.ErrNoData)

	_, err = svc.SetBaseline(ctx, org.ID, 2030)
	assert.ErrorIs(t, err, compliance.ErrInvalidArgument)

	_, err = svc.SetBaseline(ctx, org.ID, 1980)
	assert.ErrorIs(t, err, compliance.ErrInvalidArgument)
}

func TestCalculateEnPIs_AgainstBaseline(t *testing.T) {
	org := baseOrg()
	svc, repo := newTestService(t, org)
	seedConsumption(repo, org.ID)
	ctx := context.Background()

	_, err := svc.SetBaseline(ctx, org.ID, 2023)
	require.NoError(t, err)

	enpis, err := svc.CalculateEnPIs(ctx, org.ID, 2024)
	require.NoError(t, err)
	require.Len(t, enpis, 3)

	byCode := map[string]inventory.EnergyPerformanceIndicator{}
	for _, e := range enpis {
		byCode[e.Code] = e
	}

	total := byCode[EnPITotal]
	assert.Equal(t, 800.0, total.Value)
	require.NotNil(t, total.BaselineValue)
	assert.Equal(t, 1000.0, *total.BaselineValue)
	require.NotNil(t, total.ImprovementPercent)
	assert.Equal(t, 20.0, *total.ImprovementPercent)

	perArea := byCode[EnPIPerArea]
	assert.Equal(t, 0.8, perArea.Value)
	require.NotNil(t, perArea.ImprovementPercent)
	assert.Equal(t, 20.0, *perArea.ImprovementPercent)

	perEmployee := byCode[EnPIPerEmployee]
	assert.Equal(t, 20.0, perEmployee.Value)
	require.NotNil(t, perEmployee.ImprovementPercent)
	assert.Equal(t, 20.0, *perEmployee.ImprovementPercent)
}

func TestCalculateEnPIs_WithoutBaselineOrIntensityData(t *testing.T) {
	org := baseOrg()
	org.FloorAreaM2 = nil
	org.EmployeeCount = nil
	svc, repo := newTestService(t, org)
	seedConsumption(repo, org.ID)

	enpis, err := svc.CalculateEnPIs(context.Background(), org.ID, 2024)
	require.NoError(t, err)
	require.Len(t, enpis, 1)
	assert.Equal(t, EnPITotal, enpis[0].Code)
	assert.Nil(t, enpis[0].BaselineValue)
	assert.Nil(t, enpis[0].ImprovementPercent)
}

func TestCalculateEnPIs_Idempotent(t *testing.T) {
	org := baseOrg()
	svc, repo := newTestService(t, org)
	seedConsumption(repo, org.ID)
	ctx := context.Background()

	first, err := svc.CalculateEnPIs(ctx, org.ID, 2024)
	require.NoError(t, err)
	second, err := svc.CalculateEnPIs(ctx, org.ID, 2024)
	require.NoError(t, err)

	stored, err := repo.ListEnergyPerformanceIndicators(ctx, org.ID, 2024)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestGenerateReport_Empty(t *testing.T) {
	org := inventory.Organization{ID: uuid.New(), Name: "Empty"}
	svc, _ := newTestService(t, org)

	report, err := svc.GenerateReport(context.Background(), org.ID, 2024)
	require.NoError(t, err)

	require.Len(t, report.Sections, 7)
	keys := make([]string, len(report.Sections))
	for i, s := range report.Sections {
		keys[i] = s.Key
	}
	assert.Equal(t, []string{"context", "leadership", "planning", "support", "operation", "performance_evaluation", "improvement"}, keys)

	support := report.Sections[3]
	assert.True(t, support.Placeholder)
	assert.Equal(t, SupportClausePlaceholderScore, support.Score)

	assert.Equal(t, 11.43, report.OverallScore)
	assert.Equal(t, compliance.LevelNonCompliant, report.Level)
	assert.False(t, report.CertificationReady)
	assert.Len(t, report.Recommendations, 19)
	assert.NotNil(t, report.EnPIs)
	require.NotNil(t, report.EnergyReview)
	assert.Zero(t, report.EnergyReview.TotalMwh)
}

func TestGenerateReport_CertificationReady(t *testing.T) {
	text := func(s string) *string { return &s }
	approved := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	reviewed := time.Date(2024, 11, 20, 0, 0, 0, 0, time.UTC)

	org := baseOrg()
	org.Sector = "manufacturing"
	org.EnergyManagementScope = text("All German production sites")
	org.EnergyPolicy = text("We commit to continual improvement of energy performance")
	org.EnergyPolicyApprovedAt = &approved
	org.EnergyManagerName = text("J. Weber")
	org.LastManagementReviewAt = &reviewed
	org.HasRenewableEnergy = true

	svc, repo := newTestService(t, org)
	seedConsumption(repo, org.ID)
	repo.AddEnergyTargets(
		inventory.EnergyTarget{ID: uuid.New(), OrganizationID: org.ID, TargetYear: 2027, TargetReductionPercent: 15, HasActionPlan: true, Status: inventory.TargetStatusActive},
		inventory.EnergyTarget{ID: uuid.New(), OrganizationID: org.ID, TargetYear: 2024, TargetReductionPercent: 10, HasActionPlan: true, Status: inventory.TargetStatusAchieved},
	)
	repo.AddEnergyAudits(inventory.EnergyAudit{
		ID:                    uuid.New(),
		OrganizationID:        org.ID,
		AuditDate:             time.Date(2024, 9, 10, 0, 0, 0, 0, time.UTC),
		AuditType:             "internal",
		Status:                inventory.AuditCompleted,
		NonconformitiesClosed: 3,
	})

	ctx := context.Background()
	_, err := svc.SetBaseline(ctx, org.ID, 2023)
	require.NoError(t, err)
	_, err = svc.CalculateEnergyReview(ctx, org.ID, 2024, true)
	require.NoError(t, err)
	_, err = svc.CalculateEnPIs(ctx, org.ID, 2024)
	require.NoError(t, err)

	report, err := svc.GenerateReport(ctx, org.ID, 2024)
	require.NoError(t, err)

	for _, s := range report.Sections {
		if s.Placeholder {
			continue
		}
		assert.Equal(t, 100.0, s.Score, s.Key)
	}
	assert.Equal(t, 97.14, report.OverallScore)
	assert.Equal(t, compliance.LevelCompliant, report.Level)
	assert.True(t, report.CertificationReady)
	assert.Empty(t, report.Recommendations)
	assert.Len(t, report.EnPIs, 3)
}

func TestGenerateReport_OpenNonconformities(t *testing.T) {
	org := baseOrg()
	svc, repo := newTestService(t, org)
	repo.AddEnergyAudits(inventory.EnergyAudit{
		ID:                  uuid.New(),
		OrganizationID:      org.ID,
		AuditDate:           time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC),
		Status:              inventory.AuditCompleted,
		NonconformitiesOpen: 2,
	})

	report, err := svc.GenerateReport(context.Background(), org.ID, 2024)
	require.NoError(t, err)

	var refs []string
	for _, r := range report.Recommendations {
		refs = append(refs, r.Reference)
	}
	assert.Contains(t, refs, "9.2")
	assert.Contains(t, refs, "10.1")
}
