package v1

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbex/compliance-portal/compliance-backend/internal/compliance/esrs"
	"carbex/compliance-portal/compliance-backend/internal/compliance/materiality"
	"carbex/compliance-portal/compliance-backend/internal/config"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

func TestNewComplianceAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := inventory.NewMemoryRepository()
	org := inventory.Organization{ID: uuid.New(), Name: "Test AG", Country: "DE"}
	repo.AddOrganization(org)

	cfg := config.Default().Compliance
	cfg.PlatformControls = map[string]bool{"dpo_appointed": true}

	api := NewComplianceAPI(repo, esrs.NewMemoryStore(), materiality.NewMemoryStore(), cfg, zap.NewNop())
	defer api.Close()
	require.NotNil(t, api.Cache)

	router := gin.New()
	RegisterComplianceRoutes(router.Group("/api/v1"), api)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/v1/compliance/organizations/%s/german?year=2024", org.ID), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, api.Cache.Size())
}

func TestNewComplianceAPI_CacheDisabled(t *testing.T) {
	cfg := config.Default().Compliance
	cfg.CacheTTL = 0

	api := NewComplianceAPI(inventory.NewMemoryRepository(), esrs.NewMemoryStore(), materiality.NewMemoryStore(), cfg, zap.NewNop())
	defer api.Close()
	assert.Nil(t, api.Cache)
}

func TestNewComplianceAPI_DefaultThresholdSeparatesLowTopics(t *testing.T) {
	cfg := config.Default().Compliance
	api := NewComplianceAPI(inventory.NewMemoryRepository(), esrs.NewMemoryStore(), materiality.NewMemoryStore(), cfg, zap.NewNop())
	defer api.Close()

	ctx := context.Background()
	orgID, assessor := uuid.New(), uuid.New()

	low, err := api.Materiality.UpdateImpact(ctx, orgID, 2024, "E2", materiality.ImpactInput{Severity: 1, Likelihood: 1}, assessor)
	require.NoError(t, err)
	low, err = api.Materiality.UpdateFinancial(ctx, orgID, 2024, "E2", materiality.FinancialInput{Magnitude: 1, Likelihood: 1}, assessor)
	require.NoError(t, err)
	assert.False(t, low.IsMaterial)
	assert.Equal(t, materiality.TypeNotMaterial, low.MaterialityType)

	high, err := api.Materiality.UpdateImpact(ctx, orgID, 2024, "E1", materiality.ImpactInput{Severity: 4, Likelihood: 5}, assessor)
	require.NoError(t, err)
	assert.True(t, high.IsMaterial)
	assert.Equal(t, materiality.TypeImpact, high.MaterialityType)
}
