package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"carbex/compliance-portal/compliance-backend/internal/compliance/cache"
	"carbex/compliance-portal/compliance-backend/internal/compliance/csrd"
	"carbex/compliance-portal/compliance-backend/internal/compliance/esrs"
	"carbex/compliance-portal/compliance-backend/internal/compliance/german"
	"carbex/compliance-portal/compliance-backend/internal/compliance/handler"
	"carbex/compliance-portal/compliance-backend/internal/compliance/iso14064"
	"carbex/compliance-portal/compliance-backend/internal/compliance/iso50001"
	"carbex/compliance-portal/compliance-backend/internal/compliance/materiality"
	"carbex/compliance-portal/compliance-backend/internal/compliance/uncertainty"
	"carbex/compliance-portal/compliance-backend/internal/config"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

// ComplianceAPI holds the compliance API dependencies
type ComplianceAPI struct {
	Handler     *handler.Handler
	Repository  inventory.Repository
	Indicators  *esrs.Calculator
	Uncertainty *uncertainty.Service
	Materiality *materiality.Service
	CSRD        *csrd.Service
	German      *german.Service
	ISO14064    *iso14064.Service
	ISO50001    *iso50001.Service
	Cache       *cache.ReportCache
}

// SetupComplianceAPI sets up the compliance API on the inventory database (sqlx) and the
// compliance stores (gorm)
func SetupComplianceAPI(db *sqlx.DB, gormDB *gorm.DB, cfg config.ComplianceConfig, autoMigrate bool, logger *zap.Logger) (*ComplianceAPI, error) {
	indicatorStore := esrs.NewGormStore(gormDB)
	materialityStore := materiality.NewGormStore(gormDB)
	if autoMigrate {
		if err := indicatorStore.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate indicator store: %w", err)
		}
		if err := materialityStore.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate materiality store: %w", err)
		}
	}

	return NewComplianceAPI(inventory.NewPostgresRepository(db), indicatorStore, materialityStore, cfg, logger), nil
}

// NewComplianceAPI wires the compliance services over the given stores
func NewComplianceAPI(repo inventory.Repository, indicatorStore esrs.Store, materialityStore materiality.Store, cfg config.ComplianceConfig, logger *zap.Logger) *ComplianceAPI {
	indicators := esrs.NewCalculator(repo, indicatorStore, logger)
	matrix := materiality.NewService(materialityStore, cfg.MaterialityThreshold, logger)

	api := &ComplianceAPI{
		Repository:  repo,
		Indicators:  indicators,
		Uncertainty: uncertainty.NewService(repo, logger),
		Materiality: matrix,
		CSRD:        csrd.NewService(repo, indicators, matrix, logger),
		German:      german.NewService(repo, indicators, matrix, german.Controls(cfg.PlatformControls), logger),
		ISO14064:    iso14064.NewService(repo, logger),
		ISO50001:    iso50001.NewService(repo, logger),
	}
	if cfg.CacheTTL > 0 {
		api.Cache = cache.New(cfg.CacheTTL, time.Minute)
	}

	api.Handler = handler.NewHandler(handler.Services{
		CSRD:        api.CSRD,
		German:      api.German,
		ISO14064:    api.ISO14064,
		ISO50001:    api.ISO50001,
		ESRS:        api.Indicators,
		Uncertainty: api.Uncertainty,
		Materiality: api.Materiality,
		Assessments: repo,
		Cache:       api.Cache,
	}, logger)

	return api
}

// RegisterComplianceRoutes registers the compliance routes on the router group
func RegisterComplianceRoutes(router *gin.RouterGroup, api *ComplianceAPI) {
	api.Handler.RegisterRoutes(router)
}

// Close stops background work owned by the API
func (a *ComplianceAPI) Close() {
	if a.Cache != nil {
		a.Cache.Stop()
	}
}
