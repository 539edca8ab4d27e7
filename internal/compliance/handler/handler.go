package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbex/compliance-portal/compliance-backend/internal/compliance"
	"carbex/compliance-portal/compliance-backend/internal/compliance/cache"
	"carbex/compliance-portal/compliance-backend/internal/compliance/csrd"
	"carbex/compliance-portal/compliance-backend/internal/compliance/esrs"
	"carbex/compliance-portal/compliance-backend/internal/compliance/german"
	"carbex/compliance-portal/compliance-backend/internal/compliance/iso14064"
	"carbex/compliance-portal/compliance-backend/internal/compliance/iso50001"
	"carbex/compliance-portal/compliance-backend/internal/compliance/materiality"
	"carbex/compliance-portal/compliance-backend/internal/compliance/uncertainty"
	"carbex/compliance-portal/compliance-backend/internal/inventory"
)

// AssessmentLookup resolves the organization of an assessment
type AssessmentLookup interface {
	GetAssessment(ctx context.Context, id uuid.UUID) (*inventory.Assessment, error)
}

// Services are the compliance services exposed over HTTP. Cache may be nil.
type Services struct {
	CSRD        *csrd.Service
	German      *german.Service
	ISO14064    *iso14064.Service
	ISO50001    *iso50001.Service
	ESRS        *esrs.Calculator
	Uncertainty *uncertainty.Service
	Materiality *materiality.Service
	Assessments AssessmentLookup
	Cache       *cache.ReportCache
}

// Handler handles HTTP requests for compliance scoring
type Handler struct {
	services Services
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates a new compliance handler
func NewHandler(services Services, logger *zap.Logger) *Handler {
	return &Handler{
		services: services,
		logger:   logger,
		now:      time.Now,
	}
}

// RegisterRoutes registers compliance routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	c := router.Group("/compliance")
	{
		org := c.Group("/organizations/:orgId")

		// Orchestrated reports
		org.GET("/csrd", h.getCsrdReport)
		org.GET("/csrd/applicability", h.getCsrdApplicability)
		org.GET("/german", h.getGermanReport)

		// ISO 14064-1
		org.GET("/iso14064", h.getIso14064Report)
		org.GET("/iso14064/inventory", h.getGhgInventory)
		org.GET("/iso14064/net-emissions", h.getNetEmissions)
		org.POST("/iso14064/recalculation-check", h.checkRecalculation)
		org.PUT("/iso14064/base-year", h.setBaseYear)

		// ISO 50001
		org.GET("/iso50001", h.getIso50001Report)
		org.GET("/iso50001/energy-review", h.getEnergyReview)
		org.POST("/iso50001/energy-review", h.saveEnergyReview)
		org.GET("/iso50001/enpis", h.listEnPIs)
		org.POST("/iso50001/enpis", h.calculateEnPIs)
		org.POST("/iso50001/baseline", h.setEnergyBaseline)

		// Double materiality
		org.POST("/materiality/:year/initialize", h.initializeMateriality)
		org.PUT("/materiality/:year/topics/:topic/impact", h.updateImpact)
		org.PUT("/materiality/:year/topics/:topic/financial", h.updateFinancial)
		org.POST("/materiality/:year/topics/:topic/approve", h.approveTopic)
		org.POST("/materiality/:year/calculate", h.calculateMateriality)
		org.GET("/materiality/:year/matrix", h.getMatrix)

		// Assessment-scoped calculations
		assessment := c.Group("/assessments/:assessmentId")
		assessment.POST("/esrs/calculate", h.calculateEsrs)
		assessment.GET("/esrs/status", h.getEsrsStatus)
		assessment.GET("/uncertainty", h.getUncertainty)
		assessment.POST("/uncertainty", h.updateUncertainty)
	}
}

// =====================================================
// Report Endpoints
// =====================================================

// getCsrdReport handles GET /api/v1/compliance/organizations/:orgId/csrd
func (h *Handler) getCsrdReport(c *gin.Context) {
	orgID, year, ok := h.orgAndYear(c)
	if !ok {
		return
	}

	report, err := cached(h, "csrd", orgID, year, func() (*csrd.Report, error) {
		return h.services.CSRD.GenerateReport(c.Request.Context(), orgID, year)
	})
	if err != nil {
		h.respondError(c, "Failed to generate CSRD report", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// getCsrdApplicability handles GET /api/v1/compliance/organizations/:orgId/csrd/applicability
func (h *Handler) getCsrdApplicability(c *gin.Context) {
	orgID, ok := h.uuidParam(c, "orgId")
	if !ok {
		return
	}

	applicability, err := h.services.CSRD.Applicability(c.Request.Context(), orgID)
	if err != nil {
		h.respondError(c, "Failed to determine CSRD applicability", err)
		return
	}

	c.JSON(http.StatusOK, applicability)
}

// getGermanReport handles GET /api/v1/compliance/organizations/:orgId/german
func (h *Handler) getGermanReport(c *gin.Context) {
	orgID, year, ok := h.orgAndYear(c)
	if !ok {
		return
	}

	report, err := cached(h, "german", orgID, year, func() (*german.Report, error) {
		return h.services.German.GenerateReport(c.Request.Context(), orgID, year)
	})
	if err != nil {
		h.respondError(c, "Failed to generate German compliance report", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// =====================================================
// ISO 14064 Endpoints
// =====================================================

// getIso14064Report handles GET /api/v1/compliance/organizations/:orgId/iso14064
func (h *Handler) getIso14064Report(c *gin.Context) {
	orgID, year, ok := h.orgAndYear(c)
	if !ok {
		return
	}

	report, err := cached(h, "iso14064", orgID, year, func() (*iso14064.Report, error) {
		return h.services.ISO14064.GenerateReport(c.Request.Context(), orgID, year)
	})
	if err != nil {
		h.respondError(c, "Failed to generate ISO 14064 report", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// getGhgInventory handles GET /api/v1/compliance/organizations/:orgId/iso14064/inventory
func (h *Handler) getGhgInventory(c *gin.Context) {
	orgID, year, ok := h.orgAndYear(c)
	if !ok {
		return
	}

	inv, err := h.services.ISO14064.CalculateGhgInventory(c.Request.Context(), orgID, year)
	if err != nil {
		h.respondError(c, "Failed to calculate GHG inventory", err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

// getNetEmissions handles GET /api/v1/compliance/organizations/:orgId/iso14064/net-emissions
func (h *Handler) getNetEmissions(c *gin.Context) {
	orgID, year, ok := h.orgAndYear(c)
	if !ok {
		return
	}

	net, err := h.services.ISO14064.CalculateNetEmissions(c.Request.Context(), orgID, year)
	if err != nil {
		h.respondError(c, "Failed to calculate net emissions", err)
		return
	}

	c.JSON(http.StatusOK, net)
}

// checkRecalculation handles POST /api/v1/compliance/organizations/:orgId/iso14064/recalculation-check
func (h *Handler) checkRecalculation(c *gin.Context) {
	orgID, ok := h.uuidParam(c, "orgId")
	if !ok {
		return
	}
	var req iso14064.RecalculationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	check, err := h.services.ISO14064.CheckRecalculationNeeded(c.Request.Context(), orgID, req)
	if err != nil {
		h.respondError(c, "Failed to check base-year recalculation", err)
		return
	}

	c.JSON(http.StatusOK, check)
}

// setBaseYear handles PUT /api/v1/compliance/organizations/:orgId/iso14064/base-year
func (h *Handler) setBaseYear(c *gin.Context) {
	orgID, ok := h.uuidParam(c, "orgId")
	if !ok {
		return
	}
	var req iso14064.BaseYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	base, err := h.services.ISO14064.SetBaseYear(c.Request.Context(), orgID, req)
	if err != nil {
		h.respondError(c, "Failed to set base year", err)
		return
	}
	h.invalidate(orgID)

	c.JSON(http.StatusOK, base)
}

// =====================================================
// ISO 50001 Endpoints
// =====================================================

// getIso50001Report handles GET /api/v1/compliance/organizations/:orgId/iso50001
func (h *Handler) getIso50001Report(c *gin.Context) {
	orgID, year, ok := h.orgAndYear(c)
	if !ok {
		return
	}

	report, err := cached(h, "iso50001", orgID, year, func() (*iso50001.Report, error) {
		return h.services.ISO50001.GenerateReport(c.Request.Context(), orgID, year)
	})
	if err != nil {
		h.respondError(c, "Failed to generate ISO 50001 report", err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// getEnergyReview handles GET /api/v1/compliance/organizations/:orgId/iso50001/energy-review
func (h *Handler) getEnergyReview(c *gin.Context) {
	h.energyReview(c, false)
}

// saveEnergyReview handles POST /api/v1/compliance/organizations/:orgId/iso50001/energy-review
func (h *Handler) saveEnergyReview(c *gin.Context) {
	h.energyReview(c, true)
}

func (h *Handler) energyReview(c *gin.Context, persist bool) {
	orgID, year, ok := h.orgAndYear(c)
	if !ok {
		return
	}

	review, err := h.services.ISO50001.CalculateEnergyReview(c.Request.Context(), orgID, year, persist)
	if err != nil {
		h.respondError(c, "Failed to calculate energy review", err)
		return
	}
	if persist {
		h.invalidate(orgID)
	}

	c.JSON(http.StatusOK, review)
}

// listEnPIs handles GET /api/v1/compliance/organizations/:orgId/iso50001/enpis
func (h *Handler) listEnPIs(c *gin.Context) {
	orgID, year, ok := h.orgAndYear(c)
	if !ok {
		return
	}

	enpis, err := h.services.ISO50001.ListEnPIs(c.Request.Context(), orgID, year)
	if err != nil {
		h.respondError(c, "Failed to load EnPIs", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"enpis": enpis, "year": year})
}

// calculateEnPIs handles POST /api/v1/compliance/organizations/:orgId/iso50001/enpis
func (h *Handler) calculateEnPIs(c *gin.Context) {
	orgID, year, ok := h.orgAndYear(c)
	if !ok {
		return
	}

	enpis, err := h.services.ISO50001.CalculateEnPIs(c.Request.Context(), orgID, year)
	if err != nil {
		h.respondError(c, "Failed to calculate EnPIs", err)
		return
	}
	h.invalidate(orgID)

	c.JSON(http.StatusOK, gin.H{"enpis": enpis, "year": year})
}

// BaselineRequest selects the year stored as energy baseline
type BaselineRequest struct {
	Year int `json:"year" binding:"required"`
}

// setEnergyBaseline handles POST /api/v1/compliance/organizations/:orgId/iso50001/baseline
func (h *Handler) setEnergyBaseline(c *gin.Context) {
	orgID, ok := h.uuidParam(c, "orgId")
	if !ok {
		return
	}
	var req BaselineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	baseline, err := h.services.ISO50001.SetBaseline(c.Request.Context(), orgID, req.Year)
	if err != nil {
		h.respondError(c, "Failed to set energy baseline", err)
		return
	}
	h.invalidate(orgID)

	c.JSON(http.StatusCreated, baseline)
}

// =====================================================
// Helper Functions
// =====================================================

// cached serves a report from the report cache when one is configured
func cached[T any](h *Handler, kind string, orgID uuid.UUID, year int, compute func() (T, error)) (T, error) {
	if h.services.Cache == nil {
		return compute()
	}
	return cache.Fetch(h.services.Cache, cache.Key(kind, orgID, year), compute)
}

func (h *Handler) invalidate(orgID uuid.UUID) {
	if h.services.Cache != nil {
		h.services.Cache.InvalidateOrganization(orgID)
	}
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, compliance.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, inventory.ErrNotFound), errors.Is(err, materiality.ErrTopicNotFound):
		return http.StatusNotFound
	case errors.Is(err, compliance.ErrSelfApproval), errors.Is(err, compliance.ErrNotAssessed):
		return http.StatusConflict
	case errors.Is(err, compliance.ErrNoData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err), zap.String("path", c.FullPath()))
	} else {
		h.logger.Warn(msg, zap.Error(err), zap.String("path", c.FullPath()), zap.Int("status", status))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// year reads a reporting year from a path or query value, defaulting to the previous calendar year
func (h *Handler) year(c *gin.Context, raw string) (int, bool) {
	if raw == "" {
		return h.now().Year() - 1, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1990 || year > 2100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return 0, false
	}
	return year, true
}

func (h *Handler) orgAndYear(c *gin.Context) (uuid.UUID, int, bool) {
	orgID, ok := h.uuidParam(c, "orgId")
	if !ok {
		return uuid.Nil, 0, false
	}
	year, ok := h.year(c, c.Query("year"))
	if !ok {
		return uuid.Nil, 0, false
	}
	return orgID, year, true
}

// getUserID reads the acting user from the X-User-ID header
func (h *Handler) getUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetHeader("X-User-ID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid X-User-ID header"})
		return uuid.Nil, false
	}
	return id, true
}

// getFloatParam gets a float query parameter with a default value
func (h *Handler) getFloatParam(c *gin.Context, key string, defaultVal float64) float64 {
	if val := c.Query(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
