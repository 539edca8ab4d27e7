package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carbex/compliance-portal/compliance-backend/internal/compliance/materiality"
)

// =====================================================
// Materiality Endpoints
// =====================================================

func (h *Handler) materialityScope(c *gin.Context) (uuid.UUID, int, bool) {
	orgID, ok := h.uuidParam(c, "orgId")
	if !ok {
		return uuid.Nil, 0, false
	}
	year, ok := h.year(c, c.Param("year"))
	if !ok {
		return uuid.Nil, 0, false
	}
	return orgID, year, true
}

// initializeMateriality handles POST /api/v1/compliance/organizations/:orgId/materiality/:year/initialize
func (h *Handler) initializeMateriality(c *gin.Context) {
	orgID, year, ok := h.materialityScope(c)
	if !ok {
		return
	}

	rows, err := h.services.Materiality.Initialize(c.Request.Context(), orgID, year)
	if err != nil {
		h.respondError(c, "Failed to initialize materiality assessment", err)
		return
	}
	h.invalidate(orgID)

	c.JSON(http.StatusOK, gin.H{"topics": rows, "count": len(rows)})
}

// updateImpact handles PUT /api/v1/compliance/organizations/:orgId/materiality/:year/topics/:topic/impact
func (h *Handler) updateImpact(c *gin.Context) {
	orgID, year, ok := h.materialityScope(c)
	if !ok {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	var input materiality.ImpactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row, err := h.services.Materiality.UpdateImpact(c.Request.Context(), orgID, year, c.Param("topic"), input, userID)
	if err != nil {
		h.respondError(c, "Failed to update impact materiality", err)
		return
	}
	h.invalidate(orgID)

	c.JSON(http.StatusOK, row)
}

// updateFinancial handles PUT /api/v1/compliance/organizations/:orgId/materiality/:year/topics/:topic/financial
func (h *Handler) updateFinancial(c *gin.Context) {
	orgID, year, ok := h.materialityScope(c)
	if !ok {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}
	var input materiality.FinancialInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row, err := h.services.Materiality.UpdateFinancial(c.Request.Context(), orgID, year, c.Param("topic"), input, userID)
	if err != nil {
		h.respondError(c, "Failed to update financial materiality", err)
		return
	}
	h.invalidate(orgID)

	c.JSON(http.StatusOK, row)
}

// approveTopic handles POST /api/v1/compliance/organizations/:orgId/materiality/:year/topics/:topic/approve
func (h *Handler) approveTopic(c *gin.Context) {
	orgID, year, ok := h.materialityScope(c)
	if !ok {
		return
	}
	userID, ok := h.getUserID(c)
	if !ok {
		return
	}

	row, err := h.services.Materiality.Approve(c.Request.Context(), orgID, year, c.Param("topic"), userID)
	if err != nil {
		h.respondError(c, "Failed to approve materiality topic", err)
		return
	}
	h.invalidate(orgID)

	c.JSON(http.StatusOK, row)
}

// calculateMateriality handles POST /api/v1/compliance/organizations/:orgId/materiality/:year/calculate
func (h *Handler) calculateMateriality(c *gin.Context) {
	orgID, year, ok := h.materialityScope(c)
	if !ok {
		return
	}

	result, err := h.services.Materiality.CalculateMateriality(c.Request.Context(), orgID, year, h.getFloatParam(c, "threshold", 0))
	if err != nil {
		h.respondError(c, "Failed to calculate materiality", err)
		return
	}
	h.invalidate(orgID)

	c.JSON(http.StatusOK, result)
}

// getMatrix handles GET /api/v1/compliance/organizations/:orgId/materiality/:year/matrix
func (h *Handler) getMatrix(c *gin.Context) {
	orgID, year, ok := h.materialityScope(c)
	if !ok {
		return
	}

	matrix, err := h.services.Materiality.Matrix(c.Request.Context(), orgID, year, h.getFloatParam(c, "threshold", 0))
	if err != nil {
		h.respondError(c, "Failed to build materiality matrix", err)
		return
	}

	c.JSON(http.StatusOK, matrix)
}

// =====================================================
// Assessment Endpoints
// =====================================================

// invalidateAssessment drops cached reports of the organization owning an assessment
func (h *Handler) invalidateAssessment(c *gin.Context, assessmentID uuid.UUID) {
	if h.services.Cache == nil || h.services.Assessments == nil {
		return
	}
	a, err := h.services.Assessments.GetAssessment(c.Request.Context(), assessmentID)
	if err != nil {
		return
	}
	h.invalidate(a.OrganizationID)
}

// calculateEsrs handles POST /api/v1/compliance/assessments/:assessmentId/esrs/calculate
func (h *Handler) calculateEsrs(c *gin.Context) {
	assessmentID, ok := h.uuidParam(c, "assessmentId")
	if !ok {
		return
	}

	indicators, err := h.services.ESRS.CalculateAll(c.Request.Context(), assessmentID)
	if err != nil {
		h.respondError(c, "Failed to calculate ESRS indicators", err)
		return
	}
	h.invalidateAssessment(c, assessmentID)

	c.JSON(http.StatusOK, gin.H{"indicators": indicators, "count": len(indicators)})
}

// getEsrsStatus handles GET /api/v1/compliance/assessments/:assessmentId/esrs/status
func (h *Handler) getEsrsStatus(c *gin.Context) {
	assessmentID, ok := h.uuidParam(c, "assessmentId")
	if !ok {
		return
	}

	status, err := h.services.ESRS.ComplianceStatus(c.Request.Context(), assessmentID)
	if err != nil {
		h.respondError(c, "Failed to load ESRS compliance status", err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// getUncertainty handles GET /api/v1/compliance/assessments/:assessmentId/uncertainty
func (h *Handler) getUncertainty(c *gin.Context) {
	assessmentID, ok := h.uuidParam(c, "assessmentId")
	if !ok {
		return
	}

	result, err := h.services.Uncertainty.CalculateAssessmentUncertainty(c.Request.Context(), assessmentID)
	if err != nil {
		h.respondError(c, "Failed to calculate uncertainty", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// updateUncertainty handles POST /api/v1/compliance/assessments/:assessmentId/uncertainty
func (h *Handler) updateUncertainty(c *gin.Context) {
	assessmentID, ok := h.uuidParam(c, "assessmentId")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	updated, err := h.services.Uncertainty.UpdateRecordUncertainties(ctx, assessmentID)
	if err != nil {
		h.respondError(c, "Failed to update record uncertainty", err)
		return
	}
	result, err := h.services.Uncertainty.UpdateAssessmentUncertainty(ctx, assessmentID)
	if err != nil {
		h.respondError(c, "Failed to update assessment uncertainty", err)
		return
	}
	h.invalidateAssessment(c, assessmentID)

	c.JSON(http.StatusOK, gin.H{"records_updated": updated, "uncertainty": result})
}
