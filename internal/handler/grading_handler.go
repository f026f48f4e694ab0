package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-results-api/internal/service"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
	"github.com/noah-isme/school-results-api/pkg/response"
)

// GradingHandler exposes grading scale endpoints.
type GradingHandler struct {
	grading *service.GradingService
}

// NewGradingHandler constructs handler.
func NewGradingHandler(grading *service.GradingService) *GradingHandler {
	return &GradingHandler{grading: grading}
}

// Scale godoc
// @Summary Get grading scale
// @Tags Grading
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /grading/scale [get]
func (h *GradingHandler) Scale(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	bands, err := h.grading.Scale(c.Request.Context(), claims.SchoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bands, nil)
}

// Replace godoc
// @Summary Replace grading scale
// @Description Replaces the whole scale; bands must cover 0-100 contiguously without overlap
// @Tags Grading
// @Accept json
// @Produce json
// @Param payload body service.ReplaceScaleRequest true "Scale payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /grading/scale [put]
func (h *GradingHandler) Replace(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ReplaceScaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scale payload"))
		return
	}
	bands, err := h.grading.ReplaceScale(c.Request.Context(), claims.SchoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bands, nil)
}

// DeleteBand godoc
// @Summary Delete a grading band
// @Tags Grading
// @Produce json
// @Param id path string true "Band ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /grading/bands/{id} [delete]
func (h *GradingHandler) DeleteBand(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.grading.DeleteBand(c.Request.Context(), claims.SchoolID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
