package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-results-api/internal/service"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
	"github.com/noah-isme/school-results-api/pkg/response"
)

// ReportHandler exposes report card and ranking endpoints.
type ReportHandler struct {
	reports *service.ReportService
	ranking *service.RankingService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService, ranking *service.RankingService) *ReportHandler {
	return &ReportHandler{reports: reports, ranking: ranking}
}

// Report godoc
// @Summary Get a student's report card payload
// @Tags Reports
// @Produce json
// @Param studentId path string true "Student ID"
// @Param termId query string true "Term ID"
// @Param sessionId query string true "Session ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/students/{studentId} [get]
func (h *ReportHandler) Report(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	termID, sessionID := c.Query("termId"), c.Query("sessionId")
	if termID == "" || sessionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId and sessionId are required"))
		return
	}
	payload, fromCache, err := h.reports.Report(c.Request.Context(), claims.SchoolID, c.Param("studentId"), termID, sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil, map[string]interface{}{"cached": fromCache})
}

// ParentReport godoc
// @Summary Get a linked child's report card
// @Description Parents only see released sessions and their own linked students
// @Tags Reports
// @Produce json
// @Param studentId path string true "Student ID"
// @Param termId query string true "Term ID"
// @Param sessionId query string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/parent/{studentId} [get]
func (h *ReportHandler) ParentReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	termID, sessionID := c.Query("termId"), c.Query("sessionId")
	if termID == "" || sessionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId and sessionId are required"))
		return
	}
	payload, err := h.reports.ParentReport(c.Request.Context(), claims, c.Param("studentId"), termID, sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil)
}

// ClassStanding godoc
// @Summary Rank a class cohort for a period
// @Tags Reports
// @Produce json
// @Param classLevelId path string true "Class level ID"
// @Param termId query string true "Term ID"
// @Param sessionId query string true "Session ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/ranking/{classLevelId} [get]
func (h *ReportHandler) ClassStanding(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	termID, sessionID := c.Query("termId"), c.Query("sessionId")
	if termID == "" || sessionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "termId and sessionId are required"))
		return
	}
	ranked, err := h.ranking.ClassStanding(c.Request.Context(), claims.SchoolID, c.Param("classLevelId"), sessionID, termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ranked, nil)
}
