package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-results-api/internal/service"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
	"github.com/noah-isme/school-results-api/pkg/response"
)

// ResultHandler exposes score entry and aggregation endpoints. Writes go
// to the school's current session and term; reads accept explicit
// period parameters.
type ResultHandler struct {
	results *service.ResultService
}

// NewResultHandler constructs handler.
func NewResultHandler(results *service.ResultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// Upsert godoc
// @Summary Record scores for the current term
// @Description Upserts one or more subject scores; a batch with any CA+exam above 100 is rejected whole
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.UpsertResultRequest true "Scores payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /results [post]
func (h *ResultHandler) Upsert(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpsertResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid scores payload"))
		return
	}
	results, err := h.results.Upsert(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// List godoc
// @Summary List a student's subject results for a period
// @Tags Results
// @Produce json
// @Param studentId path string true "Student ID"
// @Param termId query string true "Term ID"
// @Param sessionId query string true "Session ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results/{studentId} [get]
func (h *ResultHandler) List(c *gin.Context) {
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
	results, err := h.results.List(c.Request.Context(), claims.SchoolID, c.Param("studentId"), termID, sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// TermTotal godoc
// @Summary Get a student's term aggregate
// @Tags Results
// @Produce json
// @Param studentId path string true "Student ID"
// @Param termId query string true "Term ID"
// @Param sessionId query string true "Session ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results/{studentId}/total [get]
func (h *ResultHandler) TermTotal(c *gin.Context) {
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
	total, err := h.results.TermTotal(c.Request.Context(), claims.SchoolID, c.Param("studentId"), termID, sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, total, nil)
}

// Reset godoc
// @Summary Reset a student's current-term scores
// @Description Deletes all subject results and the term aggregate for the current period
// @Tags Results
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /results/{studentId} [delete]
func (h *ResultHandler) Reset(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	deleted, err := h.results.Reset(c.Request.Context(), claims, c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"deleted": deleted}, nil)
}

// UpdateComments godoc
// @Summary Update teacher and principal comments on a term aggregate
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.UpdateCommentsRequest true "Comments payload"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /results/comments [put]
func (h *ResultHandler) UpdateComments(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateCommentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid comments payload"))
		return
	}
	if err := h.results.UpdateComments(c.Request.Context(), claims, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
