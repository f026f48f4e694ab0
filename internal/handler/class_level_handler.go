package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-results-api/internal/service"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
	"github.com/noah-isme/school-results-api/pkg/response"
)

// ClassLevelHandler exposes class level endpoints. Creation order of
// levels defines the promotion ladder.
type ClassLevelHandler struct {
	levels *service.ClassLevelService
}

// NewClassLevelHandler constructs handler.
func NewClassLevelHandler(levels *service.ClassLevelService) *ClassLevelHandler {
	return &ClassLevelHandler{levels: levels}
}

// Create godoc
// @Summary Create class level
// @Tags ClassLevels
// @Accept json
// @Produce json
// @Param payload body service.CreateClassLevelRequest true "Class level payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /class-levels [post]
func (h *ClassLevelHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateClassLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid class level payload"))
		return
	}
	level, err := h.levels.Create(c.Request.Context(), claims.SchoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, level)
}

// List godoc
// @Summary List class levels in ladder order
// @Tags ClassLevels
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /class-levels [get]
func (h *ClassLevelHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	levels, err := h.levels.List(c.Request.Context(), claims.SchoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, levels, nil)
}

// Delete godoc
// @Summary Delete class level
// @Tags ClassLevels
// @Produce json
// @Param id path string true "Class level ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /class-levels/{id} [delete]
func (h *ClassLevelHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.levels.Delete(c.Request.Context(), claims.SchoolID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
