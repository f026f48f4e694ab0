package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-results-api/internal/service"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
	"github.com/noah-isme/school-results-api/pkg/response"
)

// SubscriptionHandler exposes subscription status and activation.
type SubscriptionHandler struct {
	subscriptions *service.SubscriptionService
}

// NewSubscriptionHandler constructs handler.
func NewSubscriptionHandler(subscriptions *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// Status godoc
// @Summary Get own subscription status
// @Tags Subscriptions
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /subscriptions/me [get]
func (h *SubscriptionHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	sub, err := h.subscriptions.Status(c.Request.Context(), claims.SchoolID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// Activate godoc
// @Summary Record a subscription activation
// @Description Stores the outcome of an out-of-band payment
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param payload body service.ActivateSubscriptionRequest true "Activation payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /subscriptions/activate [post]
func (h *SubscriptionHandler) Activate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.ActivateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activation payload"))
		return
	}
	sub, err := h.subscriptions.Activate(c.Request.Context(), claims.SchoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}
