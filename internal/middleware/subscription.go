package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-results-api/internal/models"
	"github.com/noah-isme/school-results-api/internal/service"
	appErrors "github.com/noah-isme/school-results-api/pkg/errors"
	"github.com/noah-isme/school-results-api/pkg/response"
)

// Subscription blocks write access for schools whose subscription has
// lapsed. Reads stay available so past results are never held hostage.
func Subscription(subscriptions *service.SubscriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if subscriptions == nil {
			c.Next()
			return
		}
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" {
			c.Next()
			return
		}
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)
		if err := subscriptions.CheckAccess(c.Request.Context(), claims.SchoolID); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
