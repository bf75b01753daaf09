package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/response"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/service"
)

// CheckSingleDeviceLogin validates the JWT's JTI against the active login in Redis.
// If the JTI doesn't match, the request is rejected (the login was reset or the
// employee signed in elsewhere).
func CheckSingleDeviceLogin(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if err := authService.ValidateLogin(c.Request.Context(), claims.EmployeeID, claims.ID); err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrLoginInvalidated)
			return
		}

		c.Next()
	}
}
