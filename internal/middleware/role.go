package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"advisoryhub/internal/domain/auth"
	"advisoryhub/internal/pkg/response"
)

// RequireRole ensures that the authenticated user has the specified role
func RequireRole(requiredRole auth.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := auth.CurrentSession(c)
		if sess == nil {
			response.CustomError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			c.Abort()
			return
		}

		if sess.Role != requiredRole {
			response.CustomError(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}

func ConsultantOnly() gin.HandlerFunc {
	return RequireRole(auth.UserTypeConsultant)
}
