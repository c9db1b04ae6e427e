package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"advisoryhub/internal/domain/auth"
	"advisoryhub/internal/pkg/response"
)

// JWTAuth requires a valid bearer token and stores the session under
// auth.ContextSessionKey, plus "user_id" and "role" for logging.
func JWTAuth(sessions auth.SessionContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.CustomError(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			c.Abort()
			return
		}
		token, ok := bearerToken(header)
		if !ok {
			response.CustomError(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be Bearer <token>")
			c.Abort()
			return
		}

		sess, err := sessions.GetSession(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrSessionRevoked) {
				response.CustomError(c, http.StatusUnauthorized, "SESSION_REVOKED", "Session has been signed out")
			} else {
				response.CustomError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			}
			c.Abort()
			return
		}
		setSession(c, sess)
		c.Next()
	}
}

// OptionalAuth attaches a session when a valid token is present and lets
// the request through anonymously otherwise.
func OptionalAuth(sessions auth.SessionContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if sess, err := sessions.GetSession(c.Request.Context(), token); err == nil {
				setSession(c, sess)
			}
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func setSession(c *gin.Context, sess *auth.Session) {
	c.Set(auth.ContextSessionKey, sess)
	c.Set("user_id", sess.UserID)
	c.Set("role", string(sess.Role))
}
