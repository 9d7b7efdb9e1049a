package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobmarket/internal/pkg/jwt"
	"jobmarket/internal/pkg/response"
	"jobmarket/internal/session"
)

// JWTAuth validates the bearer token and attaches the caller to both the gin
// context ("user_id", "role") and the request context as a session principal.
// Browsers cannot set headers on websocket upgrades, so a "token" query
// parameter is accepted as well.
func JWTAuth(tokens *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization token")
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(raw)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		ctx := session.WithPrincipal(c.Request.Context(), &session.Principal{
			ID:   claims.UserID,
			Role: session.Role(claims.Role),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}

// UserID returns the authenticated caller's id, or "" outside JWTAuth.
func UserID(c *gin.Context) string {
	return c.GetString("user_id")
}
