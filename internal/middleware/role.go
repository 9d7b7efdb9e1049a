package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobmarket/internal/domain"
	"jobmarket/internal/pkg/response"
	"jobmarket/internal/session"
)

// RoleSource looks up a user's current role.
type RoleSource interface {
	RoleOf(ctx context.Context, userID string) (session.Role, error)
}

// RequireRole ensures that the authenticated user currently holds one of the
// roles. The role is read from roles on every request, not from the token,
// and replaces the principal's role for the rest of the chain.
func RequireRole(roles RoleSource, allowed ...session.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := session.CurrentUser(c.Request.Context())
		if p == nil {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			c.Abort()
			return
		}

		role, err := roles.RoleOf(c.Request.Context(), p.ID)
		if errors.Is(err, domain.ErrNotFound) {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unknown user")
			c.Abort()
			return
		}
		if err != nil {
			log.Printf("role_lookup_failed user_id=%s err=%v", p.ID, err)
			response.FromError(c, err)
			c.Abort()
			return
		}

		c.Set("role", string(role))
		ctx := session.WithPrincipal(c.Request.Context(), &session.Principal{ID: p.ID, Role: role})
		c.Request = c.Request.WithContext(ctx)

		for _, r := range allowed {
			if role == r {
				c.Next()
				return
			}
		}

		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
		c.Abort()
	}
}

// AdminOnly middleware requires admin role
func AdminOnly(roles RoleSource) gin.HandlerFunc {
	return RequireRole(roles, session.RoleAdmin, session.RoleSystem)
}
