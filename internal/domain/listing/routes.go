package listing

import (
	"github.com/gin-gonic/gin"

	"jobmarket/internal/middleware"
	"jobmarket/internal/session"
)

func RegisterPublicRoutes(v1 *gin.RouterGroup, h *Handler) {
	v1.GET("/listings", h.List)
}

func RegisterProtectedRoutes(protected *gin.RouterGroup, h *Handler) {
	listings := protected.Group("/listings")
	{
		listings.GET("/mine", h.Mine)
		listings.GET("/:id", h.Get)
		listings.POST("", middleware.RequireRole(h.repo.roles, session.RoleEmployer, session.RoleAdmin), h.Create)
		listings.PATCH("/:id", h.Update)
		listings.PATCH("/:id/active", h.SetActive)
		listings.DELETE("/:id", h.Delete)
	}

	admin := protected.Group("/admin/listings", middleware.AdminOnly(h.repo.roles))
	{
		admin.GET("", h.Queue)
		admin.PATCH("/:id/moderation", h.Moderate)
	}
}
