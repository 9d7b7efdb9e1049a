package favorite

import "github.com/gin-gonic/gin"

func RegisterRoutes(protected *gin.RouterGroup, h *Handler) {
	favorites := protected.Group("/favorites")
	{
		favorites.GET("", h.GetFavorites)
		favorites.POST("/:jobId", h.AddFavorite)
		favorites.DELETE("/:id", h.RemoveFavorite)
		favorites.GET("/:jobId/check", h.CheckFavorite)
	}
}
