package application

import "github.com/gin-gonic/gin"

func RegisterRoutes(protected *gin.RouterGroup, h *Handler) {
	protected.POST("/listings/:id/apply", h.Apply)
	protected.GET("/listings/:id/applicants", h.Applicants)
	protected.GET("/applications/mine", h.Mine)
}
