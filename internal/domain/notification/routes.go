package notification

import "github.com/gin-gonic/gin"

// RegisterRoutes registers all notification-related routes
func RegisterRoutes(protected *gin.RouterGroup, ws *gin.RouterGroup, handler *Handler) {
	notifGroup := protected.Group("/notifications")
	{
		notifGroup.GET("", handler.GetNotifications)
		notifGroup.GET("/unread-count", handler.GetUnreadCount)
		notifGroup.PATCH("/:id/read", handler.MarkAsRead)
		notifGroup.POST("/read-all", handler.MarkAllAsRead)
		notifGroup.DELETE("/:id", handler.DeleteNotification)
	}

	ws.GET("/notifications", handler.Stream)
}
