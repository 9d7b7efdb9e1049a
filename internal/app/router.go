package app

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobmarket/internal/domain/application"
	"jobmarket/internal/domain/auth"
	"jobmarket/internal/domain/favorite"
	"jobmarket/internal/domain/feed"
	"jobmarket/internal/domain/listing"
	"jobmarket/internal/domain/notification"
	"jobmarket/internal/domain/profile"
	"jobmarket/internal/middleware"
	"jobmarket/internal/pkg/jwt"
	"jobmarket/internal/pkg/response"
)

// Router builds the HTTP surface under /api/v1.
func (a *App) Router(tokens *jwt.Service) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.CORS(a.Config.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := a.DB.DB()
		status := gin.H{"status": "ok", "db": err == nil && sqlDB.PingContext(c.Request.Context()) == nil}
		if a.Redis != nil {
			status["redis"] = a.Redis.Ping(c.Request.Context()).Err() == nil
		}
		c.JSON(http.StatusOK, status)
	})

	authHandler := auth.NewHandler(auth.NewService(a.Profiles, tokens))
	listingHandler := listing.NewHandler(a.Listings)
	applicationHandler := application.NewHandler(a.Coordinator)
	notificationHandler := notification.NewHandler(a.Notifications)
	favoriteHandler := favorite.NewHandler(a.Favorites)
	profileHandler := profile.NewHandler(a.Profiles)
	feedHandler := feed.NewHandler(a.Feed)

	ws := r.Group("/ws")
	feed.RegisterRoutes(ws, feedHandler)
	wsProtected := ws.Group("", middleware.JWTAuth(tokens))

	v1 := r.Group("/api/v1")
	{
		// public
		auth.RegisterRoutes(v1, authHandler)
		listing.RegisterPublicRoutes(v1, listingHandler)
		v1.GET("/reference", func(c *gin.Context) {
			response.Success(c, http.StatusOK, a.Ref.Catalog())
		})

		// protected
		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(tokens))
		{
			listing.RegisterProtectedRoutes(protected, listingHandler)
			application.RegisterRoutes(protected, applicationHandler)
			notification.RegisterRoutes(protected, wsProtected, notificationHandler)
			favorite.RegisterRoutes(protected, favoriteHandler)
			profile.RegisterRoutes(protected, profileHandler)
		}
	}

	return r
}
