package routes

import (
	"net/http"

	"protocol-review-api/config"
	"protocol-review-api/controllers"
	"protocol-review-api/middleware"
	"protocol-review-api/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handlers groups the controllers mounted by SetupRoutes.
type Handlers struct {
	Auth      *controllers.AuthController
	Protocols *controllers.ProtocolReviewController
}

func SetupRoutes(router *gin.Engine, cfg *config.Config, db *gorm.DB, h Handlers) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", h.Auth.Login)

			public.GET("/health", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{
					"status":  "ok",
					"message": "Protocol Review API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(cfg.JWT, cfg.Roles, db))
		{
			protocols := protected.Group("/protocols")
			{
				// Investigators author protocols, the review office works the queue
				protocols.POST("", middleware.RequireActor(models.ActorInvestigator), h.Protocols.CreateProtocol)
				protocols.GET("", h.Protocols.ListProtocols)
				protocols.GET("/:id", h.Protocols.GetProtocol)

				// Both actor classes submit actions; the engine decides who may do what
				protocols.POST("/:id/transitions", h.Protocols.SubmitTransition)
				protocols.GET("/:id/timeline", h.Protocols.GetTimeline)
				protocols.GET("/:id/status-history", h.Protocols.GetStatusHistory)
			}

			protected.GET("/reviewers", middleware.RequireActor(models.ActorOffice), h.Protocols.ListReviewers)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})
}
