package routes

import (
	"github.com/gin-gonic/gin"

	"algo-asset-api/controllers"
	"algo-asset-api/middleware"
	"algo-asset-api/models"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/login", controllers.Login)
			public.POST("/refresh", controllers.RefreshToken)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Algorithm Asset API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Algorithm catalog and review workflow
			algorithms := protected.Group("/algorithms")
			{
				algorithms.GET("", controllers.GetAlgorithms)
				algorithms.GET("/:id", controllers.GetAlgorithm)

				// Submission wizard
				algorithms.POST("", controllers.SubmitAlgorithm)
				algorithms.POST("/:id/resubmit", controllers.ResubmitAlgorithm)

				// Review cycle; role guards on assignment/confirmation are
				// enforced again inside the workflow service.
				algorithms.POST("/:id/assign-reviewers",
					middleware.RequireRole(models.RoleTeamLead, models.RoleAdmin),
					controllers.AssignReviewers)
				algorithms.POST("/:id/reviews", controllers.SubmitReview)
				algorithms.POST("/:id/confirm",
					middleware.RequireRole(models.RoleTeamLead, models.RoleAdmin),
					controllers.ConfirmResult)

				// Post-approval pipeline
				algorithms.POST("/:id/handoff",
					middleware.RequireRole(models.RoleProductManager, models.RoleFrontendEngineer, models.RoleAdmin),
					controllers.HandoffAlgorithm)
				algorithms.POST("/:id/deprecate",
					middleware.RequireRole(models.RoleAdmin),
					controllers.DeprecateAlgorithm)
			}

			// Reviewer worklists
			reviews := protected.Group("/reviews")
			{
				reviews.GET("/tasks", controllers.GetReviewTasks)
				reviews.GET("/completed", controllers.GetCompletedReviews)
			}

			// Drafts
			drafts := protected.Group("/drafts")
			{
				drafts.GET("", controllers.GetDrafts)
				drafts.GET("/:id", controllers.GetDraft)
				drafts.POST("", controllers.CreateDraft)
				drafts.PUT("/:id", controllers.UpdateDraft)
				drafts.DELETE("/:id", controllers.DeleteDraft)
			}

			// Notifications
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.GetNotifications)
				notifications.GET("/unread-count", controllers.GetNotificationCounter)
				notifications.PUT("/:id/read", controllers.MarkNotificationRead)
				notifications.PUT("/read-all", controllers.MarkAllNotificationsRead)
				notifications.DELETE("/:id", controllers.DeleteNotification)
			}

			// Admin
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(models.RoleAdmin))
			{
				admin.POST("/overdue-sweep", controllers.RunOverdueSweep)
			}
		}
	}
}
