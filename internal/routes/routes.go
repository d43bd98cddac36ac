package routes

import (
	"tripstars-api/internal/handlers"
	"tripstars-api/internal/middleware"
	"tripstars-api/internal/realtime"
	"tripstars-api/internal/roles"

	"github.com/gin-gonic/gin"
)

// SetupRoutes wires the full HTTP surface onto a gin engine. The hub is
// injected so tests can run against their own instance.
func SetupRoutes(hub *realtime.Hub) *gin.Engine {
	ginRouter := gin.Default()

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "TripStars API is running",
		})
	})

	// Real-time socket; authenticates itself via the token query param.
	ginRouter.GET("/ws", handlers.ServeWS(hub))

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/auth/login", handlers.Login)
		api.POST("/auth/refresh", handlers.Refresh)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware())
	{
		// Auth endpoints
		protectedRoutes.POST("/auth/logout", handlers.Logout)
		protectedRoutes.GET("/auth/me", handlers.Me)

		// Task endpoints
		protectedRoutes.GET("/tasks", handlers.ListTasks)
		protectedRoutes.POST("/tasks", handlers.CreateTask(hub))
		protectedRoutes.GET("/tasks/:id", handlers.GetTaskByID)
		protectedRoutes.PATCH("/tasks/:id", handlers.UpdateTask(hub))
		protectedRoutes.DELETE("/tasks/:id", handlers.DeleteTask)

		// Comment endpoints
		protectedRoutes.POST("/tasks/:id/comments", handlers.CreateComment(hub))
		protectedRoutes.GET("/tasks/:id/comments", handlers.ListComments)
		protectedRoutes.GET("/comments/:id", handlers.GetComment)
		protectedRoutes.PATCH("/comments/:id", handlers.UpdateComment)
		protectedRoutes.DELETE("/comments/:id", handlers.DeleteComment)

		// Attachment endpoints
		protectedRoutes.POST("/tasks/:id/attachments", handlers.UploadAttachment(hub))
		protectedRoutes.GET("/tasks/:id/attachments", handlers.ListAttachments)
		protectedRoutes.GET("/attachments/:id/download", handlers.DownloadAttachment)
		protectedRoutes.DELETE("/attachments/:id", handlers.DeleteAttachment)

		// Chat endpoints
		protectedRoutes.POST("/chat/conversations", handlers.CreateConversation)
		protectedRoutes.GET("/chat/conversations", handlers.ListConversations)
		protectedRoutes.GET("/chat/conversations/:id", handlers.GetConversation)
		protectedRoutes.PATCH("/chat/conversations/:id", handlers.UpdateConversation)
		protectedRoutes.POST("/chat/conversations/:id/messages", handlers.SendMessage(hub))
		protectedRoutes.GET("/chat/conversations/:id/messages", handlers.ListMessages)
		protectedRoutes.POST("/chat/conversations/:id/read", handlers.MarkMessagesRead(hub))
		protectedRoutes.POST("/chat/conversations/:id/typing", handlers.Typing(hub))
		protectedRoutes.POST("/chat/conversations/:id/pin", handlers.PinConversation)
		protectedRoutes.GET("/chat/conversations/:id/pinned", handlers.ListPinnedMessages)
		protectedRoutes.POST("/chat/conversations/:id/attachments", handlers.UploadChatAttachment)
		protectedRoutes.POST("/chat/messages/:id/pin", handlers.PinMessage)
		protectedRoutes.GET("/chat/attachments/:id/download", handlers.DownloadChatAttachment)
		protectedRoutes.GET("/chat/search", handlers.SearchMessages)
		protectedRoutes.GET("/chat/users", handlers.ListAvailableUsers)

		// Notification endpoints
		protectedRoutes.GET("/notifications", handlers.ListNotifications)
		protectedRoutes.GET("/notifications/unread-count", handlers.UnreadNotificationCount)
		protectedRoutes.PATCH("/notifications/:id/read", handlers.MarkNotificationRead)
		protectedRoutes.POST("/notifications/read-all", handlers.MarkAllNotificationsRead)

		// Reports: per-user is self-scoped inside the handler.
		protectedRoutes.GET("/reports/user-productivity", handlers.UserProductivityReport)
	}

	// Privileged routes (admin and manager)
	privilegedRoutes := protectedRoutes.Group("")
	privilegedRoutes.Use(middleware.RequirePrivileged())
	{
		privilegedRoutes.PATCH("/tasks/:id/cancel", handlers.CancelTask)
		privilegedRoutes.POST("/tasks/bulk/update", handlers.BulkUpdateTasks)
		privilegedRoutes.POST("/tasks/bulk/cancel", handlers.BulkCancelTasks)
		privilegedRoutes.DELETE("/tasks/bulk/delete", handlers.BulkDeleteTasks)
		privilegedRoutes.GET("/reports/team-overview", middleware.RequireCapability(roles.CapViewReports), handlers.TeamOverviewReport)
		privilegedRoutes.GET("/audit-logs", middleware.RequireCapability(roles.CapViewAuditLogs), handlers.ListAuditLogs)
	}

	// User management: viewing is admin+manager, mutation is admin only.
	userRoutes := protectedRoutes.Group("/users")
	{
		userRoutes.GET("", middleware.RequireCapability(roles.CapViewUsers), handlers.ListUsers)
		userRoutes.GET("/:id", middleware.RequireCapability(roles.CapViewUsers), handlers.GetUser)
		userRoutes.POST("", middleware.RequireCapability(roles.CapManageUsers), handlers.CreateUser)
		userRoutes.PATCH("/:id", middleware.RequireCapability(roles.CapManageUsers), handlers.UpdateUser)
		userRoutes.DELETE("/:id", middleware.RequireCapability(roles.CapManageUsers), handlers.DeleteUser)
	}

	return ginRouter
}
