package api

import (
	"log"
	"net/http"

	"mailboard-backend/internal/auth/delivery"
	authusecase "mailboard-backend/internal/auth/usecase"
	maildelivery "mailboard-backend/internal/mail/delivery"
	mailusecase "mailboard-backend/internal/mail/usecase"
	"mailboard-backend/internal/notification"
	"mailboard-backend/internal/realtime"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	r *gin.Engine,
	authHandler *delivery.AuthHandler,
	emailHandler *maildelivery.EmailHandler,
	authUsecase authusecase.AuthUsecase,
	emailUsecase mailusecase.EmailUsecase,
	hub *realtime.Hub,
	pushStrategy *notification.PushStrategy,
) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Live board events over websocket
		api.GET("/ws", delivery.AuthMiddleware(authUsecase), func(c *gin.Context) {
			userID := c.GetString("userID")
			if err := realtime.ServeWS(hub, userID, c.Writer, c.Request); err != nil {
				log.Printf("[WS] Connection for user %s ended: %v", userID, err)
			}
		})

		// Pub/Sub push deliveries land here when the push mode is selected.
		if pushStrategy != nil {
			api.POST("/notifications/push", pushStrategy.Webhook())
		}

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.POST("/google", authHandler.GoogleSignIn)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", delivery.AuthMiddleware(authUsecase), authHandler.Me)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(delivery.AuthMiddleware(authUsecase))
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.UnregisterFCMToken)
		}

		// Email routes (protected)
		emails := api.Group("/emails")
		emails.Use(delivery.AuthMiddleware(authUsecase))
		{
			emails.GET("/mailboxes", emailHandler.GetAllMailboxes)
			emails.GET("/status/:status", emailHandler.GetEmailsByStatus)
			emails.GET("/:id", emailHandler.GetEmailByID)
			emails.PATCH("/:id/read", emailHandler.MarkAsRead)
			emails.PATCH("/:id/column", emailHandler.MoveEmail)
			emails.POST("/:id/snooze", emailHandler.SnoozeEmail)
			emails.POST("/:id/unsnooze", emailHandler.UnsnoozeEmail)
			emails.POST("/watch", emailHandler.StartWatch)
			emails.DELETE("/watch", emailHandler.StopWatch)
		}

		// Kanban routes (protected)
		kanban := api.Group("/kanban")
		kanban.Use(delivery.AuthMiddleware(authUsecase))
		{
			kanban.GET("/columns", emailHandler.GetKanbanColumns)
			kanban.POST("/columns", emailHandler.CreateKanbanColumn)
			kanban.PUT("/columns/orders", emailHandler.UpdateKanbanColumnOrders)
			kanban.PUT("/columns/:column_id", emailHandler.UpdateKanbanColumn)
			kanban.DELETE("/columns/:column_id", emailHandler.DeleteKanbanColumn)
		}
	}
}
