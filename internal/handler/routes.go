package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tutorchat/internal/transport/httpdto"
)

type Handlers struct {
	Conversations *ConversationHandler
	Messages      *MessageHandler
	Users         *UserHandler
	Uploads       *UploadHandler
	WSConnect     gin.HandlerFunc
}

func RegisterRoutes(r *gin.Engine, h *Handlers) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	r.GET("/ws", h.WSConnect)

	api := r.Group("/api")
	{
		conversations := api.Group("/conversations")
		{
			conversations.POST("", h.Conversations.Create)
			conversations.GET("", h.Conversations.List)
			conversations.GET("/unread", h.Conversations.ListUnread)
			conversations.GET("/search", h.Conversations.Search)
			conversations.GET("/:id", h.Conversations.Get)
			conversations.PATCH("/:id", h.Conversations.Update)
			conversations.POST("/:id/leave", h.Conversations.Leave)
			conversations.GET("/:id/participants", h.Conversations.Participants)
			conversations.POST("/:id/participants", h.Conversations.AddParticipant)
			conversations.DELETE("/:id/participants/:userId", h.Conversations.RemoveParticipant)

			conversations.GET("/:id/messages", h.Messages.Page)
			conversations.GET("/:id/messages/recent", h.Messages.Recent)
			conversations.GET("/:id/messages/unread", h.Messages.Unread)
			conversations.GET("/:id/messages/unread/count", h.Messages.UnreadCount)
			conversations.POST("/:id/read", h.Messages.MarkAllRead)
		}

		messages := api.Group("/messages")
		{
			messages.POST("", h.Messages.Send)
			messages.GET("/search", h.Messages.Search)
			messages.GET("/unread/count", h.Messages.TotalUnreadCount)
			messages.POST("/:id/read", h.Messages.MarkRead)
			messages.DELETE("/:id", h.Messages.Delete)
		}

		api.GET("/users/:id", h.Users.Get)
		api.POST("/uploads", h.Uploads.Upload)
	}
}
