package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tutorchat/internal/domain/chat"
	"tutorchat/internal/events"
	"tutorchat/internal/services"
	"tutorchat/internal/transport/httpdto"
)

// Broadcaster lets REST-originated messages reach connected WebSocket
// clients the same way gateway-originated ones do.
type Broadcaster interface {
	Broadcast(event events.Event)
}

type MessageHandler struct {
	service     *services.MessageService
	broadcaster Broadcaster
}

func NewMessageHandler(service *services.MessageService, broadcaster Broadcaster) *MessageHandler {
	return &MessageHandler{service: service, broadcaster: broadcaster}
}

func (h *MessageHandler) Send(c *gin.Context) {
	senderID, ok := requestUserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	conversationID, err := uuid.Parse(req.ConversationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}

	resp, err := h.service.Send(c.Request.Context(), conversationID, senderID, req.Content, chat.MessageKind(req.Kind))
	if err != nil {
		respondError(c, err)
		return
	}

	if h.broadcaster != nil {
		msg := resp
		h.broadcaster.Broadcast(events.Event{
			Type:           events.TypeNewMessage,
			ConversationID: &conversationID,
			UserID:         &senderID,
			Message:        &msg,
			Timestamp:      time.Now(),
		})
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(resp))
}

func (h *MessageHandler) Page(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("size"))

	resp, err := h.service.GetPage(c.Request.Context(), conversationID, userID, page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
}

func (h *MessageHandler) Recent(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	messages, err := h.service.GetRecent(c.Request.Context(), conversationID, userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(messages))
}

func (h *MessageHandler) Unread(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}
	messages, err := h.service.GetUnread(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(messages))
}

func (h *MessageHandler) UnreadCount(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}
	count, err := h.service.CountUnread(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UnreadCountResponse{
		ConversationID: &conversationID,
		Count:          count,
	}))
}

func (h *MessageHandler) TotalUnreadCount(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	count, err := h.service.CountTotalUnread(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UnreadCountResponse{Count: count}))
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}
	if err := h.service.MarkMessageRead(c.Request.Context(), messageID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"read": true}))
}

func (h *MessageHandler) MarkAllRead(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation id", "INVALID_REQUEST"))
		return
	}
	if err := h.service.MarkAllRead(c.Request.Context(), conversationID, userID); err != nil {
		respondError(c, err)
		return
	}

	if h.broadcaster != nil {
		reader := userID
		convID := conversationID
		h.broadcaster.Broadcast(events.Event{
			Type:           events.TypeMessagesRead,
			ConversationID: &convID,
			UserID:         &reader,
			Timestamp:      time.Now(),
		})
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"read": true}))
}

func (h *MessageHandler) Delete(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}
	if err := h.service.Delete(c.Request.Context(), messageID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}

func (h *MessageHandler) Search(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	messages, err := h.service.Search(c.Request.Context(), userID, c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(messages))
}
