package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tutorchat/internal/services"
	"tutorchat/internal/transport/httpdto"
)

type ConversationHandler struct {
	service *services.ConversationService
}

func NewConversationHandler(service *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

func (h *ConversationHandler) Create(c *gin.Context) {
	creatorID, ok := requestUserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	var req httpdto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	participantIDs := make([]uuid.UUID, 0, len(req.Participants))
	for _, idStr := range req.Participants {
		id, err := uuid.Parse(idStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid participant id", "INVALID_REQUEST"))
			return
		}
		participantIDs = append(participantIDs, id)
	}

	var sessionID *uuid.UUID
	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid session id", "INVALID_REQUEST"))
			return
		}
		sessionID = &id
	}

	summary, err := h.service.Create(c.Request.Context(), services.CreateConversationInput{
		Subject:        req.Subject,
		SessionID:      sessionID,
		CreatorID:      creatorID,
		ParticipantIDs: participantIDs,
		InitialMessage: req.InitialMessage,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(summary))
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	includeArchived, _ := strconv.ParseBool(c.Query("include_archived"))

	summaries, err := h.service.ListForUser(c.Request.Context(), userID, includeArchived)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListConversationsResponse{
		Conversations: summaries,
		Total:         len(summaries),
	}))
}

func (h *ConversationHandler) ListUnread(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	summaries, err := h.service.ListUnread(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListConversationsResponse{
		Conversations: summaries,
		Total:         len(summaries),
	}))
}

func (h *ConversationHandler) Search(c *gin.Context) {
	userID, ok := requestUserID(c)
	if !ok {
		respondUnauthorized(c)
		return
	}
	summaries, err := h.service.Search(c.Request.Context(), userID, c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListConversationsResponse{
		Conversations: summaries,
		Total:         len(summaries),
	}))
}

func (h *ConversationHandler) Get(c *gin.Context) {
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
	summary, err := h.service.Get(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(summary))
}

func (h *ConversationHandler) Update(c *gin.Context) {
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
	var req httpdto.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	summary, err := h.service.Update(c.Request.Context(), conversationID, userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(summary))
}

func (h *ConversationHandler) Participants(c *gin.Context) {
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
	participants, err := h.service.GetParticipants(c.Request.Context(), conversationID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(participants))
}

func (h *ConversationHandler) AddParticipant(c *gin.Context) {
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
	var req httpdto.AddParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	newUserID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid user id", "INVALID_REQUEST"))
		return
	}
	participant, err := h.service.AddParticipant(c.Request.Context(), conversationID, userID, newUserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(participant))
}

func (h *ConversationHandler) RemoveParticipant(c *gin.Context) {
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
	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid user id", "INVALID_REQUEST"))
		return
	}
	if err := h.service.RemoveParticipant(c.Request.Context(), conversationID, userID, targetID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"removed": true}))
}

func (h *ConversationHandler) Leave(c *gin.Context) {
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
	if err := h.service.Leave(c.Request.Context(), conversationID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"left": true}))
}
