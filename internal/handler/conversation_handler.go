package handler

import (
	"Lumen/internal/middleware"
	"Lumen/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ConversationHandler interface {
	ListConversations(c *gin.Context)
	GetMessages(c *gin.Context)
	SendMessage(c *gin.Context)
	MarkRead(c *gin.Context)
}

type conversationHandler struct {
	service service.ConversationService
	logger  *zap.Logger
}

func NewConversationHandler(service service.ConversationService, logger *zap.Logger) ConversationHandler {
	return &conversationHandler{
		service: service,
		logger:  logger,
	}
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type markReadRequest struct {
	Ids []string `json:"ids"`
}

func (h *conversationHandler) ListConversations(c *gin.Context) {
	cvs, err := h.service.ListConversations(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"conversations": cvs}, "Conversations retrieved successfully")
}

func (h *conversationHandler) GetMessages(c *gin.Context) {
	msgs, err := h.service.GetMessages(c.Request.Context(), middleware.UserID(c), c.Param("partnerId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"messages": msgs}, "Messages retrieved successfully")
}

func (h *conversationHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, nil, "Invalid request body")
		return
	}

	msg, err := h.service.Send(c.Request.Context(), middleware.UserID(c), c.Param("partnerId"), req.Content)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{"message": msg}, "Message sent")
}

func (h *conversationHandler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond(c, http.StatusBadRequest, nil, "Invalid request body")
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), middleware.UserID(c), req.Ids); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, gin.H{"marked": len(req.Ids)}, "Messages marked read")
}
