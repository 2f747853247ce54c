package handlers

import (
	"github.com/chirpsocial/backend/internal/conversations"
	"github.com/chirpsocial/backend/internal/util"
	"github.com/gin-gonic/gin"
)

type sendMessageRequest struct {
	RecipientID string `json:"recipient_id" binding:"required"`
	conversations.NewMessage
}

// SendMessage POST /api/v1/messages
func (h *Handlers) SendMessage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "recipient_id is required")
		return
	}

	msg, err := h.conversations.SendMessage(c.Request.Context(), userID, req.RecipientID, req.NewMessage)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondCreated(c, msg)
}

// GetConversation returns the messages exchanged with another user, newest
// first, and marks the returned page read
// GET /api/v1/messages/conversation/:userId
func (h *Handlers) GetConversation(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	thread, err := h.conversations.GetConversation(c.Request.Context(), userID, c.Param("userId"), util.ParsePage(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, thread)
}

// GetConversations GET /api/v1/messages/conversations
func (h *Handlers) GetConversations(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	list, err := h.conversations.ListConversations(c.Request.Context(), userID, util.ParsePage(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, list)
}

// GetUnreadMessageCount GET /api/v1/messages/unread
func (h *Handlers) GetUnreadMessageCount(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	count, err := h.conversations.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"unread_count": count})
}

// DeleteMessage DELETE /api/v1/messages/:id
func (h *Handlers) DeleteMessage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.conversations.DeleteMessage(c.Request.Context(), c.Param("id"), userID); err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"message": "message deleted"})
}
