package handlers

import (
	"github.com/chirpsocial/backend/internal/util"
	"github.com/gin-gonic/gin"
)

// GetNotifications gets the user's notifications with the unread count
// GET /api/v1/notifications
func (h *Handlers) GetNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	inbox, err := h.notifications.List(c.Request.Context(), userID, util.ParsePage(c))
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, inbox)
}

// MarkNotificationRead marks one notification as read
// PUT /api/v1/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	n, err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, n)
}

// MarkAllNotificationsRead PUT /api/v1/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	marked, err := h.notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"marked_read": marked})
}

// DeleteNotification DELETE /api/v1/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.notifications.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"message": "notification deleted"})
}

// DeleteAllNotifications DELETE /api/v1/notifications
func (h *Handlers) DeleteAllNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	deleted, err := h.notifications.DeleteAll(c.Request.Context(), userID)
	if err != nil {
		util.RespondError(c, err)
		return
	}
	util.RespondOK(c, gin.H{"deleted": deleted})
}
