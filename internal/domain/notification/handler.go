package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobmarket/internal/domain"
	"jobmarket/internal/middleware"
	"jobmarket/internal/pkg/response"
	"jobmarket/internal/pkg/wsstream"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

type listResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unreadCount"`
}

// GetNotifications returns the caller's notifications, newest first.
// @Summary		List notifications
// @Tags		Notifications
// @Security	BearerAuth
// @Success		200	{object}	listResponse "Notifications and unread count"
// @Failure		401	{object}	map[string]interface{} "Authentication required"
// @Router		/notifications [GET]
func (h *Handler) GetNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)

	list, err := h.repo.ListForUser(ctx, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, listResponse{Notifications: list, UnreadCount: unread(list)})
}

// GetUnreadCount handles GET /notifications/unread-count
func (h *Handler) GetUnreadCount(c *gin.Context) {
	count, err := h.repo.CountUnread(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unreadCount": count})
}

// MarkAsRead marks one notification read.
// @Summary		Mark a notification read
// @Tags		Notifications
// @Security	BearerAuth
// @Param		id	path	string	true	"Notification id"
// @Success		200	{object}	map[string]interface{} "Marked"
// @Failure		404	{object}	map[string]interface{} "Notification not found"
// @Router		/notifications/{id}/read [PATCH]
func (h *Handler) MarkAsRead(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.ownedBy(ctx, c.Param("id"), middleware.UserID(c)); err != nil {
		response.FromError(c, err)
		return
	}
	if err := h.repo.MarkRead(ctx, c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": c.Param("id"), "read": true})
}

// MarkAllAsRead marks every unread notification of the caller read in one batch.
// @Summary		Mark all read
// @Tags		Notifications
// @Security	BearerAuth
// @Success		200	{object}	map[string]interface{} "Marked"
// @Failure		401	{object}	map[string]interface{} "Authentication required"
// @Router		/notifications/read-all [POST]
func (h *Handler) MarkAllAsRead(c *gin.Context) {
	if err := h.repo.MarkAllRead(c.Request.Context(), middleware.UserID(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unreadCount": 0})
}

// DeleteNotification removes one of the caller's notifications.
// @Summary		Delete a notification
// @Tags		Notifications
// @Security	BearerAuth
// @Param		id	path	string	true	"Notification id"
// @Success		200	{object}	map[string]interface{} "Deleted"
// @Failure		404	{object}	map[string]interface{} "Notification not found"
// @Router		/notifications/{id} [DELETE]
func (h *Handler) DeleteNotification(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.ownedBy(ctx, c.Param("id"), middleware.UserID(c)); err != nil {
		response.FromError(c, err)
		return
	}
	if err := h.repo.Delete(ctx, c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Stream handles GET /ws/notifications. Every change to the caller's
// notifications sends the full list and unread count.
func (h *Handler) Stream(c *gin.Context) {
	conn, err := wsstream.Upgrade(c.Writer, c.Request)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	msgs := make(chan wsstream.Event, 1)
	unsubscribe, err := h.repo.Watch(ctx, middleware.UserID(c), func(list []*Notification, err error) {
		if err != nil {
			wsstream.Offer(msgs, wsstream.ErrorMessage(err))
			return
		}
		wsstream.Offer(msgs, wsstream.Event{
			Type:    "notifications",
			Payload: listResponse{Notifications: list, UnreadCount: unread(list)},
		})
	})
	if err != nil {
		wsstream.CloseWithError(conn, err)
		return
	}
	defer unsubscribe()

	wsstream.Stream(ctx, conn, msgs)
}

// ownedBy hides other users' notifications behind not found.
func (h *Handler) ownedBy(ctx context.Context, id, userID string) error {
	n, err := h.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func unread(list []*Notification) int {
	count := 0
	for _, n := range list {
		if !n.Read {
			count++
		}
	}
	return count
}
