package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raynx/hrm-portal/notification"
	"github.com/raynx/hrm-portal/structs"
)

type notificationList struct {
	Items  []structs.Notification `json:"items"`
	Unread int                    `json:"unread"`
}

// GetNotifications returns the feed, narrowed by ?type= and ?date= when given
func (h *Handlers) GetNotifications(c *gin.Context) {
	ok(c, notificationList{
		Items:  h.feed.Filter(c.Query("type"), c.Query("date")),
		Unread: h.feed.UnreadCount(),
	})
}

// MarkNotificationRead marks one notification read. The feed changes at once; a failing
// server call is only logged.
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id, found := paramID(c, "id")
	if !found {
		return
	}
	h.feed.MarkRead(c.Request.Context(), id)
	ok(c, h.feed.Snapshot())
}

// DeleteNotification removes one notification, the same way as MarkNotificationRead
func (h *Handlers) DeleteNotification(c *gin.Context) {
	id, found := paramID(c, "id")
	if !found {
		return
	}
	h.feed.Delete(c.Request.Context(), id)
	ok(c, h.feed.Snapshot())
}

// StreamNotifications sends the feed as server-sent events: the current snapshot first,
// then one "notifications" event per change and an "alert" event when the sound should play
func (h *Handlers) StreamNotifications(c *gin.Context) {
	updates := make(chan notification.Snapshot, 16)
	unsubscribe := h.feed.Subscribe(func(snap notification.Snapshot) {
		select {
		case updates <- snap:
		default:
			// the client is behind; it catches up on the next change
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent("notifications", h.feed.Snapshot())
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snap := <-updates:
			c.SSEvent("notifications", snap)
			if snap.Alert {
				c.SSEvent("alert", gin.H{"unread": snap.Unread})
			}
			return true
		}
	})
}
