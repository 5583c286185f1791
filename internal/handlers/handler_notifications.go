package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ledgermate/ledgermate/internal/core/domain"
	portssvc "github.com/ledgermate/ledgermate/internal/core/ports/services"
)

// notificationHandler drains the realtime "new data available" feed.
type notificationHandler struct {
	realtime portssvc.RealtimeSvc
}

// registerNotificationRoutes registers the notification feed route.
func registerNotificationRoutes(rg *gin.RouterGroup, realtime portssvc.RealtimeSvc) {
	h := &notificationHandler{realtime: realtime}
	rg.GET("/notifications", h.drain)
}

// drain returns every notification queued since the last call without
// blocking. An empty list means nothing arrived.
func (h *notificationHandler) drain(c *gin.Context) {
	notifications := []domain.Notification{}
	feed := h.realtime.Notifications()
	for {
		select {
		case n, ok := <-feed:
			if !ok {
				c.JSON(http.StatusOK, notifications)
				return
			}
			notifications = append(notifications, n)
		default:
			c.JSON(http.StatusOK, notifications)
			return
		}
	}
}
