package controllers

import (
	"net/http"
	"strconv"

	"github.com/Ashnagdarc/Nest-sub004/app"
	"github.com/Ashnagdarc/Nest-sub004/db"

	"github.com/gin-gonic/gin"
)

type NotificationController struct{ *Srv }

func GetNotificationController(s *Srv) *NotificationController {
	return &NotificationController{Srv: s}
}

// GET /api/notifications?unread=&page=&size=
func (nc *NotificationController) List(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	q := db.NotificationQuery{
		UserID:     uid,
		UnreadOnly: c.Query("unread") == "true",
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Size, _ = strconv.Atoi(c.DefaultQuery("size", "20"))

	res, err := nc.Repo.ListNotifications(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/notifications/read
func (nc *NotificationController) MarkRead(c *gin.Context) {
	uid, _ := currentUserID(c)
	var in struct {
		IDs []uint `json:"ids"`
		All bool   `json:"all"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	var (
		n   int64
		err error
	)
	if in.All {
		n, err = nc.Repo.MarkAllNotificationsRead(c.Request.Context(), uid)
	} else {
		n, err = nc.Repo.MarkNotificationsRead(c.Request.Context(), uid, in.IDs)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"updated": n})
}

// POST /api/notifications/google-chat (admin)
// Relays a message to the configured chat webhook.
func (nc *NotificationController) GoogleChat(c *gin.Context) {
	var in struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if err := nc.Notify.PostChat(c.Request.Context(), in.Text); err != nil {
		c.JSON(http.StatusBadGateway, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
