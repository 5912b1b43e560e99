package controllers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/Ashnagdarc/Nest-sub004/app"
	"github.com/Ashnagdarc/Nest-sub004/notify"

	"github.com/gin-gonic/gin"
)

type InviteController struct{ *Srv }

func GetInviteController(s *Srv) *InviteController { return &InviteController{Srv: s} }

// POST /admin/invites
// Creates a one-time admin invite and mails the signup link.
func (ic *InviteController) CreateInvite(c *gin.Context) {
	var in struct {
		Email   string `json:"email" binding:"required,email"`
		Expires int    `json:"expiresDays"` // default 1 day
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if in.Expires <= 0 {
		in.Expires = 1
	}

	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	token := hex.EncodeToString(buf)

	actor, _ := currentUserID(c)
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	inv, err := ic.Repo.CreateInvite(
		ctx,
		strings.ToLower(in.Email),
		token,
		time.Now().AddDate(0, 0, in.Expires),
		actor,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	link := strings.TrimRight(ic.Cfg.WebOrigin, "/") + "/signup?inviteToken=" + token

	// Mail delivery is best effort; the link is returned either way.
	ic.Notify.Dispatch(c.Request.Context(), notify.Event{
		Type:    "invite.created",
		Email:   in.Email,
		Title:   ic.Cfg.AppName + " Invitation",
		Message: "You have been invited to join " + ic.Cfg.AppName + ". Sign up here: " + link,
	})

	c.JSON(http.StatusCreated, app.H{
		"token":  token,
		"link":   link,
		"invite": inv,
	})
}
