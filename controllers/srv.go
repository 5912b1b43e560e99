package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Ashnagdarc/Nest-sub004/app"
	"github.com/Ashnagdarc/Nest-sub004/db"
	"github.com/Ashnagdarc/Nest-sub004/models"
	"github.com/Ashnagdarc/Nest-sub004/notify"
	"github.com/Ashnagdarc/Nest-sub004/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Srv struct {
	Repo    *db.Repo
	AppSess *session.AppSessionStore
	Notify  *notify.Dispatcher
	Cfg     app.Config
}

func GetSrv(a *app.App) *Srv {
	repo := db.NewRepo(a.DB)
	return &Srv{
		Repo:    repo,
		AppSess: a.AppSessions(),
		Notify: notify.New(repo, a.RDB, notify.Config{
			ChatWebhookURL: a.Config.ChatWebhookURL,
			SMTPHost:       a.Config.SMTPHost,
			SMTPPort:       a.Config.SMTPPort,
			SMTPUsername:   a.Config.SMTPUsername,
			SMTPPassword:   a.Config.SMTPPassword,
			SMTPFrom:       a.Config.SMTPFrom,
			AppName:        a.Config.AppName,
		}),
		Cfg: a.Config,
	}
}

// --- helpers ---

func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	secure := strings.HasPrefix(s.Cfg.WebOrigin, "https://")
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   int(maxAge / time.Second),
	})
}

// issueSession creates the redis session, sets the cookie and records the
// login snapshot.
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, userID, ip, ua string) error {
	_ = s.Repo.TouchUserLogin(ctx, userID, ip, ua) // never block login on this
	id := uuid.NewString()
	if err := s.AppSess.Create(ctx, id, userID); err != nil {
		return err
	}
	s.setAppCookie(w, id, s.Cfg.SessionTTL)
	return nil
}

func currentUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get("userID")
	if !ok {
		return "", false
	}
	uid, _ := v.(string)
	return uid, uid != ""
}

// userFinder is the slice of the repo the notification helpers need.
type userFinder interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

// notifyEvent builds a notification event, resolving the recipient's
// email best-effort for the mail channel.
func notifyEvent(c *gin.Context, users userFinder, userID, typ, title, msg string) notify.Event {
	ev := notify.Event{Type: typ, UserID: userID, Title: title, Message: msg}
	if u, err := users.FindUserByID(c.Request.Context(), userID); err == nil {
		ev.Email = u.Email
	}
	return ev
}

func isAdmin(c *gin.Context) bool {
	v, ok := c.Get("isAdmin")
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
