// Package notify fans application events out to the side channels:
// in-app notification rows, a Google Chat webhook and SMTP mail.
//
// Delivery is best effort. A failed side channel is logged and swallowed
// so the state transition that triggered it still stands.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/Ashnagdarc/Nest-sub004/models"

	"github.com/redis/go-redis/v9"
)

// Store is the slice of the repo the dispatcher needs.
type Store interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
}

type Config struct {
	ChatWebhookURL string
	SMTPHost       string
	SMTPPort       string
	SMTPUsername   string
	SMTPPassword   string
	SMTPFrom       string
	AppName        string
}

// Event is one user-visible occurrence, e.g. a check-in approval.
type Event struct {
	Type    string // "checkin.approved", "checkin.rejected", "request.completed", ...
	UserID  string // in-app recipient; empty skips the in-app row
	Email   string // mail recipient; empty skips mail
	Title   string
	Message string

	// DedupeKey suppresses duplicate sends for the same transition when
	// two admins race. Empty disables deduplication.
	DedupeKey string
}

type Dispatcher struct {
	store Store
	rdb   *redis.Client
	http  *http.Client
	cfg   Config
}

var defaultClient = &http.Client{
	Timeout: 10 * time.Second,
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// New builds a dispatcher. rdb may be nil, which disables deduplication.
func New(store Store, rdb *redis.Client, cfg Config) *Dispatcher {
	return &Dispatcher{store: store, rdb: rdb, http: defaultClient, cfg: cfg}
}

func dedupeKey(k string) string { return "nest:notif:sent:" + k }

// Dispatch delivers an event to every configured channel. It never
// returns an error: the caller's transaction already committed and a lost
// notification must not look like a failed approval.
//
// The dedupe key is only marked after at least one channel delivered, so
// an event whose every channel failed can be sent again on a retry.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	if ev.DedupeKey != "" && d.rdb != nil {
		n, err := d.rdb.Exists(ctx, dedupeKey(ev.DedupeKey)).Result()
		if err != nil {
			log.Printf("[notify] dedupe check failed, sending anyway: %v", err)
		} else if n > 0 {
			return // already sent for this transition
		}
	}

	if d.deliver(ctx, ev) && ev.DedupeKey != "" && d.rdb != nil {
		if err := d.rdb.SetNX(ctx, dedupeKey(ev.DedupeKey), "1", 24*time.Hour).Err(); err != nil {
			log.Printf("[notify] dedupe mark failed: %v", err)
		}
	}
}

// deliver attempts every configured channel and reports whether at least
// one of them succeeded.
func (d *Dispatcher) deliver(ctx context.Context, ev Event) bool {
	delivered := false

	if ev.UserID != "" && d.store != nil {
		n := &models.Notification{
			UserID:  ev.UserID,
			Type:    ev.Type,
			Title:   ev.Title,
			Message: ev.Message,
		}
		if err := d.store.InsertNotification(ctx, n); err != nil {
			log.Printf("[notify] in-app insert failed: %v", err)
		} else {
			delivered = true
		}
	}

	if d.cfg.ChatWebhookURL != "" {
		if err := d.PostChat(ctx, chatText(ev)); err != nil {
			log.Printf("[notify] chat webhook failed: %v", err)
		} else {
			delivered = true
		}
	}

	if ev.Email != "" && d.cfg.SMTPHost != "" {
		if err := d.sendMail(ev.Email, ev.Title, ev.Message); err != nil {
			log.Printf("[notify] mail to %s failed: %v", ev.Email, err)
		} else {
			delivered = true
		}
	}
	return delivered
}

func chatText(ev Event) string {
	if ev.Message == "" {
		return ev.Title
	}
	return ev.Title + "\n" + ev.Message
}

// PostChat sends a plain-text message to the configured Google Chat
// webhook.
func (d *Dispatcher) PostChat(ctx context.Context, text string) error {
	if d.cfg.ChatWebhookURL == "" {
		return fmt.Errorf("chat webhook not configured")
	}
	body, _ := json.Marshal(map[string]string{"text": text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.ChatWebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("chat webhook returned %s", resp.Status)
	}
	return nil
}

func (d *Dispatcher) sendMail(to, subject, body string) error {
	from := d.cfg.SMTPFrom
	if from == "" {
		from = d.cfg.SMTPUsername
	}
	if from == "" {
		// Not configured; dev mode prints instead of failing.
		log.Printf("[DEV] mail to %s: %s", to, subject)
		return nil
	}

	msg := buildMIME(d.cfg.AppName, from, to, subject, body)
	auth := smtp.PlainAuth("", d.cfg.SMTPUsername, d.cfg.SMTPPassword, d.cfg.SMTPHost)
	addr := d.cfg.SMTPHost + ":" + d.cfg.SMTPPort
	return smtp.SendMail(addr, auth, from, []string{to}, []byte(msg))
}

func buildMIME(fromName, fromAddr, to, subject, body string) string {
	headers := []string{
		fmt.Sprintf("From: %s <%s>", fromName, fromAddr),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
	}
	return strings.Join(headers, "\r\n") + "\r\n\r\n" + body
}
