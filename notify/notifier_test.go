package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Ashnagdarc/Nest-sub004/models"
)

type storeMock struct {
	inserted []models.Notification
	err      error
}

func (m *storeMock) InsertNotification(_ context.Context, n *models.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, *n)
	return nil
}

func TestDispatch_InAppRow(t *testing.T) {
	store := &storeMock{}
	d := New(store, nil, Config{})

	d.Dispatch(context.Background(), Event{
		Type:    "checkin.approved",
		UserID:  "u1",
		Title:   "Check-in approved",
		Message: "Your return of 2 unit(s) was approved.",
	})

	if len(store.inserted) != 1 {
		t.Fatalf("got %d in-app rows, want 1", len(store.inserted))
	}
	n := store.inserted[0]
	if n.UserID != "u1" || n.Type != "checkin.approved" || n.Read {
		t.Errorf("unexpected notification row: %+v", n)
	}
}

func TestDispatch_StoreFailureIsSwallowed(t *testing.T) {
	store := &storeMock{err: errors.New("db down")}
	d := New(store, nil, Config{})

	// Must not panic or propagate; approval already committed.
	d.Dispatch(context.Background(), Event{Type: "x", UserID: "u1", Title: "t"})
}

func TestDeliver_ReportsChannelOutcome(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	ev := Event{Type: "checkin.approved", UserID: "u1", Title: "t"}

	// Every channel failed: the event must stay eligible for a resend,
	// so deliver reports false and Dispatch never marks the dedupe key.
	d := New(&storeMock{err: errors.New("db down")}, nil, Config{ChatWebhookURL: down.URL})
	if d.deliver(context.Background(), ev) {
		t.Fatal("deliver = true with every channel failing")
	}

	// One channel through is enough to mark the event sent.
	d = New(&storeMock{err: errors.New("db down")}, nil, Config{})
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()
	d.cfg.ChatWebhookURL = up.URL
	if !d.deliver(context.Background(), ev) {
		t.Fatal("deliver = false with the chat channel up")
	}

	// In-app insert alone also counts as delivered.
	d = New(&storeMock{}, nil, Config{})
	if !d.deliver(context.Background(), ev) {
		t.Fatal("deliver = false with the in-app channel up")
	}
}

func TestPostChat_Payload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New(nil, nil, Config{ChatWebhookURL: srv.URL})
	if err := d.PostChat(context.Background(), "gear returned"); err != nil {
		t.Fatalf("PostChat: %v", err)
	}
	if got["text"] != "gear returned" {
		t.Errorf("payload text = %q, want %q", got["text"], "gear returned")
	}
}

func TestPostChat_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	d := New(nil, nil, Config{ChatWebhookURL: srv.URL})
	if err := d.PostChat(context.Background(), "x"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestPostChat_Unconfigured(t *testing.T) {
	d := New(nil, nil, Config{})
	if err := d.PostChat(context.Background(), "x"); err == nil {
		t.Fatal("expected error when webhook is not configured")
	}
}

func TestChatText(t *testing.T) {
	if got := chatText(Event{Title: "T"}); got != "T" {
		t.Errorf("got %q", got)
	}
	if got := chatText(Event{Title: "T", Message: "M"}); got != "T\nM" {
		t.Errorf("got %q", got)
	}
}
