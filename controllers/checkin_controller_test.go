package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Ashnagdarc/Nest-sub004/db"
	"github.com/Ashnagdarc/Nest-sub004/models"
	"github.com/Ashnagdarc/Nest-sub004/notify"

	"github.com/gin-gonic/gin"
)

// checkinStoreMock satisfies checkinStore with per-call hooks; methods
// without a hook return zero values.
type checkinStoreMock struct {
	approveFn      func(ctx context.Context, checkinID, approverID string) (*db.ApprovalResult, error)
	approveGroupFn func(ctx context.Context, key, approverID string) (*db.ApprovalResult, error)
	rejectFn       func(ctx context.Context, checkinID, approverID, reason string) (*models.CheckinRecord, error)
}

func (m *checkinStoreMock) CreateCheckin(context.Context, *models.CheckinRecord) error { return nil }
func (m *checkinStoreMock) ListCheckins(context.Context, db.CheckinQuery) (*db.PagedCheckins, error) {
	return &db.PagedCheckins{}, nil
}
func (m *checkinStoreMock) LinesForRequests(context.Context, []string) ([]models.RequestLine, error) {
	return nil, nil
}
func (m *checkinStoreMock) CheckinsForRequests(context.Context, []string) ([]models.CheckinRecord, error) {
	return nil, nil
}
func (m *checkinStoreMock) GearNames(context.Context, []string) (map[string]string, error) {
	return nil, nil
}
func (m *checkinStoreMock) ApproveCheckin(ctx context.Context, checkinID, approverID string) (*db.ApprovalResult, error) {
	return m.approveFn(ctx, checkinID, approverID)
}
func (m *checkinStoreMock) ApproveGroup(ctx context.Context, key, approverID string) (*db.ApprovalResult, error) {
	return m.approveGroupFn(ctx, key, approverID)
}
func (m *checkinStoreMock) RejectCheckin(ctx context.Context, checkinID, approverID, reason string) (*models.CheckinRecord, error) {
	return m.rejectFn(ctx, checkinID, approverID, reason)
}
func (m *checkinStoreMock) FindUserByID(context.Context, string) (*models.User, error) {
	return &models.User{Email: "user@example.com"}, nil
}

type notifyStoreMock struct{ inserted []models.Notification }

func (m *notifyStoreMock) InsertNotification(_ context.Context, n *models.Notification) error {
	m.inserted = append(m.inserted, *n)
	return nil
}

func checkinTestRig(store checkinStore) (*CheckinController, *notifyStoreMock) {
	gin.SetMode(gin.TestMode)
	sink := &notifyStoreMock{}
	s := &Srv{Notify: notify.New(sink, nil, notify.Config{})}
	return &CheckinController{Srv: s, store: store}, sink
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// A racing second approval surfaces as a conflict, not a server error.
func TestApprove_RacingApprovalIsConflict(t *testing.T) {
	store := &checkinStoreMock{
		approveFn: func(context.Context, string, string) (*db.ApprovalResult, error) {
			return nil, db.ErrCheckinNotPending
		},
	}
	cc, sink := checkinTestRig(store)

	r := gin.New()
	r.POST("/api/checkins/approve", func(c *gin.Context) {
		c.Set("userID", "admin-1")
		cc.Approve(c)
	})

	w := postJSON(r, "/api/checkins/approve", `{"checkinId":"c1"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusConflict)
	}
	if len(sink.inserted) != 0 {
		t.Errorf("conflicting approval dispatched %d notifications, want 0", len(sink.inserted))
	}
}

func TestReject_NonPendingIsConflict(t *testing.T) {
	store := &checkinStoreMock{
		rejectFn: func(context.Context, string, string, string) (*models.CheckinRecord, error) {
			return nil, db.ErrCheckinNotPending
		},
	}
	cc, _ := checkinTestRig(store)

	r := gin.New()
	r.POST("/api/checkins/reject", func(c *gin.Context) {
		c.Set("userID", "admin-1")
		cc.Reject(c)
	})

	w := postJSON(r, "/api/checkins/reject", `{"checkinId":"c1","reason":"damaged"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusConflict)
	}
}

// Approving a group that completes its request fans out one approval
// notification per member plus a single request-completed one.
func TestApproveGroup_CompletionNotifiedOnce(t *testing.T) {
	reqID := "r1"
	store := &checkinStoreMock{
		approveGroupFn: func(context.Context, string, string) (*db.ApprovalResult, error) {
			return &db.ApprovalResult{
				Approved: []models.CheckinRecord{
					{ID: "c1", UserID: "u1", RequestID: &reqID, Quantity: 1},
					{ID: "c2", UserID: "u1", RequestID: &reqID, Quantity: 2},
				},
				RequestID:     reqID,
				RequestStatus: models.RequestStatusCompleted,
			}, nil
		},
	}
	cc, sink := checkinTestRig(store)

	r := gin.New()
	r.POST("/api/checkins/approve-group", func(c *gin.Context) {
		c.Set("userID", "admin-1")
		cc.ApproveGroup(c)
	})

	w := postJSON(r, "/api/checkins/approve-group", `{"groupKey":"req::r1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	byType := make(map[string]int)
	for _, n := range sink.inserted {
		byType[n.Type]++
	}
	if byType["checkin.approved"] != 2 {
		t.Errorf("got %d checkin.approved notifications, want 2", byType["checkin.approved"])
	}
	if byType["request.completed"] != 1 {
		t.Errorf("got %d request.completed notifications, want 1", byType["request.completed"])
	}
}

// A partial return settles the request without announcing completion.
func TestApprove_PartialReturnNotCompleted(t *testing.T) {
	reqID := "r1"
	store := &checkinStoreMock{
		approveFn: func(context.Context, string, string) (*db.ApprovalResult, error) {
			return &db.ApprovalResult{
				Approved:      []models.CheckinRecord{{ID: "c1", UserID: "u1", RequestID: &reqID, Quantity: 1}},
				RequestID:     reqID,
				RequestStatus: models.RequestStatusPartiallyReturned,
			}, nil
		},
	}
	cc, sink := checkinTestRig(store)

	r := gin.New()
	r.POST("/api/checkins/approve", func(c *gin.Context) {
		c.Set("userID", "admin-1")
		cc.Approve(c)
	})

	w := postJSON(r, "/api/checkins/approve", `{"checkinId":"c1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusOK)
	}
	for _, n := range sink.inserted {
		if n.Type == "request.completed" {
			t.Fatal("partial return dispatched a request.completed notification")
		}
	}
}

// Rejection with an empty reason must be blocked by input validation
// before any repo call, so a nil repo proves no write was attempted.
func TestReject_EmptyReasonBlockedBeforeAnyWrite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cc := GetCheckinController(&Srv{})

	r := gin.New()
	r.POST("/api/checkins/reject", func(c *gin.Context) {
		c.Set("userID", "admin-1")
		cc.Reject(c)
	})

	for _, body := range []string{
		`{"checkinId":"c1"}`,
		`{"checkinId":"c1","reason":""}`,
		`{"checkinId":"c1","reason":"   "}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/checkins/reject", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: got status %d, want %d", body, w.Code, http.StatusBadRequest)
		}
	}
}

func TestApproveGroup_MissingKeyRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cc := GetCheckinController(&Srv{})

	r := gin.New()
	r.POST("/api/checkins/approve-group", func(c *gin.Context) {
		c.Set("userID", "admin-1")
		cc.ApproveGroup(c)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/checkins/approve-group", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}
}
