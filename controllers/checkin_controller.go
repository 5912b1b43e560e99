package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Ashnagdarc/Nest-sub004/app"
	"github.com/Ashnagdarc/Nest-sub004/db"
	"github.com/Ashnagdarc/Nest-sub004/models"
	"github.com/Ashnagdarc/Nest-sub004/reconcile"

	"github.com/gin-gonic/gin"
)

// checkinStore is the slice of the repo the checkin handlers use.
type checkinStore interface {
	CreateCheckin(ctx context.Context, rec *models.CheckinRecord) error
	ListCheckins(ctx context.Context, q db.CheckinQuery) (*db.PagedCheckins, error)
	LinesForRequests(ctx context.Context, requestIDs []string) ([]models.RequestLine, error)
	CheckinsForRequests(ctx context.Context, requestIDs []string) ([]models.CheckinRecord, error)
	GearNames(ctx context.Context, gearIDs []string) (map[string]string, error)
	ApproveCheckin(ctx context.Context, checkinID, approverID string) (*db.ApprovalResult, error)
	ApproveGroup(ctx context.Context, key, approverID string) (*db.ApprovalResult, error)
	RejectCheckin(ctx context.Context, checkinID, approverID, reason string) (*models.CheckinRecord, error)
	userFinder
}

type CheckinController struct {
	*Srv
	store checkinStore
}

func GetCheckinController(s *Srv) *CheckinController {
	return &CheckinController{Srv: s, store: s.Repo}
}

// POST /api/checkins
// A user submits a return; it lands as PendingApproval.
func (cc *CheckinController) CreateCheckin(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, app.H{"error": "unauthorized"})
		return
	}
	var in struct {
		RequestID *string    `json:"requestId"`
		GearID    string     `json:"gearId" binding:"required"`
		Quantity  int        `json:"quantity"`
		Condition string     `json:"condition"`
		Notes     string     `json:"notes"`
		Date      *time.Time `json:"checkinDate"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	rec := &models.CheckinRecord{
		RequestID:   in.RequestID,
		UserID:      uid,
		GearID:      in.GearID,
		Quantity:    in.Quantity,
		Condition:   in.Condition,
		Notes:       in.Notes,
		CheckinDate: in.Date,
	}
	if err := cc.store.CreateCheckin(c.Request.Context(), rec); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// GET /api/checkins?limit=&page=&status=&userId=
// Returns the page of records plus the derived per-request line summaries
// and the display groups, so both views share one grouping.
func (cc *CheckinController) ListCheckins(c *gin.Context) {
	q := db.CheckinQuery{Status: c.Query("status")}
	uid, _ := currentUserID(c)
	if isAdmin(c) {
		q.UserID = c.Query("userId")
	} else {
		q.UserID = uid
	}
	q.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	q.Size, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	page, err := cc.store.ListCheckins(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	// Line summaries for the requests visible on this page.
	seen := make(map[string]bool)
	var requestIDs []string
	for _, rec := range page.Items {
		if rec.RequestID != nil && *rec.RequestID != "" && !seen[*rec.RequestID] {
			seen[*rec.RequestID] = true
			requestIDs = append(requestIDs, *rec.RequestID)
		}
	}
	lines, err := cc.store.LinesForRequests(c.Request.Context(), requestIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	checkins, err := cc.store.CheckinsForRequests(c.Request.Context(), requestIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	gearIDs := make(map[string]bool)
	var ids []string
	for _, ln := range lines {
		if !gearIDs[ln.GearID] {
			gearIDs[ln.GearID] = true
			ids = append(ids, ln.GearID)
		}
	}
	names, err := cc.store.GearNames(c.Request.Context(), ids)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, app.H{
		"total":     page.Total,
		"items":     page.Items,
		"summaries": reconcile.Summarize(lines, checkins, names),
		"groups":    reconcile.GroupRecords(page.Items),
	})
}

// POST /api/checkins/approve (admin)
func (cc *CheckinController) Approve(c *gin.Context) {
	var in struct {
		CheckinID string `json:"checkinId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	uid, _ := currentUserID(c)

	res, err := cc.store.ApproveCheckin(c.Request.Context(), in.CheckinID, uid)
	if err != nil {
		cc.approvalError(c, err)
		return
	}
	cc.notifyApproval(c, res)
	c.JSON(http.StatusOK, res)
}

// POST /api/checkins/approve-group (admin)
// The member set is re-derived server-side from the group key.
func (cc *CheckinController) ApproveGroup(c *gin.Context) {
	var in struct {
		GroupKey string `json:"groupKey" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	uid, _ := currentUserID(c)

	res, err := cc.store.ApproveGroup(c.Request.Context(), in.GroupKey, uid)
	if err != nil {
		if errors.Is(err, reconcile.ErrBadGroupKey) {
			c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
			return
		}
		cc.approvalError(c, err)
		return
	}
	cc.notifyApproval(c, res)
	c.JSON(http.StatusOK, res)
}

// POST /api/checkins/reject (admin, reason required)
func (cc *CheckinController) Reject(c *gin.Context) {
	var in struct {
		CheckinID string `json:"checkinId" binding:"required"`
		Reason    string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Reason) == "" {
		// Blocked before any write; an empty reason never reaches the db.
		c.JSON(http.StatusBadRequest, app.H{"error": "rejection reason is required"})
		return
	}
	uid, _ := currentUserID(c)

	rec, err := cc.store.RejectCheckin(c.Request.Context(), in.CheckinID, uid, in.Reason)
	if err != nil {
		cc.approvalError(c, err)
		return
	}

	ev := notifyEvent(c, cc.store, rec.UserID, "checkin.rejected",
		"Check-in rejected", "Your gear return was rejected: "+strings.TrimSpace(in.Reason))
	ev.DedupeKey = "checkin.rejected:" + rec.ID
	cc.Notify.Dispatch(c.Request.Context(), ev)

	c.JSON(http.StatusOK, rec)
}

func (cc *CheckinController) approvalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, db.ErrNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": "checkin not found"})
	case errors.Is(err, db.ErrCheckinNotPending):
		c.JSON(http.StatusConflict, app.H{"error": err.Error()})
	case errors.Is(err, db.ErrNothingPending):
		c.JSON(http.StatusConflict, app.H{"error": err.Error()})
	case errors.Is(err, db.ErrEmptyReason):
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
	}
}

// notifyApproval fans out after the transaction committed. Side-channel
// failures are logged inside Dispatch and never fail the approval.
func (cc *CheckinController) notifyApproval(c *gin.Context, res *db.ApprovalResult) {
	for _, rec := range res.Approved {
		ev := notifyEvent(c, cc.store, rec.UserID, "checkin.approved",
			"Check-in approved", fmt.Sprintf("Your return of %d unit(s) was approved.", rec.Unit()))
		ev.DedupeKey = "checkin.approved:" + rec.ID
		cc.Notify.Dispatch(c.Request.Context(), ev)
	}
	if res.RequestStatus == models.RequestStatusCompleted && len(res.Approved) > 0 {
		ev := notifyEvent(c, cc.store, res.Approved[0].UserID, "request.completed",
			"Request completed", "All gear on your request has been returned.")
		ev.DedupeKey = "request.completed:" + res.RequestID
		cc.Notify.Dispatch(c.Request.Context(), ev)
	}
}
