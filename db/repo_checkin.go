package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Ashnagdarc/Nest-sub004/models"
	"github.com/Ashnagdarc/Nest-sub004/reconcile"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrCheckinNotPending = errors.New("checkin is not pending approval")
	ErrEmptyReason       = errors.New("rejection reason is required")
	ErrNothingPending    = errors.New("no pending checkins in group")
)

// CreateCheckin records a user's return attempt as PendingApproval.
func (r *Repo) CreateCheckin(ctx context.Context, c *models.CheckinRecord) error {
	c.ID = uuid.NewString()
	c.Status = models.CheckinStatusPending
	if c.Quantity < 1 {
		c.Quantity = 1
	}
	if c.CheckinDate == nil {
		now := time.Now().UTC()
		c.CheckinDate = &now
	}
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *Repo) FindCheckinByID(ctx context.Context, id string) (*models.CheckinRecord, error) {
	var c models.CheckinRecord
	if err := r.DB.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

type CheckinQuery struct {
	Status string
	UserID string
	Page   int
	Size   int
}

type PagedCheckins struct {
	Total int64                  `json:"total"`
	Items []models.CheckinRecord `json:"items"`
}

func (r *Repo) ListCheckins(ctx context.Context, q CheckinQuery) (*PagedCheckins, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 200 {
		q.Size = 20
	}

	tx := r.DB.WithContext(ctx).Model(&models.CheckinRecord{})
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.UserID != "" {
		tx = tx.Where("user_id = ?", q.UserID)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.CheckinRecord
	if err := tx.
		Order("checkin_date DESC NULLS LAST, created_at DESC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return &PagedCheckins{Total: total, Items: items}, nil
}

// CheckinsForRequests fetches the rows the line aggregator counts:
// Completed and PendingApproval check-ins of the requests on the page.
func (r *Repo) CheckinsForRequests(ctx context.Context, requestIDs []string) ([]models.CheckinRecord, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}
	var recs []models.CheckinRecord
	err := r.DB.WithContext(ctx).
		Where("request_id IN ? AND status IN ?", requestIDs,
			[]string{models.CheckinStatusCompleted, models.CheckinStatusPending}).
		Find(&recs).Error
	return recs, err
}

// ApprovalResult reports what a (group) approval did, so the caller can
// fan out notifications after the transaction commits.
type ApprovalResult struct {
	Approved      []models.CheckinRecord `json:"approved"`
	RequestID     string                 `json:"requestId,omitempty"`
	RequestStatus string                 `json:"requestStatus,omitempty"`
}

// ApproveCheckin moves one pending check-in to Completed, restocks the
// gear and settles the parent request, all in one transaction. The status
// flip is a conditional update: if another admin got there first the
// update hits zero rows and the whole call fails with
// ErrCheckinNotPending instead of double-counting.
func (r *Repo) ApproveCheckin(ctx context.Context, checkinID, approverID string) (*ApprovalResult, error) {
	var out ApprovalResult
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.CheckinRecord
		if err := tx.First(&rec, "id = ?", checkinID).Error; err != nil {
			return notFound(err)
		}
		if !models.ValidCheckinTransition(rec.Status, models.CheckinStatusCompleted) {
			return ErrCheckinNotPending
		}
		now := time.Now().UTC()
		res := tx.Model(&models.CheckinRecord{}).
			Where("id = ? AND status = ?", rec.ID, models.CheckinStatusPending).
			Updates(map[string]any{
				"status":      models.CheckinStatusCompleted,
				"approved_by": approverID,
				"approved_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCheckinNotPending
		}
		rec.Status = models.CheckinStatusCompleted
		rec.ApprovedBy = &approverID
		rec.ApprovedAt = &now

		if err := restockGear(tx, rec.GearID, rec.Unit()); err != nil {
			return err
		}
		out.Approved = []models.CheckinRecord{rec}

		if rec.RequestID != nil && *rec.RequestID != "" {
			status, err := settleRequest(tx, *rec.RequestID, approverID)
			if err != nil {
				return err
			}
			out.RequestID = *rec.RequestID
			out.RequestStatus = status
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ApproveGroup approves every pending check-in behind a group key. The
// member set is re-derived fresh inside the transaction rather than
// trusting whatever page the client was looking at, then locked, so the
// batch acts on current rows.
func (r *Repo) ApproveGroup(ctx context.Context, key, approverID string) (*ApprovalResult, error) {
	parts, err := reconcile.ParseKey(key)
	if err != nil {
		return nil, err
	}

	var out ApprovalResult
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status = ?", models.CheckinStatusPending)
		if parts.RequestID != "" {
			q = q.Where("request_id = ?", parts.RequestID)
		} else {
			q = q.Where("user_id = ? AND request_id IS NULL", parts.UserID)
			if parts.NoDate {
				q = q.Where("checkin_date IS NULL")
			} else {
				q = q.Where("checkin_date >= ? AND checkin_date < ?",
					parts.Day, parts.Day.Add(24*time.Hour))
			}
		}

		var pending []models.CheckinRecord
		if err := q.Find(&pending).Error; err != nil {
			return err
		}
		if len(pending) == 0 {
			return ErrNothingPending
		}

		ids := make([]string, 0, len(pending))
		for _, rec := range pending {
			ids = append(ids, rec.ID)
		}
		now := time.Now().UTC()
		res := tx.Model(&models.CheckinRecord{}).
			Where("id IN ? AND status = ?", ids, models.CheckinStatusPending).
			Updates(map[string]any{
				"status":      models.CheckinStatusCompleted,
				"approved_by": approverID,
				"approved_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(ids)) {
			// Rows are locked above, so this means a racing transition.
			return ErrCheckinNotPending
		}

		perGear := make(map[string]int)
		for i := range pending {
			pending[i].Status = models.CheckinStatusCompleted
			pending[i].ApprovedBy = &approverID
			pending[i].ApprovedAt = &now
			perGear[pending[i].GearID] += pending[i].Unit()
		}
		for gearID, qty := range perGear {
			if err := restockGear(tx, gearID, qty); err != nil {
				return err
			}
		}
		out.Approved = pending

		if parts.RequestID != "" {
			status, err := settleRequest(tx, parts.RequestID, approverID)
			if err != nil {
				return err
			}
			out.RequestID = parts.RequestID
			out.RequestStatus = status
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RejectCheckin moves a pending check-in to Rejected with a mandatory
// reason appended to its notes. Gear and request accounting stay
// untouched; the pending quantity simply stops counting once the row is
// terminal.
func (r *Repo) RejectCheckin(ctx context.Context, checkinID, approverID, reason string) (*models.CheckinRecord, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}

	var rec models.CheckinRecord
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, "id = ?", checkinID).Error; err != nil {
			return notFound(err)
		}
		if !models.ValidCheckinTransition(rec.Status, models.CheckinStatusRejected) {
			return ErrCheckinNotPending
		}
		notes := rec.Notes
		if notes != "" {
			notes += "\n"
		}
		notes += "Rejection reason: " + reason

		now := time.Now().UTC()
		res := tx.Model(&models.CheckinRecord{}).
			Where("id = ? AND status = ?", rec.ID, models.CheckinStatusPending).
			Updates(map[string]any{
				"status":      models.CheckinStatusRejected,
				"approved_by": approverID,
				"approved_at": now,
				"notes":       notes,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCheckinNotPending
		}
		rec.Status = models.CheckinStatusRejected
		rec.Notes = notes
		rec.ApprovedBy = &approverID
		rec.ApprovedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
