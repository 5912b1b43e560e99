package db

import (
	"context"
	"errors"
	"time"

	"github.com/Ashnagdarc/Nest-sub004/models"
	"github.com/Ashnagdarc/Nest-sub004/reconcile"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRequestClosed    = errors.New("request is already closed")
	ErrBadStatusChange  = errors.New("request status change not allowed")
	ErrInsufficientGear = errors.New("not enough gear available")
	ErrNoLines          = errors.New("request needs at least one line")
)

type LineInput struct {
	GearID   string `json:"gearId" binding:"required"`
	Quantity int    `json:"quantity"`
}

type CreateRequestInput struct {
	UserID string
	Reason string
	DueAt  *time.Time
	Lines  []LineInput
}

// CreateRequest writes the request, its immutable lines and the first
// history row in one transaction.
func (r *Repo) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.GearRequest, error) {
	if len(in.Lines) == 0 {
		return nil, ErrNoLines
	}
	req := &models.GearRequest{
		ID:     uuid.NewString(),
		UserID: in.UserID,
		Status: models.RequestStatusNew,
		Reason: in.Reason,
		DueAt:  in.DueAt,
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(req).Error; err != nil {
			return err
		}
		for _, ln := range in.Lines {
			qty := ln.Quantity
			if qty < 1 {
				qty = 1
			}
			line := models.RequestLine{RequestID: req.ID, GearID: ln.GearID, Quantity: qty}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
			req.Lines = append(req.Lines, line)
		}
		return appendHistory(tx, req.ID, models.RequestStatusNew, in.UserID, "request submitted")
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

type RequestQuery struct {
	UserID string
	Status string
	Page   int
	Size   int
}

type PagedRequests struct {
	Total int64                `json:"total"`
	Items []models.GearRequest `json:"items"`
}

func (r *Repo) ListRequests(ctx context.Context, q RequestQuery) (*PagedRequests, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 200 {
		q.Size = 20
	}

	tx := r.DB.WithContext(ctx).Model(&models.GearRequest{})
	if q.UserID != "" {
		tx = tx.Where("user_id = ?", q.UserID)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.GearRequest
	if err := tx.
		Preload("Lines").
		Order("created_at DESC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return &PagedRequests{Total: total, Items: items}, nil
}

func (r *Repo) FindRequestByID(ctx context.Context, id string) (*models.GearRequest, error) {
	var req models.GearRequest
	err := r.DB.WithContext(ctx).Preload("Lines").First(&req, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (r *Repo) RequestHistory(ctx context.Context, requestID string) ([]models.RequestStatusHistory, error) {
	var rows []models.RequestStatusHistory
	err := r.DB.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// SetRequestStatus performs an admin/user lifecycle transition
// (approve, reject, cancel) and appends the history row atomically.
func (r *Repo) SetRequestStatus(ctx context.Context, requestID, status, actorID, note string) (*models.GearRequest, error) {
	var req models.GearRequest
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&req, "id = ?", requestID).Error; err != nil {
			return notFound(err)
		}
		if models.RequestStatusTerminal(req.Status) {
			return ErrRequestClosed
		}
		if !lifecycleTransitionOK(req.Status, status) {
			return ErrBadStatusChange
		}
		if err := tx.Model(&models.GearRequest{}).
			Where("id = ?", req.ID).
			Update("status", status).Error; err != nil {
			return err
		}
		req.Status = status
		return appendHistory(tx, req.ID, status, actorID, note)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func lifecycleTransitionOK(from, to string) bool {
	switch to {
	case models.RequestStatusPending:
		return from == models.RequestStatusNew
	case models.RequestStatusApproved:
		return from == models.RequestStatusNew || from == models.RequestStatusPending
	case models.RequestStatusRejected, models.RequestStatusCancelled:
		return from == models.RequestStatusNew || from == models.RequestStatusPending ||
			from == models.RequestStatusApproved
	case models.RequestStatusOverdue:
		return from == models.RequestStatusCheckedOut || from == models.RequestStatusPartiallyReturned
	}
	return false
}

// MarkCheckedOut hands the gear over: availability is decremented per
// line with a conditional update so two admins cannot oversubscribe the
// same stock.
func (r *Repo) MarkCheckedOut(ctx context.Context, requestID, actorID string) (*models.GearRequest, error) {
	var req models.GearRequest
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Lines").
			First(&req, "id = ?", requestID).Error; err != nil {
			return notFound(err)
		}
		if req.Status != models.RequestStatusApproved {
			return ErrBadStatusChange
		}
		for _, ln := range req.Lines {
			res := tx.Model(&models.Gear{}).
				Where("id = ? AND quantity_available >= ?", ln.GearID, ln.Quantity).
				Update("quantity_available", gorm.Expr("quantity_available - ?", ln.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrInsufficientGear
			}
		}
		if err := tx.Model(&models.GearRequest{}).
			Where("id = ?", req.ID).
			Update("status", models.RequestStatusCheckedOut).Error; err != nil {
			return err
		}
		req.Status = models.RequestStatusCheckedOut
		return appendHistory(tx, req.ID, models.RequestStatusCheckedOut, actorID, "gear handed over")
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// MarkOverdueRequests flips every open request past its due date to
// Overdue and logs a history row for each. Returns the affected ids.
func (r *Repo) MarkOverdueRequests(ctx context.Context, actorID string) ([]string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.GearRequest{}).
			Where("status IN ? AND due_at IS NOT NULL AND due_at < NOW()",
				[]string{models.RequestStatusCheckedOut, models.RequestStatusPartiallyReturned}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Model(&models.GearRequest{}).
			Where("id IN ?", ids).
			Update("status", models.RequestStatusOverdue).Error; err != nil {
			return err
		}
		for _, id := range ids {
			if err := appendHistory(tx, id, models.RequestStatusOverdue, actorID, "past due date"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// LinesForRequests feeds the line aggregator for the current page.
func (r *Repo) LinesForRequests(ctx context.Context, requestIDs []string) ([]models.RequestLine, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}
	var lines []models.RequestLine
	err := r.DB.WithContext(ctx).
		Where("request_id IN ?", requestIDs).
		Find(&lines).Error
	return lines, err
}

func appendHistory(tx *gorm.DB, requestID, status, actorID, note string) error {
	return tx.Create(&models.RequestStatusHistory{
		RequestID: requestID,
		Status:    status,
		ChangedBy: actorID,
		Note:      note,
	}).Error
}

// settleRequest re-derives whether a request is fully or partially
// returned from its lines and Completed check-ins, and moves the status
// forward inside the caller's transaction. Runs after every approval.
func settleRequest(tx *gorm.DB, requestID, actorID string) (string, error) {
	var req models.GearRequest
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&req, "id = ?", requestID).Error; err != nil {
		return "", notFound(err)
	}
	if models.RequestStatusTerminal(req.Status) {
		return req.Status, nil
	}

	var lines []models.RequestLine
	if err := tx.Where("request_id = ?", requestID).Find(&lines).Error; err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return req.Status, nil
	}
	var completed []models.CheckinRecord
	if err := tx.
		Where("request_id = ? AND status = ?", requestID, models.CheckinStatusCompleted).
		Find(&completed).Error; err != nil {
		return "", err
	}

	next := req.Status
	if reconcile.RequestSatisfied(lines, reconcile.CompletedByGear(completed)) {
		next = models.RequestStatusCompleted
	} else if len(completed) > 0 &&
		(req.Status == models.RequestStatusCheckedOut || req.Status == models.RequestStatusOverdue) {
		next = models.RequestStatusPartiallyReturned
	}
	if next == req.Status {
		return req.Status, nil
	}

	if err := tx.Model(&models.GearRequest{}).
		Where("id = ?", req.ID).
		Update("status", next).Error; err != nil {
		return "", err
	}
	note := "all gear returned"
	if next == models.RequestStatusPartiallyReturned {
		note = "some gear returned"
	}
	if err := appendHistory(tx, req.ID, next, actorID, note); err != nil {
		return "", err
	}
	return next, nil
}
