package db

import (
	"context"

	"github.com/Ashnagdarc/Nest-sub004/models"
)

// Notifications

func (r *Repo) InsertNotification(ctx context.Context, n *models.Notification) error {
	return r.DB.WithContext(ctx).Create(n).Error
}

type NotificationQuery struct {
	UserID     string
	UnreadOnly bool
	Page       int
	Size       int
}

type PagedNotifications struct {
	Total  int64                 `json:"total"`
	Unread int64                 `json:"unread"`
	Items  []models.Notification `json:"items"`
}

func (r *Repo) ListNotifications(ctx context.Context, q NotificationQuery) (*PagedNotifications, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 100 {
		q.Size = 20
	}

	tx := r.DB.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", q.UserID)
	if q.UnreadOnly {
		tx = tx.Where("read = FALSE")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}
	var unread int64
	if err := r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = FALSE", q.UserID).
		Count(&unread).Error; err != nil {
		return nil, err
	}

	var items []models.Notification
	if err := tx.
		Order("created_at DESC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return &PagedNotifications{Total: total, Unread: unread, Items: items}, nil
}

// MarkNotificationsRead flips the given ids, scoped to the owner so one
// user cannot touch another's notifications.
func (r *Repo) MarkNotificationsRead(ctx context.Context, userID string, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Update("read", true)
	return res.RowsAffected, res.Error
}

func (r *Repo) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = FALSE", userID).
		Update("read", true)
	return res.RowsAffected, res.Error
}
