package db

import (
	"context"
	"time"

	"github.com/Ashnagdarc/Nest-sub004/models"
)

// Reports. Plain read-only aggregations behind the admin dashboard.

type UtilizationRow struct {
	GearID            string `json:"gearId"`
	Name              string `json:"name"`
	Category          string `json:"category,omitempty"`
	QuantityOwned     int    `json:"quantityOwned"`
	QuantityAvailable int    `json:"quantityAvailable"`
	CheckedOut        int    `json:"checkedOut"`
	PendingReturns    int    `json:"pendingReturns"`
}

// UtilizationReport lists, per gear type, how much is out and how much is
// sitting in the pending-approval queue.
func (r *Repo) UtilizationReport(ctx context.Context) ([]UtilizationRow, error) {
	var rows []UtilizationRow
	err := r.DB.WithContext(ctx).
		Table(models.GearTable + " g").
		Select(`
			g.id AS gear_id, g.name, g.category,
			g.quantity_owned, g.quantity_available,
			g.quantity_owned - g.quantity_available AS checked_out,
			COALESCE(pc.qty, 0) AS pending_returns
		`).
		Joins(`LEFT JOIN (
			SELECT gear_id, SUM(GREATEST(quantity, 1)) AS qty
			FROM ` + models.CheckinTable + `
			WHERE status = 'PendingApproval'
			GROUP BY gear_id
		) pc ON pc.gear_id = g.id`).
		Order("g.name ASC").
		Scan(&rows).Error
	return rows, err
}

type OverdueRow struct {
	RequestID       string     `json:"requestId"`
	UserID          string     `json:"userId"`
	UserEmail       string     `json:"userEmail"`
	UserDisplayName string     `json:"userDisplayName"`
	Status          string     `json:"status"`
	DueAt           *time.Time `json:"dueAt,omitempty"`
	DaysLate        int        `json:"daysLate"`
}

// OverdueReport lists open requests past their due date, newest debt
// first.
func (r *Repo) OverdueReport(ctx context.Context) ([]OverdueRow, error) {
	var rows []OverdueRow
	err := r.DB.WithContext(ctx).
		Table(models.RequestTable+" gr").
		Select(`
			gr.id AS request_id, gr.user_id, gr.status, gr.due_at,
			u.email AS user_email, u.display_name AS user_display_name,
			GREATEST(0, EXTRACT(DAY FROM NOW() - gr.due_at))::int AS days_late
		`).
		Joins("LEFT JOIN nest_users u ON u.id = gr.user_id").
		Where("gr.status IN ? AND gr.due_at IS NOT NULL AND gr.due_at < NOW()",
			[]string{models.RequestStatusCheckedOut, models.RequestStatusPartiallyReturned, models.RequestStatusOverdue}).
		Order("gr.due_at ASC").
		Scan(&rows).Error
	return rows, err
}
