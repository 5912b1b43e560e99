package db

import (
	"context"
	"strings"

	"github.com/Ashnagdarc/Nest-sub004/models"

	"gorm.io/gorm"
)

// Gears

func (r *Repo) CreateGear(ctx context.Context, g *models.Gear) error {
	if g.QuantityOwned < 1 {
		g.QuantityOwned = 1
	}
	if g.QuantityAvailable < 0 || g.QuantityAvailable > g.QuantityOwned {
		g.QuantityAvailable = g.QuantityOwned
	}
	return r.DB.WithContext(ctx).Create(g).Error
}

func (r *Repo) FindGearByID(ctx context.Context, id string) (*models.Gear, error) {
	var g models.Gear
	if err := r.DB.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

type GearQuery struct {
	Q      string // keyword on name/category
	Status string // "", "active", "maintenance", "retired"
	Page   int
	Size   int
}

type PagedGears struct {
	Total int64         `json:"total"`
	Items []models.Gear `json:"items"`
}

func (r *Repo) ListGears(ctx context.Context, q GearQuery) (*PagedGears, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 200 {
		q.Size = 20
	}

	tx := r.DB.WithContext(ctx).Model(&models.Gear{})
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ?", like, like)
	}
	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.Gear
	if err := tx.
		Order("created_at DESC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return &PagedGears{Total: total, Items: items}, nil
}

// GearNames resolves a set of gear ids to display names for the
// line-summary join.
func (r *Repo) GearNames(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID   string
		Name string
	}
	if err := r.DB.WithContext(ctx).Model(&models.Gear{}).
		Select("id, name").
		Where("id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Name
	}
	return out, nil
}

// restockGear returns quantity to availability when a check-in completes,
// clamped so availability never exceeds what is owned.
func restockGear(tx *gorm.DB, gearID string, qty int) error {
	return tx.Model(&models.Gear{}).
		Where("id = ?", gearID).
		Update("quantity_available",
			gorm.Expr("LEAST(quantity_owned, quantity_available + ?)", qty)).Error
}
