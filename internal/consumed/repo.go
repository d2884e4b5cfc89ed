package consumed

import (
	"context"
	"time"

	"github.com/angelmondragon/cellarbook-backend/internal/wines"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists the consumption log. Every query is scoped to user_id.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

type recordRow struct {
	ID         uuid.UUID
	Rating     *int
	Notes      *string
	ConsumedAt time.Time
	wines.SummaryRecord
}

func (r *Repository) joined(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("consumed_records cr").
		Select("cr.id, cr.rating, cr.notes, cr.consumed_at, " + wines.SummaryColumns()).
		Joins("JOIN wines w ON w.id = cr.wine_id").
		Where("cr.user_id = ?", userID)
}

// List returns the user's history, most recently consumed first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]recordRow, error) {
	var rows []recordRow
	err := r.joined(ctx, userID).
		Order("cr.consumed_at DESC").
		Order("cr.id DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) FindDetailed(ctx context.Context, userID, id uuid.UUID) (*recordRow, error) {
	var rows []recordRow
	if err := r.joined(ctx, userID).Where("cr.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *Repository) Create(ctx context.Context, record *models.ConsumedRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// UpdateReview changes rating and notes only. consumed_at is never written.
func (r *Repository) UpdateReview(ctx context.Context, userID, id uuid.UUID, changes map[string]any) error {
	allowed := map[string]any{}
	for _, col := range []string{"rating", "notes"} {
		if v, ok := changes[col]; ok {
			allowed[col] = v
		}
	}
	if len(allowed) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.ConsumedRecord{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(allowed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.ConsumedRecord{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// WineConsumable reports whether userID may log wineID: they own it, a friend
// recommended it to them, or it sits in their cellar.
func (r *Repository) WineConsumable(ctx context.Context, userID, wineID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Wine{}).
		Where("id = ?", wineID).
		Where(r.db.Where("created_by = ?", userID).
			Or("EXISTS (SELECT 1 FROM wine_recommendations wr WHERE wr.wine_id = wines.id AND wr.to_user_id = ?)", userID).
			Or("EXISTS (SELECT 1 FROM inventory_entries ie WHERE ie.wine_id = wines.id AND ie.user_id = ?)", userID)).
		Count(&count).Error
	return count > 0, err
}
