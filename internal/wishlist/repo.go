package wishlist

import (
	"context"
	"time"

	"github.com/angelmondragon/cellarbook-backend/internal/wines"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository encapsulates wishlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a wishlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

type entryRecord struct {
	ID        uuid.UUID
	Priority  int
	Notes     *string
	CreatedAt time.Time
	wines.SummaryRecord
}

func (r *Repository) joined(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("wishlist_entries wl").
		Select("wl.id, wl.priority, wl.notes, wl.created_at, " + wines.SummaryColumns()).
		Joins("JOIN wines w ON w.id = wl.wine_id").
		Where("wl.user_id = ?", userID)
}

// List returns the user's wishlist with catalog fields, newest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]entryRecord, error) {
	var rows []entryRecord
	err := r.joined(ctx, userID).
		Order("wl.created_at DESC").
		Order("wl.id DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) FindDetailed(ctx context.Context, userID, id uuid.UUID) (*entryRecord, error) {
	var rows []entryRecord
	if err := r.joined(ctx, userID).Where("wl.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *Repository) FindByID(ctx context.Context, userID, id uuid.UUID) (*models.WishlistEntry, error) {
	var entry models.WishlistEntry
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *Repository) Create(ctx context.Context, entry *models.WishlistEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// Delete removes the user's entry and reports whether it existed.
func (r *Repository) Delete(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.WishlistEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// WineVisible reports whether userID may wishlist wineID: either they own it or
// a friend recommended it to them.
func (r *Repository) WineVisible(ctx context.Context, userID, wineID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Wine{}).
		Where("id = ?", wineID).
		Where(r.db.Where("created_by = ?", userID).
			Or("EXISTS (SELECT 1 FROM wine_recommendations wr WHERE wr.wine_id = wines.id AND wr.to_user_id = ?)", userID)).
		Count(&count).Error
	return count > 0, err
}
