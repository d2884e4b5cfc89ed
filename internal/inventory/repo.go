package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/cellarbook-backend/internal/wines"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository persists cellar entries. Every query is scoped to user_id.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

type entryRecord struct {
	ID            uuid.UUID
	Quantity      int
	PurchaseDate  *time.Time
	PurchasePrice decimal.NullDecimal
	Notes         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	wines.SummaryRecord
}

func (r *Repository) joined(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("inventory_entries ie").
		Select("ie.id, ie.quantity, ie.purchase_date, ie.purchase_price, ie.notes, ie.created_at, ie.updated_at, " + wines.SummaryColumns()).
		Joins("JOIN wines w ON w.id = ie.wine_id").
		Where("ie.user_id = ?", userID)
}

// List returns the user's cellar joined with catalog fields, newest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]entryRecord, error) {
	var rows []entryRecord
	err := r.joined(ctx, userID).
		Order("ie.created_at DESC").
		Order("ie.id DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) FindDetailed(ctx context.Context, userID, id uuid.UUID) (*entryRecord, error) {
	var rows []entryRecord
	if err := r.joined(ctx, userID).Where("ie.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *Repository) FindByID(ctx context.Context, userID, id uuid.UUID) (*models.InventoryEntry, error) {
	var entry models.InventoryEntry
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *Repository) Create(ctx context.Context, entry *models.InventoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Quantity < 1 {
		return errors.New("inventory quantity must be at least 1")
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// Update applies column changes to one owned entry.
func (r *Repository) Update(ctx context.Context, userID, id uuid.UUID, changes map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryEntry{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(changes)
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
		Delete(&models.InventoryEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ConsumeOne takes one bottle out of an owned entry. The last bottle removes
// the row. It returns gorm.ErrRecordNotFound when the entry is not the user's.
func (r *Repository) ConsumeOne(ctx context.Context, userID, id uuid.UUID) (removed bool, err error) {
	entry, err := r.FindByID(ctx, userID, id)
	if err != nil {
		return false, err
	}
	if entry.Quantity <= 1 {
		deleted, err := r.Delete(ctx, userID, id)
		if err != nil {
			return false, err
		}
		if !deleted {
			return false, gorm.ErrRecordNotFound
		}
		return true, nil
	}

	res := r.db.WithContext(ctx).
		Model(&models.InventoryEntry{}).
		Where("id = ? AND user_id = ? AND quantity > 1", id, userID).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, gorm.ErrRecordNotFound
	}
	return false, nil
}
