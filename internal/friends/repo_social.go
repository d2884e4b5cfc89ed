package friends

import (
	"context"
	"time"

	"github.com/angelmondragon/cellarbook-backend/internal/wines"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (r *Repository) CreateInvite(ctx context.Context, invite *models.InviteLink) error {
	if invite.ID == uuid.Nil {
		invite.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(invite).Error
}

// FindInviteByCode loads an invite with its owner.
func (r *Repository) FindInviteByCode(ctx context.Context, code string) (*models.InviteLink, error) {
	var invite models.InviteLink
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("code = ?", code).
		First(&invite).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// LatestActiveInvite returns the newest unused, unexpired invite of ownerID.
func (r *Repository) LatestActiveInvite(ctx context.Context, ownerID uuid.UUID, now time.Time) (*models.InviteLink, error) {
	var invite models.InviteLink
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND used_at IS NULL AND expires_at > ?", ownerID, now).
		Order("created_at DESC").
		First(&invite).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// MarkInviteUsed claims the invite for usedBy. Only one caller can win; the
// rest get false.
func (r *Repository) MarkInviteUsed(ctx context.Context, id, usedBy uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InviteLink{}).
		Where("id = ? AND used_at IS NULL AND expires_at > ?", id, at).
		Updates(map[string]any{"used_by": usedBy, "used_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) CreateRecommendation(ctx context.Context, rec *models.WineRecommendation) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

type recommendationRow struct {
	ID         uuid.UUID
	FromUserID uuid.UUID
	FromName   string
	Message    *string
	ReadAt     *time.Time
	CreatedAt  time.Time
	wines.SummaryRecord
}

func (r *Repository) recommendationsFor(ctx context.Context, toUserID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("wine_recommendations wr").
		Select("wr.id, wr.from_user_id, u.name AS from_name, wr.message, wr.read_at, wr.created_at, " + wines.SummaryColumns()).
		Joins("JOIN users u ON u.id = wr.from_user_id").
		Joins("JOIN wines w ON w.id = wr.wine_id").
		Where("wr.to_user_id = ?", toUserID)
}

// ListRecommendations returns what was sent to toUserID, newest first.
func (r *Repository) ListRecommendations(ctx context.Context, toUserID uuid.UUID) ([]recommendationRow, error) {
	var rows []recommendationRow
	err := r.recommendationsFor(ctx, toUserID).
		Order("wr.created_at DESC").
		Order("wr.id DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *Repository) FindRecommendation(ctx context.Context, toUserID, id uuid.UUID) (*recommendationRow, error) {
	var rows []recommendationRow
	if err := r.recommendationsFor(ctx, toUserID).Where("wr.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

// MarkAllRecommendationsRead stamps every unread recommendation of toUserID.
func (r *Repository) MarkAllRecommendationsRead(ctx context.Context, toUserID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.WineRecommendation{}).
		Where("to_user_id = ? AND read_at IS NULL", toUserID).
		Update("read_at", at)
	return res.RowsAffected, res.Error
}

// MarkRecommendationRead keeps an existing read_at and reports whether the
// recommendation belongs to toUserID.
func (r *Repository) MarkRecommendationRead(ctx context.Context, toUserID, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.WineRecommendation{}).
		Where("id = ? AND to_user_id = ?", id, toUserID).
		Update("read_at", gorm.Expr("COALESCE(read_at, ?)", at))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

type cellarRow struct {
	EntryID  uuid.UUID
	Quantity int
	wines.SummaryRecord
}

// SharedCellar lists ownerID's inventory without purchase price or notes.
func (r *Repository) SharedCellar(ctx context.Context, ownerID uuid.UUID) ([]cellarRow, error) {
	var rows []cellarRow
	err := r.db.WithContext(ctx).
		Table("inventory_entries ie").
		Select("ie.id AS entry_id, ie.quantity, " + wines.SummaryColumns()).
		Joins("JOIN wines w ON w.id = ie.wine_id").
		Where("ie.user_id = ?", ownerID).
		Order("ie.created_at DESC").
		Scan(&rows).Error
	return rows, err
}
