package friends

import (
	"context"
	"time"

	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	"github.com/angelmondragon/cellarbook-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository covers friendships, cellar shares, invite links, and
// recommendations. Each query names the acting user.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

type friendRow struct {
	ID                   uuid.UUID
	RequesterID          uuid.UUID
	AddresseeID          uuid.UUID
	Status               enums.FriendshipStatus
	CreatedAt            time.Time
	RespondedAt          *time.Time
	OtherID              uuid.UUID
	OtherName            string
	OtherEmail           string
	IShareMyCellar       bool `gorm:"column:i_share"`
	TheyShareTheirCellar bool `gorm:"column:they_share"`
}

const listFriendsSQL = `
SELECT f.id, f.requester_id, f.addressee_id, f.status, f.created_at, f.responded_at,
       u.id AS other_id, u.name AS other_name, u.email AS other_email,
       EXISTS (SELECT 1 FROM cellar_shares s
               WHERE s.owner_id = @user AND s.friend_id = u.id AND s.revoked_at IS NULL) AS i_share,
       EXISTS (SELECT 1 FROM cellar_shares s
               WHERE s.owner_id = u.id AND s.friend_id = @user AND s.revoked_at IS NULL) AS they_share
FROM friendships f
JOIN users u ON u.id = CASE WHEN f.requester_id = @user THEN f.addressee_id ELSE f.requester_id END
WHERE (f.requester_id = @user OR f.addressee_id = @user)
  AND f.status IN @statuses
ORDER BY f.created_at DESC, f.id DESC`

// ListForUser returns pending and accepted friendships involving userID with
// the other party and the share flags in both directions.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]friendRow, error) {
	var rows []friendRow
	err := r.db.WithContext(ctx).Raw(listFriendsSQL, map[string]any{
		"user":     userID,
		"statuses": []string{enums.FriendshipStatusPending.String(), enums.FriendshipStatusAccepted.String()},
	}).Scan(&rows).Error
	return rows, err
}

func (r *Repository) FindFriendship(ctx context.Context, id uuid.UUID) (*models.Friendship, error) {
	var f models.Friendship
	if err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// FindPair returns the friendship between a and b in either direction.
func (r *Repository) FindPair(ctx context.Context, a, b uuid.UUID) (*models.Friendship, error) {
	var f models.Friendship
	err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)", a, b, b, a).
		First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// AreFriends reports whether a and b have an accepted friendship.
func (r *Repository) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("((requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)) AND status = ?",
			a, b, b, a, enums.FriendshipStatusAccepted).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) CreateFriendship(ctx context.Context, f *models.Friendship) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(f).Error
}

// TransitionFriendship moves a row from one status to another and reports
// whether the row was still in the expected state.
func (r *Repository) TransitionFriendship(ctx context.Context, id uuid.UUID, from []enums.FriendshipStatus, to enums.FriendshipStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{"status": to, "responded_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReopenFriendship turns a declined row back into a fresh pending request
// from requesterID to addresseeID.
func (r *Repository) ReopenFriendship(ctx context.Context, id, requesterID, addresseeID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("id = ? AND status = ?", id, enums.FriendshipStatusDeclined).
		Updates(map[string]any{
			"requester_id": requesterID,
			"addressee_id": addresseeID,
			"status":       enums.FriendshipStatusPending,
			"created_at":   at,
			"responded_at": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) DeleteFriendship(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Friendship{}, "id = ?", id).Error
}

// ActiveShare returns the unrevoked share ownerID granted to friendID.
func (r *Repository) ActiveShare(ctx context.Context, ownerID, friendID uuid.UUID) (*models.CellarShare, error) {
	var share models.CellarShare
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND friend_id = ? AND revoked_at IS NULL", ownerID, friendID).
		First(&share).Error
	if err != nil {
		return nil, err
	}
	return &share, nil
}

func (r *Repository) CreateShare(ctx context.Context, share *models.CellarShare) error {
	if share.ID == uuid.Nil {
		share.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(share).Error
}

// RevokeShare stamps revoked_at on the active ownerID -> friendID share.
func (r *Repository) RevokeShare(ctx context.Context, ownerID, friendID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CellarShare{}).
		Where("owner_id = ? AND friend_id = ? AND revoked_at IS NULL", ownerID, friendID).
		Update("revoked_at", at)
	return res.RowsAffected, res.Error
}

// RevokeSharesBetween revokes active shares in both directions.
func (r *Repository) RevokeSharesBetween(ctx context.Context, a, b uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CellarShare{}).
		Where("((owner_id = ? AND friend_id = ?) OR (owner_id = ? AND friend_id = ?)) AND revoked_at IS NULL", a, b, b, a).
		Update("revoked_at", at)
	return res.RowsAffected, res.Error
}
