package models

import (
	"time"

	"github.com/google/uuid"
)

// CellarShare grants FriendID read access to OwnerID's inventory until revoked.
type CellarShare struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID   uuid.UUID  `gorm:"column:owner_id;type:uuid;not null;index:cellar_shares_owner_friend_idx"`
	FriendID  uuid.UUID  `gorm:"column:friend_id;type:uuid;not null;index:cellar_shares_owner_friend_idx"`
	GrantedAt time.Time  `gorm:"column:granted_at;not null"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
}

// Active reports whether the share has not been revoked.
func (s CellarShare) Active() bool {
	return s.RevokedAt == nil
}
