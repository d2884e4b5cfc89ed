package models

import (
	"time"

	"github.com/google/uuid"
)

// InviteLink is a single-use code that befriends its owner and the redeemer.
type InviteLink struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID   uuid.UUID  `gorm:"column:owner_id;type:uuid;not null;index:invite_links_owner_id_idx"`
	Owner     *User      `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Code      string     `gorm:"column:code;type:text;not null;uniqueIndex:invite_links_code_key"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	UsedBy    *uuid.UUID `gorm:"column:used_by;type:uuid"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// Expired reports whether the link is past its expiry at now.
func (l InviteLink) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// Used reports whether the link has been redeemed.
func (l InviteLink) Used() bool {
	return l.UsedAt != nil || l.UsedBy != nil
}
