package models

import (
	"time"

	"github.com/google/uuid"
)

// WishlistEntry is a wine the user wants to acquire.
type WishlistEntry struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:wishlist_entries_user_id_idx"`
	WineID    uuid.UUID `gorm:"column:wine_id;type:uuid;not null"`
	Wine      *Wine     `gorm:"foreignKey:WineID;constraint:OnDelete:CASCADE"`
	Priority  int       `gorm:"column:priority;not null"`
	Notes     *string   `gorm:"column:notes;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
