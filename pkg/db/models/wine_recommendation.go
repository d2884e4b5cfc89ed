package models

import (
	"time"

	"github.com/google/uuid"
)

// WineRecommendation points a friend at one of the sender's wines.
type WineRecommendation struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	FromUserID uuid.UUID  `gorm:"column:from_user_id;type:uuid;not null"`
	ToUserID   uuid.UUID  `gorm:"column:to_user_id;type:uuid;not null;index:wine_recommendations_to_user_id_idx"`
	WineID     uuid.UUID  `gorm:"column:wine_id;type:uuid;not null"`
	FromUser   *User      `gorm:"foreignKey:FromUserID;constraint:OnDelete:CASCADE"`
	Wine       *Wine      `gorm:"foreignKey:WineID;constraint:OnDelete:CASCADE"`
	Message    *string    `gorm:"column:message;type:text"`
	ReadAt     *time.Time `gorm:"column:read_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}
