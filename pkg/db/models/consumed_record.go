package models

import (
	"time"

	"github.com/google/uuid"
)

// ConsumedRecord logs one bottle the user drank. ConsumedAt is fixed at creation.
type ConsumedRecord struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:consumed_records_user_id_idx"`
	WineID     uuid.UUID `gorm:"column:wine_id;type:uuid;not null"`
	Wine       *Wine     `gorm:"foreignKey:WineID;constraint:OnDelete:CASCADE"`
	Rating     *int      `gorm:"column:rating"`
	Notes      *string   `gorm:"column:notes;type:text"`
	ConsumedAt time.Time `gorm:"column:consumed_at;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
