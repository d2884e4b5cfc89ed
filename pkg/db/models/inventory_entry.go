package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryEntry is a quantity of one wine held in a user's cellar.
type InventoryEntry struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index:inventory_entries_user_id_idx"`
	WineID        uuid.UUID           `gorm:"column:wine_id;type:uuid;not null"`
	Wine          *Wine               `gorm:"foreignKey:WineID;constraint:OnDelete:CASCADE"`
	Quantity      int                 `gorm:"column:quantity;not null"`
	PurchaseDate  *time.Time          `gorm:"column:purchase_date;type:date"`
	PurchasePrice decimal.NullDecimal `gorm:"column:purchase_price;type:numeric(12,2)"`
	Notes         *string             `gorm:"column:notes;type:text"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
