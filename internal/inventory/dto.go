package inventory

import (
	"time"

	"github.com/angelmondragon/cellarbook-backend/internal/wines"
	"github.com/angelmondragon/cellarbook-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type EntryDTO struct {
	ID            uuid.UUID           `json:"id"`
	Quantity      int                 `json:"quantity"`
	PurchaseDate  *string             `json:"purchase_date"`
	PurchasePrice decimal.NullDecimal `json:"purchase_price"`
	Notes         *string             `json:"notes"`
	AddedAt       time.Time           `json:"added_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Wine          wines.Summary       `json:"wine"`
}

func (r entryRecord) toDTO() EntryDTO {
	var date *string
	if r.PurchaseDate != nil {
		formatted := r.PurchaseDate.UTC().Format(dateLayout)
		date = &formatted
	}
	return EntryDTO{
		ID:            r.ID,
		Quantity:      r.Quantity,
		PurchaseDate:  date,
		PurchasePrice: r.PurchasePrice,
		Notes:         r.Notes,
		AddedAt:       r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Wine:          r.Summary(),
	}
}

type AddRequest struct {
	WineID        uuid.UUID           `json:"wine_id" validate:"required"`
	Quantity      *int                `json:"quantity" validate:"omitempty,min=1"`
	PurchaseDate  *string             `json:"purchase_date"`
	PurchasePrice decimal.NullDecimal `json:"purchase_price"`
	Notes         *string             `json:"notes"`
}

// UpdateRequest replaces the given fields. Quantity is absolute; zero removes
// the entry only when ConfirmRemove is set.
type UpdateRequest struct {
	Quantity      types.Optional[int]             `json:"quantity"`
	PurchaseDate  types.Optional[string]          `json:"purchase_date"`
	PurchasePrice types.Optional[decimal.Decimal] `json:"purchase_price"`
	Notes         types.Optional[string]          `json:"notes"`
	ConfirmRemove bool                            `json:"confirm_remove"`
}

func (r UpdateRequest) empty() bool {
	return !r.Quantity.Set && !r.PurchaseDate.Set && !r.PurchasePrice.Set && !r.Notes.Set
}

// UpdateResult carries the updated entry, or Removed when quantity went to zero.
type UpdateResult struct {
	Entry   *EntryDTO `json:"entry"`
	Removed bool      `json:"removed"`
}
