package wishlist

import (
	"time"

	"github.com/angelmondragon/cellarbook-backend/internal/wines"
	"github.com/google/uuid"
)

const defaultPriority = 3

type EntryDTO struct {
	ID       uuid.UUID     `json:"id"`
	Priority int           `json:"priority"`
	Notes    *string       `json:"notes"`
	AddedAt  time.Time     `json:"added_at"`
	Wine     wines.Summary `json:"wine"`
}

func (r entryRecord) toDTO() EntryDTO {
	return EntryDTO{
		ID:       r.ID,
		Priority: r.Priority,
		Notes:    r.Notes,
		AddedAt:  r.CreatedAt,
		Wine:     r.Summary(),
	}
}

type AddRequest struct {
	WineID   uuid.UUID `json:"wine_id" validate:"required"`
	Priority *int      `json:"priority" validate:"omitempty,gte=0"`
	Notes    *string   `json:"notes"`
}

type MoveRequest struct {
	Quantity *int `json:"quantity"`
}

// MoveResult identifies the inventory entry that replaced the wishlist entry.
type MoveResult struct {
	InventoryID uuid.UUID `json:"inventory_id"`
	WineID      uuid.UUID `json:"wine_id"`
	Quantity    int       `json:"quantity"`
}
