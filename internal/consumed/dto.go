package consumed

import (
	"time"

	"github.com/angelmondragon/cellarbook-backend/internal/wines"
	"github.com/angelmondragon/cellarbook-backend/pkg/types"
	"github.com/google/uuid"
)

type RecordDTO struct {
	ID         uuid.UUID     `json:"id"`
	Rating     *int          `json:"rating"`
	Notes      *string       `json:"notes"`
	ConsumedAt time.Time     `json:"consumed_at"`
	Wine       wines.Summary `json:"wine"`
}

func (r recordRow) toDTO() RecordDTO {
	return RecordDTO{
		ID:         r.ID,
		Rating:     r.Rating,
		Notes:      r.Notes,
		ConsumedAt: r.ConsumedAt,
		Wine:       r.Summary(),
	}
}

// RecordRequest logs one bottle. InventoryID, when set, names the cellar entry
// the bottle came out of.
type RecordRequest struct {
	WineID      uuid.UUID  `json:"wine_id" validate:"required"`
	InventoryID *uuid.UUID `json:"inventory_id"`
}

// RecordResult reports the new record and what happened to the cellar entry.
type RecordResult struct {
	Record           RecordDTO `json:"record"`
	InventoryRemoved bool      `json:"inventory_removed"`
}

type RateRequest struct {
	Rating types.Optional[int]    `json:"rating"`
	Notes  types.Optional[string] `json:"notes"`
}
