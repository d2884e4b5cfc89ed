package wines

import (
	"time"

	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/cellarbook-backend/pkg/db/types"
	"github.com/angelmondragon/cellarbook-backend/pkg/types"
	"github.com/google/uuid"
)

// WineDTO is the catalog record returned to clients.
type WineDTO struct {
	ID               uuid.UUID         `json:"id"`
	CreatedBy        uuid.UUID         `json:"created_by"`
	Brand            string            `json:"brand"`
	Varietal         *string           `json:"varietal"`
	Vintage          *int              `json:"vintage"`
	Region           *string           `json:"region"`
	Designation      *string           `json:"designation"`
	ImageURL         *string           `json:"image_url"`
	DrinkWindowStart *int              `json:"drink_window_start"`
	DrinkWindowEnd   *int              `json:"drink_window_end"`
	EstimatedRating  *int              `json:"estimated_rating"`
	RatingNotes      *string           `json:"rating_notes"`
	FoodPairings     dbtypes.CommaList `json:"food_pairings"`
	MarketPrice      *string           `json:"market_price"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func FromModel(m *models.Wine) WineDTO {
	return WineDTO{
		ID:               m.ID,
		CreatedBy:        m.CreatedBy,
		Brand:            m.Brand,
		Varietal:         m.Varietal,
		Vintage:          m.Vintage,
		Region:           m.Region,
		Designation:      m.Designation,
		ImageURL:         m.ImageURL,
		DrinkWindowStart: m.DrinkWindowStart,
		DrinkWindowEnd:   m.DrinkWindowEnd,
		EstimatedRating:  m.EstimatedRating,
		RatingNotes:      m.RatingNotes,
		FoodPairings:     m.FoodPairings,
		MarketPrice:      m.MarketPrice,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// ScanResult is the outcome of a label scan. Created is false when the label
// resolved to a wine the user already had.
type ScanResult struct {
	Wine           WineDTO `json:"wine"`
	Created        bool    `json:"created"`
	NeedsBackLabel bool    `json:"needs_back_label"`
}

// SearchResult is the trimmed row returned by catalog search.
type SearchResult struct {
	ID       uuid.UUID `json:"id"`
	Brand    string    `json:"brand"`
	Varietal *string   `json:"varietal"`
	Vintage  *int      `json:"vintage"`
}

// ScanRequest carries a base64 label image, optionally as a data URL.
type ScanRequest struct {
	Image string `json:"image" validate:"required"`
}

// UpdateRequest is a partial update. Absent fields are left unchanged and an
// explicit null clears the column.
type UpdateRequest struct {
	Brand        types.Optional[string]            `json:"brand"`
	Varietal     types.Optional[string]            `json:"varietal"`
	Vintage      types.Optional[int]               `json:"vintage"`
	Region       types.Optional[string]            `json:"region"`
	Designation  types.Optional[string]            `json:"designation"`
	FoodPairings types.Optional[dbtypes.CommaList] `json:"food_pairings"`
	MarketPrice  types.Optional[string]            `json:"market_price"`
	Rescore      bool                              `json:"rescore"`
}

func (r UpdateRequest) hasFieldChanges() bool {
	return r.Brand.Set || r.Varietal.Set || r.Vintage.Set || r.Region.Set ||
		r.Designation.Set || r.FoodPairings.Set || r.MarketPrice.Set
}
