package wines

import (
	"strings"

	dbtypes "github.com/angelmondragon/cellarbook-backend/pkg/db/types"
	"github.com/google/uuid"
)

// Summary is the catalog view of a wine embedded in cellar, wishlist,
// consumed, and recommendation listings.
type Summary struct {
	ID               uuid.UUID         `json:"id"`
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
}

var summaryColumns = []string{
	"w.id AS wine_id",
	"w.brand AS wine_brand",
	"w.varietal AS wine_varietal",
	"w.vintage AS wine_vintage",
	"w.region AS wine_region",
	"w.designation AS wine_designation",
	"w.image_url AS wine_image_url",
	"w.drink_window_start AS wine_drink_window_start",
	"w.drink_window_end AS wine_drink_window_end",
	"w.estimated_rating AS wine_estimated_rating",
	"w.rating_notes AS wine_rating_notes",
	"w.food_pairings AS wine_food_pairings",
	"w.market_price AS wine_market_price",
}

// SummaryColumns selects the catalog fields of a wines table joined as "w".
// Scan the result into a struct embedding SummaryRecord.
func SummaryColumns() string {
	return strings.Join(summaryColumns, ", ")
}

// SummaryRecord receives SummaryColumns in a joined scan.
type SummaryRecord struct {
	WineID               uuid.UUID
	WineBrand            string
	WineVarietal         *string
	WineVintage          *int
	WineRegion           *string
	WineDesignation      *string
	WineImageURL         *string `gorm:"column:wine_image_url"`
	WineDrinkWindowStart *int
	WineDrinkWindowEnd   *int
	WineEstimatedRating  *int
	WineRatingNotes      *string
	WineFoodPairings     dbtypes.CommaList
	WineMarketPrice      *string
}

func (r SummaryRecord) Summary() Summary {
	return Summary{
		ID:               r.WineID,
		Brand:            r.WineBrand,
		Varietal:         r.WineVarietal,
		Vintage:          r.WineVintage,
		Region:           r.WineRegion,
		Designation:      r.WineDesignation,
		ImageURL:         r.WineImageURL,
		DrinkWindowStart: r.WineDrinkWindowStart,
		DrinkWindowEnd:   r.WineDrinkWindowEnd,
		EstimatedRating:  r.WineEstimatedRating,
		RatingNotes:      r.WineRatingNotes,
		FoodPairings:     r.WineFoodPairings,
		MarketPrice:      r.WineMarketPrice,
	}
}
