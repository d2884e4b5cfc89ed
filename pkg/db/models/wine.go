package models

import (
	"time"

	dbtypes "github.com/angelmondragon/cellarbook-backend/pkg/db/types"
	"github.com/google/uuid"
)

// Wine is a catalog entry produced by a label scan and owned by the scanning user.
// (created_by, lower(brand), lower(varietal), vintage) identifies a wine.
// VarietalInferred marks a varietal supplied by enrichment rather than read
// from the label, so a later scan of the same label still matches.
type Wine struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CreatedBy        uuid.UUID         `gorm:"column:created_by;type:uuid;not null;index:wines_created_by_idx"`
	Brand            string            `gorm:"column:brand;type:text;not null"`
	Varietal         *string           `gorm:"column:varietal;type:text"`
	VarietalInferred bool              `gorm:"column:varietal_inferred;not null"`
	Vintage          *int              `gorm:"column:vintage"`
	Region           *string           `gorm:"column:region;type:text"`
	Designation      *string           `gorm:"column:designation;type:text"`
	ImageURL         *string           `gorm:"column:image_url;type:text"`
	DrinkWindowStart *int              `gorm:"column:drink_window_start"`
	DrinkWindowEnd   *int              `gorm:"column:drink_window_end"`
	EstimatedRating  *int              `gorm:"column:estimated_rating"`
	RatingNotes      *string           `gorm:"column:rating_notes;type:text"`
	FoodPairings     dbtypes.CommaList `gorm:"column:food_pairings;type:text"`
	MarketPrice      *string           `gorm:"column:market_price;type:text"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
