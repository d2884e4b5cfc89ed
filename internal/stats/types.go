package stats

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Profile is the derived stats payload for one user.
type Profile struct {
	Cellar     CellarStats   `json:"cellar"`
	Consumed   ConsumedStats `json:"consumed"`
	Milestones []Milestone   `json:"milestones"`
}

type CellarStats struct {
	TotalBottles      int64               `json:"total_bottles"`
	TotalWines        int64               `json:"total_wines"`
	VarietalBreakdown []VarietalCount     `json:"varietal_breakdown"`
	VintageBreakdown  []VintageCount      `json:"vintage_breakdown"`
	OldestVintage     *WineRef            `json:"oldest_vintage"`
	TotalValue        decimal.NullDecimal `json:"total_value"`
}

type ConsumedStats struct {
	TotalConsumed       int64            `json:"total_consumed"`
	AverageRating       int64            `json:"average_rating"`
	ConsumedByVarietal  []VarietalCount  `json:"consumed_by_varietal"`
	AvgRatingByVarietal []VarietalRating `json:"avg_rating_by_varietal"`
	TopRated            []RatedWine      `json:"top_rated"`
}

type VarietalCount struct {
	Varietal string `json:"varietal"`
	Count    int64  `json:"count"`
}

type VintageCount struct {
	Vintage int   `json:"vintage"`
	Count   int64 `json:"count"`
}

type VarietalRating struct {
	Varietal  string  `json:"varietal"`
	AvgRating float64 `json:"avg_rating"`
	Count     int64   `json:"count"`
}

type WineRef struct {
	Brand    string  `json:"brand"`
	Varietal *string `json:"varietal"`
	Vintage  int     `json:"vintage"`
}

type RatedWine struct {
	WineID   uuid.UUID `json:"wine_id"`
	Brand    string    `json:"brand"`
	Varietal *string   `json:"varietal"`
	Vintage  *int      `json:"vintage"`
	Rating   int       `json:"rating"`
}

type Milestone struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Threshold   int64  `json:"threshold"`
	Achieved    bool   `json:"achieved"`
}

// Aggregates are the raw grouped query results Rollup turns into a Profile.
type Aggregates struct {
	TotalBottles   int64
	TotalWines     int64
	CellarVarietal []VarietalCount
	Vintages       []VintageCount
	Oldest         *WineRef
	Priced         []PricedEntry

	TotalConsumed    int64
	RatingSum        int64
	RatedCount       int64
	ConsumedVarietal []VarietalCount
	VarietalRatings  []VarietalRatingSum
	TopRated         []RatedWine
}

type PricedEntry struct {
	Price    decimal.Decimal
	Quantity int64
}

type VarietalRatingSum struct {
	Varietal string
	Sum      int64 `gorm:"column:rating_sum"`
	Count    int64
}
