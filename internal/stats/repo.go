package stats

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	cellarTotalsSQL = `
SELECT COALESCE(SUM(quantity), 0) AS total_bottles, COUNT(*) AS total_wines
FROM inventory_entries
WHERE user_id = @user`

	cellarVarietalsSQL = `
SELECT w.varietal AS varietal, COUNT(*) AS count
FROM inventory_entries ie
JOIN wines w ON w.id = ie.wine_id
WHERE ie.user_id = @user AND w.varietal IS NOT NULL
GROUP BY w.varietal
ORDER BY count DESC, w.varietal ASC`

	cellarVintagesSQL = `
SELECT w.vintage AS vintage, SUM(ie.quantity) AS count
FROM inventory_entries ie
JOIN wines w ON w.id = ie.wine_id
WHERE ie.user_id = @user AND w.vintage IS NOT NULL
GROUP BY w.vintage
ORDER BY w.vintage ASC`

	oldestVintageSQL = `
SELECT w.brand, w.varietal, w.vintage
FROM inventory_entries ie
JOIN wines w ON w.id = ie.wine_id
WHERE ie.user_id = @user AND w.vintage IS NOT NULL
ORDER BY w.vintage ASC, w.brand ASC
LIMIT 1`

	pricedEntriesSQL = `
SELECT purchase_price AS price, quantity
FROM inventory_entries
WHERE user_id = @user AND purchase_price IS NOT NULL`

	consumedTotalsSQL = `
SELECT COUNT(*) AS total_consumed,
       COALESCE(SUM(rating), 0) AS rating_sum,
       COUNT(rating) AS rated_count
FROM consumed_records
WHERE user_id = @user`

	consumedVarietalsSQL = `
SELECT w.varietal AS varietal, COUNT(*) AS count
FROM consumed_records cr
JOIN wines w ON w.id = cr.wine_id
WHERE cr.user_id = @user AND w.varietal IS NOT NULL
GROUP BY w.varietal
ORDER BY count DESC, w.varietal ASC`

	varietalRatingsSQL = `
SELECT w.varietal AS varietal, SUM(cr.rating) AS rating_sum, COUNT(*) AS count
FROM consumed_records cr
JOIN wines w ON w.id = cr.wine_id
WHERE cr.user_id = @user AND cr.rating IS NOT NULL AND w.varietal IS NOT NULL
GROUP BY w.varietal`

	topRatedSQL = `
SELECT w.id AS wine_id, w.brand, w.varietal, w.vintage, cr.rating
FROM consumed_records cr
JOIN wines w ON w.id = cr.wine_id
WHERE cr.user_id = @user AND cr.rating IS NOT NULL
ORDER BY cr.rating DESC, cr.consumed_at DESC
LIMIT @limit`
)

// Repository runs the grouped read queries behind the profile stats.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type cellarTotals struct {
	TotalBottles int64
	TotalWines   int64
}

type consumedTotals struct {
	TotalConsumed int64
	RatingSum     int64
	RatedCount    int64
}

func (r *Repository) scan(ctx context.Context, query string, userID uuid.UUID, dest any) error {
	return r.db.WithContext(ctx).
		Raw(query, map[string]any{"user": userID, "limit": topRatedLimit}).
		Scan(dest).Error
}

// Aggregates runs every stats query for userID.
func (r *Repository) Aggregates(ctx context.Context, userID uuid.UUID) (*Aggregates, error) {
	var (
		agg      Aggregates
		cellar   cellarTotals
		consumed consumedTotals
		oldest   []WineRef
	)

	steps := []struct {
		query string
		dest  any
	}{
		{cellarTotalsSQL, &cellar},
		{cellarVarietalsSQL, &agg.CellarVarietal},
		{cellarVintagesSQL, &agg.Vintages},
		{oldestVintageSQL, &oldest},
		{pricedEntriesSQL, &agg.Priced},
		{consumedTotalsSQL, &consumed},
		{consumedVarietalsSQL, &agg.ConsumedVarietal},
		{varietalRatingsSQL, &agg.VarietalRatings},
		{topRatedSQL, &agg.TopRated},
	}
	for _, step := range steps {
		if err := r.scan(ctx, step.query, userID, step.dest); err != nil {
			return nil, err
		}
	}

	agg.TotalBottles = cellar.TotalBottles
	agg.TotalWines = cellar.TotalWines
	agg.TotalConsumed = consumed.TotalConsumed
	agg.RatingSum = consumed.RatingSum
	agg.RatedCount = consumed.RatedCount
	if len(oldest) > 0 {
		agg.Oldest = &oldest[0]
	}
	return &agg, nil
}
