package stats

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/cellarbook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func stock(t *testing.T, conn *gorm.DB, userID uuid.UUID, wine models.Wine, quantity int, price string) {
	t.Helper()
	entry := models.InventoryEntry{ID: uuid.New(), UserID: userID, WineID: wine.ID, Quantity: quantity}
	if price != "" {
		entry.PurchasePrice = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	require.NoError(t, conn.Create(&entry).Error)
}

func drink(t *testing.T, conn *gorm.DB, userID uuid.UUID, wine models.Wine, rating *int, at time.Time) {
	t.Helper()
	record := models.ConsumedRecord{ID: uuid.New(), UserID: userID, WineID: wine.ID, Rating: rating, ConsumedAt: at}
	require.NoError(t, conn.Create(&record).Error)
}

func TestProfileFromDatabase(t *testing.T) {
	conn := dbtest.Open(t)
	ana := dbtest.User(t, conn, "ana@example.com", "Ana")
	ben := dbtest.User(t, conn, "ben@example.com", "Ben")

	ridge := dbtest.Wine(t, conn, ana.ID, "Ridge", dbtest.Ptr("Zinfandel"), dbtest.Ptr(2018))
	lopez := dbtest.Wine(t, conn, ana.ID, "Lopez de Heredia", dbtest.Ptr("Tempranillo"), dbtest.Ptr(2005))
	mystery := dbtest.Wine(t, conn, ana.ID, "House Red", nil, nil)
	bens := dbtest.Wine(t, conn, ben.ID, "Other", dbtest.Ptr("Zinfandel"), dbtest.Ptr(1990))

	stock(t, conn, ana.ID, ridge, 3, "24.99")
	stock(t, conn, ana.ID, lopez, 1, "100.00")
	stock(t, conn, ana.ID, mystery, 2, "")
	stock(t, conn, ben.ID, bens, 6, "10.00")

	base := time.Date(2025, 5, 1, 20, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		drink(t, conn, ana.ID, ridge, dbtest.Ptr(88+i), base.Add(time.Duration(i)*time.Hour))
	}
	drink(t, conn, ana.ID, lopez, dbtest.Ptr(97), base.Add(10*time.Hour))
	drink(t, conn, ana.ID, mystery, nil, base.Add(11*time.Hour))
	drink(t, conn, ben.ID, bens, dbtest.Ptr(50), base)

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	p, err := svc.Profile(context.Background(), ana.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(6), p.Cellar.TotalBottles)
	assert.Equal(t, int64(3), p.Cellar.TotalWines)
	assert.Equal(t, []VarietalCount{{Varietal: "Tempranillo", Count: 1}, {Varietal: "Zinfandel", Count: 1}}, p.Cellar.VarietalBreakdown)
	assert.Equal(t, []VintageCount{{Vintage: 2005, Count: 1}, {Vintage: 2018, Count: 3}}, p.Cellar.VintageBreakdown)
	require.NotNil(t, p.Cellar.OldestVintage)
	assert.Equal(t, "Lopez de Heredia", p.Cellar.OldestVintage.Brand)
	assert.Equal(t, 2005, p.Cellar.OldestVintage.Vintage)
	require.True(t, p.Cellar.TotalValue.Valid)
	assert.Equal(t, "174.97", p.Cellar.TotalValue.Decimal.StringFixed(2))

	assert.Equal(t, int64(7), p.Consumed.TotalConsumed)
	// (88+89+90+91+92+97)/6 = 91.17
	assert.Equal(t, int64(91), p.Consumed.AverageRating)
	assert.Equal(t, []VarietalCount{{Varietal: "Zinfandel", Count: 5}, {Varietal: "Tempranillo", Count: 1}}, p.Consumed.ConsumedByVarietal)
	require.Len(t, p.Consumed.AvgRatingByVarietal, 2)
	assert.Equal(t, VarietalRating{Varietal: "Tempranillo", AvgRating: 97, Count: 1}, p.Consumed.AvgRatingByVarietal[0])
	assert.Equal(t, VarietalRating{Varietal: "Zinfandel", AvgRating: 90, Count: 5}, p.Consumed.AvgRatingByVarietal[1])

	require.Len(t, p.Consumed.TopRated, 3)
	assert.Equal(t, 97, p.Consumed.TopRated[0].Rating)
	assert.Equal(t, lopez.ID, p.Consumed.TopRated[0].WineID)
	assert.Equal(t, 92, p.Consumed.TopRated[1].Rating)
	assert.Equal(t, 91, p.Consumed.TopRated[2].Rating)

	keys := make([]string, 0, len(p.Milestones))
	for _, m := range p.Milestones {
		if m.Achieved {
			keys = append(keys, m.Key)
		}
	}
	assert.Equal(t, []string{"first-sip", "five-deep", "varietal-Zinfandel"}, keys)
}

func TestProfileForNewUser(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.User(t, conn, "new@example.com", "New")

	p, err := NewRepository(conn).Aggregates(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, p.TotalBottles)
	assert.Zero(t, p.TotalConsumed)
	assert.Nil(t, p.Oldest)
	assert.Empty(t, p.Priced)
}
