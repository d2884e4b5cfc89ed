package consumed

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/cellarbook-backend/internal/inventory"
	"github.com/angelmondragon/cellarbook-backend/internal/wishlist"
	"github.com/angelmondragon/cellarbook-backend/pkg/db"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cellarbook-backend/pkg/errors"
	"github.com/angelmondragon/cellarbook-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc  Service
	conn *gorm.DB
	user models.User
	wine models.Wine
	now  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	f := &fixture{
		conn: conn,
		user: dbtest.User(t, conn, "ana@example.com", "Ana"),
		now:  time.Date(2025, 6, 1, 19, 30, 0, 0, time.UTC),
	}
	f.wine = dbtest.Wine(t, conn, f.user.ID, "Ridge", dbtest.Ptr("Zinfandel"), dbtest.Ptr(2018))
	svc, err := NewService(ServiceParams{
		TxRunner: client,
		Repo:     NewRepository(conn),
		Now:      func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) stock(t *testing.T, quantity int) models.InventoryEntry {
	t.Helper()
	entry := models.InventoryEntry{UserID: f.user.ID, WineID: f.wine.ID, Quantity: quantity}
	require.NoError(t, inventory.NewRepository(f.conn).Create(context.Background(), &entry))
	return entry
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code())
}

func countRecords(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&models.ConsumedRecord{}).Count(&n).Error)
	return n
}

func TestDrinkOneThenRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.stock(t, 3)

	res, err := f.svc.Record(ctx, f.user.ID, RecordRequest{WineID: f.wine.ID, InventoryID: &entry.ID})
	require.NoError(t, err)
	assert.False(t, res.InventoryRemoved)
	assert.Nil(t, res.Record.Rating)
	assert.True(t, res.Record.ConsumedAt.Equal(f.now))

	reloaded, err := inventory.NewRepository(f.conn).FindByID(ctx, f.user.ID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Quantity)
	assert.Equal(t, int64(1), countRecords(t, f.conn))

	f.now = f.now.Add(48 * time.Hour)
	rated, err := f.svc.Rate(ctx, f.user.ID, res.Record.ID, RateRequest{Rating: types.Some(90)})
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, 90, *rated.Rating)
	assert.True(t, rated.ConsumedAt.Equal(res.Record.ConsumedAt), "consumed_at never changes")
}

func TestDrinkLastBottleRemovesEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.stock(t, 1)

	res, err := f.svc.Record(ctx, f.user.ID, RecordRequest{WineID: f.wine.ID, InventoryID: &entry.ID})
	require.NoError(t, err)
	assert.True(t, res.InventoryRemoved)

	var n int64
	require.NoError(t, f.conn.Model(&models.InventoryEntry{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
	assert.Equal(t, int64(1), countRecords(t, f.conn))
}

func TestDrinkWithForeignInventoryWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := dbtest.User(t, f.conn, "ben@example.com", "Ben")
	theirWine := dbtest.Wine(t, f.conn, other.ID, "Opus One", nil, nil)
	theirs := models.InventoryEntry{UserID: other.ID, WineID: theirWine.ID, Quantity: 4}
	require.NoError(t, inventory.NewRepository(f.conn).Create(ctx, &theirs))

	_, err := f.svc.Record(ctx, f.user.ID, RecordRequest{WineID: f.wine.ID, InventoryID: &theirs.ID})
	requireCode(t, err, pkgerrors.CodeNotFound)
	assert.Equal(t, int64(0), countRecords(t, f.conn), "the consumed record rolls back with the failed decrement")

	reloaded, err := inventory.NewRepository(f.conn).FindByID(ctx, other.ID, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, reloaded.Quantity)
}

func TestDrinkRecommendedWineMovedFromWishlist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ben := dbtest.User(t, f.conn, "ben@example.com", "Ben")
	bensWine := dbtest.Wine(t, f.conn, ben.ID, "Opus One", nil, dbtest.Ptr(2019))
	rec := models.WineRecommendation{ID: uuid.New(), FromUserID: ben.ID, ToUserID: f.user.ID, WineID: bensWine.ID}
	require.NoError(t, f.conn.Create(&rec).Error)

	client := db.NewFromGorm(f.conn)
	wishes, err := wishlist.NewService(wishlist.ServiceParams{TxRunner: client, Repo: wishlist.NewRepository(f.conn)})
	require.NoError(t, err)
	wish, err := wishes.Add(ctx, f.user.ID, wishlist.AddRequest{WineID: bensWine.ID})
	require.NoError(t, err)
	moved, err := wishes.MoveToInventory(ctx, f.user.ID, wish.ID, dbtest.Ptr(2))
	require.NoError(t, err)

	res, err := f.svc.Record(ctx, f.user.ID, RecordRequest{WineID: bensWine.ID, InventoryID: &moved.InventoryID})
	require.NoError(t, err)
	assert.False(t, res.InventoryRemoved)
	assert.Equal(t, "Opus One", res.Record.Wine.Brand)

	reloaded, err := inventory.NewRepository(f.conn).FindByID(ctx, f.user.ID, moved.InventoryID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Quantity)

	_, err = f.svc.Record(ctx, f.user.ID, RecordRequest{WineID: bensWine.ID})
	require.NoError(t, err, "a recommended wine can be logged without naming an entry")
	assert.Equal(t, int64(2), countRecords(t, f.conn))
}

func TestDrinkRejectsEntryHoldingAnotherWine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.stock(t, 3)
	other := dbtest.Wine(t, f.conn, f.user.ID, "Ridge", dbtest.Ptr("Zinfandel"), dbtest.Ptr(2019))

	_, err := f.svc.Record(ctx, f.user.ID, RecordRequest{WineID: other.ID, InventoryID: &entry.ID})
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Equal(t, int64(0), countRecords(t, f.conn))

	reloaded, err := inventory.NewRepository(f.conn).FindByID(ctx, f.user.ID, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Quantity)
}

func TestRecordRequiresVisibleWine(t *testing.T) {
	f := newFixture(t)
	other := dbtest.User(t, f.conn, "ben@example.com", "Ben")
	theirWine := dbtest.Wine(t, f.conn, other.ID, "Opus One", nil, nil)

	_, err := f.svc.Record(context.Background(), f.user.ID, RecordRequest{WineID: theirWine.ID})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.Record(context.Background(), f.user.ID, RecordRequest{})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestRateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Record(ctx, f.user.ID, RecordRequest{WineID: f.wine.ID})
	require.NoError(t, err)

	_, err = f.svc.Rate(ctx, f.user.ID, res.Record.ID, RateRequest{})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Rate(ctx, f.user.ID, res.Record.ID, RateRequest{Rating: types.Some(101)})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Rate(ctx, uuid.New(), res.Record.ID, RateRequest{Notes: types.Some("great")})
	requireCode(t, err, pkgerrors.CodeNotFound)

	noted, err := f.svc.Rate(ctx, f.user.ID, res.Record.ID, RateRequest{Notes: types.Some(" jammy ")})
	require.NoError(t, err)
	assert.Equal(t, "jammy", *noted.Notes)
	assert.Nil(t, noted.Rating)
}

func TestListAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.Record(ctx, f.user.ID, RecordRequest{WineID: f.wine.ID})
	require.NoError(t, err)
	f.now = f.now.Add(time.Hour)
	second, err := f.svc.Record(ctx, f.user.ID, RecordRequest{WineID: f.wine.ID})
	require.NoError(t, err)

	list, err := f.svc.List(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.Record.ID, list[0].ID, "newest first")
	assert.Equal(t, "Zinfandel", *list[0].Wine.Varietal)

	requireCode(t, f.svc.Delete(ctx, uuid.New(), first.Record.ID), pkgerrors.CodeNotFound)
	require.NoError(t, f.svc.Delete(ctx, f.user.ID, first.Record.ID))
	assert.Equal(t, int64(1), countRecords(t, f.conn))
}
