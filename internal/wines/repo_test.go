package wines

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/cellarbook-backend/pkg/db"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindByIdentityMatchesCaseInsensitively(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.User(t, conn, "ana@example.com", "Ana")
	stored := dbtest.Wine(t, conn, user.ID, "Ridge", dbtest.Ptr("Zinfandel"), dbtest.Ptr(2018))
	repo := NewRepository(conn)

	found, err := repo.FindByIdentity(context.Background(), user.ID, Identity{
		Brand:    "  RIDGE ",
		Varietal: dbtest.Ptr("zinfandel"),
		Vintage:  dbtest.Ptr(2018),
	})
	require.NoError(t, err)
	assert.Equal(t, stored.ID, found.ID)
}

func TestFindByIdentityNullOnlyMatchesNull(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.User(t, conn, "ana@example.com", "Ana")
	dbtest.Wine(t, conn, user.ID, "Ridge", dbtest.Ptr("Zinfandel"), dbtest.Ptr(2018))
	repo := NewRepository(conn)
	ctx := context.Background()

	_, err := repo.FindByIdentity(ctx, user.ID, Identity{Brand: "Ridge", Varietal: dbtest.Ptr("Zinfandel")})
	assert.True(t, db.IsNotFound(err), "null vintage must not match 2018")

	_, err = repo.FindByIdentity(ctx, user.ID, Identity{Brand: "Ridge", Vintage: dbtest.Ptr(2018)})
	assert.True(t, db.IsNotFound(err), "null varietal must not match a varietal read from a label")
}

func TestFindByIdentityKeepsInferredVarietalOutOfIdentity(t *testing.T) {
	conn := dbtest.Open(t)
	dbtest.IdentityIndex(t, conn)
	user := dbtest.User(t, conn, "ana@example.com", "Ana")
	inferred := models.Wine{
		CreatedBy:        user.ID,
		Brand:            "Ridge",
		Varietal:         dbtest.Ptr("Zinfandel"),
		VarietalInferred: true,
		Vintage:          dbtest.Ptr(2018),
	}
	repo := NewRepository(conn)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &inferred))

	found, err := repo.FindByIdentity(ctx, user.ID, Identity{Brand: "Ridge", Vintage: dbtest.Ptr(2018)})
	require.NoError(t, err)
	assert.Equal(t, inferred.ID, found.ID)

	_, err = repo.FindByIdentity(ctx, user.ID, Identity{Brand: "Ridge", Varietal: dbtest.Ptr("Zinfandel"), Vintage: dbtest.Ptr(2018)})
	assert.True(t, db.IsNotFound(err), "a labelled varietal must not match an inferred one")

	labelled := models.Wine{CreatedBy: user.ID, Brand: "Ridge", Varietal: dbtest.Ptr("Zinfandel"), Vintage: dbtest.Ptr(2018)}
	require.NoError(t, repo.Create(ctx, &labelled))
	found, err = repo.FindByIdentity(ctx, user.ID, Identity{Brand: "ridge", Varietal: dbtest.Ptr("zinfandel"), Vintage: dbtest.Ptr(2018)})
	require.NoError(t, err)
	assert.Equal(t, labelled.ID, found.ID)

	unlabelled := models.Wine{CreatedBy: user.ID, Brand: "RIDGE", Vintage: dbtest.Ptr(2018)}
	err = repo.Create(ctx, &unlabelled)
	assert.True(t, db.IsUniqueViolation(err, ""), "an inferred varietal and a NULL varietal share one identity")
}

func TestRepositoryIsOwnerScoped(t *testing.T) {
	conn := dbtest.Open(t)
	ana := dbtest.User(t, conn, "ana@example.com", "Ana")
	ben := dbtest.User(t, conn, "ben@example.com", "Ben")
	wine := dbtest.Wine(t, conn, ana.ID, "Ridge", nil, nil)
	repo := NewRepository(conn)
	ctx := context.Background()

	_, err := repo.FindByID(ctx, ben.ID, wine.ID)
	assert.True(t, db.IsNotFound(err))

	_, err = repo.FindByIdentity(ctx, ben.ID, Identity{Brand: "Ridge"})
	assert.True(t, db.IsNotFound(err))

	deleted, err := repo.Delete(ctx, ben.ID, wine.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	exists, err := repo.Exists(ctx, ana.ID, wine.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestListByOwnerNewestFirst(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.User(t, conn, "ana@example.com", "Ana")
	repo := NewRepository(conn)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older := models.Wine{CreatedBy: user.ID, Brand: "Older", CreatedAt: base}
	newer := models.Wine{CreatedBy: user.ID, Brand: "Newer", CreatedAt: base.Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, &older))
	require.NoError(t, repo.Create(ctx, &newer))

	rows, err := repo.ListByOwner(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Newer", rows[0].Brand)
	assert.Equal(t, "Older", rows[1].Brand)
}

func TestSearchMatchesBrandOrVarietal(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.User(t, conn, "ana@example.com", "Ana")
	other := dbtest.User(t, conn, "ben@example.com", "Ben")
	dbtest.Wine(t, conn, user.ID, "Ridge", dbtest.Ptr("Zinfandel"), dbtest.Ptr(2018))
	dbtest.Wine(t, conn, user.ID, "Opus One", dbtest.Ptr("Cabernet Blend"), nil)
	dbtest.Wine(t, conn, user.ID, "100% Pinot", nil, nil)
	dbtest.Wine(t, conn, other.ID, "Ridge", nil, nil)
	repo := NewRepository(conn)
	ctx := context.Background()

	rows, err := repo.Search(ctx, user.ID, "ZIN")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ridge", rows[0].Brand)

	rows, err = repo.Search(ctx, user.ID, "one")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Opus One", rows[0].Brand)

	rows, err = repo.Search(ctx, user.ID, "%")
	require.NoError(t, err)
	require.Len(t, rows, 1, "wildcards in the query are literal")
	assert.Equal(t, "100% Pinot", rows[0].Brand)

	rows, err = repo.Search(ctx, user.ID, "")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestSearchCapsResults(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.User(t, conn, "ana@example.com", "Ana")
	for i := 0; i < searchLimit+5; i++ {
		dbtest.Wine(t, conn, user.ID, "Ridge", nil, dbtest.Ptr(1950+i))
	}

	rows, err := NewRepository(conn).Search(context.Background(), user.ID, "ridge")
	require.NoError(t, err)
	assert.Len(t, rows, searchLimit)
}

func TestSavePersistsNulls(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.User(t, conn, "ana@example.com", "Ana")
	wine := dbtest.Wine(t, conn, user.ID, "Ridge", dbtest.Ptr("Zinfandel"), dbtest.Ptr(2018))
	repo := NewRepository(conn)
	ctx := context.Background()

	wine.Varietal = nil
	wine.Region = dbtest.Ptr("Sonoma")
	require.NoError(t, repo.Save(ctx, &wine))

	reloaded, err := repo.FindByID(ctx, user.ID, wine.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.Varietal)
	require.NotNil(t, reloaded.Region)
	assert.Equal(t, "Sonoma", *reloaded.Region)
	assert.Equal(t, user.ID, reloaded.CreatedBy)
}
