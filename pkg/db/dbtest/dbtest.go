// Package dbtest opens throwaway SQLite databases with the full schema for
// repository and service tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/angelmondragon/cellarbook-backend/pkg/db"
	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	"github.com/angelmondragon/cellarbook-backend/pkg/migrate"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns an isolated in-memory database with every model migrated.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

// IdentityIndex adds the production wines_identity_key unique index to conn.
func IdentityIndex(t *testing.T, conn *gorm.DB) {
	t.Helper()
	stmt, err := migrate.WineIdentityIndexSQL()
	if err != nil {
		t.Fatalf("load identity index: %v", err)
	}
	if err := conn.Exec(stmt).Error; err != nil {
		t.Fatalf("create identity index: %v", err)
	}
}

// Client wraps Open in a db.Client so WithTx can be exercised.
func Client(t *testing.T) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.NewFromGorm(conn), conn
}

// User inserts a user with the given email and display name.
func User(t *testing.T, conn *gorm.DB, email, name string) models.User {
	t.Helper()
	user := models.User{ID: uuid.New(), Email: email, Name: name, PasswordHash: "hash"}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// Wine inserts a wine owned by userID.
func Wine(t *testing.T, conn *gorm.DB, userID uuid.UUID, brand string, varietal *string, vintage *int) models.Wine {
	t.Helper()
	wine := models.Wine{ID: uuid.New(), CreatedBy: userID, Brand: brand, Varietal: varietal, Vintage: vintage}
	if err := conn.Create(&wine).Error; err != nil {
		t.Fatalf("create wine: %v", err)
	}
	return wine
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
