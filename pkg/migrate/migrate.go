// Package migrate applies the goose SQL migrations that define the Postgres
// schema. The migrations are embedded, so deployed binaries need no files on
// disk; SQLite development databases use AutoMigrateModels instead.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/angelmondragon/cellarbook-backend/pkg/db/models"
	"github.com/angelmondragon/cellarbook-backend/pkg/logger"
)

// DefaultDir is where new migrations are written during development.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

func sourceFor(dir string) fs.FS {
	if dir == "" {
		return Embedded()
	}
	return os.DirFS(dir)
}

func newProvider(db *sql.DB, dir string) (*goose.Provider, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	p, err := goose.NewProvider(goose.DialectPostgres, db, sourceFor(dir))
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return p, nil
}

// Run executes up, down or status against dir, or the embedded set when dir
// is empty. Each applied or pending migration is logged.
func Run(ctx context.Context, db *sql.DB, dir, command string, logg *logger.Logger) error {
	p, err := newProvider(db, dir)
	if err != nil {
		return err
	}
	defer p.Close()

	switch command {
	case "up":
		results, err := p.Up(ctx)
		logResults(ctx, logg, results)
		return wrapGoose(command, err)
	case "down":
		result, err := p.Down(ctx)
		if result != nil {
			logResults(ctx, logg, []*goose.MigrationResult{result})
		}
		return wrapGoose(command, err)
	case "status":
		statuses, err := p.Status(ctx)
		if err != nil {
			return wrapGoose(command, err)
		}
		for _, st := range statuses {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"version":    st.Source.Version,
				"file":       st.Source.Path,
				"state":      string(st.State),
				"applied_at": st.AppliedAt,
			}), "migration.status")
		}
		return nil
	}
	return fmt.Errorf("unsupported migration command %q", command)
}

// MigrateToVersion moves the schema up or down until target
// (YYYYMMDDHHMMSS) is the newest applied migration.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir, target string, logg *logger.Logger) error {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil || version <= 0 {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", target)
	}
	p, err := newProvider(db, dir)
	if err != nil {
		return err
	}
	defer p.Close()

	current, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}
	var results []*goose.MigrationResult
	switch {
	case current == version:
		return nil
	case current < version:
		results, err = p.UpTo(ctx, version)
	default:
		results, err = p.DownTo(ctx, version)
	}
	logResults(ctx, logg, results)
	return wrapGoose(fmt.Sprintf("migrate to %d", version), err)
}

func logResults(ctx context.Context, logg *logger.Logger, results []*goose.MigrationResult) {
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		logg.Info(logg.WithFields(ctx, map[string]any{
			"version":     res.Source.Version,
			"file":        res.Source.Path,
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		}), "migration.applied")
	}
}

func wrapGoose(op string, err error) error {
	if err == nil || errors.Is(err, goose.ErrNoNextVersion) {
		return nil
	}
	return fmt.Errorf("goose %s: %w", op, err)
}

// AutoMigrateModels builds the schema from the gorm models and adds the wine
// identity index. SQLite cannot run the rest of the Postgres SQL, so
// development databases on SQLite go through here.
func AutoMigrateModels(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return errors.New("db is required")
	}
	if err := conn.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate models: %w", err)
	}
	stmt, err := WineIdentityIndexSQL()
	if err != nil {
		return err
	}
	if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
		return fmt.Errorf("create %s: %w", wineIdentityIndex, err)
	}
	return nil
}

const wineIdentityIndex = "wines_identity_key"

// WineIdentityIndexSQL returns the wines_identity_key statement from the
// embedded wines migration. Its expressions run on SQLite too, so model-built
// databases get the same dedup constraint as Postgres.
func WineIdentityIndexSQL() (string, error) {
	src := Embedded()
	matches, err := fs.Glob(src, "*_create_wines.sql")
	if err != nil {
		return "", err
	}
	if len(matches) != 1 {
		return "", fmt.Errorf("expected one wines migration, found %d", len(matches))
	}
	data, err := fs.ReadFile(src, matches[0])
	if err != nil {
		return "", err
	}

	text := string(data)
	start := strings.Index(text, "CREATE UNIQUE INDEX IF NOT EXISTS "+wineIdentityIndex)
	if start < 0 {
		return "", fmt.Errorf("%s not found in %s", wineIdentityIndex, matches[0])
	}
	end := strings.Index(text[start:], ";")
	if end < 0 {
		return "", fmt.Errorf("%s statement in %s is not terminated", wineIdentityIndex, matches[0])
	}
	return text[start : start+end], nil
}
