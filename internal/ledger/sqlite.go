package ledger

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"igbot/pkg/social"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite stores the ledger in a SQLite database so several igbot processes
// can share it. Inserts are INSERT OR IGNORE on the primary key.
type SQLite struct {
	db *sqlx.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := runMigrations(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run ledger migrations: %w", err)
	}

	return &SQLite{db: sqlx.NewDb(sqlDB, "sqlite")}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *SQLite) Contains(ctx context.Context, id social.MediaID) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM posted_media WHERE media_id = ?)`, string(id))
	if err != nil {
		return false, fmt.Errorf("query ledger: %w", err)
	}
	return exists, nil
}

func (s *SQLite) Insert(ctx context.Context, id social.MediaID) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT OR IGNORE INTO posted_media (media_id) VALUES (:media_id)`,
		map[string]interface{}{"media_id": string(id)})
	if err != nil {
		return fmt.Errorf("insert into ledger: %w", err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context) ([]social.MediaID, error) {
	var rows []string
	if err := s.db.SelectContext(ctx, &rows, `SELECT media_id FROM posted_media ORDER BY rowid`); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	ids := make([]social.MediaID, len(rows))
	for i, r := range rows {
		ids[i] = social.MediaID(r)
	}
	return ids, nil
}

// Flush is a no-op; every Insert commits on its own
func (s *SQLite) Flush(context.Context) error { return nil }

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Import inserts every identifier, returning how many were new
func (s *SQLite) Import(ctx context.Context, ids []social.MediaID) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO posted_media (media_id) VALUES (?)`, string(id))
		if err != nil {
			return 0, fmt.Errorf("import %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return added, nil
}
