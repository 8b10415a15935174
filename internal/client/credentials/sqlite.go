package credentials

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/authkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// RunMigrations applies the embedded goose migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// OpenSQLite opens (creating if needed) the SQLite database at dsn and
// brings its schema up to date.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// SQLitePersistence stores the record in the metadata table. Multi-key
// writes run in one transaction.
type SQLitePersistence struct {
	db   *sql.DB
	repo func(dbx.DBTX) metadata.Repository
}

func NewSQLitePersistence(db *sql.DB) *SQLitePersistence {
	return &SQLitePersistence{
		db:   db,
		repo: func(tx dbx.DBTX) metadata.Repository { return metadata.NewSQLiteRepository(tx) },
	}
}

func (p *SQLitePersistence) Load(ctx context.Context) (map[string]string, error) {
	return p.repo(p.db).All(ctx)
}

func (p *SQLitePersistence) Save(ctx context.Context, entries map[string]string) error {
	return dbx.WithTx(ctx, p.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return p.repo(tx).Put(ctx, entries)
	})
}

func (p *SQLitePersistence) Delete(ctx context.Context, keys ...string) error {
	return p.repo(p.db).Remove(ctx, keys...)
}
