package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connection pragmas are applied to every pooled connection. Write
// transactions take the lock at BEGIN so concurrent writers queue on
// busy_timeout instead of failing on lock upgrade.
const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)&_pragma=foreign_keys(1)&_txlock=immediate"

type dbOps interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	Rebind(query string) string
}

// DB is either the root connection pool or a transaction bound to it.
// Repository methods are written once against dbOps and work in both modes.
type DB struct {
	dbOps
	root *sqlx.DB
}

func NewSQLiteDB(path string) (*DB, error) {
	root, err := sqlx.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := root.Ping(); err != nil {
		_ = root.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if err := migrate(context.Background(), root.DB); err != nil {
		_ = root.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &DB{dbOps: root, root: root}, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + sqlitePragmas
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// RunInTx runs fn inside one transaction: committed when fn returns nil,
// rolled back otherwise. Calls made on an already transactional DB join the
// outer transaction.
func (db *DB) RunInTx(ctx context.Context, fn func(txDB *DB) error) (err error) {
	if db.InTx() {
		return fn(db)
	}

	tx, err := db.root.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit tx: %w", cErr)
		}
	}()

	return fn(&DB{dbOps: tx, root: db.root})
}

func (db *DB) InTx() bool {
	_, ok := db.dbOps.(*sqlx.Tx)
	return ok
}

func (db *DB) Close() error {
	return db.root.Close()
}
