// Package sqlstore persists bookmarks and tags in SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/MrSnakeDoc/stash/internal/logger"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// sqliteDriverName is the go-sqlite3 driver registered with a Unicode
// aware lower(). SQLite's builtin LOWER only folds ASCII.
const sqliteDriverName = "sqlite3_stash"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("go_lower", strings.ToLower, true)
		},
	})
	sqlx.BindDriver(sqliteDriverName, sqlx.QUESTION)
}

// sqlitePragmas are appended to plain sqlite paths. _txlock=immediate makes
// every write transaction take the write lock up front so concurrent savers
// queue on the busy timeout instead of failing on lock upgrade.
const sqlitePragmas = "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"

// Store is the sqlx backed bookmark repository.
type Store struct {
	DB     *sqlx.DB
	driver string
	log    logger.Logger
}

// Open connects to the database identified by driver and dsn.
func Open(ctx context.Context, driver, dsn string, log logger.Logger) (*Store, error) {
	sqlDriver := driver
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
		sqlDriver = sqliteDriverName
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sqlx.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// one writer at a time; readers share the pool under WAL
		db.SetMaxOpenConns(4)
	} else {
		db.SetMaxOpenConns(20)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	log.Debug("database opened", logger.String("driver", driver))

	return &Store{DB: db, driver: driver, log: log}, nil
}

// Driver returns the database/sql driver name in use.
func (s *Store) Driver() string { return s.driver }

// lowerFunc names the SQL function used for case-insensitive search.
func (s *Store) lowerFunc() string {
	if s.driver == DriverSQLite {
		return "go_lower"
	}
	return "LOWER"
}

// PingContext checks the connection is alive.
func (s *Store) PingContext(ctx context.Context) error { return s.DB.PingContext(ctx) }

// Close closes the underlying pool.
func (s *Store) Close() error {
	if err := s.DB.Close(); err != nil {
		s.log.Error("closing database", logger.Error(err))
		return err
	}
	s.log.Debug("database closed")
	return nil
}

// withTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise (including on panic).
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Warn("rollback failed", logger.Error(err))
		}
	}()

	if err := fn(tx); err != nil {
		return fmt.Errorf("fn transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	return nil
}

// sqliteDSN turns a bare file path into a DSN carrying the pragmas the
// store relies on. DSNs that already carry options are left alone.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	return dsn + "?" + sqlitePragmas
}
