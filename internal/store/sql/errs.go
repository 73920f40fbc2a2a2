package sqlstore

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrRecordDuplicate = errors.New("record already exists")
	ErrRecordNotFound  = errors.New("no record found")
	ErrRecordForbidden = errors.New("record owned by another user")
	ErrUnknownDriver   = errors.New("unknown database driver")
)

// pgUniqueViolation is the SQLSTATE postgres reports for UNIQUE conflicts.
const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a UNIQUE constraint failure on
// either supported backend.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	return false
}
