package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrDuplicate is returned by repositories when an insert or update hits a
// unique constraint.
var ErrDuplicate = errors.New("duplicate key")

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique violation raised
// through either supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}

// MapWriteError converts driver unique violations into ErrDuplicate and
// passes every other error through.
func MapWriteError(err error) error {
	if IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// LikePattern builds a `%term%` pattern for ILIKE with the LIKE wildcards in
// term escaped, so user input is always matched literally.
func LikePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
