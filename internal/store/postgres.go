package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// pqInvalidTextRepresentation is raised when a malformed literal is cast, for
// example a non-UUID id compared against a UUID column.
const pqInvalidTextRepresentation = "22P02"

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// likePattern turns a search term into an ILIKE substring pattern, escaping
// the wildcard characters the user typed.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

// validID reports whether id can be compared against a UUID key column.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// validIDs keeps the ids that can match a UUID key column.
func validIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			out = append(out, id)
		}
	}
	return out
}

func missing(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
}

// notFoundOr maps "no row" and "not a valid key" onto ErrNotFound.
func notFoundOr(err error, what, id string) error {
	var pqErr *pq.Error
	if errors.Is(err, sql.ErrNoRows) ||
		(errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextRepresentation) {
		return missing(what, id)
	}
	return fmt.Errorf("%s %s: %w", what, id, err)
}

// expectOneRow maps a zero-row write onto ErrNotFound.
func expectOneRow(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: rows affected: %w", what, id, err)
	}
	if n == 0 {
		return missing(what, id)
	}
	return nil
}
