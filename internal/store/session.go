package store

import (
	"context"
	"database/sql"

	"github.com/russross/meddler"
)

// Session is the state handle given to updaters and effects. Inside a unit of work every call
// goes through the open transaction; outside of it calls go straight to the database.
type Session struct {
	ctx context.Context
	q   meddler.DB
}

// Context returns the context of the unit of work.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Insert inserts src into table using its meddler tags.
func (s *Session) Insert(table string, src any) error {
	return meddler.Insert(s.q, table, src)
}

// Update updates the row of table matching the primary key of src.
func (s *Session) Update(table string, src any) error {
	return meddler.Update(s.q, table, src)
}

// QueryRow loads a single row into dst.
func (s *Session) QueryRow(dst any, query string, args ...any) error {
	return meddler.QueryRow(s.q, dst, query, args...)
}

// QueryAll loads every row into dst, which must be a pointer to a slice of struct pointers.
func (s *Session) QueryAll(dst any, query string, args ...any) error {
	return meddler.QueryAll(s.q, dst, query, args...)
}

// Scalar scans the single column of a single row into dst.
func (s *Session) Scalar(dst any, query string, args ...any) error {
	return s.q.QueryRow(query, args...).Scan(dst)
}

// Exec runs a statement that returns no rows.
func (s *Session) Exec(query string, args ...any) (sql.Result, error) {
	return s.q.Exec(query, args...)
}
