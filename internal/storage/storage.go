// Package storage holds the SQL plumbing shared by the sqlite and postgres
// drivers: a dialect-aware query runner, transactions and the on-disk time
// format.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	default:
		return "unknown"
	}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn runs queries written with '?' placeholders against either the pool or
// an open transaction, rewriting placeholders for the active dialect.
type Conn struct {
	q       querier
	dialect Dialect
}

func (c Conn) Dialect() Dialect { return c.dialect }

func (c Conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, Rebind(c.dialect, query), args...)
}

func (c Conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, Rebind(c.dialect, query), args...)
}

func (c Conn) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, Rebind(c.dialect, query), args...)
}

// DB is an opened database together with its dialect.
type DB struct {
	Db      *sql.DB
	Dialect Dialect
}

// Conn returns a runner bound to the connection pool.
func (d *DB) Conn() Conn {
	return Conn{q: d.Db, dialect: d.Dialect}
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (d *DB) WithTx(ctx context.Context, fn func(tx Conn) error) error {
	tx, err := d.Db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(Conn{q: tx, dialect: d.Dialect}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.Db.PingContext(ctx)
}

func (d *DB) Close() error {
	return d.Db.Close()
}

// RunScript executes a multi-statement schema script one statement at a time.
func (d *DB) RunScript(ctx context.Context, script string) error {
	for _, stmt := range strings.Split(script, ";") {
		st := strings.TrimSpace(stmt)
		if st == "" {
			continue
		}
		if _, err := d.Db.ExecContext(ctx, st); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(st), err)
		}
	}
	return nil
}

// Rebind rewrites '?' placeholders into the dialect's native form. Question
// marks inside single-quoted literals are left alone.
func Rebind(d Dialect, query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			inQuote = !inQuote
			b.WriteByte(ch)
		case ch == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// IsConstraintViolation reports whether err is a uniqueness violation from
// either driver.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
