package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
	}{
		{"sqlite untouched", SQLite, "SELECT * FROM m WHERE a=? AND b=?", "SELECT * FROM m WHERE a=? AND b=?"},
		{"postgres numbered", Postgres, "SELECT * FROM m WHERE a=? AND b=?", "SELECT * FROM m WHERE a=$1 AND b=$2"},
		{"postgres skips literals", Postgres, "SELECT '?' FROM m WHERE a=?", "SELECT '?' FROM m WHERE a=$1"},
		{"no placeholders", Postgres, "SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rebind(tt.dialect, tt.in))
		})
	}
}

func TestTimeRoundTripAndOrdering(t *testing.T) {
	early := time.Date(2026, 1, 2, 3, 4, 5, 100, time.UTC)
	late := early.Add(900 * time.Millisecond)

	es, ls := FormatTime(early), FormatTime(late)
	assert.Less(t, es, ls, "stored form must sort chronologically")

	got, err := ParseTime(es)
	require.NoError(t, err)
	assert.True(t, got.Equal(early))
}

func TestFormatTimeNormalisesZone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	local := time.Date(2026, 1, 1, 2, 0, 0, 0, loc)

	assert.Equal(t, "2026-01-01T00:00:00.000000000Z", FormatTime(local))
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	_, err := ParseTime("yesterday")
	assert.Error(t, err)
}

func TestIsConstraintViolation(t *testing.T) {
	assert.True(t, IsConstraintViolation(errors.New("constraint failed: UNIQUE constraint failed: users.username (2067)")))
	assert.True(t, IsConstraintViolation(errors.New(`pq: duplicate key value violates unique constraint "users_username_key"`)))
	assert.False(t, IsConstraintViolation(errors.New("no such table")))
	assert.False(t, IsConstraintViolation(nil))
}

func TestDialectString(t *testing.T) {
	assert.Equal(t, "sqlite", SQLite.String())
	assert.Equal(t, "postgres", Postgres.String())
}
