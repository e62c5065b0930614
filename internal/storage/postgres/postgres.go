package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ageniuscoder/mmsocial/backend/internal/storage"
	_ "github.com/lib/pq"
)

type Postgres struct {
	*storage.DB
}

func New(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Postgres{
		DB: &storage.DB{Db: db, Dialect: storage.Postgres},
	}, nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.Db.PingContext(ctx)
}
