package postgres

import (
	"context"
	_ "embed"
)

//go:embed schema.sql
var schema string

func (s *Postgres) Migrate(ctx context.Context) error {
	return s.RunScript(ctx, schema)
}
