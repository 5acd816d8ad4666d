package postgres

import (
	"github.com/jackc/pgx/v4/pgxpool"
)

// Store implements the catalog and progress interfaces on Postgres. Schema is
// managed by the bun migrations under migrations/.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
