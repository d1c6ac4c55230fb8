// Package store is the hand-written query layer over Postgres. Each method
// maps to one query or one transaction; callers never see SQL.
package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}
