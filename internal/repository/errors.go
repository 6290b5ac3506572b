package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a conditional write finds the row in a
	// state other than the one the caller expected.
	ErrConflict = errors.New("record changed concurrently")
	// ErrInvalidOrder is returned when a reorder request is not a permutation
	// of the stored rule ids.
	ErrInvalidOrder = errors.New("rule order must list every rule id exactly once")
)

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
