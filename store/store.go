// Package store persists order and reservation records. Two backends
// implement the same contract: a flat-file JSON snapshot and MongoDB.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an operation targets an order id that does
// not exist. Deleting a nonexistent id is an error in both backends.
var ErrNotFound = errors.New("order not found")

// Patch carries partial fields to merge into an existing record, as
// decoded from a JSON request body.
type Patch map[string]any

type Store interface {
	// Insert assigns a fresh monotonic id and timestamp, then persists
	// the record. The stored record is returned.
	Insert(ctx context.Context, order *Order) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	FindByID(ctx context.Context, id int64) (*Order, error)
	// Update merges patch into the stored record field by field and
	// refreshes its timestamp.
	Update(ctx context.Context, id int64, patch Patch) (*Order, error)
	Delete(ctx context.Context, id int64) error
}

func newTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
