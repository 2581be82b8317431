package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/bouncer/internal/bouncer/domain"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface. Concrete drivers (sqlite)
// implement it and expose sub-repositories per concern.
type Store interface {
	Decisions() Decisions

	ApplyMigrations() error

	// WithTx executes fn within a transaction. fn's error rolls it back,
	// a nil error commits.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying database.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped view of the store.
type Tx interface {
	Decisions() Decisions
}

type Decisions interface {
	// InsertDecision stores one record.
	InsertDecision(ctx context.Context, rec domain.DecisionRecord) error

	// GetDecision returns a record by id, or ErrNotFound.
	GetDecision(ctx context.Context, id string) (domain.DecisionRecord, error)

	// ListDecisions returns records newest first.
	ListDecisions(ctx context.Context, f domain.DecisionFilter) ([]domain.DecisionRecord, error)

	// DeleteDecisionsBefore removes records created before cutoff and
	// returns how many were removed.
	DeleteDecisionsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
