package roundrobin

import (
	"context"
	"errors"

	"cotacao-workers/internal/common/database"
)

var (
	// ErrNoEligibleSeller means a full lap of the queue found nobody to assign.
	ErrNoEligibleSeller = errors.New("no eligible seller")
	// ErrConflict means the queue record changed between read and write.
	ErrConflict = errors.New("round-robin queue was modified concurrently")
	// ErrAssignmentExhausted means conflicts persisted through every retry.
	// It also matches ErrNoEligibleSeller.
	ErrAssignmentExhausted = errors.New("round-robin assignment retries exhausted")
	// ErrQueueNotFound means the configured queue record does not exist.
	ErrQueueNotFound = errors.New("round-robin queue not found")
)

// Tx is a unit of work over the queue record. LoadQueue holds the record
// exclusively until the transaction ends, and SaveQueue only succeeds when the
// stored version still equals prev.Version.
type Tx interface {
	database.Execer
	LoadQueue(ctx context.Context) (*QueueState, error)
	LoadSellers(ctx context.Context, ids []string) (map[string]Seller, error)
	SaveQueue(ctx context.Context, prev *QueueState, next QueueState) error
}

// Store runs fn in a transaction that commits when fn returns nil.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
