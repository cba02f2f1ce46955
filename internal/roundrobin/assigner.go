package roundrobin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cotacao-workers/internal/common/database"
	"cotacao-workers/internal/common/logger"
	"cotacao-workers/internal/common/metrics"
)

// CommitFunc runs inside the assignment transaction after the pointer update.
// Returning an error rolls back both.
type CommitFunc func(ctx context.Context, exec database.Execer, sellerID string) error

type AssignerConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// Assigner advances the rotation one seller at a time.
type Assigner struct {
	store  Store
	config AssignerConfig
	logger logger.Logger
}

func NewAssigner(store Store, config AssignerConfig, log logger.Logger) *Assigner {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 50 * time.Millisecond
	}
	return &Assigner{store: store, config: config, logger: log}
}

// AssignNext returns the next eligible seller and persists the pointer.
func (a *Assigner) AssignNext(ctx context.Context) (string, error) {
	return a.Assign(ctx, nil)
}

// Assign reserves the next eligible seller and runs commit in the same
// transaction, so the pointer only moves if commit succeeds.
func (a *Assigner) Assign(ctx context.Context, commit CommitFunc) (string, error) {
	var lastErr error
	delay := a.config.RetryDelay

	for attempt := 0; attempt <= a.config.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.AssignmentRetries.Inc()
			a.logger.Warn("round-robin update conflicted, retrying", map[string]interface{}{
				"attempt": attempt,
				"delay":   delay.String(),
				"error":   lastErr.Error(),
			})
			select {
			case <-ctx.Done():
				metrics.SellerAssignments.WithLabelValues("cancelled").Inc()
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		sellerID, err := a.assignOnce(ctx, commit)
		if err == nil {
			metrics.SellerAssignments.WithLabelValues("assigned").Inc()
			a.logger.Info("seller assigned", map[string]interface{}{
				"sellerId": sellerID,
				"attempt":  attempt + 1,
			})
			return sellerID, nil
		}

		if !isConflict(err) {
			if errors.Is(err, ErrNoEligibleSeller) {
				metrics.SellerAssignments.WithLabelValues("no_eligible_seller").Inc()
			} else {
				metrics.SellerAssignments.WithLabelValues("error").Inc()
			}
			return "", err
		}
		lastErr = err
	}

	metrics.SellerAssignments.WithLabelValues("exhausted").Inc()
	return "", &exhaustedError{attempts: a.config.MaxRetries + 1, last: lastErr}
}

func (a *Assigner) assignOnce(ctx context.Context, commit CommitFunc) (string, error) {
	var assigned string

	err := a.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		state, err := tx.LoadQueue(ctx)
		if err != nil {
			return err
		}

		sellers, err := tx.LoadSellers(ctx, state.Queue)
		if err != nil {
			return err
		}

		idx, ok := NextEligible(state.Queue, state.Pointer, func(id string) bool {
			s, found := sellers[id]
			return found && s.Eligible()
		})
		if !ok {
			return fmt.Errorf("%w: queue of %d members", ErrNoEligibleSeller, len(state.Queue))
		}

		if err := tx.SaveQueue(ctx, state, state.Advance(idx)); err != nil {
			return err
		}

		sellerID := state.Queue[idx]
		if commit != nil {
			if err := commit(ctx, tx, sellerID); err != nil {
				return fmt.Errorf("commit assignment of %s: %w", sellerID, err)
			}
		}
		assigned = sellerID
		return nil
	})
	if err != nil {
		return "", err
	}
	return assigned, nil
}

func isConflict(err error) bool {
	return errors.Is(err, ErrConflict) || database.IsSerializationFailure(err)
}

type exhaustedError struct {
	attempts int
	last     error
}

func (e *exhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrAssignmentExhausted, e.attempts, e.last)
}

func (e *exhaustedError) Is(target error) bool {
	return target == ErrAssignmentExhausted || target == ErrNoEligibleSeller
}

func (e *exhaustedError) Unwrap() error {
	return e.last
}

// Attempts returns how many transactions an exhausted assignment tried, or 0.
func Attempts(err error) int {
	var exhausted *exhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.attempts
	}
	return 0
}
