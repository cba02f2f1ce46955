package roundrobin

import (
	"context"

	"cotacao-workers/internal/common/logger"
)

// Admin applies administrative changes to the queue under the same lock and
// version check as assignments.
type Admin struct {
	store  Store
	logger logger.Logger
}

func NewAdmin(store Store, log logger.Logger) *Admin {
	return &Admin{store: store, logger: log}
}

// Show returns the queue record and the current state of its members.
func (a *Admin) Show(ctx context.Context) (*QueueState, map[string]Seller, error) {
	var (
		state   *QueueState
		sellers map[string]Seller
	)
	err := a.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if state, err = tx.LoadQueue(ctx); err != nil {
			return err
		}
		sellers, err = tx.LoadSellers(ctx, state.Queue)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return state, sellers, nil
}

func (a *Admin) AddParticipant(ctx context.Context, sellerID string) error {
	return a.mutate(ctx, "add", func(s QueueState) (QueueState, error) {
		return s.WithParticipant(sellerID)
	})
}

func (a *Admin) RemoveParticipant(ctx context.Context, sellerID string) error {
	return a.mutate(ctx, "remove", func(s QueueState) (QueueState, error) {
		return s.WithoutParticipant(sellerID)
	})
}

func (a *Admin) Reorder(ctx context.Context, queue []string) error {
	return a.mutate(ctx, "reorder", func(s QueueState) (QueueState, error) {
		return s.Reordered(queue)
	})
}

func (a *Admin) ResetPointer(ctx context.Context) error {
	return a.mutate(ctx, "reset", func(s QueueState) (QueueState, error) {
		return s.Reset(), nil
	})
}

func (a *Admin) mutate(ctx context.Context, op string, change func(QueueState) (QueueState, error)) error {
	return a.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		state, err := tx.LoadQueue(ctx)
		if err != nil {
			return err
		}
		next, err := change(*state)
		if err != nil {
			return err
		}
		if err := tx.SaveQueue(ctx, state, next); err != nil {
			return err
		}
		a.logger.Info("round-robin queue updated", map[string]interface{}{
			"operation": op,
			"queue":     next.Queue,
			"pointer":   next.Pointer,
		})
		return nil
	})
}
