package roundrobin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"cotacao-workers/internal/common/database"
	"cotacao-workers/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAssigner(t *testing.T, store Store, maxRetries int) *Assigner {
	return NewAssigner(store, AssignerConfig{MaxRetries: maxRetries, RetryDelay: time.Millisecond}, logger.NewTestLogger(t))
}

func assignN(t *testing.T, a *Assigner, n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := a.AssignNext(context.Background())
		require.NoError(t, err)
		out = append(out, id)
	}
	return out
}

func TestAssignNext_Fairness(t *testing.T) {
	store := newMemoryStore([]string{"A", "B", "C"}, active("A", "B", "C")...)
	a := newTestAssigner(t, store, 3)

	assert.Equal(t, []string{"A", "B", "C", "A"}, assignN(t, a, 4))

	state := store.snapshot()
	assert.Equal(t, 0, state.Pointer)
	assert.Equal(t, "A", state.LastSellerID)
	assert.Equal(t, int64(4), state.Version)
}

func TestAssignNext_SkipsInactive(t *testing.T) {
	store := newMemoryStore([]string{"A", "B", "C"}, active("A", "B", "C")...)
	store.setStatus("B", SellerInactive)
	a := newTestAssigner(t, store, 3)

	assert.Equal(t, []string{"A", "C", "A", "C"}, assignN(t, a, 4))
}

func TestAssignNext_ReturningSellerKeepsPosition(t *testing.T) {
	store := newMemoryStore([]string{"A", "B", "C"}, active("A", "B", "C")...)
	store.setStatus("B", SellerVacation)
	a := newTestAssigner(t, store, 3)

	assert.Equal(t, []string{"A", "C"}, assignN(t, a, 2))
	store.setStatus("B", SellerActive)
	assert.Equal(t, []string{"A", "B", "C"}, assignN(t, a, 3))
}

func TestAssignNext_NonParticipantAndUnknownSkipped(t *testing.T) {
	sellers := active("A", "C")
	sellers = append(sellers, Seller{ID: "B", Status: SellerActive, ParticipateRoundRobin: false})
	store := newMemoryStore([]string{"A", "B", "GHOST", "C"}, sellers...)
	a := newTestAssigner(t, store, 3)

	assert.Equal(t, []string{"A", "C", "A"}, assignN(t, a, 3))
}

func TestAssignNext_NoEligibleSeller(t *testing.T) {
	tests := []struct {
		name  string
		store *memoryStore
	}{
		{"empty queue", newMemoryStore(nil)},
		{"all on leave", func() *memoryStore {
			s := newMemoryStore([]string{"A", "B"}, active("A", "B")...)
			s.setStatus("A", SellerVacation)
			s.setStatus("B", SellerInactive)
			return s
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAssigner(t, tt.store, 3)
			_, err := a.AssignNext(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNoEligibleSeller))
			assert.False(t, errors.Is(err, ErrAssignmentExhausted))
			assert.Equal(t, -1, tt.store.snapshot().Pointer)
		})
	}
}

func TestAssignNext_RetriesConflicts(t *testing.T) {
	store := newMemoryStore([]string{"A", "B"}, active("A", "B")...)
	store.failSave = 2
	a := newTestAssigner(t, store, 3)

	id, err := a.AssignNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", id)
}

func TestAssignNext_ExhaustsRetries(t *testing.T) {
	store := newMemoryStore([]string{"A", "B"}, active("A", "B")...)
	store.failSave = 10
	a := newTestAssigner(t, store, 2)

	_, err := a.AssignNext(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAssignmentExhausted))
	assert.True(t, errors.Is(err, ErrNoEligibleSeller))
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, 3, Attempts(err))
	assert.Equal(t, -1, store.snapshot().Pointer)
}

func TestAssignNext_ContextCancelledDuringBackoff(t *testing.T) {
	store := newMemoryStore([]string{"A"}, active("A")...)
	store.failSave = 10
	a := NewAssigner(store, AssignerConfig{MaxRetries: 5, RetryDelay: time.Hour}, logger.NewNoOpLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.AssignNext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssign_CommitRunsInSameTransaction(t *testing.T) {
	store := newMemoryStore([]string{"A", "B"}, active("A", "B")...)
	a := newTestAssigner(t, store, 3)

	var recorded string
	id, err := a.Assign(context.Background(), func(ctx context.Context, exec database.Execer, sellerID string) error {
		recorded = sellerID
		_, err := exec.ExecContext(ctx, "INSERT INTO quotations", sellerID)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "A", id)
	assert.Equal(t, "A", recorded)
	assert.Equal(t, []string{"INSERT INTO quotations"}, store.execs)
}

func TestAssign_CommitFailureLeavesPointer(t *testing.T) {
	store := newMemoryStore([]string{"A", "B"}, active("A", "B")...)
	a := newTestAssigner(t, store, 3)

	insertErr := fmt.Errorf("insert failed")
	_, err := a.Assign(context.Background(), func(ctx context.Context, exec database.Execer, sellerID string) error {
		return insertErr
	})
	require.ErrorIs(t, err, insertErr)

	state := store.snapshot()
	assert.Equal(t, -1, state.Pointer)
	assert.Equal(t, int64(0), state.Version)

	id, err := a.AssignNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "A", id)
}

func TestAssignNext_ConcurrentCallsGetDistinctSellers(t *testing.T) {
	ids := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	store := newMemoryStore(ids, active(ids...)...)
	a := newTestAssigner(t, store, 100)

	const n = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []string
		errs    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := a.AssignNext(context.Background())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			results = append(results, id)
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, results, n)
	assert.ElementsMatch(t, ids[:n], results)

	state := store.snapshot()
	assert.Equal(t, n-1, state.Pointer)
	assert.Equal(t, int64(n), state.Version)
}
