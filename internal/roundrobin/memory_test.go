package roundrobin

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync"
)

// memoryStore is an optimistic in-memory Store: transactions read a snapshot
// and SaveQueue is applied at commit only if the version is unchanged.
type memoryStore struct {
	mu       sync.Mutex
	state    QueueState
	sellers  map[string]Seller
	commits  int
	execs    []string
	failSave int
}

func newMemoryStore(queue []string, sellers ...Seller) *memoryStore {
	m := &memoryStore{
		state:   QueueState{ID: 1, Queue: queue, Pointer: -1},
		sellers: map[string]Seller{},
	}
	for _, s := range sellers {
		m.sellers[s.ID] = s
	}
	return m
}

func active(ids ...string) []Seller {
	out := make([]Seller, 0, len(ids))
	for _, id := range ids {
		out = append(out, Seller{ID: id, Status: SellerActive, ParticipateRoundRobin: true})
	}
	return out
}

func (m *memoryStore) setStatus(id string, status SellerStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sellers[id]
	s.Status = status
	m.sellers[id] = s
}

func (m *memoryStore) snapshot() QueueState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *memoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memoryTx{store: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.staged != nil {
		if m.state.Version != tx.stagedFrom {
			return ErrConflict
		}
		next := tx.staged.clone()
		next.Version = m.state.Version + 1
		m.state = next
	}
	m.execs = append(m.execs, tx.execs...)
	m.commits++
	return nil
}

type memoryTx struct {
	store      *memoryStore
	staged     *QueueState
	stagedFrom int64
	execs      []string
}

func (t *memoryTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	t.execs = append(t.execs, query)
	return driver.RowsAffected(1), nil
}

func (t *memoryTx) LoadQueue(ctx context.Context) (*QueueState, error) {
	s := t.store.snapshot()
	return &s, nil
}

func (t *memoryTx) LoadSellers(ctx context.Context, ids []string) (map[string]Seller, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	out := make(map[string]Seller, len(ids))
	for _, id := range ids {
		if s, ok := t.store.sellers[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (t *memoryTx) SaveQueue(ctx context.Context, prev *QueueState, next QueueState) error {
	t.store.mu.Lock()
	if t.store.failSave > 0 {
		t.store.failSave--
		t.store.mu.Unlock()
		return ErrConflict
	}
	t.store.mu.Unlock()

	staged := next.clone()
	t.staged = &staged
	t.stagedFrom = prev.Version
	return nil
}
