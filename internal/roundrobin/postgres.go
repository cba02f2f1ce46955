package roundrobin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cotacao-workers/internal/common/database"

	"github.com/lib/pq"
)

// PostgresStore keeps the queue in round_robin_config and reads eligibility
// from sellers.
type PostgresStore struct {
	db      *sql.DB
	queueID int64
}

func NewPostgresStore(db *sql.DB, queueID int64) *PostgresStore {
	return &PostgresStore{db: db, queueID: queueID}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return database.WithTx(ctx, s.db, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(tx *sql.Tx) error {
		return fn(ctx, &postgresTx{Tx: tx, queueID: s.queueID})
	})
}

type postgresTx struct {
	*sql.Tx
	queueID int64
}

const selectQueueForUpdate = `
	SELECT id, queue, current_pointer, last_seller_id, version, updated_at
	FROM round_robin_config
	WHERE id = $1
	FOR UPDATE`

func (t *postgresTx) LoadQueue(ctx context.Context) (*QueueState, error) {
	var (
		state    QueueState
		queue    []string
		lastSeen sql.NullString
	)
	err := t.QueryRowContext(ctx, selectQueueForUpdate, t.queueID).Scan(
		&state.ID, pq.Array(&queue), &state.Pointer, &lastSeen, &state.Version, &state.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrQueueNotFound, t.queueID)
	}
	if err != nil {
		return nil, fmt.Errorf("load round-robin queue: %w", err)
	}
	state.Queue = queue
	state.LastSellerID = lastSeen.String
	return &state, nil
}

const selectSellers = `
	SELECT id, name, email, status, participate_round_robin, role
	FROM sellers
	WHERE id = ANY($1)`

func (t *postgresTx) LoadSellers(ctx context.Context, ids []string) (map[string]Seller, error) {
	sellers := make(map[string]Seller, len(ids))
	if len(ids) == 0 {
		return sellers, nil
	}

	rows, err := t.QueryContext(ctx, selectSellers, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("load sellers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s Seller
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.Status, &s.ParticipateRoundRobin, &s.Role); err != nil {
			return nil, fmt.Errorf("scan seller: %w", err)
		}
		sellers[s.ID] = s
	}
	return sellers, rows.Err()
}

const updateQueue = `
	UPDATE round_robin_config
	SET queue = $1, current_pointer = $2, last_seller_id = $3, version = version + 1, updated_at = NOW()
	WHERE id = $4 AND version = $5`

func (t *postgresTx) SaveQueue(ctx context.Context, prev *QueueState, next QueueState) error {
	var lastSeller sql.NullString
	if next.LastSellerID != "" {
		lastSeller = sql.NullString{String: next.LastSellerID, Valid: true}
	}

	res, err := t.ExecContext(ctx, updateQueue,
		pq.Array(next.Queue), next.Pointer, lastSeller, prev.ID, prev.Version,
	)
	if err != nil {
		return fmt.Errorf("update round-robin queue: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update round-robin queue: %w", err)
	}
	if affected == 0 {
		return ErrConflict
	}
	return nil
}
