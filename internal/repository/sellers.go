package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cotacao-workers/internal/roundrobin"
)

const selectSeller = `
	SELECT id, name, email, status, participate_round_robin, role
	FROM sellers
	WHERE id = $1`

type SellerRepository struct {
	db *sql.DB
}

func NewSellerRepository(db *sql.DB) *SellerRepository {
	return &SellerRepository{db: db}
}

// GetSeller returns nil without error when the seller does not exist.
func (r *SellerRepository) GetSeller(ctx context.Context, id string) (*roundrobin.Seller, error) {
	var s roundrobin.Seller
	err := r.db.QueryRowContext(ctx, selectSeller, id).
		Scan(&s.ID, &s.Name, &s.Email, &s.Status, &s.ParticipateRoundRobin, &s.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query seller %s: %w", id, err)
	}
	return &s, nil
}
