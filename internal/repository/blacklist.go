package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cotacao-workers/internal/common/logger"
	"cotacao-workers/internal/quotation"

	"github.com/redis/go-redis/v9"
)

const blacklistKey = "blacklist:active"

const selectActiveBlacklist = `
	SELECT id, brand, model, reason, created_at
	FROM blacklist
	WHERE active = TRUE
	ORDER BY id`

type BlacklistRepository struct {
	db    *sql.DB
	cache referenceCache
}

func NewBlacklistRepository(db *sql.DB, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *BlacklistRepository {
	return &BlacklistRepository{
		db:    db,
		cache: referenceCache{client: rdb, ttl: ttl, logger: log},
	}
}

func (r *BlacklistRepository) ListBlacklist(ctx context.Context) ([]quotation.BlacklistEntry, error) {
	var cached []quotation.BlacklistEntry
	if r.cache.get(ctx, "blacklist", blacklistKey, &cached) {
		return cached, nil
	}

	rows, err := r.db.QueryContext(ctx, selectActiveBlacklist)
	if err != nil {
		return nil, fmt.Errorf("query blacklist: %w", err)
	}
	defer rows.Close()

	entries := make([]quotation.BlacklistEntry, 0)
	for rows.Next() {
		var (
			entry  quotation.BlacklistEntry
			model  sql.NullString
			reason sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.Brand, &model, &reason, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blacklist entry: %w", err)
		}
		if model.Valid {
			entry.Model = &model.String
		}
		if reason.Valid {
			entry.Reason = &reason.String
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blacklist: %w", err)
	}

	r.cache.set(ctx, blacklistKey, entries)
	return entries, nil
}

func (r *BlacklistRepository) Invalidate(ctx context.Context) error {
	return r.cache.invalidate(ctx, blacklistKey)
}
