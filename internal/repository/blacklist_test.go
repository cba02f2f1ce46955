package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"cotacao-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlacklistRepository_ListBlacklist(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr, rdb := setupRedis(t)
	repo := NewBlacklistRepository(db, rdb, time.Minute, logger.NewTestLogger(t))

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, brand, model, reason, created_at FROM blacklist WHERE active = TRUE ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "brand", "model", "reason", "created_at"}).
			AddRow(1, "TROLLER", nil, "sem peças de reposição", created).
			AddRow(2, "FIAT", "UNO MILLE", nil, created))

	entries, err := repo.ListBlacklist(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.True(t, entries[0].WholeBrand())
	require.NotNil(t, entries[0].Reason)
	assert.Equal(t, "sem peças de reposição", *entries[0].Reason)
	require.NotNil(t, entries[1].Model)
	assert.Equal(t, "UNO MILLE", *entries[1].Model)
	assert.Nil(t, entries[1].Reason)
	assert.True(t, mr.Exists(blacklistKey))

	cached, err := repo.ListBlacklist(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entries[1].Model, cached[1].Model)
	assert.True(t, cached[0].WholeBrand())
	assert.True(t, cached[0].CreatedAt.Equal(created))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlacklistRepository_CorruptCacheEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr, rdb := setupRedis(t)
	require.NoError(t, mr.Set(blacklistKey, "not json"))
	repo := NewBlacklistRepository(db, rdb, time.Minute, logger.NewTestLogger(t))

	mock.ExpectQuery(`FROM blacklist`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "brand", "model", "reason", "created_at"}))

	entries, err := repo.ListBlacklist(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlacklistRepository_Invalidate(t *testing.T) {
	rdb, redisMock := redismock.NewClientMock()
	repo := NewBlacklistRepository(nil, rdb, time.Minute, logger.NewNoOpLogger())

	redisMock.ExpectDel(blacklistKey).SetErr(errors.New("connection refused"))
	assert.Error(t, repo.Invalidate(context.Background()))
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
