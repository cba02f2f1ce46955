package repository

import (
	"context"
	"testing"
	"time"

	"cotacao-workers/internal/quotation"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var createdAt = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

func acceptedQuotation() *quotation.Quotation {
	return &quotation.Quotation{
		ID: "7f8e1c2a-0000-4000-8000-000000000001",
		Vehicle: quotation.Vehicle{
			Category:  quotation.UserCategoryLeve,
			Usage:     quotation.UsageParticular,
			RawType:   "Automóvel",
			Brand:     "TOYOTA",
			Model:     "COROLLA",
			FipeValue: decimal.NewFromInt(150000),
		},
		Contact:         quotation.Contact{Name: "Ana", Phone: "+5511999990000"},
		VehicleCategory: quotation.CategoryNormal,
		Values: quotation.QuotationValues{
			Mensalidade:    decimal.NewFromInt(120),
			Adesao:         decimal.NewFromInt(500),
			AdesaoDesconto: decimal.NewFromInt(400),
		},
		SellerID:  "seller-a",
		Status:    quotation.StatusPending,
		JobKey:    2251799813685249,
		CreatedAt: createdAt,
	}
}

func TestQuotationRepository_CreateAccepted(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	q := acceptedQuotation()
	mock.ExpectExec(`INSERT INTO quotations`).
		WithArgs(
			q.ID, "TOYOTA", "COROLLA", "Automóvel", "LEVE", "PARTICULAR", "150000",
			"NORMAL", "120", "500", "400",
			nil, "seller-a", "PENDING", nil, false,
			"Ana", nil, "+5511999990000", int64(2251799813685249), createdAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewQuotationRepository(db).Create(context.Background(), q))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotationRepository_CreateRejectedLeavesMoneyNull(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	q := acceptedQuotation()
	q.SellerID = ""
	q.Values = quotation.QuotationValues{}
	q.Status = quotation.StatusRejected
	q.RejectionReason = quotation.RejectionOverLimit
	q.JobKey = 0

	mock.ExpectExec(`INSERT INTO quotations`).
		WithArgs(
			q.ID, "TOYOTA", "COROLLA", "Automóvel", "LEVE", "PARTICULAR", "150000",
			"NORMAL", nil, nil, nil,
			nil, nil, "REJECTED", "OVER_LIMIT", false,
			"Ana", nil, "+5511999990000", nil, createdAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewQuotationRepository(db).Create(context.Background(), q))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotationRepository_CreateWithTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	q := acceptedQuotation()
	q.NeedsTriage = true

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO quotations`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)

	err = NewQuotationRepository(db).CreateWith(context.Background(), tx, q)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), q.ID)
	require.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

var quotationColumns = []string{
	"id", "brand", "model", "vehicle_type", "user_category", "usage", "fipe_value",
	"vehicle_category", "monthly_fee", "enrollment_fee", "enrollment_fee_discounted",
	"participation_quota", "seller_id", "status", "rejection_reason", "needs_triage",
	"contact_name", "contact_email", "contact_phone", "job_key", "created_at",
}

func TestQuotationRepository_FindByJobKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM quotations WHERE job_key = \$1`).
		WithArgs(int64(2251799813685249)).
		WillReturnRows(sqlmock.NewRows(quotationColumns).AddRow(
			"7f8e1c2a-0000-4000-8000-000000000001", "TOYOTA", "COROLLA", "Automóvel", "LEVE", "PARTICULAR", "150000.00",
			"NORMAL", "120.00", "500.00", "400.00",
			nil, "seller-a", "PENDING", nil, false,
			"Ana", nil, "+5511999990000", int64(2251799813685249), createdAt,
		))

	q, err := NewQuotationRepository(db).FindByJobKey(context.Background(), 2251799813685249)
	require.NoError(t, err)
	require.NotNil(t, q)

	assert.Equal(t, "7f8e1c2a-0000-4000-8000-000000000001", q.ID)
	assert.Equal(t, "seller-a", q.SellerID)
	assert.Equal(t, quotation.StatusPending, q.Status)
	assert.Equal(t, quotation.CategoryNormal, q.VehicleCategory)
	assert.Equal(t, "400.00", q.Values.AdesaoDesconto.StringFixed(2))
	assert.False(t, q.Values.CotaParticipacao.Valid)
	assert.Empty(t, q.Contact.Email)
	assert.Equal(t, int64(2251799813685249), q.JobKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuotationRepository_FindByJobKeyMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM quotations WHERE job_key`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(quotationColumns))

	q, err := NewQuotationRepository(db).FindByJobKey(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, q)
	assert.NoError(t, mock.ExpectationsWereMet())
}
