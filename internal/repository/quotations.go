package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cotacao-workers/internal/common/database"
	"cotacao-workers/internal/quotation"

	"github.com/shopspring/decimal"
)

const insertQuotation = `
	INSERT INTO quotations (
		id, brand, model, vehicle_type, user_category, usage, fipe_value,
		vehicle_category, monthly_fee, enrollment_fee, enrollment_fee_discounted,
		participation_quota, seller_id, status, rejection_reason, needs_triage,
		contact_name, contact_email, contact_phone, job_key, created_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		$11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
	)`

const selectQuotationByJobKey = `
	SELECT id, brand, model, vehicle_type, user_category, usage, fipe_value,
		vehicle_category, monthly_fee, enrollment_fee, enrollment_fee_discounted,
		participation_quota, seller_id, status, rejection_reason, needs_triage,
		contact_name, contact_email, contact_phone, job_key, created_at
	FROM quotations
	WHERE job_key = $1`

type QuotationRepository struct {
	db *sql.DB
}

func NewQuotationRepository(db *sql.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

func (r *QuotationRepository) Create(ctx context.Context, q *quotation.Quotation) error {
	return r.CreateWith(ctx, r.db, q)
}

// CreateWith inserts q through exec. Money columns stay NULL for rejected
// quotations.
func (r *QuotationRepository) CreateWith(ctx context.Context, exec database.Execer, q *quotation.Quotation) error {
	priced := q.Status != quotation.StatusRejected

	_, err := exec.ExecContext(ctx, insertQuotation,
		q.ID,
		q.Vehicle.Brand,
		q.Vehicle.Model,
		nullString(q.Vehicle.RawType),
		nullString(string(q.Vehicle.Category)),
		nullString(string(q.Vehicle.Usage)),
		q.Vehicle.FipeValue,
		string(q.VehicleCategory),
		money(q.Values.Mensalidade, priced),
		money(q.Values.Adesao, priced),
		money(q.Values.AdesaoDesconto, priced),
		q.Values.CotaParticipacao,
		nullString(q.SellerID),
		string(q.Status),
		nullString(string(q.RejectionReason)),
		q.NeedsTriage,
		nullString(q.Contact.Name),
		nullString(q.Contact.Email),
		nullString(q.Contact.Phone),
		sql.NullInt64{Int64: q.JobKey, Valid: q.JobKey != 0},
		q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quotation %s: %w", q.ID, err)
	}
	return nil
}

// FindByJobKey returns the quotation stored for jobKey, or nil without error.
func (r *QuotationRepository) FindByJobKey(ctx context.Context, jobKey int64) (*quotation.Quotation, error) {
	var (
		q                                       quotation.Quotation
		rawType, userCategory, usage            sql.NullString
		sellerID, rejectionReason               sql.NullString
		contactName, contactEmail, contactPhone sql.NullString
		monthly, enrollment, discounted         decimal.NullDecimal
		storedJobKey                            sql.NullInt64
	)

	err := r.db.QueryRowContext(ctx, selectQuotationByJobKey, jobKey).Scan(
		&q.ID, &q.Vehicle.Brand, &q.Vehicle.Model, &rawType, &userCategory, &usage, &q.Vehicle.FipeValue,
		&q.VehicleCategory, &monthly, &enrollment, &discounted,
		&q.Values.CotaParticipacao, &sellerID, &q.Status, &rejectionReason, &q.NeedsTriage,
		&contactName, &contactEmail, &contactPhone, &storedJobKey, &q.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query quotation for job %d: %w", jobKey, err)
	}

	q.Vehicle.RawType = rawType.String
	q.Vehicle.Category = quotation.UserCategory(userCategory.String)
	q.Vehicle.Usage = quotation.Usage(usage.String)
	q.Values.Mensalidade = monthly.Decimal
	q.Values.Adesao = enrollment.Decimal
	q.Values.AdesaoDesconto = discounted.Decimal
	q.SellerID = sellerID.String
	q.RejectionReason = quotation.RejectionCode(rejectionReason.String)
	q.Contact = quotation.Contact{Name: contactName.String, Email: contactEmail.String, Phone: contactPhone.String}
	q.JobKey = storedJobKey.Int64
	return &q, nil
}

func money(d decimal.Decimal, valid bool) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: valid}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
