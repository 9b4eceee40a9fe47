package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightpath/billing/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Payment Repository ===========

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository { return &paymentRepoPG{pool: pool} }

func (r *paymentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const paymentCols = `id, claim_id, batch_deposit_id, payment_date, amount, type,
	check_number, reference_number, era_number, notes, status,
	void_reason, voided_by, voided_at, reversal_of_id, created_at, updated_at`

func (r *paymentRepoPG) scanPayment(row pgx.Row) (*PaymentPosting, error) {
	var p PaymentPosting
	err := row.Scan(&p.ID, &p.ClaimID, &p.BatchDepositID, &p.PaymentDate, &p.Amount, &p.Type,
		&p.CheckNumber, &p.ReferenceNumber, &p.ERANumber, &p.Notes, &p.Status,
		&p.VoidReason, &p.VoidedBy, &p.VoidedAt, &p.ReversalOfID, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *paymentRepoPG) Create(ctx context.Context, p *PaymentPosting) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payment_postings (id, claim_id, batch_deposit_id, payment_date, amount, type,
			check_number, reference_number, era_number, notes, status, reversal_of_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.ClaimID, p.BatchDepositID, p.PaymentDate, p.Amount, p.Type,
		p.CheckNumber, p.ReferenceNumber, p.ERANumber, p.Notes, p.Status, p.ReversalOfID)
	return err
}

func (r *paymentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PaymentPosting, error) {
	return r.scanPayment(r.conn(ctx).QueryRow(ctx, `SELECT `+paymentCols+` FROM payment_postings WHERE id = $1`, id))
}

func (r *paymentRepoPG) Update(ctx context.Context, p *PaymentPosting) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE payment_postings SET status=$2, void_reason=$3, voided_by=$4, voided_at=$5,
			notes=$6, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Status, p.VoidReason, p.VoidedBy, p.VoidedAt, p.Notes)
	return err
}

func (r *paymentRepoPG) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*PaymentPosting, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+paymentCols+` FROM payment_postings WHERE claim_id = $1 ORDER BY payment_date, created_at`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*PaymentPosting
	for rows.Next() {
		p, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *paymentRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*PaymentPosting, int, error) {
	var where []string
	var args []interface{}
	add := func(cond, val string) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if v := params["claim_id"]; v != "" {
		add("claim_id = $%d", v)
	}
	if v := params["type"]; v != "" {
		add("type = $%d", v)
	}
	if v := params["status"]; v != "" {
		add("status = $%d", v)
	}
	if v := params["from"]; v != "" {
		add("payment_date >= $%d", v)
	}
	if v := params["to"]; v != "" {
		add("payment_date <= $%d", v)
	}
	if params["unapplied"] == "true" {
		where = append(where, "claim_id IS NULL")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM payment_postings`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`SELECT `+paymentCols+` FROM payment_postings%s ORDER BY payment_date DESC, created_at DESC LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*PaymentPosting
	for rows.Next() {
		p, err := r.scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *paymentRepoPG) SumPostedByClaim(ctx context.Context, claimID uuid.UUID) (float64, error) {
	var sum float64
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM payment_postings
		WHERE claim_id = $1 AND status = 'posted' AND type != 'reversal'`, claimID).Scan(&sum)
	return sum, err
}

// =========== Batch Deposit Repository ===========

type batchDepositRepoPG struct{ pool *pgxpool.Pool }

func NewBatchDepositRepoPG(pool *pgxpool.Pool) BatchDepositRepository {
	return &batchDepositRepoPG{pool: pool}
}

func (r *batchDepositRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const depositCols = `id, deposit_date, bank_reference, total_amount, posting_count, notes, created_at, updated_at`

func (r *batchDepositRepoPG) scanDeposit(row pgx.Row) (*BatchDeposit, error) {
	var b BatchDeposit
	err := row.Scan(&b.ID, &b.DepositDate, &b.BankReference, &b.TotalAmount, &b.PostingCount,
		&b.Notes, &b.CreatedAt, &b.UpdatedAt)
	return &b, err
}

func (r *batchDepositRepoPG) Create(ctx context.Context, b *BatchDeposit) error {
	b.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO batch_deposits (id, deposit_date, bank_reference, total_amount, posting_count, notes)
		VALUES ($1,$2,$3,0,0,$4)`,
		b.ID, b.DepositDate, b.BankReference, b.Notes)
	return err
}

func (r *batchDepositRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*BatchDeposit, error) {
	return r.scanDeposit(r.conn(ctx).QueryRow(ctx, `SELECT `+depositCols+` FROM batch_deposits WHERE id = $1`, id))
}

func (r *batchDepositRepoPG) Update(ctx context.Context, b *BatchDeposit) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE batch_deposits SET deposit_date=$2, bank_reference=$3, notes=$4, updated_at=NOW()
		WHERE id = $1`,
		b.ID, b.DepositDate, b.BankReference, b.Notes)
	return err
}

func (r *batchDepositRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM batch_deposits WHERE id = $1`, id)
	return err
}

func (r *batchDepositRepoPG) List(ctx context.Context, limit, offset int) ([]*BatchDeposit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM batch_deposits`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+depositCols+` FROM batch_deposits ORDER BY deposit_date DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*BatchDeposit
	for rows.Next() {
		b, err := r.scanDeposit(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

func (r *batchDepositRepoPG) Recompute(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE batch_deposits SET
			total_amount = COALESCE((SELECT SUM(amount) FROM payment_postings
				WHERE batch_deposit_id = $1 AND status = 'posted'), 0),
			posting_count = (SELECT COUNT(*) FROM payment_postings
				WHERE batch_deposit_id = $1 AND status = 'posted'),
			updated_at = NOW()
		WHERE id = $1`, id)
	return err
}

// =========== ERA Repository ===========

type eraRepoPG struct{ pool *pgxpool.Pool }

func NewERARepoPG(pool *pgxpool.Pool) ERARepository { return &eraRepoPG{pool: pool} }

func (r *eraRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const eraImportCols = `id, era_number, payer_name, check_number, check_date, check_amount,
	filename, total_paid, status, created_at, updated_at`

func (r *eraRepoPG) scanImport(row pgx.Row) (*ERAImport, error) {
	var imp ERAImport
	err := row.Scan(&imp.ID, &imp.ERANumber, &imp.PayerName, &imp.CheckNumber, &imp.CheckDate,
		&imp.CheckAmount, &imp.Filename, &imp.TotalPaid, &imp.Status, &imp.CreatedAt, &imp.UpdatedAt)
	return &imp, err
}

func (r *eraRepoPG) CreateImport(ctx context.Context, imp *ERAImport) error {
	imp.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO era_imports (id, era_number, payer_name, check_number, check_date, check_amount,
			filename, total_paid, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		imp.ID, imp.ERANumber, imp.PayerName, imp.CheckNumber, imp.CheckDate, imp.CheckAmount,
		imp.Filename, imp.TotalPaid, imp.Status)
	return err
}

func (r *eraRepoPG) GetImport(ctx context.Context, id uuid.UUID) (*ERAImport, error) {
	return r.scanImport(r.conn(ctx).QueryRow(ctx, `SELECT `+eraImportCols+` FROM era_imports WHERE id = $1`, id))
}

func (r *eraRepoPG) UpdateImport(ctx context.Context, imp *ERAImport) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE era_imports SET status=$2, updated_at=NOW() WHERE id = $1`,
		imp.ID, imp.Status)
	return err
}

func (r *eraRepoPG) ListImports(ctx context.Context, limit, offset int) ([]*ERAImport, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM era_imports`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+eraImportCols+` FROM era_imports ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ERAImport
	for rows.Next() {
		imp, err := r.scanImport(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, imp)
	}
	return items, total, rows.Err()
}

const eraDetailCols = `id, era_import_id, claim_number, status_code, billed_amount, paid_amount,
	patient_amount, adjustment_codes, matched_claim_id, posted, created_at`

func (r *eraRepoPG) scanDetail(row pgx.Row) (*ERAPaymentDetail, error) {
	var d ERAPaymentDetail
	err := row.Scan(&d.ID, &d.ERAImportID, &d.ClaimNumber, &d.StatusCode, &d.BilledAmount,
		&d.PaidAmount, &d.PatientAmount, &d.AdjustmentCodes, &d.MatchedClaimID, &d.Posted, &d.CreatedAt)
	return &d, err
}

func (r *eraRepoPG) AddDetail(ctx context.Context, d *ERAPaymentDetail) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO era_payment_details (id, era_import_id, claim_number, status_code,
			billed_amount, paid_amount, patient_amount, adjustment_codes, matched_claim_id, posted)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		d.ID, d.ERAImportID, d.ClaimNumber, d.StatusCode,
		d.BilledAmount, d.PaidAmount, d.PatientAmount, d.AdjustmentCodes, d.MatchedClaimID, d.Posted)
	return err
}

func (r *eraRepoPG) GetDetail(ctx context.Context, id uuid.UUID) (*ERAPaymentDetail, error) {
	return r.scanDetail(r.conn(ctx).QueryRow(ctx, `SELECT `+eraDetailCols+` FROM era_payment_details WHERE id = $1`, id))
}

func (r *eraRepoPG) UpdateDetail(ctx context.Context, d *ERAPaymentDetail) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE era_payment_details SET matched_claim_id=$2, posted=$3 WHERE id = $1`,
		d.ID, d.MatchedClaimID, d.Posted)
	return err
}

func (r *eraRepoPG) ListDetails(ctx context.Context, importID uuid.UUID) ([]*ERAPaymentDetail, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+eraDetailCols+` FROM era_payment_details WHERE era_import_id = $1 ORDER BY created_at`, importID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ERAPaymentDetail
	for rows.Next() {
		d, err := r.scanDetail(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
