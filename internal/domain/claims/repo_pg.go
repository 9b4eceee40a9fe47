package claims

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

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewClaimRepoPG(pool *pgxpool.Pool) ClaimRepository { return &claimRepoPG{pool: pool} }

func (r *claimRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const claimCols = `id, claim_number, client_id, provider_id, service_code,
	service_start, service_end, units, rate, total_amount, authorization_number,
	status, validated, validated_at, clearinghouse_id, submitted_at,
	created_at, updated_at`

func (r *claimRepoPG) scanClaim(row pgx.Row) (*Claim, error) {
	var c Claim
	err := row.Scan(&c.ID, &c.ClaimNumber, &c.ClientID, &c.ProviderID, &c.ServiceCode,
		&c.ServiceStart, &c.ServiceEnd, &c.Units, &c.Rate, &c.TotalAmount, &c.AuthorizationNumber,
		&c.Status, &c.Validated, &c.ValidatedAt, &c.ClearinghouseID, &c.SubmittedAt,
		&c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *claimRepoPG) Create(ctx context.Context, c *Claim) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO claims (id, claim_number, client_id, provider_id, service_code,
			service_start, service_end, units, rate, total_amount, authorization_number,
			status, validated)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		c.ID, c.ClaimNumber, c.ClientID, c.ProviderID, c.ServiceCode,
		c.ServiceStart, c.ServiceEnd, c.Units, c.Rate, c.TotalAmount, c.AuthorizationNumber,
		c.Status, c.Validated)
	return err
}

func (r *claimRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return r.scanClaim(r.conn(ctx).QueryRow(ctx, `SELECT `+claimCols+` FROM claims WHERE id = $1`, id))
}

func (r *claimRepoPG) GetByClaimNumber(ctx context.Context, claimNumber string) (*Claim, error) {
	return r.scanClaim(r.conn(ctx).QueryRow(ctx, `SELECT `+claimCols+` FROM claims WHERE claim_number = $1`, claimNumber))
}

func (r *claimRepoPG) Update(ctx context.Context, c *Claim) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE claims SET service_code=$2, service_start=$3, service_end=$4,
			units=$5, rate=$6, total_amount=$7, authorization_number=$8,
			status=$9, validated=$10, validated_at=$11, clearinghouse_id=$12, submitted_at=$13,
			updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.ServiceCode, c.ServiceStart, c.ServiceEnd,
		c.Units, c.Rate, c.TotalAmount, c.AuthorizationNumber,
		c.Status, c.Validated, c.ValidatedAt, c.ClearinghouseID, c.SubmittedAt)
	return err
}

func (r *claimRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	// The activity trail references the claim and must go first.
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM claim_activities WHERE claim_id = $1`, id); err != nil {
		return err
	}
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM claims WHERE id = $1`, id)
	return err
}

func claimFilters(params map[string]string) ([]string, []interface{}) {
	var where []string
	var args []interface{}
	add := func(cond, val string) {
		args = append(args, val)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if v := params["status"]; v != "" {
		add("status = $%d", v)
	}
	if v := params["client_id"]; v != "" {
		add("client_id = $%d", v)
	}
	if v := params["service_code"]; v != "" {
		add("service_code = $%d", v)
	}
	if v := params["from"]; v != "" {
		add("service_start >= $%d", v)
	}
	if v := params["to"]; v != "" {
		add("service_end <= $%d", v)
	}
	if v := params["validated"]; v != "" {
		add("validated = $%d", v)
	}
	return where, args
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func (r *claimRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Claim, int, error) {
	where, args := claimFilters(params)
	clause := whereClause(where)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM claims`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`SELECT `+claimCols+` FROM claims%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectClaims(rows, r.scanClaim)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *claimRepoPG) ListAll(ctx context.Context, params map[string]string) ([]*Claim, error) {
	where, args := claimFilters(params)
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+claimCols+` FROM claims`+whereClause(where)+` ORDER BY claim_number`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectClaims(rows, r.scanClaim)
}

func (r *claimRepoPG) ListByStatus(ctx context.Context, status string) ([]*Claim, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+claimCols+` FROM claims WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectClaims(rows, r.scanClaim)
}

func (r *claimRepoPG) MaxNumberSuffix(ctx context.Context, prefix string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COALESCE(MAX(RIGHT(claim_number, 4)::int), 0)
		FROM claims WHERE claim_number LIKE $1 || '%'`, prefix).Scan(&n)
	return n, err
}

func collectClaims(rows pgx.Rows, scan func(pgx.Row) (*Claim, error)) ([]*Claim, error) {
	var items []*Claim
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// -- Activities --

func (r *claimRepoPG) AddActivity(ctx context.Context, a *ClaimActivity) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO claim_activities (id, claim_id, type, description, actor)
		VALUES ($1,$2,$3,$4,$5)`,
		a.ID, a.ClaimID, a.Type, a.Description, a.Actor)
	return err
}

func (r *claimRepoPG) ListActivities(ctx context.Context, claimID uuid.UUID) ([]*ClaimActivity, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, claim_id, type, description, actor, created_at
		FROM claim_activities WHERE claim_id = $1 ORDER BY created_at`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ClaimActivity
	for rows.Next() {
		var a ClaimActivity
		if err := rows.Scan(&a.ID, &a.ClaimID, &a.Type, &a.Description, &a.Actor, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}
