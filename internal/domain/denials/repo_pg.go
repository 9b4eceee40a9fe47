package denials

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

// =========== Denial Repository ===========

type denialRepoPG struct{ pool *pgxpool.Pool }

func NewDenialRepoPG(pool *pgxpool.Pool) DenialRepository { return &denialRepoPG{pool: pool} }

func (r *denialRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const denialCols = `id, claim_id, client_id, denial_code, denial_reason, amount,
	status, assigned_to, assigned_priority, appeal_deadline, appeal_status,
	resolution_type, resolution_amount, resolution_notes, resolved_at,
	created_at, updated_at`

func (r *denialRepoPG) scanDenial(row pgx.Row) (*Denial, error) {
	var d Denial
	err := row.Scan(&d.ID, &d.ClaimID, &d.ClientID, &d.DenialCode, &d.DenialReason, &d.Amount,
		&d.Status, &d.AssignedTo, &d.AssignedPriority, &d.AppealDeadline, &d.AppealStatus,
		&d.ResolutionType, &d.ResolutionAmount, &d.ResolutionNotes, &d.ResolvedAt,
		&d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *denialRepoPG) Create(ctx context.Context, d *Denial) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO claim_denials (id, claim_id, client_id, denial_code, denial_reason,
			amount, status, assigned_to, assigned_priority, appeal_deadline, appeal_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		d.ID, d.ClaimID, d.ClientID, d.DenialCode, d.DenialReason,
		d.Amount, d.Status, d.AssignedTo, d.AssignedPriority, d.AppealDeadline, d.AppealStatus)
	return err
}

func (r *denialRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Denial, error) {
	return r.scanDenial(r.conn(ctx).QueryRow(ctx, `SELECT `+denialCols+` FROM claim_denials WHERE id = $1`, id))
}

func (r *denialRepoPG) Update(ctx context.Context, d *Denial) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE claim_denials SET denial_code=$2, denial_reason=$3, amount=$4, status=$5,
			assigned_to=$6, assigned_priority=$7, appeal_deadline=$8, appeal_status=$9,
			resolution_type=$10, resolution_amount=$11, resolution_notes=$12, resolved_at=$13,
			updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.DenialCode, d.DenialReason, d.Amount, d.Status,
		d.AssignedTo, d.AssignedPriority, d.AppealDeadline, d.AppealStatus,
		d.ResolutionType, d.ResolutionAmount, d.ResolutionNotes, d.ResolvedAt)
	return err
}

func denialFilters(params map[string]string) ([]string, []interface{}) {
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
	if v := params["claim_id"]; v != "" {
		add("claim_id = $%d", v)
	}
	if v := params["assigned_to"]; v != "" {
		add("assigned_to = $%d", v)
	}
	if v := params["denial_code"]; v != "" {
		add("denial_code = $%d", v)
	}
	if v := params["priority"]; v != "" {
		add("assigned_priority = $%d", v)
	}
	if params["open"] == "true" {
		where = append(where, "status != 'resolved'")
	}
	return where, args
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func (r *denialRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Denial, int, error) {
	where, args := denialFilters(params)
	clause := whereClause(where)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM claim_denials`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`SELECT `+denialCols+` FROM claim_denials%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectDenials(rows, r.scanDenial)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *denialRepoPG) ListAll(ctx context.Context, params map[string]string) ([]*Denial, error) {
	where, args := denialFilters(params)
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+denialCols+` FROM claim_denials`+whereClause(where)+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDenials(rows, r.scanDenial)
}

func collectDenials(rows pgx.Rows, scan func(pgx.Row) (*Denial, error)) ([]*Denial, error) {
	var items []*Denial
	for rows.Next() {
		d, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *denialRepoPG) AddActivity(ctx context.Context, a *DenialActivity) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO denial_activities (id, denial_id, type, description, actor)
		VALUES ($1,$2,$3,$4,$5)`,
		a.ID, a.DenialID, a.Type, a.Description, a.Actor)
	return err
}

func (r *denialRepoPG) ListActivities(ctx context.Context, denialID uuid.UUID) ([]*DenialActivity, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, denial_id, type, description, actor, created_at
		FROM denial_activities WHERE denial_id = $1 ORDER BY created_at`, denialID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DenialActivity
	for rows.Next() {
		var a DenialActivity
		if err := rows.Scan(&a.ID, &a.DenialID, &a.Type, &a.Description, &a.Actor, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

// =========== Appeal Repository ===========

type appealRepoPG struct{ pool *pgxpool.Pool }

func NewAppealRepoPG(pool *pgxpool.Pool) AppealRepository { return &appealRepoPG{pool: pool} }

func (r *appealRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const appealCols = `id, denial_id, appeal_type, reason, contact, status,
	response_notes, response_amount, responded_at, created_at, updated_at`

func (r *appealRepoPG) scanAppeal(row pgx.Row) (*Appeal, error) {
	var a Appeal
	err := row.Scan(&a.ID, &a.DenialID, &a.AppealType, &a.Reason, &a.Contact, &a.Status,
		&a.ResponseNotes, &a.ResponseAmount, &a.RespondedAt, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *appealRepoPG) Create(ctx context.Context, a *Appeal) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO claim_appeals (id, denial_id, appeal_type, reason, contact, status)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.DenialID, a.AppealType, a.Reason, a.Contact, a.Status)
	return err
}

func (r *appealRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appeal, error) {
	return r.scanAppeal(r.conn(ctx).QueryRow(ctx, `SELECT `+appealCols+` FROM claim_appeals WHERE id = $1`, id))
}

func (r *appealRepoPG) Update(ctx context.Context, a *Appeal) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE claim_appeals SET status=$2, response_notes=$3, response_amount=$4,
			responded_at=$5, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Status, a.ResponseNotes, a.ResponseAmount, a.RespondedAt)
	return err
}

func (r *appealRepoPG) ListByDenial(ctx context.Context, denialID uuid.UUID) ([]*Appeal, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+appealCols+` FROM claim_appeals WHERE denial_id = $1 ORDER BY created_at`, denialID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appeal
	for rows.Next() {
		a, err := r.scanAppeal(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// =========== Task Repository ===========

type taskRepoPG struct{ pool *pgxpool.Pool }

func NewTaskRepoPG(pool *pgxpool.Pool) TaskRepository { return &taskRepoPG{pool: pool} }

func (r *taskRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const taskCols = `id, denial_id, task_type, description, due_date, assigned_to,
	status, completed_at, created_at`

func (r *taskRepoPG) scanTask(row pgx.Row) (*DenialTask, error) {
	var t DenialTask
	err := row.Scan(&t.ID, &t.DenialID, &t.TaskType, &t.Description, &t.DueDate, &t.AssignedTo,
		&t.Status, &t.CompletedAt, &t.CreatedAt)
	return &t, err
}

func (r *taskRepoPG) Create(ctx context.Context, t *DenialTask) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO denial_tasks (id, denial_id, task_type, description, due_date, assigned_to, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.DenialID, t.TaskType, t.Description, t.DueDate, t.AssignedTo, t.Status)
	return err
}

func (r *taskRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*DenialTask, error) {
	return r.scanTask(r.conn(ctx).QueryRow(ctx, `SELECT `+taskCols+` FROM denial_tasks WHERE id = $1`, id))
}

func (r *taskRepoPG) Update(ctx context.Context, t *DenialTask) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE denial_tasks SET task_type=$2, description=$3, due_date=$4, assigned_to=$5,
			status=$6, completed_at=$7
		WHERE id = $1`,
		t.ID, t.TaskType, t.Description, t.DueDate, t.AssignedTo, t.Status, t.CompletedAt)
	return err
}

func (r *taskRepoPG) ListByDenial(ctx context.Context, denialID uuid.UUID) ([]*DenialTask, error) {
	return r.listTasks(ctx, `SELECT `+taskCols+` FROM denial_tasks WHERE denial_id = $1 ORDER BY created_at`, denialID)
}

func (r *taskRepoPG) ListPendingByDenial(ctx context.Context, denialID uuid.UUID) ([]*DenialTask, error) {
	return r.listTasks(ctx, `SELECT `+taskCols+` FROM denial_tasks WHERE denial_id = $1 AND status = 'pending' ORDER BY created_at`, denialID)
}

func (r *taskRepoPG) listTasks(ctx context.Context, sql string, args ...interface{}) ([]*DenialTask, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DenialTask
	for rows.Next() {
		t, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
