package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

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

// ErrInsufficientUnits is returned by ConsumeUnits when the requested units
// would exceed the authorized total.
var ErrInsufficientUnits = errors.New("authorization has insufficient remaining units")

// =========== Client Repository ===========

type clientRepoPG struct{ pool *pgxpool.Pool }

func NewClientRepoPG(pool *pgxpool.Pool) ClientRepository { return &clientRepoPG{pool: pool} }

func (r *clientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const clientCols = `id, first_name, last_name, date_of_birth, medicaid_id,
	waiver_program, enrollment_date, status, phone, email,
	address_line, city, state, zip_code,
	guardian_name, guardian_phone, notes, created_at, updated_at`

func (r *clientRepoPG) scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.DateOfBirth, &c.MedicaidID,
		&c.WaiverProgram, &c.EnrollmentDate, &c.Status, &c.Phone, &c.Email,
		&c.AddressLine, &c.City, &c.State, &c.ZipCode,
		&c.GuardianName, &c.GuardianPhone, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func (r *clientRepoPG) Create(ctx context.Context, c *Client) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clients (id, first_name, last_name, date_of_birth, medicaid_id,
			waiver_program, enrollment_date, status, phone, email,
			address_line, city, state, zip_code,
			guardian_name, guardian_phone, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		c.ID, c.FirstName, c.LastName, c.DateOfBirth, c.MedicaidID,
		c.WaiverProgram, c.EnrollmentDate, c.Status, c.Phone, c.Email,
		c.AddressLine, c.City, c.State, c.ZipCode,
		c.GuardianName, c.GuardianPhone, c.Notes)
	return err
}

func (r *clientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	return r.scanClient(r.conn(ctx).QueryRow(ctx, `SELECT `+clientCols+` FROM clients WHERE id = $1`, id))
}

func (r *clientRepoPG) GetByMedicaidID(ctx context.Context, medicaidID string) (*Client, error) {
	return r.scanClient(r.conn(ctx).QueryRow(ctx, `SELECT `+clientCols+` FROM clients WHERE medicaid_id = $1`, medicaidID))
}

func (r *clientRepoPG) Update(ctx context.Context, c *Client) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE clients SET first_name=$2, last_name=$3, date_of_birth=$4, medicaid_id=$5,
			waiver_program=$6, enrollment_date=$7, status=$8, phone=$9, email=$10,
			address_line=$11, city=$12, state=$13, zip_code=$14,
			guardian_name=$15, guardian_phone=$16, notes=$17, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.FirstName, c.LastName, c.DateOfBirth, c.MedicaidID,
		c.WaiverProgram, c.EnrollmentDate, c.Status, c.Phone, c.Email,
		c.AddressLine, c.City, c.State, c.ZipCode,
		c.GuardianName, c.GuardianPhone, c.Notes)
	return err
}

func (r *clientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	return err
}

func (r *clientRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Client, int, error) {
	where, args := buildFilters(map[string]string{
		"status":         "status = ",
		"medicaid_id":    "medicaid_id = ",
		"waiver_program": "waiver_program = ",
	}, params)
	if name := params["name"]; name != "" {
		args = append(args, "%"+name+"%")
		where = append(where, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d)", len(args), len(args)))
	}
	clause := whereClause(where)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clients`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`SELECT `+clientCols+` FROM clients%s ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Client
	for rows.Next() {
		c, err := r.scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, nil
}

// buildFilters turns the subset of params whose keys appear in cols into
// positional WHERE conditions.
func buildFilters(cols map[string]string, params map[string]string) ([]string, []interface{}) {
	var where []string
	var args []interface{}
	for key, prefix := range cols {
		if v, ok := params[key]; ok && v != "" {
			args = append(args, v)
			where = append(where, fmt.Sprintf("%s$%d", prefix, len(args)))
		}
	}
	return where, args
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// =========== Provider Repository ===========

type providerRepoPG struct{ pool *pgxpool.Pool }

func NewProviderRepoPG(pool *pgxpool.Pool) ProviderRepository { return &providerRepoPG{pool: pool} }

func (r *providerRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const providerCols = `id, first_name, last_name, npi, credential, taxonomy_code,
	status, phone, email, hire_date, terminated_at, created_at, updated_at`

func (r *providerRepoPG) scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.NPI, &p.Credential, &p.TaxonomyCode,
		&p.Status, &p.Phone, &p.Email, &p.HireDate, &p.TerminatedAt, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *providerRepoPG) Create(ctx context.Context, p *Provider) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO providers (id, first_name, last_name, npi, credential, taxonomy_code,
			status, phone, email, hire_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.FirstName, p.LastName, p.NPI, p.Credential, p.TaxonomyCode,
		p.Status, p.Phone, p.Email, p.HireDate)
	return err
}

func (r *providerRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return r.scanProvider(r.conn(ctx).QueryRow(ctx, `SELECT `+providerCols+` FROM providers WHERE id = $1`, id))
}

func (r *providerRepoPG) GetByNPI(ctx context.Context, npi string) (*Provider, error) {
	return r.scanProvider(r.conn(ctx).QueryRow(ctx, `SELECT `+providerCols+` FROM providers WHERE npi = $1`, npi))
}

func (r *providerRepoPG) Update(ctx context.Context, p *Provider) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE providers SET first_name=$2, last_name=$3, npi=$4, credential=$5, taxonomy_code=$6,
			status=$7, phone=$8, email=$9, hire_date=$10, terminated_at=$11, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.NPI, p.Credential, p.TaxonomyCode,
		p.Status, p.Phone, p.Email, p.HireDate, p.TerminatedAt)
	return err
}

func (r *providerRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM providers WHERE id = $1`, id)
	return err
}

func (r *providerRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Provider, int, error) {
	where, args := buildFilters(map[string]string{
		"status": "status = ",
		"npi":    "npi = ",
	}, params)
	if name := params["name"]; name != "" {
		args = append(args, "%"+name+"%")
		where = append(where, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d)", len(args), len(args)))
	}
	clause := whereClause(where)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM providers`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`SELECT `+providerCols+` FROM providers%s ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Provider
	for rows.Next() {
		p, err := r.scanProvider(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

// =========== Session Repository ===========

type sessionRepoPG struct{ pool *pgxpool.Pool }

func NewSessionRepoPG(pool *pgxpool.Pool) SessionRepository { return &sessionRepoPG{pool: pool} }

func (r *sessionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const sessionCols = `id, client_id, provider_id, service_code, session_date,
	start_time, end_time, units, unit_rate, status, billing_status, claim_id,
	notes, created_at, updated_at`

func (r *sessionRepoPG) scanSession(row pgx.Row) (*ServiceSession, error) {
	var s ServiceSession
	err := row.Scan(&s.ID, &s.ClientID, &s.ProviderID, &s.ServiceCode, &s.SessionDate,
		&s.StartTime, &s.EndTime, &s.Units, &s.UnitRate, &s.Status, &s.BillingStatus, &s.ClaimID,
		&s.Notes, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *sessionRepoPG) Create(ctx context.Context, s *ServiceSession) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO service_sessions (id, client_id, provider_id, service_code, session_date,
			start_time, end_time, units, unit_rate, status, billing_status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		s.ID, s.ClientID, s.ProviderID, s.ServiceCode, s.SessionDate,
		s.StartTime, s.EndTime, s.Units, s.UnitRate, s.Status, s.BillingStatus, s.Notes)
	return err
}

func (r *sessionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ServiceSession, error) {
	return r.scanSession(r.conn(ctx).QueryRow(ctx, `SELECT `+sessionCols+` FROM service_sessions WHERE id = $1`, id))
}

func (r *sessionRepoPG) Update(ctx context.Context, s *ServiceSession) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE service_sessions SET service_code=$2, session_date=$3, start_time=$4, end_time=$5,
			units=$6, unit_rate=$7, status=$8, billing_status=$9, claim_id=$10, notes=$11, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.ServiceCode, s.SessionDate, s.StartTime, s.EndTime,
		s.Units, s.UnitRate, s.Status, s.BillingStatus, s.ClaimID, s.Notes)
	return err
}

func (r *sessionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM service_sessions WHERE id = $1`, id)
	return err
}

func (r *sessionRepoPG) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*ServiceSession, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM service_sessions WHERE client_id = $1`, clientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+sessionCols+` FROM service_sessions WHERE client_id = $1 ORDER BY session_date DESC LIMIT $2 OFFSET $3`, clientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ServiceSession
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, nil
}

func (r *sessionRepoPG) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*ServiceSession, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+sessionCols+` FROM service_sessions WHERE claim_id = $1 ORDER BY session_date`, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ServiceSession
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, nil
}

func (r *sessionRepoPG) ListBillable(ctx context.Context, cutoff time.Time) ([]*ServiceSession, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+sessionCols+` FROM service_sessions
		WHERE status = 'completed' AND billing_status = 'unbilled' AND session_date <= $1
		ORDER BY client_id, service_code, session_date`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ServiceSession
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, nil
}

func (r *sessionRepoPG) MarkBilled(ctx context.Context, sessionIDs []uuid.UUID, claimID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE service_sessions SET billing_status = 'billed', claim_id = $2, updated_at = NOW()
		WHERE id = ANY($1)`, sessionIDs, claimID)
	return err
}

func (r *sessionRepoPG) MarkUnbilled(ctx context.Context, claimID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE service_sessions SET billing_status = 'unbilled', claim_id = NULL, updated_at = NOW()
		WHERE claim_id = $1`, claimID)
	return err
}

func (r *sessionRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*ServiceSession, int, error) {
	where, args := buildFilters(map[string]string{
		"client_id":      "client_id = ",
		"provider_id":    "provider_id = ",
		"service_code":   "service_code = ",
		"status":         "status = ",
		"billing_status": "billing_status = ",
	}, params)
	if from := params["from"]; from != "" {
		args = append(args, from)
		where = append(where, fmt.Sprintf("session_date >= $%d", len(args)))
	}
	if to := params["to"]; to != "" {
		args = append(args, to)
		where = append(where, fmt.Sprintf("session_date <= $%d", len(args)))
	}
	clause := whereClause(where)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM service_sessions`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`SELECT `+sessionCols+` FROM service_sessions%s ORDER BY session_date DESC LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*ServiceSession
	for rows.Next() {
		s, err := r.scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, nil
}

// =========== Authorization Repository ===========

type authorizationRepoPG struct{ pool *pgxpool.Pool }

func NewAuthorizationRepoPG(pool *pgxpool.Pool) AuthorizationRepository {
	return &authorizationRepoPG{pool: pool}
}

func (r *authorizationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const authCols = `id, client_id, auth_number, service_code, authorized_units, used_units,
	start_date, end_date, status, created_at, updated_at`

func (r *authorizationRepoPG) scanAuthorization(row pgx.Row) (*Authorization, error) {
	var a Authorization
	err := row.Scan(&a.ID, &a.ClientID, &a.AuthNumber, &a.ServiceCode, &a.AuthorizedUnits, &a.UsedUnits,
		&a.StartDate, &a.EndDate, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *authorizationRepoPG) Create(ctx context.Context, a *Authorization) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO authorizations (id, client_id, auth_number, service_code, authorized_units, used_units,
			start_date, end_date, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.ClientID, a.AuthNumber, a.ServiceCode, a.AuthorizedUnits, a.UsedUnits,
		a.StartDate, a.EndDate, a.Status)
	return err
}

func (r *authorizationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Authorization, error) {
	return r.scanAuthorization(r.conn(ctx).QueryRow(ctx, `SELECT `+authCols+` FROM authorizations WHERE id = $1`, id))
}

func (r *authorizationRepoPG) Update(ctx context.Context, a *Authorization) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE authorizations SET auth_number=$2, service_code=$3, authorized_units=$4,
			start_date=$5, end_date=$6, status=$7, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.AuthNumber, a.ServiceCode, a.AuthorizedUnits,
		a.StartDate, a.EndDate, a.Status)
	return err
}

func (r *authorizationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM authorizations WHERE id = $1`, id)
	return err
}

func (r *authorizationRepoPG) ListByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Authorization, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM authorizations WHERE client_id = $1`, clientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+authCols+` FROM authorizations WHERE client_id = $1 ORDER BY start_date DESC LIMIT $2 OFFSET $3`, clientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Authorization
	for rows.Next() {
		a, err := r.scanAuthorization(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *authorizationRepoPG) FindActive(ctx context.Context, clientID uuid.UUID, serviceCode string, date time.Time) (*Authorization, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT `+authCols+` FROM authorizations
		WHERE client_id = $1 AND service_code = $2 AND status = 'active'
			AND start_date <= $3 AND end_date >= $3
		ORDER BY end_date DESC
		LIMIT 1`, clientID, serviceCode, date)
	a, err := r.scanAuthorization(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *authorizationRepoPG) FindByNumber(ctx context.Context, clientID uuid.UUID, authNumber string) (*Authorization, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT `+authCols+` FROM authorizations
		WHERE client_id = $1 AND auth_number = $2`, clientID, authNumber)
	a, err := r.scanAuthorization(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ConsumeUnits relies on a conditional UPDATE so two concurrent claim runs
// cannot overdraw the same authorization.
func (r *authorizationRepoPG) ConsumeUnits(ctx context.Context, id uuid.UUID, units int) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE authorizations SET used_units = used_units + $2, updated_at = NOW()
		WHERE id = $1 AND used_units + $2 <= authorized_units`, id, units)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientUnits
	}
	return nil
}

func (r *authorizationRepoPG) ReleaseUnits(ctx context.Context, id uuid.UUID, units int) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE authorizations SET used_units = GREATEST(used_units - $2, 0), updated_at = NOW()
		WHERE id = $1`, id, units)
	return err
}
