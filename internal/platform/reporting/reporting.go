package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/brightpath/billing/internal/platform/auth"
)

// MeasureDefinition defines a reporting measure with its SQL query.
type MeasureDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SQL         string   `json:"sql"`
	Parameters  []string `json:"parameters"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
	Parameters  map[string]string        `json:"parameters,omitempty"`
}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "claims-by-status",
		Name:        "Claims by Status",
		Description: "Claim counts and billed dollars grouped by status",
		SQL: `SELECT status, COUNT(*) AS total, COALESCE(SUM(total_amount), 0) AS billed
			FROM claims GROUP BY status ORDER BY total DESC`,
		Parameters: []string{},
	},
	{
		ID:          "denial-aging",
		Name:        "Denial Aging",
		Description: "Open denials bucketed by days since intake",
		SQL: `SELECT CASE
				WHEN NOW() - created_at <= INTERVAL '30 days' THEN '0-30'
				WHEN NOW() - created_at <= INTERVAL '60 days' THEN '31-60'
				WHEN NOW() - created_at <= INTERVAL '90 days' THEN '61-90'
				ELSE '90+'
			END AS age_bucket, COUNT(*) AS total, COALESCE(SUM(amount), 0) AS at_risk
			FROM claim_denials WHERE status != 'resolved'
			GROUP BY age_bucket ORDER BY age_bucket`,
		Parameters: []string{},
	},
	{
		ID:          "payments-by-month",
		Name:        "Payments by Month",
		Description: "Posted payment totals grouped by calendar month",
		SQL: `SELECT TO_CHAR(payment_date, 'YYYY-MM') AS month,
			COALESCE(SUM(amount), 0) AS posted, COUNT(*) AS postings
			FROM payment_postings WHERE status = 'posted' AND type != 'reversal'
			GROUP BY month ORDER BY month DESC`,
		Parameters: []string{},
	},
	{
		ID:          "unapplied-payments",
		Name:        "Unapplied Payments",
		Description: "Posted payments not linked to any claim",
		SQL: `SELECT COUNT(*) AS total, COALESCE(SUM(amount), 0) AS unapplied
			FROM payment_postings WHERE status = 'posted' AND claim_id IS NULL`,
		Parameters: []string{},
	},
	{
		ID:          "authorization-utilization",
		Name:        "Authorization Utilization",
		Description: "Active authorizations with used versus authorized units",
		SQL: `SELECT service_code, COUNT(*) AS authorizations,
			COALESCE(SUM(authorized_units), 0) AS authorized,
			COALESCE(SUM(used_units), 0) AS used
			FROM authorizations WHERE status = 'active'
			GROUP BY service_code ORDER BY service_code`,
		Parameters: []string{},
	},
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	pool *pgxpool.Pool
	az   auth.Authorizer
}

// NewHandler creates a new reporting handler.
func NewHandler(pool *pgxpool.Pool, az auth.Authorizer) *Handler {
	return &Handler{pool: pool, az: az}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	reportGroup := api.Group("/reports", auth.RequireCapability(h.az, auth.CapReportsView))
	reportGroup.GET("/measures", h.ListMeasures)
	reportGroup.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	// Collect parameters from query string
	params := map[string]string{}
	for _, p := range measure.Parameters {
		if v := c.QueryParam(p); v != "" {
			params[p] = v
		}
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	report := MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now(),
		Results:     results,
		Parameters:  params,
	}

	return c.JSON(http.StatusOK, report)
}

// executeSQL runs a SQL query and returns results as a slice of maps.
func (h *Handler) executeSQL(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	rows, err := h.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	var results []map[string]interface{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}

	if results == nil {
		results = []map[string]interface{}{}
	}

	return results, nil
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
