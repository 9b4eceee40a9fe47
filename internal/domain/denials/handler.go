package denials

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/brightpath/billing/internal/platform/auth"
	"github.com/brightpath/billing/pkg/pagination"
)

type Handler struct {
	svc *Service
	az  auth.Authorizer
}

func NewHandler(svc *Service, az auth.Authorizer) *Handler {
	return &Handler{svc: svc, az: az}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	work := api.Group("", auth.RequireCapability(h.az, auth.CapDenialsWork))
	work.POST("/denials", h.Intake)
	work.GET("/denials", h.List)
	work.GET("/denials/export", h.Export)
	work.GET("/denials/:id", h.Get)
	work.GET("/denials/:id/activities", h.ListActivities)
	work.GET("/denials/:id/tasks", h.ListTasks)
	work.GET("/denials/:id/appeals", h.ListAppeals)
	work.PUT("/denials/:id/status", h.SetStatus)
	work.PUT("/denials/:id/priority", h.SetPriority)
	work.POST("/denials/:id/tasks", h.CreateTask)
	work.POST("/denial-tasks/:id/complete", h.CompleteTask)
	work.POST("/denials/:id/appeals", h.FileAppeal)
	work.POST("/appeals/:id/response", h.AppealResponse)
	work.POST("/denials/:id/resolve", h.Resolve)

	assign := api.Group("", auth.RequireCapability(h.az, auth.CapDenialsAssign))
	assign.PUT("/denials/:id/assign", h.Assign)
	assign.POST("/denials/assign-bulk", h.AssignBulk)
	assign.POST("/denials/:id/escalate", h.Escalate)
}

func denialHTTPError(err error) error {
	switch {
	case errors.Is(err, ErrDenialResolved), errors.Is(err, ErrAppealPending),
		errors.Is(err, ErrClaimNotSubmitted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

func (h *Handler) Intake(c echo.Context) error {
	var d Denial
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Intake(c.Request().Context(), &d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	item, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "denial not found")
	}
	return c.JSON(http.StatusOK, item)
}

func denialQueryParams(c echo.Context) map[string]string {
	return map[string]string{
		"status":      c.QueryParam("status"),
		"client_id":   c.QueryParam("client_id"),
		"claim_id":    c.QueryParam("claim_id"),
		"assigned_to": c.QueryParam("assigned_to"),
		"denial_code": c.QueryParam("denial_code"),
		"priority":    c.QueryParam("priority"),
		"open":        c.QueryParam("open"),
	}
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), denialQueryParams(c), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Export(c echo.Context) error {
	items, err := h.svc.ExportWorklist(c.Request().Context(), denialQueryParams(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="denials.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return WriteCSV(c.Response(), items)
}

func (h *Handler) ListActivities(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListActivities(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

type assignRequest struct {
	AssignedTo string      `json:"assigned_to"`
	DenialIDs  []uuid.UUID `json:"denial_ids,omitempty"`
}

func (h *Handler) Assign(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Assign(c.Request().Context(), id, req.AssignedTo); err != nil {
		return denialHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AssignBulk(c echo.Context) error {
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.DenialIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "denial_ids is required")
	}
	result, err := h.svc.AssignBulk(c.Request().Context(), req.DenialIDs, req.AssignedTo)
	if err != nil {
		return denialHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetStatus(c.Request().Context(), id, req.Status); err != nil {
		return denialHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type priorityRequest struct {
	Priority string `json:"priority"`
}

func (h *Handler) SetPriority(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req priorityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetPriority(c.Request().Context(), id, req.Priority); err != nil {
		return denialHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Escalate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Escalate(c.Request().Context(), id, req.AssignedTo); err != nil {
		return denialHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Tasks --

func (h *Handler) CreateTask(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var t DenialTask
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t.DenialID = id
	if err := h.svc.CreateTask(c.Request().Context(), &t); err != nil {
		return denialHTTPError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) CompleteTask(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.CompleteTask(c.Request().Context(), id); err != nil {
		return denialHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListTasks(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListTasks(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// -- Appeals --

func (h *Handler) FileAppeal(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var a Appeal
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.DenialID = id
	if err := h.svc.FileAppeal(c.Request().Context(), &a); err != nil {
		return denialHTTPError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

type appealResponseRequest struct {
	Status         string   `json:"status"`
	ResponseNotes  *string  `json:"response_notes"`
	ResponseAmount *float64 `json:"response_amount"`
}

func (h *Handler) AppealResponse(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req appealResponseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.RecordAppealResponse(c.Request().Context(), id, req.Status, req.ResponseNotes, req.ResponseAmount)
	if err != nil {
		return denialHTTPError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppeals(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListAppeals(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

// -- Resolution --

type resolveRequest struct {
	ResolutionType   string   `json:"resolution_type"`
	ResolutionAmount *float64 `json:"resolution_amount"`
	ResolutionNotes  *string  `json:"resolution_notes"`
}

func (h *Handler) Resolve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Resolve(c.Request().Context(), id, req.ResolutionType, req.ResolutionAmount, req.ResolutionNotes); err != nil {
		return denialHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
