package payments

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
	read := api.Group("", auth.RequireCapability(h.az, auth.CapClaimsView))
	read.GET("/payments", h.ListPayments)
	read.GET("/payments/:id", h.GetPayment)
	read.GET("/batch-deposits", h.ListDeposits)
	read.GET("/batch-deposits/:id", h.GetDeposit)
	read.GET("/era/imports", h.ListImports)
	read.GET("/era/imports/:id", h.GetImport)
	read.GET("/era/imports/:id/details", h.ListImportDetails)

	post := api.Group("", auth.RequireCapability(h.az, auth.CapPaymentsPost))
	post.POST("/payments", h.PostPayment)
	post.POST("/batch-deposits", h.CreateDeposit)
	post.PUT("/batch-deposits/:id", h.UpdateDeposit)
	post.DELETE("/batch-deposits/:id", h.DeleteDeposit)

	void := api.Group("", auth.RequireCapability(h.az, auth.CapPaymentsVoid))
	void.POST("/payments/:id/void", h.VoidPayment)

	era := api.Group("", auth.RequireCapability(h.az, auth.CapERAImport))
	era.POST("/era/imports", h.ImportERA)
	era.POST("/era/imports/:id/auto-match", h.AutoMatch)
	era.POST("/era/imports/:id/post-matched", h.PostMatched)
	era.POST("/era/details/:id/match", h.MatchDetail)
	era.POST("/era/details/:id/post", h.PostDetail)
}

// -- Payments --

func (h *Handler) PostPayment(c echo.Context) error {
	var p PaymentPosting
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Post(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "payment not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPayments(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{
		"claim_id":  c.QueryParam("claim_id"),
		"type":      c.QueryParam("type"),
		"status":    c.QueryParam("status"),
		"from":      c.QueryParam("from"),
		"to":        c.QueryParam("to"),
		"unapplied": c.QueryParam("unapplied"),
	}
	items, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type voidRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) VoidPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req voidRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Void(c.Request().Context(), id, req.Reason); err != nil {
		if errors.Is(err, ErrVoidNotAllowed) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Batch deposits --

func (h *Handler) CreateDeposit(c echo.Context) error {
	var b BatchDeposit
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateDeposit(c.Request().Context(), &b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetDeposit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	b, err := h.svc.GetDeposit(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "deposit not found")
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListDeposits(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDeposits(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateDeposit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var b BatchDeposit
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b.ID = id
	if err := h.svc.UpdateDeposit(c.Request().Context(), &b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteDeposit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteDeposit(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- ERA --

type importRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

func (h *Handler) ImportERA(c echo.Context) error {
	var req importRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	result, err := h.svc.ImportERA(c.Request().Context(), req.Filename, req.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, result)
}

func (h *Handler) GetImport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	imp, err := h.svc.GetImport(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "import not found")
	}
	return c.JSON(http.StatusOK, imp)
}

func (h *Handler) ListImports(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListImports(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListImportDetails(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListDetails(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AutoMatch(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	result, err := h.svc.AutoMatch(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) PostMatched(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	result, err := h.svc.PostMatched(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) MatchDetail(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.MatchDetail(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) PostDetail(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.PostDetail(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}
