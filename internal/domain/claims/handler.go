package claims

import (
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
	read.GET("/claims", h.ListClaims)
	read.GET("/claims/export", h.ExportClaims)
	read.GET("/claims/:id", h.GetClaim)
	read.GET("/claims/:id/activities", h.GetClaimActivities)
	read.GET("/claims/:id/sessions", h.GetClaimSessions)
	read.GET("/claims/:id/edi", h.GetClaimEDI)

	gen := api.Group("", auth.RequireCapability(h.az, auth.CapClaimsGenerate))
	gen.POST("/claims/generate", h.GenerateClaims)

	edit := api.Group("", auth.RequireCapability(h.az, auth.CapClaimsEdit))
	edit.PUT("/claims/:id", h.UpdateClaim)
	edit.POST("/claims/:id/validate", h.ValidateClaim)
	edit.POST("/claims/validate-batch", h.ValidateBatch)

	submit := api.Group("", auth.RequireCapability(h.az, auth.CapClaimsSubmit))
	submit.POST("/claims/:id/submit", h.SubmitClaim)
	submit.POST("/claims/submit-batch", h.SubmitBatch)

	admin := api.Group("", auth.RequireCapability(h.az, auth.CapAdminManage))
	admin.DELETE("/claims/:id", h.DeleteClaim)
}

func claimParams(c echo.Context) map[string]string {
	return map[string]string{
		"status":       c.QueryParam("status"),
		"client_id":    c.QueryParam("client_id"),
		"service_code": c.QueryParam("service_code"),
		"from":         c.QueryParam("from"),
		"to":           c.QueryParam("to"),
		"validated":    c.QueryParam("validated"),
	}
}

func (h *Handler) ListClaims(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(), claimParams(c), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetClaim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	claim, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "claim not found")
	}
	return c.JSON(http.StatusOK, claim)
}

func (h *Handler) GetClaimActivities(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.Activities(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetClaimSessions(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.Sessions(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetClaimEDI(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	claim, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "claim not found")
	}
	edi, err := h.svc.BuildEDI(c.Request().Context(), claim)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.String(http.StatusOK, edi)
}

func (h *Handler) GenerateClaims(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.Generate(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) UpdateClaim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var claim Claim
	if err := c.Bind(&claim); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	claim.ID = id
	if err := h.svc.Update(c.Request().Context(), &claim); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, claim)
}

func (h *Handler) DeleteClaim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ValidateClaim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	result, err := h.svc.Validate(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) ValidateBatch(c echo.Context) error {
	result, err := h.svc.ValidateBatch(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) SubmitClaim(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	result, err := h.svc.Submit(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) SubmitBatch(c echo.Context) error {
	result, err := h.svc.SubmitBatch(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) ExportClaims(c echo.Context) error {
	items, err := h.svc.ListAll(c.Request().Context(), claimParams(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="claims.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return WriteCSV(c.Response(), items)
}
