package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRoleAuthorizer_AdminHasEverything(t *testing.T) {
	a := NewRoleAuthorizer()
	caps := []Capability{
		CapClaimsView, CapClaimsGenerate, CapClaimsSubmit, CapClaimsEdit,
		CapPaymentsPost, CapPaymentsVoid, CapERAImport,
		CapDenialsWork, CapDenialsAssign, CapReportsView, CapAdminManage,
	}
	for _, cap := range caps {
		if !a.Can([]string{"admin"}, cap) {
			t.Errorf("expected admin to hold %s", cap)
		}
	}
}

func TestRoleAuthorizer_BillingCannotVoid(t *testing.T) {
	a := NewRoleAuthorizer()

	if !a.Can([]string{"billing"}, CapPaymentsPost) {
		t.Error("expected billing to hold payments:post")
	}
	if a.Can([]string{"billing"}, CapPaymentsVoid) {
		t.Error("expected billing to lack payments:void")
	}
	if a.Can([]string{"billing"}, CapAdminManage) {
		t.Error("expected billing to lack admin:manage")
	}
}

func TestRoleAuthorizer_ViewerReadOnly(t *testing.T) {
	a := NewRoleAuthorizer()

	if !a.Can([]string{"viewer"}, CapClaimsView) {
		t.Error("expected viewer to hold claims:view")
	}
	if a.Can([]string{"viewer"}, CapClaimsGenerate) {
		t.Error("expected viewer to lack claims:generate")
	}
	if a.Can([]string{"viewer"}, CapDenialsWork) {
		t.Error("expected viewer to lack denials:work")
	}
}

func TestRoleAuthorizer_UnknownRole(t *testing.T) {
	a := NewRoleAuthorizer()
	if a.Can([]string{"intern"}, CapClaimsView) {
		t.Error("expected unknown role to hold nothing")
	}
	if a.Can(nil, CapClaimsView) {
		t.Error("expected empty roles to hold nothing")
	}
}

func TestRoleAuthorizer_Grant(t *testing.T) {
	a := NewRoleAuthorizer()
	a.Grant("viewer", CapDenialsWork)
	if !a.Can([]string{"viewer"}, CapDenialsWork) {
		t.Error("expected granted capability to be held")
	}
}

func TestRequireCapability_Allowed(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), UserRolesKey, []string{"billing"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var handlerCalled bool
	handler := func(c echo.Context) error {
		handlerCalled = true
		return c.String(http.StatusOK, "ok")
	}

	mw := RequireCapability(NewRoleAuthorizer(), CapClaimsSubmit)
	if err := mw(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Error("handler was not called")
	}
}

func TestRequireCapability_Forbidden(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	ctx := context.WithValue(req.Context(), UserRolesKey, []string{"viewer"})
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	mw := RequireCapability(NewRoleAuthorizer(), CapPaymentsVoid)
	err := mw(handler)(c)
	if err == nil {
		t.Fatal("expected error for missing capability")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", httpErr.Code)
	}
}
