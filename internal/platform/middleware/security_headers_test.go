package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func applySecurityHeaders(t *testing.T, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/claims", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, SecurityHeaders()(handler)(c)
}

func TestSecurityHeaders_SetsFullPolicy(t *testing.T) {
	rec, err := applySecurityHeaders(t, func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for header, want := range securityHeaders {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("header %s = %q, want %q", header, got, want)
		}
	}
	// PHI responses must never be cached along the path.
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("Cache-Control must be no-store")
	}
	if rec.Header().Get("Pragma") != "no-cache" {
		t.Error("Pragma must be no-cache for HTTP/1.0 proxies")
	}
}

func TestSecurityHeaders_SetOnErrorResponses(t *testing.T) {
	rec, err := applySecurityHeaders(t, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	})
	if err == nil {
		t.Fatal("expected the handler error to propagate")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("err = %v, want a 404 HTTPError", err)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("headers must be set before the handler runs, error or not")
	}
}
