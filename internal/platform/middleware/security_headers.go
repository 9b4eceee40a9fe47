package middleware

import (
	"github.com/labstack/echo/v4"
)

// securityHeaders is applied to every response. The service is a JSON API
// over Medicaid billing data: browsers never need to load resources from
// it, frame it, or cache anything it returns.
var securityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	// Rely on CSP rather than the legacy XSS filter.
	"X-XSS-Protection":        "0",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	// One year, including subdomains.
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Referrer-Policy":           "no-referrer",
	"Permissions-Policy":        "camera=(), microphone=(), geolocation=()",
	// Responses carry client PHI. Nothing between the server and the
	// caller may hold a copy, including HTTP/1.0 proxies.
	"Cache-Control": "no-store",
	"Pragma":        "no-cache",
}

func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for k, v := range securityHeaders {
				h.Set(k, v)
			}
			return next(c)
		}
	}
}
