package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/brightpath/billing/internal/platform/auth"
)

// Logger emits one structured line per request. The actor field carries the
// authenticated user so billing actions can be traced back to a person
// without joining on request ids. Query strings are deliberately not logged;
// worklist filters can carry client identifiers.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			// The auth middleware swaps the request to attach the user, so
			// re-read it after the chain has run.
			req := c.Request()
			res := c.Response()

			evt := logger.Info()
			switch {
			case err != nil:
				evt = logger.Error().Err(err)
			case res.Status >= http.StatusInternalServerError:
				evt = logger.Error()
			case res.Status >= http.StatusBadRequest:
				evt = logger.Warn()
			}

			evt = evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Int64("bytes_out", res.Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			if actor := auth.UserIDFromContext(req.Context()); actor != "" {
				evt = evt.Str("actor", actor)
			}
			evt.Msg("request")

			return err
		}
	}
}
