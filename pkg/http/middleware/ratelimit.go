package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Allower decides whether a tenant may proceed.
type Allower interface {
	Allow(tenantID string) bool
}

// RateLimit rejects requests with 429 once the tenant's budget is spent.
// It must run after Tenant. onReject, when set, is called with the route.
func RateLimit(l Allower, onReject func(route string)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l.Allow(GetTenantID(c)) {
				return next(c)
			}
			if onReject != nil {
				onReject(c.Path())
			}
			c.Response().Header().Set("Retry-After", "1")
			return abort(c, http.StatusTooManyRequests, "ERR_RATE_LIMITED", "too many requests for this tenant")
		}
	}
}
