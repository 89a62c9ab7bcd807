package middleware

import (
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
)

const (
	HeaderTenantID = "X-Tenant-ID"
	QueryTenantID  = "tenant_id"

	tenantKey = "tenant_id"
)

// tenant ids end up in cache keys and glob patterns
var tenantPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// Tenant resolves the tenant from the X-Tenant-ID header or the tenant_id
// query parameter and rejects requests without a valid one.
func Tenant() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(HeaderTenantID)
			if id == "" {
				id = c.QueryParam(QueryTenantID)
			}
			if id == "" {
				return abort(c, http.StatusBadRequest, "ERR_TENANT_REQUIRED", "tenant is required: set the X-Tenant-ID header or tenant_id query parameter")
			}
			if !tenantPattern.MatchString(id) {
				return abort(c, http.StatusBadRequest, "ERR_TENANT_INVALID", "tenant id must be 1-64 characters of letters, digits, '.', '_' or '-'")
			}
			c.Set(tenantKey, id)
			return next(c)
		}
	}
}

// GetTenantID returns the tenant resolved by Tenant.
func GetTenantID(c echo.Context) string {
	id, _ := c.Get(tenantKey).(string)
	return id
}

// abort writes the error envelope used by pkg/http.
func abort(c echo.Context, status int, code, message string) error {
	return c.JSON(status, map[string]any{
		"success": false,
		"status":  status,
		"message": http.StatusText(status),
		"error":   []map[string]string{{"code": code, "message": message}},
	})
}
