package auth

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Capability names a discrete billing action a user may be allowed to
// perform. Route guards check capabilities rather than role names so the
// role-to-permission mapping lives in exactly one place.
type Capability string

const (
	CapClaimsView     Capability = "claims:view"
	CapClaimsGenerate Capability = "claims:generate"
	CapClaimsSubmit   Capability = "claims:submit"
	CapClaimsEdit     Capability = "claims:edit"
	CapPaymentsPost   Capability = "payments:post"
	CapPaymentsVoid   Capability = "payments:void"
	CapERAImport      Capability = "era:import"
	CapDenialsWork    Capability = "denials:work"
	CapDenialsAssign  Capability = "denials:assign"
	CapReportsView    Capability = "reports:view"
	CapAdminManage    Capability = "admin:manage"
)

// Authorizer answers whether a set of roles grants a capability.
type Authorizer interface {
	Can(roles []string, cap Capability) bool
}

// RoleAuthorizer is a static role-to-capability table.
type RoleAuthorizer struct {
	grants map[string]map[Capability]bool
}

// NewRoleAuthorizer returns the default authorizer. Admins hold every
// capability. Billing staff can do everything except void payments and
// manage system settings. Viewers get read-only access.
func NewRoleAuthorizer() *RoleAuthorizer {
	billing := []Capability{
		CapClaimsView, CapClaimsGenerate, CapClaimsSubmit, CapClaimsEdit,
		CapPaymentsPost, CapERAImport,
		CapDenialsWork, CapDenialsAssign,
		CapReportsView,
	}
	viewer := []Capability{CapClaimsView, CapReportsView}

	grants := map[string]map[Capability]bool{
		"billing": capSet(billing),
		"viewer":  capSet(viewer),
	}
	return &RoleAuthorizer{grants: grants}
}

func capSet(caps []Capability) map[Capability]bool {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return m
}

// Can reports whether any of the roles grants the capability. The admin
// role implicitly holds all capabilities.
func (a *RoleAuthorizer) Can(roles []string, cap Capability) bool {
	for _, role := range roles {
		if role == "admin" {
			return true
		}
		if a.grants[role][cap] {
			return true
		}
	}
	return false
}

// Grant adds a capability to a role. Intended for tests and deployments
// that need to extend the default table.
func (a *RoleAuthorizer) Grant(role string, cap Capability) {
	if a.grants[role] == nil {
		a.grants[role] = make(map[Capability]bool)
	}
	a.grants[role][cap] = true
}

// RequireCapability returns middleware that rejects requests whose
// authenticated roles do not grant the capability.
func RequireCapability(a Authorizer, cap Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roles := RolesFromContext(c.Request().Context())
			if !a.Can(roles, cap) {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("required capability: %s", cap))
			}
			return next(c)
		}
	}
}
