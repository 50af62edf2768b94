package gate

import (
	"context"

	"github.com/casbin/casbin/v3"
)

// Admin area policy object and action. Policies grant the admin role
// with rules like: p, role:admin, admin_area, access / g, <user-id>, role:admin.
const (
	adminObject = "admin_area"
	adminAction = "access"
)

// CasbinAdminChecker answers admin checks from the shared casbin
// enforcer, whose policies live in Postgres via the pgxcasbin adapter.
type CasbinAdminChecker struct {
	enforcer casbin.IEnforcer
}

// NewCasbinAdminChecker wraps an enforcer.
func NewCasbinAdminChecker(enforcer casbin.IEnforcer) *CasbinAdminChecker {
	return &CasbinAdminChecker{enforcer: enforcer}
}

// IsAdmin reports whether userID may access the admin area.
func (c *CasbinAdminChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return c.enforcer.Enforce(userID, adminObject, adminAction)
}
