// Package access maps staff roles to the fixed set of capabilities they grant.
package access

import (
	"fmt"
	"strings"

	"tokoisi/backend/internal/domain"
)

// Capabilities is the complete permission record for one role. Callers
// branch on these flags, never on the role itself.
type Capabilities struct {
	ManageUsers          bool `json:"manage_users"`
	ViewBuyingPrice      bool `json:"view_buying_price"`
	ViewProfit           bool `json:"view_profit"`
	ManageProducts       bool `json:"manage_products"`
	ViewReports          bool `json:"view_reports"`
	OverrideTransactions bool `json:"override_transactions"`
	AccessSettings       bool `json:"access_settings"`
	ViewActivityLogs     bool `json:"view_activity_logs"`
}

// Rows are independent of each other. A role does not inherit from another.
var table = map[domain.Role]Capabilities{
	domain.RoleSuperAdmin: {
		ManageUsers:          true,
		ViewBuyingPrice:      true,
		ViewProfit:           true,
		ManageProducts:       true,
		ViewReports:          true,
		OverrideTransactions: true,
		AccessSettings:       true,
		ViewActivityLogs:     true,
	},
	domain.RoleManager: {
		ViewBuyingPrice: true,
		ViewProfit:      true,
		ManageProducts:  true,
		ViewReports:     true,
	},
	domain.RoleCashier: {},
}

// For returns the capabilities granted to role. Unknown and empty roles get none.
func For(role domain.Role) Capabilities {
	return table[role]
}

func ParseRole(raw string) (domain.Role, error) {
	role := domain.Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := table[role]; !ok {
		return "", fmt.Errorf("%w: unknown role %q", domain.ErrValidation, raw)
	}
	return role, nil
}

func Roles() []domain.Role {
	return []domain.Role{domain.RoleSuperAdmin, domain.RoleManager, domain.RoleCashier}
}

// Predicate selects one capability. HTTP middleware and the service take
// predicates so call sites name the capability they need.
type Predicate func(Capabilities) bool

func CanManageUsers(c Capabilities) bool          { return c.ManageUsers }
func CanViewBuyingPrice(c Capabilities) bool      { return c.ViewBuyingPrice }
func CanViewProfit(c Capabilities) bool           { return c.ViewProfit }
func CanManageProducts(c Capabilities) bool       { return c.ManageProducts }
func CanViewReports(c Capabilities) bool          { return c.ViewReports }
func CanOverrideTransactions(c Capabilities) bool { return c.OverrideTransactions }
func CanAccessSettings(c Capabilities) bool       { return c.AccessSettings }
func CanViewActivityLogs(c Capabilities) bool     { return c.ViewActivityLogs }

// Require returns ErrPermissionDenied when role lacks the capability selected by need.
func Require(role domain.Role, need Predicate, what string) error {
	if need(For(role)) {
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, what)
}
