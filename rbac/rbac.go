// Package rbac maps role names to permissions and decides access from a user's live roles.
package rbac

import (
	"errors"
)

// Role names. The set is fixed and seeded by the initial migration.
const (
	RoleSuperAdmin    = "Super Admin"
	RoleStateAdmin    = "State Admin"
	RoleDistrictAdmin = "District Admin"
	RoleBranchAdmin   = "Branch Admin"
	RoleMember        = "Member"
)

// ErrForbidden is returned when no held role is on the allow-list
var ErrForbidden = errors.New("not enough permissions")

// Permission is an abstract capability checked by routes and services
type Permission string

const (
	OrgsRead           Permission = "orgs:read"
	OrgsWrite          Permission = "orgs:write"
	OrgsUpdate         Permission = "orgs:update"
	UsersRead          Permission = "users:read"
	UsersWrite         Permission = "users:write"
	RolesAssign        Permission = "roles:assign"
	GroupsRead         Permission = "groups:read"
	GroupsWrite        Permission = "groups:write"
	SubscriptionsRead  Permission = "subscriptions:read"
	SubscriptionsWrite Permission = "subscriptions:write"
	PaymentsRead       Permission = "payments:read"
	PaymentsWrite      Permission = "payments:write"
	EventsRead         Permission = "events:read"
	EventsWrite        Permission = "events:write"
	EventsRSVP         Permission = "events:rsvp"
	TransactionsRead   Permission = "transactions:read"
	TransactionsWrite  Permission = "transactions:write"
	ReportsRead        Permission = "reports:read"
	BrandingRead       Permission = "branding:read"
	BrandingWrite      Permission = "branding:write"
	SettingsRead       Permission = "settings:read"
	SettingsWrite      Permission = "settings:write"
	I18nSelf           Permission = "i18n:self"
	I18nOrg            Permission = "i18n:org"
	AuditRead          Permission = "audit:read"
	// TenantsAll lifts tenant scoping
	TenantsAll Permission = "tenants:all"
	// RecordsAll lets a holder read other members' financial records within scope
	RecordsAll Permission = "records:all"
)

var (
	allRoles   = []string{RoleSuperAdmin, RoleStateAdmin, RoleDistrictAdmin, RoleBranchAdmin, RoleMember}
	adminRoles = []string{RoleSuperAdmin, RoleStateAdmin, RoleDistrictAdmin, RoleBranchAdmin}
	superState = []string{RoleSuperAdmin, RoleStateAdmin}
	superOnly  = []string{RoleSuperAdmin}
)

// permissions lists, for every permission, each role allowed to use it.
// There is no hierarchy: a role not listed is denied.
var permissions = map[Permission][]string{
	OrgsRead:           allRoles,
	OrgsWrite:          superOnly,
	OrgsUpdate:         superState,
	UsersRead:          adminRoles,
	UsersWrite:         adminRoles,
	RolesAssign:        superState,
	GroupsRead:         allRoles,
	GroupsWrite:        adminRoles,
	SubscriptionsRead:  allRoles,
	SubscriptionsWrite: adminRoles,
	PaymentsRead:       allRoles,
	PaymentsWrite:      adminRoles,
	EventsRead:         allRoles,
	EventsWrite:        adminRoles,
	EventsRSVP:         allRoles,
	TransactionsRead:   allRoles,
	TransactionsWrite:  adminRoles,
	ReportsRead:        adminRoles,
	BrandingRead:       allRoles,
	BrandingWrite:      adminRoles,
	SettingsRead:       adminRoles,
	SettingsWrite:      adminRoles,
	I18nSelf:           allRoles,
	I18nOrg:            adminRoles,
	AuditRead:          superState,
	TenantsAll:         superOnly,
	RecordsAll:         adminRoles,
}

// AllRoles returns every known role name
func AllRoles() []string {
	return append([]string(nil), allRoles...)
}

// IsKnownRole reports whether name is one of the fixed roles
func IsKnownRole(name string) bool {
	for _, r := range allRoles {
		if r == name {
			return true
		}
	}
	return false
}

// RolesFor returns the allow-list for a permission. Unknown permissions allow nobody.
func RolesFor(p Permission) []string {
	return append([]string(nil), permissions[p]...)
}

// CheckRoles returns ErrForbidden unless held and allowed intersect
func CheckRoles(held, allowed []string) error {
	if HasAnyRole(held, allowed) {
		return nil
	}
	return ErrForbidden
}

// HasAnyRole reports whether any held role is on the allow-list
func HasAnyRole(held, allowed []string) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}
	for _, r := range held {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

// Can reports whether the held roles grant permission p
func Can(held []string, p Permission) bool {
	return HasAnyRole(held, permissions[p])
}

// Check returns ErrForbidden unless the held roles grant permission p
func Check(held []string, p Permission) error {
	return CheckRoles(held, permissions[p])
}
