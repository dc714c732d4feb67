package models

import "sort"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleDispatcher Role = "dispatcher" // affecteur
	RoleWarehouse  Role = "warehouse"  // magasinier
	RoleConsultant Role = "consultant"
)

type Permission string

const (
	PermCatalogRead      Permission = "catalog:read"
	PermCatalogWrite     Permission = "catalog:write"
	PermEmployeeRead     Permission = "employee:read"
	PermEmployeeWrite    Permission = "employee:write"
	PermStockRead        Permission = "stock:read"
	PermStockWrite       Permission = "stock:write"
	PermAssignmentRead   Permission = "assignment:read"
	PermAssignmentWrite  Permission = "assignment:write"
	PermAttributionRead  Permission = "attribution:read"
	PermAttributionWrite Permission = "attribution:write"
	PermSheetGenerate    Permission = "sheet:generate"
	PermNotificationSend Permission = "notification:send"
	PermUserManage       Permission = "user:manage"
	PermAuditRead        Permission = "audit:read"
	PermAuditUndo        Permission = "audit:undo"
	PermDashboardRead    Permission = "dashboard:read"
)

type permissionSet map[Permission]struct{}

func newSet(perms ...Permission) permissionSet {
	s := make(permissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

var readOnly = []Permission{
	PermCatalogRead, PermEmployeeRead, PermStockRead, PermAssignmentRead,
	PermAttributionRead, PermDashboardRead,
}

var rolePermissions = map[Role]permissionSet{
	RoleAdmin: newSet(append([]Permission{
		PermCatalogWrite, PermEmployeeWrite, PermStockWrite, PermAssignmentWrite,
		PermAttributionWrite, PermSheetGenerate, PermNotificationSend, PermUserManage,
		PermAuditRead, PermAuditUndo,
	}, readOnly...)...),
	RoleDispatcher: newSet(append([]Permission{PermAssignmentWrite}, readOnly...)...),
	RoleWarehouse: newSet(append([]Permission{
		PermStockWrite, PermAttributionWrite, PermSheetGenerate,
	}, readOnly...)...),
	RoleConsultant: newSet(readOnly...),
}

// NotifiedRoles receive attribution and critical stock notifications.
var NotifiedRoles = []Role{RoleAdmin, RoleWarehouse}

func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

func (r Role) Can(p Permission) bool {
	_, ok := rolePermissions[r][p]
	return ok
}

// Permissions returns the role's capability set in a stable order.
func (r Role) Permissions() []Permission {
	set := rolePermissions[r]
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
