package model

import "fmt"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleOwner    Role = "owner"
	RoleManager  Role = "manager"
	RoleStaff    Role = "staff"
	RoleCourier  Role = "courier"
)

type Capability string

const (
	CapSessionsReadOwn      Capability = "sessions:read_own"
	CapSessionsRevokeOwn    Capability = "sessions:revoke_own"
	CapSessionsRevokeTenant Capability = "sessions:revoke_tenant"
	CapOrdersPlace          Capability = "orders:place"
	CapOrdersManage         Capability = "orders:manage"
	CapOrdersDeliver        Capability = "orders:deliver"
	CapMenuManage           Capability = "menu:manage"
	CapStaffManage          Capability = "staff:manage"
	CapAnalyticsRead        Capability = "analytics:read"
)

var roleCapabilities = map[Role][]Capability{
	RoleCustomer: {CapSessionsReadOwn, CapSessionsRevokeOwn, CapOrdersPlace},
	RoleOwner: {
		CapSessionsReadOwn, CapSessionsRevokeOwn, CapSessionsRevokeTenant,
		CapOrdersManage, CapMenuManage, CapStaffManage, CapAnalyticsRead,
	},
	RoleManager: {
		CapSessionsReadOwn, CapSessionsRevokeOwn, CapSessionsRevokeTenant,
		CapOrdersManage, CapMenuManage, CapAnalyticsRead,
	},
	RoleStaff:   {CapSessionsReadOwn, CapSessionsRevokeOwn, CapOrdersManage},
	RoleCourier: {CapSessionsReadOwn, CapSessionsRevokeOwn, CapOrdersDeliver},
}

func ParseRole(value string) (Role, error) {
	role := Role(value)
	if _, ok := roleCapabilities[role]; !ok {
		return "", fmt.Errorf("%w: неизвестная роль %q", ErrValidation, value)
	}
	return role, nil
}

func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

func (r Role) Can(capability Capability) bool {
	for _, c := range roleCapabilities[r] {
		if c == capability {
			return true
		}
	}
	return false
}

// Capabilities : копия набора, вызывающий может ее менять
func (r Role) Capabilities() []Capability {
	return append([]Capability(nil), roleCapabilities[r]...)
}
