package identity

import (
	"fmt"
	"strings"
)

// Role is the closed set of actor roles. Anything outside the set is denied
// by the permission gate.
type Role string

const (
	RoleOwner      Role = "Owner"
	RoleSuperAdmin Role = "SuperAdmin"
	RoleEmployee   Role = "Employee"
	RoleClient     Role = "Client"
)

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is one of the known roles
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleSuperAdmin, RoleEmployee, RoleClient:
		return true
	}
	return false
}

// IsPrivileged reports whether the role implicitly holds every capability
// and may clear pending approvals.
func (r Role) IsPrivileged() bool {
	return r == RoleOwner || r == RoleSuperAdmin
}

// ParseRole resolves a role name case-insensitively
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "owner":
		return RoleOwner, nil
	case "superadmin", "super_admin":
		return RoleSuperAdmin, nil
	case "employee":
		return RoleEmployee, nil
	case "client":
		return RoleClient, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Capability names one delegable permission
type Capability string

const (
	CapManageInvoices  Capability = "manage_invoices"
	CapManageLPO       Capability = "manage_lpo"
	CapManageProposals Capability = "manage_proposals"
	CapManageFinance   Capability = "manage_finance"
	CapRecordPayments  Capability = "record_payments"
	CapDeleteDocuments Capability = "delete_documents"
	CapViewFinance     Capability = "view_finance"
)

// Capabilities is an actor's explicit capability grant
type Capabilities []Capability

// Has reports whether the set contains c
func (cs Capabilities) Has(c Capability) bool {
	for _, held := range cs {
		if held == c {
			return true
		}
	}
	return false
}

// ParseCapabilities converts raw permission strings, as carried in tokens
func ParseCapabilities(raw []string) Capabilities {
	caps := make(Capabilities, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			caps = append(caps, Capability(r))
		}
	}
	return caps
}

// Strings returns the raw capability names
func (cs Capabilities) Strings() []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}
