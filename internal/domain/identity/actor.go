package identity

import (
	"errors"
	"strings"
)

// Actor is the authenticated principal a request or session acts as
type Actor struct {
	UserID      string       `json:"userId"`
	DisplayName string       `json:"displayName,omitempty"`
	CompanyID   string       `json:"companyId"`
	Role        Role         `json:"role"`
	Permissions Capabilities `json:"permissions,omitempty"`
}

// Validate checks the actor carries enough identity to be scoped to a tenant
func (a Actor) Validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return errors.New("actor user id is required")
	}
	if strings.TrimSpace(a.CompanyID) == "" {
		return errors.New("actor company id is required")
	}
	if !a.Role.IsValid() {
		return errors.New("actor role is not recognised")
	}
	return nil
}

// Can runs the permission gate for this actor
func (a Actor) Can(c Capability) bool {
	return Allowed(a.Role, a.Permissions, c)
}

// CanAny runs AllowedAny for this actor
func (a Actor) CanAny(cs ...Capability) bool {
	return AllowedAny(a.Role, a.Permissions, cs...)
}

// IsPrivileged reports whether the actor is Owner or SuperAdmin
func (a Actor) IsPrivileged() bool {
	return a.Role.IsPrivileged()
}
