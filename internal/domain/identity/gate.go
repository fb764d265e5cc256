package identity

// Allowed is the permission gate. Owner and SuperAdmin always pass; any other
// known role passes only if the capability was granted explicitly.
func Allowed(role Role, perms Capabilities, capability Capability) bool {
	if !role.IsValid() {
		return false
	}
	if role.IsPrivileged() {
		return true
	}
	return perms.Has(capability)
}

// AllowedAny passes if any of the capabilities is allowed
func AllowedAny(role Role, perms Capabilities, capabilities ...Capability) bool {
	if role.IsPrivileged() {
		return true
	}
	for _, c := range capabilities {
		if Allowed(role, perms, c) {
			return true
		}
	}
	return false
}
