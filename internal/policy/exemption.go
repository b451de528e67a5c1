// Package policy decides which members the trap never bans.
package policy

import "bantrap/internal/platform"

// IsExempt reports whether a member holding caps is staff: anyone who can
// administer the community or ban members.
func IsExempt(caps platform.Capabilities) bool {
	return caps.Has(platform.CapAdminister) || caps.Has(platform.CapBanMembers)
}
