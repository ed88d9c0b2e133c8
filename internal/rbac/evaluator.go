package rbac

// HasPermission reports whether perms contains an entry matching resource and
// action exactly. Matching is case-sensitive with no wildcards.
func HasPermission(perms []Permission, resource, action string) bool {
	for _, p := range perms {
		if p.Resource == resource && p.Action == action {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether at least one check is satisfied. An empty
// check list is never satisfied.
func HasAnyPermission(perms []Permission, checks []Check) bool {
	for _, c := range checks {
		if HasPermission(perms, c.Resource, c.Action) {
			return true
		}
	}
	return false
}

// Satisfies is HasPermission for a Check.
func Satisfies(perms []Permission, c Check) bool {
	return HasPermission(perms, c.Resource, c.Action)
}
