package rbac

// Redirect targets used by the guards.
const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// Outcome enumerates guard results.
type Outcome int

const (
	// Allow lets the request through to the page.
	Allow Outcome = iota
	// Redirect sends the browser to Decision.Target.
	Redirect
)

// Decision is the result of evaluating a guard. The HTTP layer interprets it.
type Decision struct {
	Outcome Outcome
	Target  string
}

// Allowed returns an Allow decision.
func Allowed() Decision {
	return Decision{Outcome: Allow}
}

// RedirectTo returns a Redirect decision.
func RedirectTo(target string) Decision {
	return Decision{Outcome: Redirect, Target: target}
}

// Allowed reports whether the decision lets the request through.
func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// Authenticated requires a signed-in principal.
func Authenticated(p Principal) Decision {
	if p == nil || !p.IsAuthenticated() {
		return RedirectTo(LoginPath)
	}
	return Allowed()
}

// Authorize requires a signed-in principal holding the given permission.
func Authorize(p Principal, c Check) Decision {
	if d := Authenticated(p); !d.Allowed() {
		return d
	}
	if !Satisfies(p.Grants(), c) {
		return RedirectTo(UnauthorizedPath)
	}
	return Allowed()
}

// AuthorizeAny requires a signed-in principal holding at least one of checks.
func AuthorizeAny(p Principal, checks ...Check) Decision {
	if d := Authenticated(p); !d.Allowed() {
		return d
	}
	if !HasAnyPermission(p.Grants(), checks) {
		return RedirectTo(UnauthorizedPath)
	}
	return Allowed()
}
