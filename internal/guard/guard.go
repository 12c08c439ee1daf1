// Package guard decides whether a view may be shown for the current
// session. Decisions are recomputed from session state on every call.
package guard

import "automation-hub/internal/session"

// Access is the protection level of a view.
type Access int

const (
	Public Access = iota
	Authenticated
	AdminOnly
)

// Outcome is what the caller should do with the view.
type Outcome int

const (
	Render Outcome = iota
	Wait
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	default:
		return "render"
	}
}

// Entry points.
const (
	LoginPath   = "/login"
	DefaultPath = "/"
	AdminPath   = "/admin"
)

// Decision is the result of Evaluate. Target is set for Redirect.
type Decision struct {
	Outcome Outcome
	Target  string
}

// Evaluate decides how a view with the given access level is handled.
// A resolving session always waits, so the startup fetch never bounces an
// authenticated user to the login screen.
func Evaluate(st session.State, access Access) Decision {
	if access == Public {
		return Decision{Outcome: Render}
	}
	if st.IsLoading {
		return Decision{Outcome: Wait}
	}
	if !st.IsAuthenticated {
		return Decision{Outcome: Redirect, Target: LoginPath}
	}
	if access == AdminOnly && !st.IsAdmin() {
		return Decision{Outcome: Redirect, Target: DefaultPath}
	}
	return Decision{Outcome: Render}
}

// Routes maps view paths to their access level.
var Routes = map[string]Access{
	LoginPath:   Public,
	DefaultPath: Authenticated,
	AdminPath:   AdminOnly,
}

// ForPath evaluates the route at path. Unknown paths fall back to the
// default view's protection.
func ForPath(st session.State, path string) Decision {
	access, ok := Routes[path]
	if !ok {
		access = Authenticated
	}
	return Evaluate(st, access)
}
