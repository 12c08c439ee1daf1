// Package session owns the client's authentication lifecycle: login,
// profile fetch, logout, startup restore and the process-wide reaction to
// rejected tokens.
package session

import "automation-hub/internal/domain"

// Phase is the position of a Store in its lifecycle.
type Phase int

const (
	PhaseAnonymous Phase = iota
	PhaseAuthenticating
	PhaseRestoring
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseRestoring:
		return "restoring"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Loading reports whether the phase is a transition edge.
func (p Phase) Loading() bool {
	return p == PhaseAuthenticating || p == PhaseRestoring
}

// State is an immutable snapshot of a Store.
type State struct {
	Phase           Phase
	Token           string
	User            *domain.UserProfile
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

// IsAdmin reports whether the session belongs to an administrator.
func (s State) IsAdmin() bool {
	return s.User != nil && s.User.IsAdmin
}
