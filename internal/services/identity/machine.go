// Package identity keeps the per-session authentication state consistent
// with the identity store and runs the admin-grant policy when a session
// becomes authenticated.
package identity

import "github.com/terraconstructs/hrconsole/internal/services/iam"

// State is the authentication state of one client session.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Transition describes what an event did to a Machine.
type Transition struct {
	From, To State
	// Entered is set when the machine entered Authenticated, including a
	// switch to a different principal.
	Entered bool
	// Left is set when the machine fell back to Unauthenticated.
	Left      bool
	Principal *iam.Principal
}

// Machine is the state of one client session. The zero value is
// Unauthenticated. It is not safe for concurrent use.
type Machine struct {
	state     State
	principal *iam.Principal
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Principal returns the authenticated principal, or nil.
func (m *Machine) Principal() *iam.Principal { return m.principal }

// Apply feeds one event to the machine.
func (m *Machine) Apply(ev iam.Event) Transition {
	t := Transition{From: m.state}

	switch ev.Kind {
	case iam.EventSignedIn, iam.EventSessionRestored:
		if ev.Principal == nil || ev.Principal.ID == "" {
			break
		}
		if m.state == Authenticated && m.principal.ID == ev.Principal.ID {
			// same principal, nothing changes
			m.principal = ev.Principal
			break
		}
		m.state = Authenticated
		m.principal = ev.Principal
		t.Entered = true

	case iam.EventSignedOut, iam.EventSessionMissing:
		if m.state == Authenticated {
			t.Left = true
		}
		m.state = Unauthenticated
		m.principal = nil
	}

	t.To = m.state
	t.Principal = m.principal
	return t
}
