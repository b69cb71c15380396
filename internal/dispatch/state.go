package dispatch

// State is a step of the per-request lifecycle.
type State int

const (
	StateReceived State = iota
	StateResolved
	StateAuthenticated
	StateAuthorized
	StateExecuted
	StateResponded
	StateFailed
)

var stateNames = [...]string{
	StateReceived:      "received",
	StateResolved:      "resolved",
	StateAuthenticated: "authenticated",
	StateAuthorized:    "authorized",
	StateExecuted:      "executed",
	StateResponded:     "responded",
	StateFailed:        "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateResponded }

// next reports whether moving from s to to is allowed. Success states advance
// one step at a time; FAILED is reachable from any non-terminal state and
// only leads to RESPONDED.
func (s State) next(to State) bool {
	switch {
	case s.Terminal():
		return false
	case to == StateFailed:
		return s != StateFailed
	case to == StateResponded:
		return s == StateExecuted || s == StateFailed
	case s == StateFailed:
		return false
	default:
		return to == s+1
	}
}
