package auth

import (
	"fmt"
	"slices"

	"github.com/backkem/omadm/pkg/syncml"
)

// DefaultMaxRetries is the number of consecutive challenge rounds tolerated
// before the authentication is considered rejected.
const DefaultMaxRetries = 3

// State is the progress of one direction of authentication.
type State int

const (
	StateUnset State = iota
	StatePending
	StateAccepted
	StateRejected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnset:
		return "Unset"
	case StatePending:
		return "Pending"
	case StateAccepted:
		return "Accepted"
	case StateRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Policy classifies authentication status codes. Codes in neither list are
// rejections.
type Policy struct {
	Accepted []syncml.StatusCode
	Pending  []syncml.StatusCode
}

// DefaultPolicy accepts 200 and 212 and retries on 401 and 407.
var DefaultPolicy = Policy{
	Accepted: []syncml.StatusCode{syncml.StatusOK, syncml.StatusAuthenticationAccepted},
	Pending:  []syncml.StatusCode{syncml.StatusInvalidCredentials, syncml.StatusMissingCredentials},
}

// Classify maps a status code to a State.
func (p Policy) Classify(code syncml.StatusCode) State {
	switch {
	case slices.Contains(p.Accepted, code):
		return StateAccepted
	case slices.Contains(p.Pending, code):
		return StatePending
	default:
		return StateRejected
	}
}

// IsZero returns true if the policy has no codes at all.
func (p Policy) IsZero() bool {
	return len(p.Accepted) == 0 && len(p.Pending) == 0
}
