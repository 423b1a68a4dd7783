package session

// State is the lifecycle state of a Session.
type State int

const (
	// StateCreated is the state after New. The encoding is fixed.
	StateCreated State = iota

	// StateRegistrationOpen means at least one provider was registered and
	// more may be added.
	StateRegistrationOpen

	// StateStarted means Start queued the first packet.
	StateStarted

	// StateExchanging means at least one reply was processed.
	StateExchanging

	// StateTerminated means the session ended normally.
	StateTerminated

	// StateFailed means the session ended on an error.
	StateFailed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateRegistrationOpen:
		return "RegistrationOpen"
	case StateStarted:
		return "Started"
	case StateExchanging:
		return "Exchanging"
	case StateTerminated:
		return "Terminated"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// CanRegister returns true if providers may be added in this state.
func (s State) CanRegister() bool {
	return s == StateCreated || s == StateRegistrationOpen
}

// CanStart returns true if Start can be called in this state.
func (s State) CanStart() bool {
	return s.CanRegister()
}

// IsActive returns true while packets are exchanged.
func (s State) IsActive() bool {
	return s == StateStarted || s == StateExchanging
}

// IsTerminal returns true once the session has ended.
func (s State) IsTerminal() bool {
	return s == StateTerminated || s == StateFailed
}

// Initiator selects the session alert of the first package.
type Initiator int

const (
	// InitiatorServer answers a server notification (alert 1200).
	InitiatorServer Initiator = iota

	// InitiatorClient opens a session on the device's own behalf (alert 1201).
	InitiatorClient
)

// String returns the initiator name.
func (i Initiator) String() string {
	if i == InitiatorServer {
		return "Server"
	}
	return "Client"
}
