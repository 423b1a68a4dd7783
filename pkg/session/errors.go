package session

import (
	"errors"
	"fmt"
)

// Session errors. ErrSessionEnd is the success signal of ProcessReply.
var (
	// ErrInvalidArgument is returned for a call that is not valid in the
	// current state or with the given arguments.
	ErrInvalidArgument = errors.New("session: invalid argument")

	// ErrDuplicateRegistration is returned when a provider's base URI is
	// already registered.
	ErrDuplicateRegistration = errors.New("session: duplicate registration")

	// ErrAuthenticationRejected is returned when either side rejected the
	// other's credentials.
	ErrAuthenticationRejected = errors.New("session: authentication rejected")

	// ErrProtocolDecode is returned when a reply cannot be decoded.
	ErrProtocolDecode = errors.New("session: protocol decode failure")

	// ErrAddressNotFound reports a command whose target has no provider. It
	// is reported to the server as a status, never returned by ProcessReply.
	ErrAddressNotFound = errors.New("session: address not found")

	// ErrSessionEnd is returned by ProcessReply when the server ended the
	// session normally.
	ErrSessionEnd = errors.New("session: end of session")

	// ErrSessionAborted is returned when the server aborts the session.
	ErrSessionAborted = errors.New("session: aborted by server")

	// ErrResourceExhausted is returned when the session exceeds its packet
	// or message size limits.
	ErrResourceExhausted = errors.New("session: resource exhausted")

	// ErrNoPacket is returned by NextPacket when nothing is pending.
	ErrNoPacket = errors.New("session: no packet pending")

	// ErrUnknownServer is returned by Start when no account matches.
	ErrUnknownServer = errors.New("session: unknown server")
)

// Result is the closed set of outcomes reported to callers that need a
// number, such as the exit code of a command line tool.
type Result int

const (
	ResultNone Result = iota
	ResultEnd
	ResultInternal
	ResultResourceExhausted
	ResultInvalidArgument
	ResultDuplicateRegistration
	ResultAuthenticationRejected
	ResultProtocolDecode
	ResultAddressNotFound
	ResultSessionAborted
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case ResultNone:
		return "None"
	case ResultEnd:
		return "End"
	case ResultInternal:
		return "Internal"
	case ResultResourceExhausted:
		return "ResourceExhausted"
	case ResultInvalidArgument:
		return "InvalidArgument"
	case ResultDuplicateRegistration:
		return "DuplicateRegistration"
	case ResultAuthenticationRejected:
		return "AuthenticationRejected"
	case ResultProtocolDecode:
		return "ProtocolDecode"
	case ResultAddressNotFound:
		return "AddressNotFound"
	case ResultSessionAborted:
		return "SessionAborted"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// ResultOf maps an error returned by this package to a Result.
func ResultOf(err error) Result {
	if err == nil {
		return ResultNone
	}

	switch {
	case errors.Is(err, ErrSessionEnd):
		return ResultEnd
	case errors.Is(err, ErrResourceExhausted):
		return ResultResourceExhausted
	case errors.Is(err, ErrDuplicateRegistration):
		return ResultDuplicateRegistration
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrNoPacket), errors.Is(err, ErrUnknownServer):
		return ResultInvalidArgument
	case errors.Is(err, ErrAuthenticationRejected):
		return ResultAuthenticationRejected
	case errors.Is(err, ErrProtocolDecode):
		return ResultProtocolDecode
	case errors.Is(err, ErrAddressNotFound):
		return ResultAddressNotFound
	case errors.Is(err, ErrSessionAborted):
		return ResultSessionAborted
	default:
		return ResultInternal
	}
}
