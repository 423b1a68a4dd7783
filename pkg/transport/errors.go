package transport

import (
	"errors"
	"fmt"
)

// Transport errors.
var (
	// ErrClosed is returned when Send is called on a closed transport.
	ErrClosed = errors.New("transport: closed")

	// ErrInvalidPacket is returned for a packet without address or data.
	ErrInvalidPacket = errors.New("transport: invalid packet")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("transport: invalid config")

	// ErrSendFailed is returned when the request could not be delivered.
	ErrSendFailed = errors.New("transport: send failed")

	// ErrReplyTooLarge is returned when the reply exceeds MaxReplySize.
	ErrReplyTooLarge = errors.New("transport: reply too large")
)

// StatusError reports a delivery the server answered with a non-success
// HTTP status.
type StatusError struct {
	Code   int
	Status string
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("transport: server answered %s", e.Status)
	}
	return fmt.Sprintf("transport: server answered %d", e.Code)
}
