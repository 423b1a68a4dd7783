package mo

import (
	"errors"

	"github.com/backkem/omadm/pkg/syncml"
)

// Errors returned by providers and the registry.
var (
	// ErrNotFound indicates no node exists at the URI.
	ErrNotFound = errors.New("mo: node not found")

	// ErrNotAllowed indicates the command is not allowed on the node.
	ErrNotAllowed = errors.New("mo: command not allowed")

	// ErrAlreadyExists indicates an Add targeted an existing node.
	ErrAlreadyExists = errors.New("mo: node already exists")

	// ErrUnsupported indicates an optional feature the provider lacks.
	ErrUnsupported = errors.New("mo: optional feature not supported")

	// ErrInvalidURI indicates a malformed node URI.
	ErrInvalidURI = errors.New("mo: invalid URI")

	// ErrPermissionDenied indicates the node's access rights forbid the command.
	ErrPermissionDenied = errors.New("mo: permission denied")

	// ErrInvalidProvider is returned when registering a nil provider or one
	// without a base URI.
	ErrInvalidProvider = errors.New("mo: invalid provider")

	// ErrDuplicateProvider is returned when a provider with the same base
	// URI is already registered.
	ErrDuplicateProvider = errors.New("mo: duplicate provider base URI")
)

// ErrorToStatus maps a provider error to the status reported to the server.
func ErrorToStatus(err error) syncml.StatusCode {
	if err == nil {
		return syncml.StatusOK
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return syncml.StatusNotFound
	case errors.Is(err, ErrNotAllowed):
		return syncml.StatusCommandNotAllowed
	case errors.Is(err, ErrAlreadyExists):
		return syncml.StatusAlreadyExists
	case errors.Is(err, ErrUnsupported):
		return syncml.StatusOptionalNotSupported
	case errors.Is(err, ErrInvalidURI):
		return syncml.StatusBadRequest
	case errors.Is(err, ErrPermissionDenied):
		return syncml.StatusPermissionDenied
	default:
		return syncml.StatusCommandFailed
	}
}

// StatusToError maps a status code back to a provider error.
func StatusToError(status syncml.StatusCode) error {
	switch status {
	case syncml.StatusOK, syncml.StatusAccepted:
		return nil
	case syncml.StatusNotFound:
		return ErrNotFound
	case syncml.StatusCommandNotAllowed:
		return ErrNotAllowed
	case syncml.StatusAlreadyExists:
		return ErrAlreadyExists
	case syncml.StatusOptionalNotSupported:
		return ErrUnsupported
	case syncml.StatusBadRequest, syncml.StatusURITooLong:
		return ErrInvalidURI
	case syncml.StatusPermissionDenied:
		return ErrPermissionDenied
	default:
		return errors.New("mo: command failed with status " + status.String())
	}
}
