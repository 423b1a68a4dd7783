package syncml

import "errors"

// SyncML model errors.
var (
	// ErrInvalidStatus is returned when a Status Data is not a status code.
	ErrInvalidStatus = errors.New("syncml: invalid status code")

	// ErrInvalidAlert is returned when an Alert Data is not an alert code.
	ErrInvalidAlert = errors.New("syncml: invalid alert code")

	// ErrUnexpectedElement is returned when a body contains something other
	// than commands and Final.
	ErrUnexpectedElement = errors.New("syncml: unexpected element")
)
