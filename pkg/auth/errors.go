package auth

import "errors"

var (
	// ErrUnknownType is returned for an unrecognized scheme name.
	ErrUnknownType = errors.New("auth: unknown authentication type")

	// ErrInvalidNonce is returned when a challenge nonce is not valid base64.
	ErrInvalidNonce = errors.New("auth: invalid nonce")

	// ErrInvalidHMACHeader is returned when an x-syncml-hmac value cannot be
	// parsed.
	ErrInvalidHMACHeader = errors.New("auth: invalid x-syncml-hmac header")
)
