package ui

import "errors"

var (
	// ErrNotInteraction is returned when parsing an alert whose code is not
	// in the user interaction range.
	ErrNotInteraction = errors.New("ui: not a user interaction alert")

	// ErrMissingMessage is returned when an alert carries no items.
	ErrMissingMessage = errors.New("ui: alert has no display message")
)
