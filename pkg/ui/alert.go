// Package ui carries server initiated user interaction alerts to a handler
// and turns the handler's answer into the status reported to the server.
//
// The session engine calls the handler synchronously, once per alert and in
// the order the alerts were received. Without a handler a fixed default
// policy answers every alert without blocking.
package ui

import (
	"fmt"
	"time"

	"github.com/backkem/omadm/pkg/syncml"
)

// Type is the kind of interaction requested.
type Type int

const (
	TypeDisplay Type = iota
	TypeConfirm
	TypeUserInput
	TypeUserChoice
	TypeUserMultiChoice
)

// TypeFromAlert maps a user interaction alert code to its Type.
func TypeFromAlert(code syncml.AlertCode) (Type, bool) {
	if !code.IsUserInteraction() {
		return 0, false
	}
	return Type(code - syncml.AlertDisplay), true
}

// AlertCode returns the alert code of the interaction type.
func (t Type) AlertCode() syncml.AlertCode {
	return syncml.AlertDisplay + syncml.AlertCode(t)
}

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeDisplay:
		return "Display"
	case TypeConfirm:
		return "Confirm"
	case TypeUserInput:
		return "UserInput"
	case TypeUserChoice:
		return "UserChoice"
	case TypeUserMultiChoice:
		return "UserMultiChoice"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// IsValid returns true for known types.
func (t Type) IsValid() bool {
	return t >= TypeDisplay && t <= TypeUserMultiChoice
}

// IsChoice returns true for single and multiple choice alerts.
func (t Type) IsChoice() bool {
	return t == TypeUserChoice || t == TypeUserMultiChoice
}

// InputType restricts what a UserInput alert accepts (IT option).
type InputType int

const (
	InputAlphanumeric InputType = iota
	InputNumeric
	InputDate
	InputTime
	InputPhone
	InputIP
)

// String returns the input type name.
func (i InputType) String() string {
	switch i {
	case InputAlphanumeric:
		return "Alphanumeric"
	case InputNumeric:
		return "Numeric"
	case InputDate:
		return "Date"
	case InputTime:
		return "Time"
	case InputPhone:
		return "Phone"
	case InputIP:
		return "IP"
	default:
		return fmt.Sprintf("InputType(%d)", int(i))
	}
}

// EchoType tells whether typed input may be shown (ET option).
type EchoType int

const (
	EchoText EchoType = iota
	EchoPassword
)

// String returns the echo type name.
func (e EchoType) String() string {
	if e == EchoPassword {
		return "Password"
	}
	return "Text"
}

// Alert is one interaction request.
type Alert struct {
	Type Type

	MinDisplayTime time.Duration
	MaxDisplayTime time.Duration

	// MaxResponseLength limits the reply in characters. Zero means no limit.
	MaxResponseLength int

	InputType InputType
	EchoType  EchoType

	DisplayMessage  string
	DefaultResponse string

	// Choices holds the options of choice alerts, numbered from 1.
	Choices []string
}

// Response is the handler's answer.
type Response struct {
	// Status is the code reported for the alert. Zero means 200.
	Status syncml.StatusCode

	// Reply is the user's text for input alerts, or the selected choice
	// numbers for choice alerts, separated by '-' when several.
	Reply string
}
