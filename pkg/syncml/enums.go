// Package syncml implements the OMA DM 1.2 representation of SyncML messages.
//
// A SyncML message is a header (SyncHdr) followed by an ordered list of
// commands (SyncBody). This package only models the message; turning it into
// XML or WBXML bytes is the job of pkg/codec.
//
// Spec References:
//   - OMA-TS-DM_RepPro-V1_2: Representation Protocol
//   - OMA-TS-DM_Protocol-V1_2: Protocol, Section 8 (packages) and 10 (status codes)
package syncml

import (
	"fmt"
	"strconv"
)

// Protocol identification used in every SyncHdr.
const (
	VerDTD   = "1.2"
	VerProto = "DM/1.2"
)

// XML namespaces.
const (
	NamespaceSyncML = "SYNCML:SYNCML1.2"
	NamespaceMetInf = "syncml:metinf"
)

// Meta formats (MetInf Format element).
const (
	FormatB64   = "b64"
	FormatBin   = "bin"
	FormatBool  = "bool"
	FormatChr   = "chr"
	FormatInt   = "int"
	FormatNode  = "node"
	FormatNull  = "null"
	FormatXML   = "xml"
	FormatFloat = "float"
	FormatDate  = "date"
	FormatTime  = "time"
)

// Authentication types carried in Cred and Chal Meta/Type.
const (
	AuthTypeBasic = "syncml:auth-basic"
	AuthTypeMD5   = "syncml:auth-md5"
	AuthTypeHMAC  = "syncml:auth-MAC"
)

// Element names of the commands that may appear in a SyncBody.
const (
	CmdAdd      = "Add"
	CmdAlert    = "Alert"
	CmdAtomic   = "Atomic"
	CmdCopy     = "Copy"
	CmdDelete   = "Delete"
	CmdExec     = "Exec"
	CmdGet      = "Get"
	CmdReplace  = "Replace"
	CmdResults  = "Results"
	CmdSequence = "Sequence"
	CmdStatus   = "Status"
	CmdSyncHdr  = "SyncHdr"
)

// StatusCode is a SyncML response status code.
// See OMA-TS-DM_Protocol-V1_2 Section 10.
type StatusCode int

// Status codes used by the DM client.
const (
	StatusOK                     StatusCode = 200
	StatusAccepted               StatusCode = 202
	StatusAuthenticationAccepted StatusCode = 212
	StatusOperationCancelled     StatusCode = 214
	StatusNotExecuted            StatusCode = 215
	StatusAtomicRollbackOK       StatusCode = 216
	StatusNotModified            StatusCode = 304
	StatusBadRequest             StatusCode = 400
	StatusInvalidCredentials     StatusCode = 401
	StatusForbidden              StatusCode = 403
	StatusNotFound               StatusCode = 404
	StatusCommandNotAllowed      StatusCode = 405
	StatusOptionalNotSupported   StatusCode = 406
	StatusMissingCredentials     StatusCode = 407
	StatusIncompleteCommand      StatusCode = 412
	StatusRequestTooBig          StatusCode = 413
	StatusURITooLong             StatusCode = 414
	StatusUnsupportedMediaType   StatusCode = 415
	StatusAlreadyExists          StatusCode = 418
	StatusPermissionDenied       StatusCode = 425
	StatusCommandFailed          StatusCode = 500
	StatusNotImplemented         StatusCode = 501
	StatusServiceUnavailable     StatusCode = 503
	StatusProcessingError        StatusCode = 506
	StatusAtomicFailed           StatusCode = 507
	StatusAtomicRollbackFailed   StatusCode = 516
)

// ParseStatusCode parses the Data of a Status command.
func ParseStatusCode(s string) (StatusCode, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	if v < 100 || v > 599 {
		return 0, fmt.Errorf("%w: %d out of range", ErrInvalidStatus, v)
	}
	return StatusCode(v), nil
}

// String returns the numeric form used on the wire.
func (c StatusCode) String() string {
	return strconv.Itoa(int(c))
}

// IsSuccess returns true for 2xx codes.
func (c StatusCode) IsSuccess() bool {
	return c >= 200 && c < 300
}

// AlertCode identifies the kind of an Alert command.
type AlertCode int

// Alert codes used by OMA DM.
const (
	AlertDisplay         AlertCode = 1100
	AlertConfirm         AlertCode = 1101
	AlertUserInput       AlertCode = 1102
	AlertUserChoice      AlertCode = 1103
	AlertUserMultiChoice AlertCode = 1104
	AlertServerInitiated AlertCode = 1200
	AlertClientInitiated AlertCode = 1201
	AlertNextMessage     AlertCode = 1222
	AlertSessionAbort    AlertCode = 1223
	AlertClientEvent     AlertCode = 1224
	AlertNoEndOfData     AlertCode = 1225
	AlertGeneric         AlertCode = 1226
)

// ParseAlertCode parses the Data of an Alert command.
func ParseAlertCode(s string) (AlertCode, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAlert, s)
	}
	return AlertCode(v), nil
}

// String returns a human-readable name for the alert code.
func (a AlertCode) String() string {
	switch a {
	case AlertDisplay:
		return "Display"
	case AlertConfirm:
		return "Confirm"
	case AlertUserInput:
		return "UserInput"
	case AlertUserChoice:
		return "UserChoice"
	case AlertUserMultiChoice:
		return "UserMultiChoice"
	case AlertServerInitiated:
		return "ServerInitiatedMgmt"
	case AlertClientInitiated:
		return "ClientInitiatedMgmt"
	case AlertNextMessage:
		return "NextMessage"
	case AlertSessionAbort:
		return "SessionAbort"
	case AlertClientEvent:
		return "ClientEvent"
	case AlertNoEndOfData:
		return "NoEndOfData"
	case AlertGeneric:
		return "Generic"
	default:
		return fmt.Sprintf("Alert(%d)", int(a))
	}
}

// IsUserInteraction returns true for the 1100-1104 range.
func (a AlertCode) IsUserInteraction() bool {
	return a >= AlertDisplay && a <= AlertUserMultiChoice
}
