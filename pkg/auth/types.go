// Package auth implements OMA DM credentials: basic, MD5 digest and the
// HMAC transport header, plus the table that classifies authentication
// status codes.
//
// Spec References:
//   - OMA-TS-DM_Security-V1_2: Section 5 (authentication)
package auth

import (
	"fmt"
	"strings"

	"github.com/backkem/omadm/pkg/syncml"
)

// Type is an authentication scheme.
type Type int

const (
	TypeNone Type = iota
	TypeBasic
	TypeDigest
	TypeHMAC
)

// String returns the configuration name of the scheme.
func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeBasic:
		return "basic"
	case TypeDigest:
		return "digest"
	case TypeHMAC:
		return "hmac"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// IsValid returns true for known schemes.
func (t Type) IsValid() bool {
	return t >= TypeNone && t <= TypeHMAC
}

// SyncML returns the Meta/Type string of the scheme, or "" for TypeNone.
func (t Type) SyncML() string {
	switch t {
	case TypeBasic:
		return syncml.AuthTypeBasic
	case TypeDigest:
		return syncml.AuthTypeMD5
	case TypeHMAC:
		return syncml.AuthTypeHMAC
	default:
		return ""
	}
}

// ParseType accepts configuration names ("basic", "digest", "md5", "hmac",
// "none") as well as the SyncML type strings.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return TypeNone, nil
	case "basic", strings.ToLower(syncml.AuthTypeBasic):
		return TypeBasic, nil
	case "digest", "md5", strings.ToLower(syncml.AuthTypeMD5):
		return TypeDigest, nil
	case "hmac", "mac", strings.ToLower(syncml.AuthTypeHMAC):
		return TypeHMAC, nil
	default:
		return TypeNone, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}
