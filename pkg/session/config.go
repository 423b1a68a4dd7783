package session

import (
	"fmt"

	"github.com/pion/logging"

	"github.com/backkem/omadm/pkg/account"
	"github.com/backkem/omadm/pkg/auth"
	"github.com/backkem/omadm/pkg/codec"
	"github.com/backkem/omadm/pkg/mo/devinfo"
)

// Defaults for unset Config fields.
const (
	DefaultMaxMsgSize = 16 * 1024
	DefaultMaxPackets = 64
)

// Config configures a Session.
type Config struct {
	// Encoding of outbound packets. It cannot change after New.
	Encoding codec.Encoding

	// Accounts resolves the server id given to Start. Required.
	Accounts account.Store

	// DeviceInfo feeds the ./DevInfo subtree when no provider for it was
	// registered. DevID is required in that case.
	DeviceInfo devinfo.Info

	// SessionID is sent in every header. Zero picks a random id.
	SessionID uint16

	// MaxMsgSize is announced to the server (default: DefaultMaxMsgSize).
	MaxMsgSize int

	// MaxPackets bounds the number of packets one session may produce
	// (default: DefaultMaxPackets).
	MaxPackets int

	// MaxAuthRetries bounds consecutive challenge rounds in each direction
	// (default: auth.DefaultMaxRetries).
	MaxAuthRetries int

	// AuthPolicy classifies authentication status codes
	// (default: auth.DefaultPolicy).
	AuthPolicy auth.Policy

	// LoggerFactory for creating loggers (optional).
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if !c.Encoding.IsValid() {
		return fmt.Errorf("%w: encoding %v", ErrInvalidArgument, c.Encoding)
	}
	if c.Accounts == nil {
		return fmt.Errorf("%w: account store is required", ErrInvalidArgument)
	}
	if c.MaxMsgSize < 0 || c.MaxPackets < 0 || c.MaxAuthRetries < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidArgument)
	}
	return nil
}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.MaxMsgSize == 0 {
		c.MaxMsgSize = DefaultMaxMsgSize
	}
	if c.MaxPackets == 0 {
		c.MaxPackets = DefaultMaxPackets
	}
	if c.MaxAuthRetries == 0 {
		c.MaxAuthRetries = auth.DefaultMaxRetries
	}
	if c.AuthPolicy.IsZero() {
		c.AuthPolicy = auth.DefaultPolicy
	}
}
