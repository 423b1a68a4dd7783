// Package client drives a DM session end to end: it feeds the engine's
// packets to a transport and the server's replies back to the engine until
// the session ends.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/backkem/omadm/pkg/mo"
	"github.com/backkem/omadm/pkg/session"
	"github.com/backkem/omadm/pkg/syncml"
	"github.com/backkem/omadm/pkg/transport"
	"github.com/backkem/omadm/pkg/ui"
)

var (
	// ErrNoTransport is returned by Run when no transport is configured.
	ErrNoTransport = errors.New("client: no transport configured")

	// ErrAlreadyRun is returned when a client is run a second time.
	ErrAlreadyRun = errors.New("client: already run")
)

// Sender delivers a packet and returns the server's reply.
// *transport.HTTP implements it.
type Sender interface {
	Send(ctx context.Context, pkt *session.Packet) (*transport.Reply, error)
}

// Direction tells which way a traced packet travels.
type Direction int

const (
	Outbound Direction = iota
	Inbound
)

// String returns the direction name.
func (d Direction) String() string {
	if d == Inbound {
		return "Inbound"
	}
	return "Outbound"
}

// Config configures a Client.
type Config struct {
	// Session configures the engine. Its LoggerFactory defaults to the
	// client's.
	Session session.Config

	// Transport delivers packets. Required by Run.
	Transport Sender

	// Providers are registered with the session. The session owns them and
	// closes them when the run ends.
	Providers []mo.Provider

	// UI answers interaction alerts (optional).
	UI ui.Handler

	// Trace is called with every packet sent or received (optional).
	Trace func(dir Direction, pkt *session.Packet)

	// LoggerFactory for creating loggers (optional).
	LoggerFactory logging.LoggerFactory
}

// Client runs one management session. It is single use.
type Client struct {
	config Config
	used   atomic.Bool
	log    logging.LeveledLogger
}

// New creates a client.
func New(config Config) (*Client, error) {
	if config.Session.LoggerFactory == nil {
		config.Session.LoggerFactory = config.LoggerFactory
	}
	if err := config.Session.Validate(); err != nil {
		return nil, err
	}

	c := &Client{config: config}
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("client")
	}
	return c, nil
}

// Run opens a session with serverID and exchanges packets until the
// session ends. It returns nil on a normal end, the transport error (a
// *transport.StatusError for an HTTP failure) or the engine error.
func (c *Client) Run(ctx context.Context, serverID string, initiator session.Initiator) error {
	if c.config.Transport == nil {
		return ErrNoTransport
	}
	s, err := c.open()
	if err != nil {
		return err
	}
	defer c.close(s)

	runID := uuid.NewString()
	if c.log != nil {
		c.log.Infof("run %s: session with %s", runID, serverID)
	}
	if err := s.Start(ctx, serverID, initiator); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		pkt, err := s.NextPacket()
		if err != nil {
			return err
		}
		c.trace(Outbound, pkt)

		reply, err := c.config.Transport.Send(ctx, pkt)
		pkt.Release()
		if err != nil {
			if c.log != nil {
				c.log.Warnf("run %s: %v", runID, err)
			}
			return err
		}

		in := reply.Packet()
		c.trace(Inbound, in)
		err = s.ProcessReply(ctx, in)
		if errors.Is(err, session.ErrSessionEnd) {
			if c.log != nil {
				c.log.Infof("run %s: session ended", runID)
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Replay processes one stored server message as if it answered the first
// packet of a session with serverID, with both directions of
// authentication accepted. It returns the packet the engine answers with.
func (c *Client) Replay(ctx context.Context, serverID string, data []byte) (*session.Packet, error) {
	s, err := c.open()
	if err != nil {
		return nil, err
	}
	defer c.close(s)

	if err := s.Start(ctx, serverID, session.InitiatorClient); err != nil {
		return nil, err
	}
	if err := s.ForceAuthStatus(syncml.StatusAuthenticationAccepted, syncml.StatusAuthenticationAccepted); err != nil {
		return nil, err
	}

	in := &session.Packet{Data: data}
	c.trace(Inbound, in)
	if err := s.ProcessReply(ctx, in); err != nil {
		return nil, err
	}
	pkt, err := s.NextPacket()
	if err != nil {
		return nil, err
	}
	c.trace(Outbound, pkt)
	return pkt, nil
}

func (c *Client) open() (*session.Session, error) {
	if c.used.Swap(true) {
		return nil, ErrAlreadyRun
	}
	s, err := session.New(c.config.Session)
	if err != nil {
		return nil, err
	}
	for _, p := range c.config.Providers {
		if err := s.AddProvider(p); err != nil {
			s.Close()
			return nil, fmt.Errorf("register %s: %w", p.BaseURI(), err)
		}
	}
	if c.config.UI != nil {
		s.SetUIHandler(c.config.UI)
	}
	return s, nil
}

func (c *Client) close(s *session.Session) {
	if err := s.Close(); err != nil && c.log != nil {
		c.log.Warnf("close session: %v", err)
	}
}

func (c *Client) trace(dir Direction, pkt *session.Packet) {
	if c.config.Trace != nil {
		c.config.Trace(dir, pkt)
	}
}
