package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/pion/logging"

	"github.com/backkem/omadm/pkg/account"
	"github.com/backkem/omadm/pkg/auth"
	"github.com/backkem/omadm/pkg/codec"
	"github.com/backkem/omadm/pkg/mo"
	"github.com/backkem/omadm/pkg/mo/devinfo"
	"github.com/backkem/omadm/pkg/syncml"
	"github.com/backkem/omadm/pkg/ui"
)

// Session is one OMA DM management session.
type Session struct {
	config   Config
	codec    codec.Codec
	registry *mo.Registry
	handler  ui.Handler
	log      logging.LeveledLogger

	state  State
	closed bool

	account   *account.Account
	dirty     bool // account nonces changed
	initiator Initiator
	sessionID string
	devID     string
	serverURI string

	msgID          int
	packets        int
	serverMsgID    string
	peerMaxMsgSize int

	// serverAuth is the device's verdict on the server; clientAuth is the
	// server's verdict on the device.
	serverAuth direction
	clientAuth direction

	pending *Packet
	gen     uint64
	held    bool
	heldGen uint64
}

// direction tracks one direction of authentication.
type direction struct {
	state   auth.State
	code    syncml.StatusCode
	retries int
}

// New creates a session in StateCreated.
func New(config Config) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	c, err := codec.ForEncoding(config.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	factory := config.LoggerFactory
	if factory == nil {
		lf := logging.NewDefaultLoggerFactory()
		lf.DefaultLogLevel = logging.LogLevelDisabled
		factory = lf
	}

	return &Session{
		config:   config,
		codec:    c,
		registry: mo.NewRegistry(),
		log:      factory.NewLogger("session"),
		state:    StateCreated,
	}, nil
}

// AddProvider registers a management object provider. Providers can only
// be added before Start. On success the session owns p and closes it, if it
// implements io.Closer, in Close.
func (s *Session) AddProvider(p mo.Provider) error {
	if s.closed || !s.state.CanRegister() {
		return fmt.Errorf("%w: cannot register providers in state %v", ErrInvalidArgument, s.state)
	}
	if err := s.registry.Register(p); err != nil {
		if errors.Is(err, mo.ErrDuplicateProvider) {
			return fmt.Errorf("%w: %w", ErrDuplicateRegistration, err)
		}
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	s.state = StateRegistrationOpen
	s.log.Debugf("registered provider %s", p.BaseURI())
	return nil
}

// SetUIHandler sets the handler for user interaction alerts. Without one,
// alerts are answered with ui.Default.
func (s *Session) SetUIHandler(h ui.Handler) {
	s.handler = h
}

// Start opens the session with the server whose account id is serverID and
// queues the first packet: the session alert and the device information.
func (s *Session) Start(ctx context.Context, serverID string, initiator Initiator) error {
	if s.closed || !s.state.CanStart() {
		return fmt.Errorf("%w: cannot start in state %v", ErrInvalidArgument, s.state)
	}
	if serverID == "" {
		return fmt.Errorf("%w: empty server id", ErrInvalidArgument)
	}
	if initiator != InitiatorServer && initiator != InitiatorClient {
		return fmt.Errorf("%w: initiator %d", ErrInvalidArgument, int(initiator))
	}

	acc, err := s.config.Accounts.Lookup(ctx, serverID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownServer, serverID)
		}
		return err
	}
	if err := acc.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	if err := s.ensureDevInfo(ctx); err != nil {
		return err
	}
	n, err := s.devInfoLeaf(ctx, devinfo.NodeDevID)
	if err != nil || len(n.Data) == 0 {
		return fmt.Errorf("%w: no device id: %v", ErrInvalidArgument, err)
	}
	devID := string(n.Data)

	s.account = acc.Clone()
	s.initiator = initiator
	s.devID = devID
	s.serverURI = acc.ServerURI
	s.sessionID = s.newSessionID()
	s.clientAuth = direction{state: auth.StatePending}
	s.serverAuth = direction{state: auth.StatePending}
	if acc.ServerAuth.Type == auth.TypeNone {
		s.serverAuth = direction{state: auth.StateAccepted, code: syncml.StatusOK}
	}
	s.state = StateStarted

	s.log.Infof("session %s started with %s (%s initiated)", s.sessionID, serverID, initiator)

	b := s.newBuilder()
	if err := s.appendSetup(ctx, b); err != nil {
		return s.fail(err)
	}
	return s.queue(b)
}

// NextPacket returns a copy of the pending packet. The same packet is
// returned until a reply is processed. The previous copy must be released
// before another is handed out.
func (s *Session) NextPacket() (*Packet, error) {
	if s.closed {
		return nil, fmt.Errorf("%w: session closed", ErrInvalidArgument)
	}
	if s.state.IsTerminal() || s.pending == nil {
		return nil, ErrNoPacket
	}
	if s.held {
		return nil, fmt.Errorf("%w: previous packet not released", ErrInvalidArgument)
	}

	p := s.pending.clone()
	p.owner = s
	p.gen = s.pending.gen
	s.held = true
	s.heldGen = p.gen
	return p, nil
}

// ProcessReply consumes the server's answer to the pending packet. It
// returns nil when a new packet is pending, ErrSessionEnd when the server
// closed the session, or the error that failed the session.
//
// The encoding of the reply is detected from its content. reply.HMAC must
// carry the x-syncml-hmac header when the server authenticates with HMAC.
func (s *Session) ProcessReply(ctx context.Context, reply *Packet) error {
	if s.closed || !s.state.IsActive() {
		return fmt.Errorf("%w: no reply expected in state %v", ErrInvalidArgument, s.state)
	}
	if reply == nil || len(reply.Data) == 0 {
		return fmt.Errorf("%w: empty reply", ErrInvalidArgument)
	}

	s.pending = nil
	s.held = false

	msg, err := replyCodec(reply.Data).Decode(reply.Data)
	if err != nil {
		return s.fail(fmt.Errorf("%w: %w", ErrProtocolDecode, err))
	}
	s.state = StateExchanging
	return s.handleMessage(ctx, msg, reply)
}

// ForceAuthStatus sets both authentication directions as if the given
// codes had been exchanged. It lets recorded server messages be replayed
// without the credentials they were produced with.
func (s *Session) ForceAuthStatus(server, client syncml.StatusCode) error {
	if s.closed || !s.state.IsActive() {
		return fmt.Errorf("%w: session not started", ErrInvalidArgument)
	}
	s.serverAuth = direction{state: s.config.AuthPolicy.Classify(server), code: server}
	s.clientAuth = direction{state: s.config.AuthPolicy.Classify(client), code: client}
	s.log.Debugf("forced auth status server=%v client=%v", server, client)
	return nil
}

// Close ends the session from any state. Nonces learned during the session
// are written back to the account store and the providers are closed.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.pending = nil
	s.held = false

	var errs []error
	if s.account != nil && s.dirty {
		if err := s.config.Accounts.Update(context.Background(), s.account); err != nil {
			errs = append(errs, fmt.Errorf("update account: %w", err))
		}
	}
	if err := s.registry.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.state
}

// ServerAuth returns the device's verdict on the server.
func (s *Session) ServerAuth() auth.State {
	return s.serverAuth.state
}

// ClientAuth returns the server's verdict on the device.
func (s *Session) ClientAuth() auth.State {
	return s.clientAuth.state
}

// SessionID returns the id sent in every header, or "" before Start.
func (s *Session) SessionID() string {
	return s.sessionID
}

// ServerURI returns the address the next packet goes to. It follows the
// server's RespURI.
func (s *Session) ServerURI() string {
	return s.serverURI
}

func (s *Session) fail(err error) error {
	s.state = StateFailed
	s.pending = nil
	s.held = false
	s.log.Warnf("session %s failed: %v", s.sessionID, err)
	return err
}

func (s *Session) newSessionID() string {
	if s.config.SessionID != 0 {
		return strconv.Itoa(int(s.config.SessionID))
	}
	return strconv.Itoa(int(rand.N[uint16](0xFFFF)) + 1)
}

// ensureDevInfo registers the built-in ./DevInfo provider unless a
// registered provider already owns ./DevInfo or serves ./DevInfo/DevId.
func (s *Session) ensureDevInfo(ctx context.Context) error {
	uri := mo.Join(devinfo.BaseURI, devinfo.NodeDevID)
	if p, norm, err := s.registry.Lookup(uri); err == nil {
		if p.BaseURI() == devinfo.BaseURI {
			return nil
		}
		if kind, err := p.IsNode(ctx, norm); err == nil && kind == mo.NodeLeaf {
			return nil
		}
	}

	p, err := devinfo.New(s.config.DeviceInfo)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if err := s.registry.Register(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return nil
}

// devInfoLeaf reads a ./DevInfo leaf from the tree. Leaves the tree does
// not serve come from Config.DeviceInfo.
func (s *Session) devInfoLeaf(ctx context.Context, leaf string) (*mo.Node, error) {
	uri := mo.Join(devinfo.BaseURI, leaf)
	n, err := s.registry.Get(ctx, uri)
	if err == nil {
		return n, nil
	}
	info := s.config.DeviceInfo
	info.ApplyDefaults()
	if v, ok := info.Value(leaf); ok && v != "" {
		return &mo.Node{URI: uri, Format: syncml.FormatChr, Type: "text/plain", Data: []byte(v)}, nil
	}
	return nil, err
}

func replyCodec(data []byte) codec.Codec {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '<' || trimmed[0] == 0xEF) { // markup or a UTF-8 BOM
		return codec.XML{}
	}
	return codec.WBXML{}
}
