// Package transport delivers session packets to a DM server over HTTP.
//
// The session engine performs no I/O. A transport posts each packet to the
// address the engine chose, with the content type of the packet's encoding
// and the HMAC header when the account uses HMAC authentication, and hands
// the body of the answer back as a Reply.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pion/logging"

	"github.com/backkem/omadm/pkg/auth"
	"github.com/backkem/omadm/pkg/codec"
	"github.com/backkem/omadm/pkg/session"
)

// Defaults for unset Config fields.
const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxReplySize = 64 * 1024
	DefaultUserAgent    = "omadm-client/1.0"
)

// Config configures an HTTP transport.
type Config struct {
	// Timeout bounds one request and its reply (default: DefaultTimeout).
	Timeout time.Duration

	// MaxReplySize bounds the reply body in bytes
	// (default: DefaultMaxReplySize).
	MaxReplySize int64

	// UserAgent is sent with every request (default: DefaultUserAgent).
	UserAgent string

	// Client overrides the HTTP client, e.g. for custom TLS settings.
	// Optional. A client passed here is not closed by Close.
	Client *http.Client

	// LoggerFactory for creating loggers (optional).
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	if c.MaxReplySize < 0 {
		return fmt.Errorf("%w: negative reply size", ErrInvalidConfig)
	}
	return nil
}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxReplySize == 0 {
		c.MaxReplySize = DefaultMaxReplySize
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
}

// Reply is the server's answer to one packet.
type Reply struct {
	ContentType string
	HMAC        string
	Body        []byte
}

// Packet wraps the reply for session.ProcessReply.
func (r *Reply) Packet() *session.Packet {
	p := &session.Packet{Data: r.Body, HMAC: r.HMAC}
	if c, err := codec.ForContentType(r.ContentType); err == nil {
		p.Encoding = c.Encoding()
	}
	return p
}

// HTTP posts packets to the server. It is safe for concurrent use.
type HTTP struct {
	config Config
	client *http.Client
	owned  bool
	closed atomic.Bool
	log    logging.LeveledLogger
}

// New creates an HTTP transport.
func New(config Config) (*HTTP, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	h := &HTTP{
		config: config,
		client: config.Client,
	}
	if h.client == nil {
		h.client = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
		h.owned = true
	}
	if config.LoggerFactory != nil {
		h.log = config.LoggerFactory.NewLogger("transport")
	}
	return h, nil
}

// Send posts pkt and returns the server's reply. A non-200 answer is
// returned as *StatusError.
func (h *HTTP) Send(ctx context.Context, pkt *session.Packet) (*Reply, error) {
	if h.closed.Load() {
		return nil, ErrClosed
	}
	if pkt == nil || pkt.URI == "" || len(pkt.Data) == 0 {
		return nil, ErrInvalidPacket
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pkt.URI, bytes.NewReader(pkt.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPacket, err)
	}
	req.Header.Set("Content-Type", pkt.ContentType())
	req.Header.Set("Accept", pkt.ContentType())
	req.Header.Set("User-Agent", h.config.UserAgent)
	if pkt.HMAC != "" {
		req.Header.Set(auth.HMACHeader, pkt.HMAC)
	}

	if h.log != nil {
		h.log.Debugf("POST %s (%d bytes)", pkt.URI, len(pkt.Data))
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, h.config.MaxReplySize))
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.config.MaxReplySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	if int64(len(body)) > h.config.MaxReplySize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrReplyTooLarge, h.config.MaxReplySize)
	}

	if h.log != nil {
		h.log.Debugf("reply %s (%d bytes)", resp.Header.Get("Content-Type"), len(body))
	}
	return &Reply{
		ContentType: resp.Header.Get("Content-Type"),
		HMAC:        resp.Header.Get(auth.HMACHeader),
		Body:        body,
	}, nil
}

// Close releases idle connections. Send fails with ErrClosed afterwards.
func (h *HTTP) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	if h.owned {
		h.client.CloseIdleConnections()
	}
	return nil
}
