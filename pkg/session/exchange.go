package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/backkem/omadm/pkg/auth"
	"github.com/backkem/omadm/pkg/syncml"
)

// handleMessage processes one decoded server message and queues the answer.
func (s *Session) handleMessage(ctx context.Context, msg *syncml.Message, reply *Packet) error {
	hdr := &msg.Hdr
	s.serverMsgID = hdr.MsgID
	if hdr.SessionID != s.sessionID {
		s.log.Warnf("server answered session %q, expected %q", hdr.SessionID, s.sessionID)
	}
	if hdr.RespURI != "" {
		s.serverURI = hdr.RespURI
	}
	if hdr.Meta != nil && hdr.Meta.MaxMsgSize != "" {
		if n, err := strconv.Atoi(string(hdr.Meta.MaxMsgSize)); err == nil && n > 0 {
			s.peerMaxMsgSize = n
		}
	}

	challenged := s.applyHeaderStatus(msg.Body.Commands)
	hdrStatus := s.verifyServer(hdr, reply)

	if s.clientAuth.state == auth.StateRejected {
		return s.fail(fmt.Errorf("%w: server answered %v", ErrAuthenticationRejected, s.clientAuth.code))
	}
	if s.serverAuth.state == auth.StateRejected {
		return s.fail(fmt.Errorf("%w: server credentials refused %d times", ErrAuthenticationRejected, s.serverAuth.retries))
	}

	b := s.newBuilder()
	b.add(hdrStatus)
	hdrStatus.CmdID = b.nextID()

	actionable := false
	for _, cmd := range msg.Body.Commands {
		switch c := cmd.(type) {
		case *syncml.Status:
			s.checkStatus(c)
			continue
		case *syncml.Results:
			continue
		case *syncml.Alert:
			if code, err := c.Code(); err == nil && code == syncml.AlertSessionAbort {
				return s.fail(ErrSessionAborted)
			}
		}
		actionable = true
		s.execute(ctx, cmd, b)
	}

	if msg.Body.Final && !actionable && !challenged {
		s.state = StateTerminated
		s.log.Infof("session %s ended", s.sessionID)
		return ErrSessionEnd
	}

	if !msg.Body.Final {
		b.add(&syncml.Alert{CmdID: b.nextID(), Data: strconv.Itoa(int(syncml.AlertNextMessage))})
	}
	if challenged {
		if err := s.appendSetup(ctx, b); err != nil {
			return s.fail(err)
		}
	}
	return s.queue(b)
}

// applyHeaderStatus updates the server's verdict on the device from the
// Status answering our header. It returns true when the server challenged
// the device and the setup commands must be sent again.
func (s *Session) applyHeaderStatus(cmds []syncml.Command) bool {
	for _, cmd := range cmds {
		st, ok := cmd.(*syncml.Status)
		if !ok || !st.IsHeaderStatus() {
			continue
		}
		if st.Chal != nil {
			s.applyChallenge(st.Chal)
		}

		code, err := st.Code()
		if err != nil {
			s.log.Warnf("header status: %v", err)
		}
		state := s.config.AuthPolicy.Classify(code)
		s.clientAuth.code = code

		challenged := false
		switch state {
		case auth.StatePending:
			s.clientAuth.retries++
			if s.clientAuth.retries > s.config.MaxAuthRetries {
				state = auth.StateRejected
			} else {
				challenged = true
			}
		case auth.StateAccepted:
			s.clientAuth.retries = 0
		}
		s.clientAuth.state = state
		s.log.Debugf("client authentication %v (%v)", state, code)
		return challenged
	}
	return false
}

// applyChallenge takes the scheme and nonce the server asks for.
func (s *Session) applyChallenge(chal *syncml.Chal) {
	if chal.Meta == nil {
		return
	}
	if chal.Meta.Type != "" {
		t, err := auth.ParseType(string(chal.Meta.Type))
		if err != nil {
			s.log.Warnf("challenge: %v", err)
		} else if t != auth.TypeNone && t != s.account.ClientAuth.Type {
			s.log.Infof("server requests %v authentication", t)
			s.account.ClientAuth.Type = t
			s.dirty = true
		}
	}
	if chal.Meta.NextNonce != "" {
		nonce := []byte(chal.Meta.NextNonce)
		if chal.Meta.Format == "" || strings.EqualFold(string(chal.Meta.Format), syncml.FormatB64) {
			n, err := auth.DecodeNonce(string(chal.Meta.NextNonce))
			if err != nil {
				s.log.Warnf("challenge: %v", err)
				return
			}
			nonce = n
		}
		s.account.ClientAuth.Nonce = nonce
		s.dirty = true
	}
}

// verifyServer checks the server's credentials and returns the Status
// answering its header.
func (s *Session) verifyServer(hdr *syncml.SyncHdr, reply *Packet) *syncml.Status {
	expect := s.account.ServerAuth

	var code syncml.StatusCode
	switch {
	case expect.Type == auth.TypeNone:
		code = syncml.StatusOK
	case expect.Type == auth.TypeHMAC && reply.HMAC != "":
		code = syncml.StatusInvalidCredentials
		if auth.VerifyHMAC(expect.Name, expect.Secret, expect.Nonce, reply.Data, reply.HMAC) {
			code = syncml.StatusAuthenticationAccepted
		}
	case expect.Type != auth.TypeHMAC && hdr.Cred != nil:
		code = syncml.StatusInvalidCredentials
		if t := hdr.Cred.Type(); t == "" || strings.EqualFold(t, expect.Type.SyncML()) {
			if auth.Verify(expect.Type, expect.Name, expect.Secret, expect.Nonce, hdr.Cred.Data) {
				code = syncml.StatusAuthenticationAccepted
			}
		}
	case s.serverAuth.state == auth.StateAccepted:
		code = syncml.StatusOK
	default:
		code = syncml.StatusMissingCredentials
	}

	state := s.config.AuthPolicy.Classify(code)
	switch state {
	case auth.StatePending:
		s.serverAuth.retries++
		if s.serverAuth.retries > s.config.MaxAuthRetries {
			state = auth.StateRejected
		}
	case auth.StateAccepted:
		s.serverAuth.retries = 0
	}
	s.serverAuth.state = state
	s.serverAuth.code = code
	s.log.Debugf("server authentication %v (%v)", state, code)

	st := &syncml.Status{
		MsgRef: s.serverMsgID,
		CmdRef: "0",
		Cmd:    syncml.CmdSyncHdr,
		Data:   code.String(),
	}
	if hdr.Target.LocURI != "" {
		st.TargetRef = []string{hdr.Target.LocURI}
	}
	if hdr.Source.LocURI != "" {
		st.SourceRef = []string{hdr.Source.LocURI}
	}
	if state == auth.StatePending {
		st.Chal = s.challenge()
	}
	return st
}

// challenge builds the Chal asking the server for credentials. Digest and
// HMAC challenges carry a fresh nonce.
func (s *Session) challenge() *syncml.Chal {
	expect := &s.account.ServerAuth
	meta := &syncml.Meta{Format: syncml.FormatB64, Type: syncml.MetInf(expect.Type.SyncML())}
	if expect.Type == auth.TypeDigest || expect.Type == auth.TypeHMAC {
		nonce, err := auth.NewNonce()
		if err != nil {
			s.log.Warnf("nonce: %v", err)
		} else {
			expect.Nonce = nonce
			s.dirty = true
		}
		meta.NextNonce = syncml.MetInf(auth.EncodeNonce(expect.Nonce))
	}
	return &syncml.Chal{Meta: meta}
}

// checkStatus logs server statuses for our own commands.
func (s *Session) checkStatus(st *syncml.Status) {
	if st.IsHeaderStatus() {
		return
	}
	code, err := st.Code()
	switch {
	case err != nil:
		s.log.Warnf("status for %s %s: %v", st.Cmd, st.CmdRef, err)
	case !code.IsSuccess():
		s.log.Warnf("server answered %v to %s %s", code, st.Cmd, st.CmdRef)
	}
}
