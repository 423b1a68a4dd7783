package session

import (
	"context"
	"fmt"
	"strconv"

	"github.com/backkem/omadm/pkg/auth"
	"github.com/backkem/omadm/pkg/mo"
	"github.com/backkem/omadm/pkg/mo/devinfo"
	"github.com/backkem/omadm/pkg/syncml"
)

// builder assembles one outbound message.
type builder struct {
	msg    *syncml.Message
	cmdID  int
	msgRef string
}

func (s *Session) newBuilder() *builder {
	s.msgID++
	return &builder{
		msg: &syncml.Message{
			XMLNS: syncml.NamespaceSyncML,
			Hdr: syncml.SyncHdr{
				VerDTD:    syncml.VerDTD,
				VerProto:  syncml.VerProto,
				SessionID: s.sessionID,
				MsgID:     syncml.CmdIDString(s.msgID),
				Target:    syncml.LocRef{LocURI: s.account.ServerURI},
				Source:    syncml.LocRef{LocURI: s.devID, LocName: s.account.ClientAuth.Name},
				Meta:      &syncml.Meta{MaxMsgSize: syncml.MetInf(strconv.Itoa(s.config.MaxMsgSize))},
			},
		},
		msgRef: s.serverMsgID,
	}
}

func (b *builder) nextID() string {
	b.cmdID++
	return syncml.CmdIDString(b.cmdID)
}

func (b *builder) add(cmd syncml.Command) {
	b.msg.Body.Commands = append(b.msg.Body.Commands, cmd)
}

// status appends the Status answering cmd. It returns nil when cmd asked
// for no response.
func (b *builder) status(cmd syncml.Command, code syncml.StatusCode) *syncml.Status {
	if noResp(cmd) {
		return nil
	}
	st := &syncml.Status{
		CmdID:  b.nextID(),
		MsgRef: b.msgRef,
		CmdRef: cmd.ID(),
		Cmd:    cmd.Name(),
		Data:   code.String(),
	}
	b.add(st)
	return st
}

// results appends the Results of a Get.
func (b *builder) results(cmd syncml.Command, n *mo.Node) {
	item := syncml.Item{
		Source: &syncml.LocRef{LocURI: n.URI},
		Data:   encodeData(n),
	}
	if n.Format != "" || n.Type != "" {
		item.Meta = &syncml.Meta{Format: syncml.MetInf(n.Format), Type: syncml.MetInf(n.Type)}
	}
	b.add(&syncml.Results{
		CmdID:  b.nextID(),
		MsgRef: b.msgRef,
		CmdRef: cmd.ID(),
		Items:  []syncml.Item{item},
	})
}

func noResp(cmd syncml.Command) bool {
	switch c := cmd.(type) {
	case *syncml.Alert:
		return c.NoResp != nil
	case *syncml.Get:
		return c.NoResp != nil
	case *syncml.Add:
		return c.NoResp != nil
	case *syncml.Replace:
		return c.NoResp != nil
	case *syncml.Delete:
		return c.NoResp != nil
	case *syncml.Exec:
		return c.NoResp != nil
	case *syncml.Sequence:
		return c.NoResp != nil
	case *syncml.Atomic:
		return c.NoResp != nil
	default:
		return false
	}
}

// appendSetup adds the session alert and the device information that open
// every session and follow every rejected client credential.
func (s *Session) appendSetup(ctx context.Context, b *builder) error {
	code := syncml.AlertServerInitiated
	if s.initiator == InitiatorClient {
		code = syncml.AlertClientInitiated
	}
	b.add(&syncml.Alert{CmdID: b.nextID(), Data: strconv.Itoa(int(code))})

	var items []syncml.Item
	for _, leaf := range devinfo.Leaves {
		n, err := s.devInfoLeaf(ctx, leaf)
		if err != nil {
			if leaf == devinfo.NodeDevID {
				return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
			}
			s.log.Debugf("skipping %s: %v", leaf, err)
			continue
		}
		items = append(items, syncml.Item{
			Source: &syncml.LocRef{LocURI: mo.Join(devinfo.BaseURI, leaf)},
			Meta:   &syncml.Meta{Format: syncml.MetInf(n.Format), Type: syncml.MetInf(n.Type)},
			Data:   encodeData(n),
		})
	}
	b.add(&syncml.Replace{ItemCommand: syncml.ItemCommand{CmdID: b.nextID(), Items: items}})
	return nil
}

// credentials returns the Cred of the header while the server has not
// accepted the device.
func (s *Session) credentials() *syncml.Cred {
	if s.clientAuth.state == auth.StateAccepted {
		return nil
	}
	c := s.account.ClientAuth
	data := auth.Compute(c.Type, c.Name, c.Secret, c.Nonce)
	if data == "" {
		return nil
	}
	return &syncml.Cred{
		Meta: &syncml.Meta{Format: syncml.FormatB64, Type: syncml.MetInf(c.Type.SyncML())},
		Data: data,
	}
}

// queue encodes the message and makes it the pending packet.
func (s *Session) queue(b *builder) error {
	s.packets++
	if s.packets > s.config.MaxPackets {
		return s.fail(fmt.Errorf("%w: more than %d packets", ErrResourceExhausted, s.config.MaxPackets))
	}

	b.msg.Hdr.Cred = s.credentials()
	b.msg.Body.Final = true

	data, err := s.codec.Encode(b.msg)
	if err != nil {
		return s.fail(err)
	}
	if s.peerMaxMsgSize > 0 && len(data) > s.peerMaxMsgSize {
		return s.fail(fmt.Errorf("%w: message of %d bytes exceeds server limit %d",
			ErrResourceExhausted, len(data), s.peerMaxMsgSize))
	}

	var mac string
	if c := s.account.ClientAuth; c.Type == auth.TypeHMAC {
		mac = auth.FormatHMACHeader(c.Name, auth.HMAC(c.Name, c.Secret, c.Nonce, data))
	}

	s.gen++
	s.pending = &Packet{
		URI:      s.serverURI,
		Data:     data,
		Encoding: s.codec.Encoding(),
		HMAC:     mac,
		gen:      s.gen,
	}
	s.held = false
	s.log.Debugf("queued message %s (%d bytes, %d commands)", b.msg.Hdr.MsgID, len(data), len(b.msg.Body.Commands))
	return nil
}
