package session

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/backkem/omadm/pkg/auth"
	"github.com/backkem/omadm/pkg/mo"
	"github.com/backkem/omadm/pkg/syncml"
)

var errBadData = errors.New("session: malformed item data")

// execute runs one server command and appends its Status, and Results for
// a Get, to b.
func (s *Session) execute(ctx context.Context, cmd syncml.Command, b *builder) {
	if s.serverAuth.state != auth.StateAccepted {
		b.status(cmd, syncml.StatusMissingCredentials)
		return
	}

	switch c := cmd.(type) {
	case *syncml.Alert:
		s.handleAlert(ctx, c, b)
	case *syncml.Sequence:
		b.status(c, syncml.StatusOK)
		for _, child := range c.Commands {
			s.execute(ctx, child, b)
		}
	case *syncml.Atomic:
		// Providers cannot roll back, so atomic groups are refused as a whole.
		b.status(c, syncml.StatusOptionalNotSupported)
		for _, child := range c.Commands {
			b.status(child, syncml.StatusNotExecuted)
		}
	case *syncml.Get:
		s.handleItems(ctx, c, c.Meta, c.Items, "", b)
	case *syncml.Add:
		s.handleItems(ctx, c, c.Meta, c.Items, "", b)
	case *syncml.Replace:
		s.handleItems(ctx, c, c.Meta, c.Items, "", b)
	case *syncml.Delete:
		s.handleItems(ctx, c, c.Meta, c.Items, "", b)
	case *syncml.Exec:
		s.handleItems(ctx, c, c.Meta, c.Items, c.Correlator, b)
	default:
		s.log.Debugf("unsupported command %s", cmd.Name())
		b.status(cmd, syncml.StatusOptionalNotSupported)
	}
}

// handleItems applies cmd to each of its items. Every item gets its own
// Status carrying the item's target.
func (s *Session) handleItems(ctx context.Context, cmd syncml.Command, meta *syncml.Meta, items []syncml.Item, correlator string, b *builder) {
	if len(items) == 0 {
		b.status(cmd, syncml.StatusIncompleteCommand)
		return
	}

	for i := range items {
		item := &items[i]
		code, node := s.apply(ctx, cmd.Name(), item, meta, correlator)
		if st := b.status(cmd, code); st != nil && item.TargetURI() != "" {
			st.TargetRef = []string{item.TargetURI()}
		}
		if node != nil {
			b.results(cmd, node)
		}
	}
}

// apply runs one item of a command against the provider owning its target.
// A node is returned for a successful Get.
func (s *Session) apply(ctx context.Context, name string, item *syncml.Item, meta *syncml.Meta, correlator string) (syncml.StatusCode, *mo.Node) {
	target := item.TargetURI()
	if target == "" {
		return syncml.StatusIncompleteCommand, nil
	}
	p, uri, err := s.registry.Lookup(target)
	if err != nil {
		s.log.Debugf("%s %s: %v", name, target, errors.Join(ErrAddressNotFound, err))
		return mo.ErrorToStatus(err), nil
	}

	switch name {
	case syncml.CmdGet:
		n, err := p.Get(ctx, uri)
		if err != nil {
			return s.providerStatus(name, uri, err), nil
		}
		if n.URI == "" {
			n.URI = uri
		}
		return syncml.StatusOK, n

	case syncml.CmdAdd, syncml.CmdReplace:
		kind, err := p.IsNode(ctx, uri)
		if err != nil {
			return s.providerStatus(name, uri, err), nil
		}
		if name == syncml.CmdAdd && kind != mo.NodeNone {
			return syncml.StatusAlreadyExists, nil
		}
		if name == syncml.CmdReplace && kind == mo.NodeNone {
			return syncml.StatusNotFound, nil
		}
		n, err := itemNode(uri, item, meta)
		if err != nil {
			return syncml.StatusBadRequest, nil
		}
		if err := p.Set(ctx, n); err != nil {
			return s.providerStatus(name, uri, err), nil
		}
		return syncml.StatusOK, nil

	case syncml.CmdDelete:
		d, ok := p.(mo.Deleter)
		if !ok {
			return syncml.StatusCommandNotAllowed, nil
		}
		if err := d.Delete(ctx, uri); err != nil {
			return s.providerStatus(name, uri, err), nil
		}
		return syncml.StatusOK, nil

	case syncml.CmdExec:
		if err := p.Exec(ctx, uri, []byte(item.Data), correlator); err != nil {
			return s.providerStatus(name, uri, err), nil
		}
		return syncml.StatusOK, nil
	}
	return syncml.StatusOptionalNotSupported, nil
}

func (s *Session) providerStatus(name, uri string, err error) syncml.StatusCode {
	code := mo.ErrorToStatus(err)
	s.log.Debugf("%s %s: %v (%v)", name, uri, err, code)
	return code
}

// itemNode builds the node written by Add and Replace. Item meta overrides
// command meta; the format defaults to chr.
func itemNode(uri string, item *syncml.Item, meta *syncml.Meta) (*mo.Node, error) {
	format, typ := item.Format(), item.Type()
	if meta != nil {
		if format == "" {
			format = string(meta.Format)
		}
		if typ == "" {
			typ = string(meta.Type)
		}
	}
	if format == "" {
		format = syncml.FormatChr
	}

	data := []byte(item.Data)
	if strings.EqualFold(format, syncml.FormatB64) {
		d, err := base64.StdEncoding.DecodeString(strings.TrimSpace(item.Data))
		if err != nil {
			return nil, errBadData
		}
		data = d
	}
	return &mo.Node{URI: uri, Format: format, Type: typ, Data: data}, nil
}

// encodeData renders node data for an Item. b64 nodes hold raw bytes.
func encodeData(n *mo.Node) string {
	if strings.EqualFold(n.Format, syncml.FormatB64) {
		return base64.StdEncoding.EncodeToString(n.Data)
	}
	return string(n.Data)
}
