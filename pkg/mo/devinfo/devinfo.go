// Package devinfo serves the standard ./DevInfo management object from a
// static description of the device. The subtree is read-only.
package devinfo

import (
	"context"
	"errors"
	"fmt"

	"github.com/backkem/omadm/pkg/mo"
	"github.com/backkem/omadm/pkg/syncml"
)

// BaseURI is the standard location of the device information object.
const BaseURI = "./DevInfo"

// Leaf names under ./DevInfo.
const (
	NodeDevID = "DevId"
	NodeMan   = "Man"
	NodeMod   = "Mod"
	NodeDmV   = "DmV"
	NodeLang  = "Lang"
)

// Leaves lists the leaves in the order they are reported to the server.
var Leaves = []string{NodeDevID, NodeMan, NodeMod, NodeDmV, NodeLang}

// ErrMissingDevID is returned by Validate when no device identifier is set.
var ErrMissingDevID = errors.New("devinfo: DevId is required")

// Info describes the device.
type Info struct {
	// DevID uniquely identifies the device, e.g. "IMEI:493005100592800".
	DevID string
	Man   string
	Mod   string
	DmV   string
	Lang  string
}

// Validate checks the description.
func (i *Info) Validate() error {
	if i.DevID == "" {
		return ErrMissingDevID
	}
	return nil
}

// ApplyDefaults fills in the protocol version and language when unset.
func (i *Info) ApplyDefaults() {
	if i.DmV == "" {
		i.DmV = syncml.VerDTD
	}
	if i.Lang == "" {
		i.Lang = "en-US"
	}
}

// Value returns the leaf called name.
func (i *Info) Value(name string) (string, bool) {
	switch name {
	case NodeDevID:
		return i.DevID, true
	case NodeMan:
		return i.Man, true
	case NodeMod:
		return i.Mod, true
	case NodeDmV:
		return i.DmV, true
	case NodeLang:
		return i.Lang, true
	default:
		return "", false
	}
}

// Provider serves ./DevInfo.
type Provider struct {
	info Info
}

// New creates the provider. Missing DmV and Lang are defaulted.
func New(info Info) (*Provider, error) {
	if err := info.Validate(); err != nil {
		return nil, err
	}
	info.ApplyDefaults()
	return &Provider{info: info}, nil
}

// BaseURI implements mo.Provider.
func (p *Provider) BaseURI() string {
	return BaseURI
}

func (p *Provider) leaf(uri string) (string, bool) {
	if mo.Parent(uri) != BaseURI {
		return "", false
	}
	return p.info.Value(mo.Name(uri))
}

// IsNode implements mo.Provider.
func (p *Provider) IsNode(ctx context.Context, uri string) (mo.NodeKind, error) {
	if uri == BaseURI {
		return mo.NodeInterior, nil
	}
	if _, ok := p.leaf(uri); ok {
		return mo.NodeLeaf, nil
	}
	return mo.NodeNone, nil
}

// Get implements mo.Provider.
func (p *Provider) Get(ctx context.Context, uri string) (*mo.Node, error) {
	if uri == BaseURI {
		return mo.InteriorNode(uri, Leaves), nil
	}
	v, ok := p.leaf(uri)
	if !ok {
		return nil, fmt.Errorf("%w: %s", mo.ErrNotFound, uri)
	}
	return &mo.Node{URI: uri, Format: syncml.FormatChr, Type: "text/plain", Data: []byte(v)}, nil
}

// Set implements mo.Provider. The subtree is read-only.
func (p *Provider) Set(ctx context.Context, n *mo.Node) error {
	if kind, _ := p.IsNode(ctx, n.URI); kind == mo.NodeNone {
		return fmt.Errorf("%w: %s", mo.ErrNotFound, n.URI)
	}
	return fmt.Errorf("%w: %s is read-only", mo.ErrNotAllowed, n.URI)
}

// Exec implements mo.Provider.
func (p *Provider) Exec(ctx context.Context, uri string, data []byte, correlator string) error {
	return fmt.Errorf("%w: %s", mo.ErrNotAllowed, uri)
}

// List implements mo.Provider.
func (p *Provider) List(ctx context.Context, uri string) ([]string, error) {
	if uri != BaseURI {
		return nil, fmt.Errorf("%w: %s", mo.ErrNotAllowed, uri)
	}
	return append([]string(nil), Leaves...), nil
}
