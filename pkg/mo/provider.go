// Package mo defines management object providers and the registry the
// session engine dispatches commands through.
//
// A provider owns the subtree of the device management tree rooted at its
// base URI. The registry picks the provider with the longest base URI that
// is a segment-wise prefix of the target URI.
package mo

import (
	"context"
	"fmt"
	"strings"

	"github.com/backkem/omadm/pkg/syncml"
)

// NodeKind tells whether a URI names nothing, a leaf or an interior node.
type NodeKind int

const (
	NodeNone NodeKind = iota
	NodeLeaf
	NodeInterior
)

// String returns the kind name.
func (k NodeKind) String() string {
	switch k {
	case NodeNone:
		return "None"
	case NodeLeaf:
		return "Leaf"
	case NodeInterior:
		return "Interior"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is the value of one node of the tree.
type Node struct {
	URI    string
	Format string
	Type   string
	Data   []byte
}

// IsInterior returns true if the node was read as an interior node.
func (n *Node) IsInterior() bool {
	return n.Format == syncml.FormatNode
}

// InteriorNode builds the value returned when reading an interior node:
// format "node" and the child names joined by "/".
func InteriorNode(uri string, children []string) *Node {
	return &Node{
		URI:    uri,
		Format: syncml.FormatNode,
		Data:   []byte(strings.Join(children, "/")),
	}
}

// Provider serves the nodes under BaseURI.
type Provider interface {
	// BaseURI returns the root of the subtree served by this provider.
	BaseURI() string

	// IsNode reports what exists at uri.
	IsNode(ctx context.Context, uri string) (NodeKind, error)

	// Get reads a node. Interior nodes are returned with InteriorNode.
	Get(ctx context.Context, uri string) (*Node, error)

	// Set creates or replaces a node. A node with Format "node" creates an
	// interior node.
	Set(ctx context.Context, node *Node) error

	// Exec runs an executable node.
	Exec(ctx context.Context, uri string, data []byte, correlator string) error

	// List returns the child names of an interior node.
	List(ctx context.Context, uri string) ([]string, error)
}

// Deleter is implemented by providers that support the Delete command.
type Deleter interface {
	Delete(ctx context.Context, uri string) error
}
