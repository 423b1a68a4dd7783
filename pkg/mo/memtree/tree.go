// Package memtree is an in-memory management object provider.
//
// It serves test and demonstration subtrees. Data is lost when the process
// exits. All methods are safe for concurrent use.
package memtree

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/backkem/omadm/pkg/mo"
	"github.com/backkem/omadm/pkg/syncml"
)

// ExecFunc handles an Exec command on a node.
type ExecFunc func(ctx context.Context, uri string, data []byte, correlator string) error

type node struct {
	interior bool
	format   string
	typ      string
	data     []byte
	children map[string]struct{}
}

// Tree is an in-memory provider rooted at a base URI.
type Tree struct {
	mu sync.RWMutex

	base  string
	nodes map[string]*node
	execs map[string]ExecFunc
}

// New creates an empty tree whose base URI is an interior node.
func New(base string) (*Tree, error) {
	norm, err := mo.Normalize(base)
	if err != nil {
		return nil, err
	}
	return &Tree{
		base: norm,
		nodes: map[string]*node{
			norm: {interior: true, children: make(map[string]struct{})},
		},
		execs: make(map[string]ExecFunc),
	}, nil
}

// BaseURI implements mo.Provider.
func (t *Tree) BaseURI() string {
	return t.base
}

// IsNode implements mo.Provider.
func (t *Tree) IsNode(ctx context.Context, uri string) (mo.NodeKind, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[uri]
	switch {
	case !ok:
		return mo.NodeNone, nil
	case n.interior:
		return mo.NodeInterior, nil
	default:
		return mo.NodeLeaf, nil
	}
}

// Get implements mo.Provider.
func (t *Tree) Get(ctx context.Context, uri string) (*mo.Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", mo.ErrNotFound, uri)
	}
	if n.interior {
		return mo.InteriorNode(uri, sortedKeys(n.children)), nil
	}
	return &mo.Node{
		URI:    uri,
		Format: n.format,
		Type:   n.typ,
		Data:   append([]byte(nil), n.data...),
	}, nil
}

// Set implements mo.Provider. Missing ancestors are created as interior
// nodes.
func (t *Tree) Set(ctx context.Context, in *mo.Node) error {
	if !mo.HasPrefix(in.URI, t.base) {
		return fmt.Errorf("%w: %s outside %s", mo.ErrNotFound, in.URI, t.base)
	}
	interior := in.Format == syncml.FormatNode

	t.mu.Lock()
	defer t.mu.Unlock()

	if n, ok := t.nodes[in.URI]; ok {
		if n.interior != interior {
			return fmt.Errorf("%w: cannot change node kind of %s", mo.ErrNotAllowed, in.URI)
		}
		if !interior {
			n.format, n.typ = leafFormat(in.Format), in.Type
			n.data = append([]byte(nil), in.Data...)
		}
		return nil
	}

	if err := t.ensureParents(in.URI); err != nil {
		return err
	}
	n := &node{interior: interior}
	if interior {
		n.children = make(map[string]struct{})
	} else {
		n.format, n.typ = leafFormat(in.Format), in.Type
		n.data = append([]byte(nil), in.Data...)
	}
	t.nodes[in.URI] = n
	t.nodes[mo.Parent(in.URI)].children[mo.Name(in.URI)] = struct{}{}
	return nil
}

// ensureParents creates the missing interior ancestors of uri. Called with
// the lock held.
func (t *Tree) ensureParents(uri string) error {
	var missing []string
	for p := mo.Parent(uri); ; p = mo.Parent(p) {
		n, ok := t.nodes[p]
		if ok {
			if !n.interior {
				return fmt.Errorf("%w: %s is a leaf", mo.ErrNotAllowed, p)
			}
			break
		}
		missing = append(missing, p)
		if p == t.base || p == mo.Root {
			break
		}
	}
	for i := len(missing) - 1; i >= 0; i-- {
		p := missing[i]
		t.nodes[p] = &node{interior: true, children: make(map[string]struct{})}
		t.nodes[mo.Parent(p)].children[mo.Name(p)] = struct{}{}
	}
	return nil
}

// Delete implements mo.Deleter. Deleting an interior node removes its
// subtree. The base node cannot be deleted.
func (t *Tree) Delete(ctx context.Context, uri string) error {
	if uri == t.base {
		return fmt.Errorf("%w: %s is the provider root", mo.ErrNotAllowed, uri)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.nodes[uri]; !ok {
		return fmt.Errorf("%w: %s", mo.ErrNotFound, uri)
	}
	for k := range t.nodes {
		if mo.HasPrefix(k, uri) {
			delete(t.nodes, k)
			delete(t.execs, k)
		}
	}
	if p, ok := t.nodes[mo.Parent(uri)]; ok {
		delete(p.children, mo.Name(uri))
	}
	return nil
}

// Exec implements mo.Provider.
func (t *Tree) Exec(ctx context.Context, uri string, data []byte, correlator string) error {
	t.mu.RLock()
	_, ok := t.nodes[uri]
	fn := t.execs[uri]
	t.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", mo.ErrNotFound, uri)
	}
	if fn == nil {
		return fmt.Errorf("%w: %s is not executable", mo.ErrNotAllowed, uri)
	}
	return fn(ctx, uri, data, correlator)
}

// List implements mo.Provider.
func (t *Tree) List(ctx context.Context, uri string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", mo.ErrNotFound, uri)
	}
	if !n.interior {
		return nil, fmt.Errorf("%w: %s is a leaf", mo.ErrNotAllowed, uri)
	}
	return sortedKeys(n.children), nil
}

// SetExec makes a leaf executable, creating it if needed.
func (t *Tree) SetExec(uri string, fn ExecFunc) error {
	norm, err := mo.Normalize(uri)
	if err != nil {
		return err
	}
	t.mu.RLock()
	_, ok := t.nodes[norm]
	t.mu.RUnlock()
	if !ok {
		if err := t.Set(context.Background(), &mo.Node{URI: norm, Format: syncml.FormatNull}); err != nil {
			return err
		}
	}

	t.mu.Lock()
	t.execs[norm] = fn
	t.mu.Unlock()
	return nil
}

// Load sets character leaves from a URI to value map.
func (t *Tree) Load(values map[string]string) error {
	uris := make([]string, 0, len(values))
	for uri := range values {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	for _, uri := range uris {
		norm, err := mo.Normalize(uri)
		if err != nil {
			return err
		}
		err = t.Set(context.Background(), &mo.Node{
			URI:    norm,
			Format: syncml.FormatChr,
			Type:   "text/plain",
			Data:   []byte(values[uri]),
		})
		if err != nil {
			return fmt.Errorf("load %s: %w", uri, err)
		}
	}
	return nil
}

func leafFormat(f string) string {
	if f == "" {
		return syncml.FormatChr
	}
	return f
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
