package config

import (
	"context"
	"fmt"
	"sort"

	"github.com/pion/logging"

	"github.com/backkem/omadm/pkg/mo"
	"github.com/backkem/omadm/pkg/mo/memtree"
	"github.com/backkem/omadm/pkg/mo/sqltree"
	"github.com/backkem/omadm/pkg/syncml"
)

// OpenTree builds the provider described by [tree] and seeds it with
// tree.nodes. A persistent tree keeps existing values; seeds only create
// missing leaves.
func (f *File) OpenTree(ctx context.Context, lf logging.LoggerFactory) (mo.Provider, error) {
	if f.Tree.SQLitePath == "" {
		t, err := memtree.New(f.treeBase())
		if err != nil {
			return nil, err
		}
		if err := t.Load(f.Tree.Nodes); err != nil {
			return nil, fmt.Errorf("seed tree: %w", err)
		}
		return t, nil
	}

	t, err := sqltree.Open(sqltree.Config{
		Path:          f.Tree.SQLitePath,
		BaseURI:       f.treeBase(),
		LoggerFactory: lf,
	})
	if err != nil {
		return nil, err
	}
	if err := seed(ctx, t, f.Tree.Nodes); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

func seed(ctx context.Context, p mo.Provider, nodes map[string]string) error {
	uris := make([]string, 0, len(nodes))
	for uri := range nodes {
		uris = append(uris, uri)
	}
	sort.Strings(uris)

	for _, uri := range uris {
		norm, err := mo.Normalize(uri)
		if err != nil {
			return fmt.Errorf("seed tree: %w", err)
		}
		kind, err := p.IsNode(ctx, norm)
		if err != nil {
			return fmt.Errorf("seed tree: %w", err)
		}
		if kind != mo.NodeNone {
			continue
		}
		n := &mo.Node{URI: norm, Format: syncml.FormatChr, Type: "text/plain", Data: []byte(nodes[uri])}
		if err := p.Set(ctx, n); err != nil {
			return fmt.Errorf("seed tree %s: %w", uri, err)
		}
	}
	return nil
}
