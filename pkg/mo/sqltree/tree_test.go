package sqltree

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/backkem/omadm/pkg/mo"
	"github.com/backkem/omadm/pkg/syncml"
)

func openTestTree(t *testing.T, path string) *Tree {
	t.Helper()
	tree, err := Open(Config{Path: path, BaseURI: "./Vendor/Store"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return tree
}

func TestTree_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.db")
	ctx := context.Background()

	tree := openTestTree(t, path)
	err := tree.Set(ctx, &mo.Node{URI: "./Vendor/Store/Conn/Addr", Format: syncml.FormatChr, Data: []byte("10.0.0.1")})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := tree.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	tree = openTestTree(t, path)
	defer tree.Close()

	n, err := tree.Get(ctx, "./Vendor/Store/Conn/Addr")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(n.Data) != "10.0.0.1" || n.Format != syncml.FormatChr {
		t.Errorf("Get = %+v", n)
	}

	n, err = tree.Get(ctx, "./Vendor/Store")
	if err != nil {
		t.Fatalf("Get base failed: %v", err)
	}
	if !n.IsInterior() || string(n.Data) != "Conn" {
		t.Errorf("base = %+v, want interior with Conn", n)
	}
}

func TestTree_ReplaceAndKinds(t *testing.T) {
	tree := openTestTree(t, ":memory:")
	defer tree.Close()
	ctx := context.Background()

	leaf := &mo.Node{URI: "./Vendor/Store/Name", Data: []byte("a")}
	if err := tree.Set(ctx, leaf); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	leaf.Data = []byte("b")
	if err := tree.Set(ctx, leaf); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	n, err := tree.Get(ctx, leaf.URI)
	if err != nil || string(n.Data) != "b" {
		t.Fatalf("Get = %+v, %v", n, err)
	}

	tests := []struct {
		name string
		node *mo.Node
		want error
	}{
		{"interior over leaf", &mo.Node{URI: "./Vendor/Store/Name", Format: syncml.FormatNode}, mo.ErrNotAllowed},
		{"child of leaf", &mo.Node{URI: "./Vendor/Store/Name/X"}, mo.ErrNotAllowed},
		{"outside base", &mo.Node{URI: "./Elsewhere"}, mo.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tree.Set(ctx, tt.node); !errors.Is(err, tt.want) {
				t.Errorf("Set err = %v, want %v", err, tt.want)
			}
		})
	}

	kind, err := tree.IsNode(ctx, "./Vendor/Store/Name")
	if err != nil || kind != mo.NodeLeaf {
		t.Errorf("IsNode = %v, %v, want Leaf", kind, err)
	}
}

func TestTree_DeleteSubtree(t *testing.T) {
	tree := openTestTree(t, ":memory:")
	defer tree.Close()
	ctx := context.Background()

	for _, uri := range []string{"./Vendor/Store/A/x", "./Vendor/Store/A/y", "./Vendor/Store/AB"} {
		if err := tree.Set(ctx, &mo.Node{URI: uri, Data: []byte("1")}); err != nil {
			t.Fatalf("Set(%s) failed: %v", uri, err)
		}
	}

	if err := tree.Delete(ctx, "./Vendor/Store/A"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	children, err := tree.List(ctx, "./Vendor/Store")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(children) != 1 || children[0] != "AB" {
		t.Errorf("List = %v, want [AB]", children)
	}

	if err := tree.Delete(ctx, "./Vendor/Store/A"); !errors.Is(err, mo.ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
	if err := tree.Delete(ctx, "./Vendor/Store"); !errors.Is(err, mo.ErrNotAllowed) {
		t.Errorf("Delete base err = %v, want ErrNotAllowed", err)
	}
	if err := tree.Exec(ctx, "./Vendor/Store/AB", nil, ""); !errors.Is(err, mo.ErrNotAllowed) {
		t.Errorf("Exec err = %v, want ErrNotAllowed", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := (&Config{BaseURI: "./X"}).Validate(); err == nil {
		t.Error("Validate() with empty Path = nil, want error")
	}
	if err := (&Config{Path: ":memory:", BaseURI: "./a//b"}).Validate(); !errors.Is(err, mo.ErrInvalidURI) {
		t.Errorf("Validate() bad base err = %v, want ErrInvalidURI", err)
	}
}
