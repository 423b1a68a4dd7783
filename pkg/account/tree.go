package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/backkem/omadm/pkg/auth"
	"github.com/backkem/omadm/pkg/mo"
	"github.com/backkem/omadm/pkg/syncml"
)

// DMAccURI is the root of the DM 1.2 account object.
const DMAccURI = "./DMAcc"

// AAuthLevel values.
const (
	levelClient = "CLCRED"
	levelServer = "SRVCRED"
)

// Tree is the part of the management tree a TreeStore needs. *mo.Registry
// satisfies it.
type Tree interface {
	Get(ctx context.Context, uri string) (*mo.Node, error)
	Set(ctx context.Context, node *mo.Node) error
	List(ctx context.Context, uri string) ([]string, error)
}

// TreeStore reads accounts from the ./DMAcc subtree:
//
//	./DMAcc/<x>/ServerID
//	./DMAcc/<x>/AppAddr/<y>/Addr
//	./DMAcc/<x>/AppAuth/<z>/{AAuthLevel, AAuthType, AAuthName, AAuthSecret, AAuthData}
//
// Nonces (AAuthData) are written back by Update.
type TreeStore struct {
	tree       Tree
	passphrase string
}

// NewTreeStore creates a store over tree. passphrase opens sealed
// AAuthSecret values and may be empty.
func NewTreeStore(tree Tree, passphrase string) *TreeStore {
	return &TreeStore{tree: tree, passphrase: passphrase}
}

// Lookup implements Store.
func (s *TreeStore) Lookup(ctx context.Context, serverID string) (*Account, error) {
	node, err := s.find(ctx, serverID)
	if err != nil {
		return nil, err
	}
	acc := &Account{ServerID: serverID}

	addrs, _ := s.tree.List(ctx, mo.Join(node, "AppAddr"))
	for _, a := range addrs {
		if v, err := s.leaf(ctx, node, "AppAddr", a, "Addr"); err == nil && v != "" {
			acc.ServerURI = v
			break
		}
	}

	auths, _ := s.tree.List(ctx, mo.Join(node, "AppAuth"))
	for _, a := range auths {
		level, _ := s.leaf(ctx, node, "AppAuth", a, "AAuthLevel")
		var cred *Credentials
		switch strings.ToUpper(level) {
		case levelClient:
			cred = &acc.ClientAuth
		case levelServer:
			cred = &acc.ServerAuth
		default:
			continue
		}
		if err := s.readCredentials(ctx, mo.Join(mo.Join(node, "AppAuth"), a), cred); err != nil {
			return nil, fmt.Errorf("%s/AppAuth/%s: %w", node, a, err)
		}
	}

	if err := acc.Validate(); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *TreeStore) readCredentials(ctx context.Context, uri string, cred *Credentials) error {
	typ, _ := s.get(ctx, mo.Join(uri, "AAuthType"))
	t, err := auth.ParseType(typ)
	if err != nil {
		return err
	}
	cred.Type = t
	cred.Name, _ = s.get(ctx, mo.Join(uri, "AAuthName"))

	secret, _ := s.get(ctx, mo.Join(uri, "AAuthSecret"))
	if cred.Secret, err = Open(secret, s.passphrase); err != nil {
		return err
	}

	if n, err := s.tree.Get(ctx, mo.Join(uri, "AAuthData")); err == nil {
		cred.Nonce = n.Data
	}
	return nil
}

// Update implements Store. Only nonces are written back.
func (s *TreeStore) Update(ctx context.Context, acc *Account) error {
	node, err := s.find(ctx, acc.ServerID)
	if err != nil {
		return err
	}
	auths, err := s.tree.List(ctx, mo.Join(node, "AppAuth"))
	if err != nil {
		return err
	}

	var errs []error
	for _, a := range auths {
		level, _ := s.leaf(ctx, node, "AppAuth", a, "AAuthLevel")
		var nonce []byte
		switch strings.ToUpper(level) {
		case levelClient:
			nonce = acc.ClientAuth.Nonce
		case levelServer:
			nonce = acc.ServerAuth.Nonce
		default:
			continue
		}
		err := s.tree.Set(ctx, &mo.Node{
			URI:    mo.Join(mo.Join(mo.Join(node, "AppAuth"), a), "AAuthData"),
			Format: syncml.FormatBin,
			Type:   "application/octet-stream",
			Data:   nonce,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// find returns the URI of the account node whose ServerID matches.
func (s *TreeStore) find(ctx context.Context, serverID string) (string, error) {
	names, err := s.tree.List(ctx, DMAccURI)
	if err != nil {
		if errors.Is(err, mo.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, serverID)
		}
		return "", err
	}
	for _, name := range names {
		node := mo.Join(DMAccURI, name)
		if id, err := s.get(ctx, mo.Join(node, "ServerID")); err == nil && id == serverID {
			return node, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, serverID)
}

func (s *TreeStore) leaf(ctx context.Context, node string, segs ...string) (string, error) {
	uri := node
	for _, seg := range segs {
		uri = mo.Join(uri, seg)
	}
	return s.get(ctx, uri)
}

func (s *TreeStore) get(ctx context.Context, uri string) (string, error) {
	n, err := s.tree.Get(ctx, uri)
	if err != nil {
		return "", err
	}
	return string(n.Data), nil
}
