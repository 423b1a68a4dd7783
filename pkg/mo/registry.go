package mo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

type entry struct {
	base     string
	provider Provider
}

// Registry holds providers in registration order and routes URIs to them.
type Registry struct {
	entries []entry
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a provider. A nil provider, a provider without a base URI or
// a malformed base URI fails with ErrInvalidProvider; a base URI equal to a
// registered one fails with ErrDuplicateProvider. On failure the registry
// is unchanged and the caller keeps ownership of p.
func (r *Registry) Register(p Provider) error {
	if p == nil || p.BaseURI() == "" {
		return ErrInvalidProvider
	}
	base, err := Normalize(p.BaseURI())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProvider, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.base == base {
			return fmt.Errorf("%w: %s", ErrDuplicateProvider, base)
		}
	}
	r.entries = append(r.entries, entry{base: base, provider: p})
	return nil
}

// Lookup returns the provider with the longest base URI that contains uri,
// and the normalized uri. Registration order never matters.
func (r *Registry) Lookup(uri string) (Provider, string, error) {
	norm, err := Normalize(uri)
	if err != nil {
		return nil, "", err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *entry
	for i := range r.entries {
		e := &r.entries[i]
		if !HasPrefix(norm, e.base) {
			continue
		}
		if best == nil || len(e.base) > len(best.base) {
			best = e
		}
	}
	if best == nil {
		return nil, norm, fmt.Errorf("%w: %s", ErrNotFound, norm)
	}
	return best.provider, norm, nil
}

// Providers returns the registered providers in registration order.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Provider, 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, e.provider)
	}
	return result
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Get reads a node through the owning provider.
func (r *Registry) Get(ctx context.Context, uri string) (*Node, error) {
	p, norm, err := r.Lookup(uri)
	if err != nil {
		return nil, err
	}
	return p.Get(ctx, norm)
}

// Set writes a node through the owning provider.
func (r *Registry) Set(ctx context.Context, node *Node) error {
	p, norm, err := r.Lookup(node.URI)
	if err != nil {
		return err
	}
	n := *node
	n.URI = norm
	return p.Set(ctx, &n)
}

// List lists the children of an interior node through the owning provider.
func (r *Registry) List(ctx context.Context, uri string) ([]string, error) {
	p, norm, err := r.Lookup(uri)
	if err != nil {
		return nil, err
	}
	return p.List(ctx, norm)
}

// Close closes every provider implementing io.Closer and empties the
// registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	entries := r.entries
	r.entries = nil
	r.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if c, ok := e.provider.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", e.base, err))
			}
		}
	}
	return errors.Join(errs...)
}
