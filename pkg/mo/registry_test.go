package mo

import (
	"context"
	"errors"
	"testing"

	"github.com/backkem/omadm/pkg/syncml"
)

// stubProvider answers every Get with its own base URI.
type stubProvider struct {
	base   string
	closed bool
}

func (p *stubProvider) BaseURI() string { return p.base }

func (p *stubProvider) IsNode(ctx context.Context, uri string) (NodeKind, error) {
	return NodeLeaf, nil
}

func (p *stubProvider) Get(ctx context.Context, uri string) (*Node, error) {
	return &Node{URI: uri, Format: syncml.FormatChr, Data: []byte(p.base)}, nil
}

func (p *stubProvider) Set(ctx context.Context, n *Node) error { return ErrNotAllowed }

func (p *stubProvider) Exec(ctx context.Context, uri string, data []byte, correlator string) error {
	return ErrNotAllowed
}

func (p *stubProvider) List(ctx context.Context, uri string) ([]string, error) { return nil, nil }

func (p *stubProvider) Close() error {
	p.closed = true
	return nil
}

func TestRegistry_LongestPrefix(t *testing.T) {
	orders := [][]string{
		{"./A", "./A/B"},
		{"./A/B", "./A"},
	}
	for _, order := range orders {
		r := NewRegistry()
		for _, base := range order {
			if err := r.Register(&stubProvider{base: base}); err != nil {
				t.Fatalf("Register(%s) failed: %v", base, err)
			}
		}

		tests := []struct {
			uri  string
			want string
		}{
			{"./A/B/x", "./A/B"},
			{"./A/B", "./A/B"},
			{"./A/x", "./A"},
			{"./A/BC", "./A"},
			{"A/B/y", "./A/B"},
		}
		for _, tt := range tests {
			p, _, err := r.Lookup(tt.uri)
			if err != nil {
				t.Fatalf("Lookup(%s) failed: %v", tt.uri, err)
			}
			if p.BaseURI() != tt.want {
				t.Errorf("order %v: Lookup(%s) = %s, want %s", order, tt.uri, p.BaseURI(), tt.want)
			}
		}

		if _, _, err := r.Lookup("./C/x"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Lookup unmapped err = %v, want ErrNotFound", err)
		}
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	first := &stubProvider{base: "./DevInfo"}
	if err := r.Register(first); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		name string
		p    Provider
		want error
	}{
		{"duplicate", &stubProvider{base: "./DevInfo"}, ErrDuplicateProvider},
		{"duplicate unnormalized", &stubProvider{base: "DevInfo/"}, ErrDuplicateProvider},
		{"nil", nil, ErrInvalidProvider},
		{"empty base", &stubProvider{}, ErrInvalidProvider},
		{"bad base", &stubProvider{base: "./a//b"}, ErrInvalidProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Register(tt.p); !errors.Is(err, tt.want) {
				t.Errorf("Register err = %v, want %v", err, tt.want)
			}
		})
	}

	if r.Len() != 1 || r.Providers()[0] != first {
		t.Errorf("registry changed after failed registrations: %v", r.Providers())
	}
}

func TestRegistry_RoutesAndClose(t *testing.T) {
	r := NewRegistry()
	p := &stubProvider{base: "./DevInfo"}
	if err := r.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	n, err := r.Get(context.Background(), "DevInfo/Man")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if n.URI != "./DevInfo/Man" || string(n.Data) != "./DevInfo" {
		t.Errorf("Get = %+v", n)
	}
	if err := r.Set(context.Background(), &Node{URI: "./DevInfo/Man"}); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("Set err = %v, want ErrNotAllowed", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !p.closed {
		t.Error("provider not closed")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after Close, want 0", r.Len())
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{".", ".", false},
		{"", ".", false},
		{"./DevInfo", "./DevInfo", false},
		{"DevInfo/Man", "./DevInfo/Man", false},
		{"./DevInfo/", "./DevInfo", false},
		{"./DevDetail?list=Struct", "./DevDetail", false},
		{"/abs", "", true},
		{"./a//b", "", true},
		{"./a/../b", "", true},
	}
	for _, tt := range tests {
		got, err := Normalize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Normalize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestErrorToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want syncml.StatusCode
	}{
		{nil, syncml.StatusOK},
		{ErrNotFound, syncml.StatusNotFound},
		{ErrNotAllowed, syncml.StatusCommandNotAllowed},
		{ErrAlreadyExists, syncml.StatusAlreadyExists},
		{ErrUnsupported, syncml.StatusOptionalNotSupported},
		{ErrInvalidURI, syncml.StatusBadRequest},
		{ErrPermissionDenied, syncml.StatusPermissionDenied},
		{errors.New("disk on fire"), syncml.StatusCommandFailed},
	}
	for _, tt := range tests {
		if got := ErrorToStatus(tt.err); got != tt.want {
			t.Errorf("ErrorToStatus(%v) = %v, want %v", tt.err, got, tt.want)
		}
		if tt.err != nil && tt.want != syncml.StatusCommandFailed {
			if back := StatusToError(tt.want); !errors.Is(back, tt.err) {
				t.Errorf("StatusToError(%v) = %v, want %v", tt.want, back, tt.err)
			}
		}
	}
}
