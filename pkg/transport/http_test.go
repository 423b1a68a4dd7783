package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pion/transport/v3/test"

	"github.com/backkem/omadm/pkg/auth"
	"github.com/backkem/omadm/pkg/codec"
	"github.com/backkem/omadm/pkg/session"
)

func newTestHTTP(t *testing.T, config Config) *HTTP {
	t.Helper()
	h, err := New(config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return h
}

func TestHTTP_Send(t *testing.T) {
	defer test.CheckRoutines(t)()
	defer test.TimeOut(10 * time.Second).Stop()

	var gotCT, gotAccept, gotMAC, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotCT = r.Header.Get("Content-Type")
		gotAccept = r.Header.Get("Accept")
		gotMAC = r.Header.Get(auth.HMACHeader)
		w.Header().Set("Content-Type", codec.ContentTypeWBXML)
		w.Header().Set(auth.HMACHeader, "algorithm=MD5, username=srv, mac=xyz")
		_, _ = w.Write([]byte{0x03, 0x00})
	}))
	defer srv.Close()

	h := newTestHTTP(t, Config{})
	defer h.Close()

	reply, err := h.Send(context.Background(), &session.Packet{
		URI:      srv.URL + "/dm",
		Data:     []byte("<SyncML/>"),
		Encoding: codec.EncodingXML,
		HMAC:     "algorithm=MD5, username=dev, mac=abc",
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotBody != "<SyncML/>" {
		t.Errorf("server got body %q", gotBody)
	}
	if gotCT != codec.ContentTypeXML || gotAccept != codec.ContentTypeXML {
		t.Errorf("server got Content-Type %q, Accept %q", gotCT, gotAccept)
	}
	if gotMAC != "algorithm=MD5, username=dev, mac=abc" {
		t.Errorf("server got HMAC header %q", gotMAC)
	}

	if reply.ContentType != codec.ContentTypeWBXML || len(reply.Body) != 2 {
		t.Errorf("reply = %+v", reply)
	}
	p := reply.Packet()
	if p.Encoding != codec.EncodingWBXML || p.HMAC != "algorithm=MD5, username=srv, mac=xyz" {
		t.Errorf("reply packet = %+v", p)
	}
}

func TestHTTP_SendErrors(t *testing.T) {
	defer test.TimeOut(10 * time.Second).Stop()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fail":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/big":
			_, _ = w.Write(make([]byte, 64))
		case "/slow":
			<-r.Context().Done()
		}
	}))
	t.Cleanup(srv.Close)

	pkt := func(path string) *session.Packet {
		return &session.Packet{URI: srv.URL + path, Data: []byte("x")}
	}

	t.Run("status", func(t *testing.T) {
		h := newTestHTTP(t, Config{})
		defer h.Close()

		_, err := h.Send(context.Background(), pkt("/fail"))
		var se *StatusError
		if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
			t.Errorf("Send error = %v, want StatusError 500", err)
		}
	})

	t.Run("reply too large", func(t *testing.T) {
		h := newTestHTTP(t, Config{MaxReplySize: 16})
		defer h.Close()

		if _, err := h.Send(context.Background(), pkt("/big")); !errors.Is(err, ErrReplyTooLarge) {
			t.Errorf("Send error = %v, want ErrReplyTooLarge", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		h := newTestHTTP(t, Config{Timeout: 50 * time.Millisecond})
		defer h.Close()

		_, err := h.Send(context.Background(), pkt("/slow"))
		if !errors.Is(err, ErrSendFailed) || !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Send error = %v, want ErrSendFailed wrapping DeadlineExceeded", err)
		}
	})

	t.Run("invalid packet", func(t *testing.T) {
		h := newTestHTTP(t, Config{})
		defer h.Close()

		for _, p := range []*session.Packet{nil, {Data: []byte("x")}, {URI: srv.URL}} {
			if _, err := h.Send(context.Background(), p); !errors.Is(err, ErrInvalidPacket) {
				t.Errorf("Send(%+v) error = %v, want ErrInvalidPacket", p, err)
			}
		}
	})

	t.Run("closed", func(t *testing.T) {
		h := newTestHTTP(t, Config{})
		h.Close()
		if _, err := h.Send(context.Background(), pkt("/big")); !errors.Is(err, ErrClosed) {
			t.Errorf("Send error = %v, want ErrClosed", err)
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"zero", Config{}, false},
		{"negative timeout", Config{Timeout: -time.Second}, true},
		{"negative size", Config{MaxReplySize: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}

	h := newTestHTTP(t, Config{})
	if h.config.Timeout != DefaultTimeout || h.config.MaxReplySize != DefaultMaxReplySize {
		t.Errorf("defaults not applied: %+v", h.config)
	}
}
