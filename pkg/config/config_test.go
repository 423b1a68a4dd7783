package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/backkem/omadm/pkg/account"
	"github.com/backkem/omadm/pkg/auth"
	"github.com/backkem/omadm/pkg/codec"
	"github.com/backkem/omadm/pkg/mo"
)

const sampleConfig = `
[device]
dev_id = "IMEI:493005100592800"
man = "Example"

[session]
encoding = "wbxml"
max_auth_retries = 5

[transport]
timeout = "5s"
max_reply_size = 1024

[tree]
base_uri = "./Vendor"
[tree.nodes]
"./Vendor/Test/Node" = "value"

[[account]]
server_id = "local"
server_uri = "http://localhost:8080/dm"
client_auth = { type = "basic", name = "dev", secret = "devpass" }
server_auth = { type = "digest", name = "srv", secret = "srvpass", nonce = "AAECAw==" }
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "omadm.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	id, ok := strings.CutPrefix(cfg.Device.DevID, "urn:uuid:")
	if !ok {
		t.Fatalf("DevID = %q, want urn:uuid: prefix", cfg.Device.DevID)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("DevID is not a UUID: %v", err)
	}
	if Default().Device.DevID == cfg.Device.DevID {
		t.Error("two defaults share a device id")
	}
	if len(cfg.Accounts) != 1 || cfg.Accounts[0].ServerID != DefaultServerID {
		t.Errorf("Accounts = %+v", cfg.Accounts)
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Device.DevID != "IMEI:493005100592800" || cfg.Device.Man != "Example" {
		t.Errorf("Device = %+v", cfg.Device)
	}
	if cfg.Device.Lang != "en-US" || cfg.Device.Mod != "testdmclient" {
		t.Errorf("defaults not kept for unset keys: %+v", cfg.Device)
	}
	enc, err := cfg.Encoding()
	if err != nil || enc != codec.EncodingWBXML {
		t.Errorf("Encoding() = %v, %v", enc, err)
	}
	if cfg.Session.MaxAuthRetries != 5 {
		t.Errorf("MaxAuthRetries = %d, want 5", cfg.Session.MaxAuthRetries)
	}
	if cfg.Transport.Timeout.Duration != 5*time.Second || cfg.Transport.MaxReplySize != 1024 {
		t.Errorf("Transport = %+v", cfg.Transport)
	}
	if cfg.Tree.Nodes["./Vendor/Test/Node"] != "value" {
		t.Errorf("Tree.Nodes = %v", cfg.Tree.Nodes)
	}

	store, err := cfg.AccountStore("")
	if err != nil {
		t.Fatalf("AccountStore failed: %v", err)
	}
	acc, err := store.Lookup(context.Background(), "local")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if acc.ClientAuth.Type != auth.TypeBasic || acc.ServerAuth.Type != auth.TypeDigest {
		t.Errorf("auth types = %v/%v", acc.ClientAuth.Type, acc.ServerAuth.Type)
	}
	if string(acc.ServerAuth.Nonce) != "\x00\x01\x02\x03" {
		t.Errorf("server nonce = %x", acc.ServerAuth.Nonce)
	}
	if _, err := store.Lookup(context.Background(), DefaultServerID); !errors.Is(err, account.ErrNotFound) {
		t.Errorf("default account kept: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "[device\n"},
		{"unknown key", "[device]\ncolor = \"red\"\n"},
		{"encoding", "[session]\nencoding = \"json\"\n"},
		{"duration", "[transport]\ntimeout = \"soon\"\n"},
		{"auth type", "[[account]]\nserver_id = \"a\"\nserver_uri = \"http://a\"\nclient_auth = { type = \"kerberos\" }\n"},
		{"missing uri", "[[account]]\nserver_id = \"a\"\n"},
		{"duplicate account", "[[account]]\nserver_id = \"a\"\nserver_uri = \"http://a\"\n[[account]]\nserver_id = \"a\"\nserver_uri = \"http://b\"\n"},
		{"node outside tree", "[tree]\nbase_uri = \"./Vendor\"\n[tree.nodes]\n\"./Other/x\" = \"1\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}

func TestAccountStore_Sealed(t *testing.T) {
	sealed, err := account.Seal("devpass", "hunter2")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	cfg := Default()
	cfg.Accounts[0].ClientAuth.Secret = sealed
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate with sealed secret failed: %v", err)
	}

	if _, err := cfg.AccountStore(""); !errors.Is(err, account.ErrSealed) {
		t.Errorf("AccountStore without passphrase error = %v, want ErrSealed", err)
	}
	if _, err := cfg.AccountStore("wrong"); !errors.Is(err, account.ErrBadSeal) {
		t.Errorf("AccountStore with wrong passphrase error = %v, want ErrBadSeal", err)
	}

	store, err := cfg.AccountStore("hunter2")
	if err != nil {
		t.Fatalf("AccountStore failed: %v", err)
	}
	acc, err := store.Lookup(context.Background(), DefaultServerID)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if acc.ClientAuth.Secret != "devpass" {
		t.Errorf("Secret = %q, want the opened value", acc.ClientAuth.Secret)
	}
}

func TestOpenTree(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		cfg := Default()
		cfg.Tree.Nodes = map[string]string{"./Vendor/Test/Node": "value"}
		p, err := cfg.OpenTree(ctx, nil)
		if err != nil {
			t.Fatalf("OpenTree failed: %v", err)
		}
		n, err := p.Get(ctx, "./Vendor/Test/Node")
		if err != nil || string(n.Data) != "value" {
			t.Errorf("Get = %+v, %v", n, err)
		}
	})

	t.Run("sqlite keeps stored values", func(t *testing.T) {
		cfg := Default()
		cfg.Tree.SQLitePath = filepath.Join(t.TempDir(), "tree.db")
		cfg.Tree.Nodes = map[string]string{"./Vendor/Test/Node": "seed"}

		p, err := cfg.OpenTree(ctx, nil)
		if err != nil {
			t.Fatalf("OpenTree failed: %v", err)
		}
		if err := p.Set(ctx, &mo.Node{URI: "./Vendor/Test/Node", Format: "chr", Data: []byte("changed")}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if c, ok := p.(interface{ Close() error }); ok {
			c.Close()
		}

		p, err = cfg.OpenTree(ctx, nil)
		if err != nil {
			t.Fatalf("reopen failed: %v", err)
		}
		defer p.(interface{ Close() error }).Close()
		n, err := p.Get(ctx, "./Vendor/Test/Node")
		if err != nil || string(n.Data) != "changed" {
			t.Errorf("Get after reopen = %+v, %v, want the stored value", n, err)
		}
	})
}
