// Package config loads the TOML configuration of the DM client: device
// information, server accounts, session and transport limits and the
// management tree to serve.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/backkem/omadm/pkg/account"
	"github.com/backkem/omadm/pkg/auth"
	"github.com/backkem/omadm/pkg/codec"
	"github.com/backkem/omadm/pkg/mo"
	"github.com/backkem/omadm/pkg/mo/devinfo"
)

// DefaultServerID is the account used when the command line names none.
const DefaultServerID = "funambol"

var (
	// ErrInvalidConfig is returned by Validate.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// File is the decoded configuration file.
type File struct {
	Device    Device    `toml:"device"`
	Session   Session   `toml:"session"`
	Transport Transport `toml:"transport"`
	Tree      Tree      `toml:"tree"`
	Accounts  []Account `toml:"account"`
}

// Device is the [device] table.
type Device struct {
	DevID string `toml:"dev_id"`
	Man   string `toml:"man"`
	Mod   string `toml:"mod"`
	DmV   string `toml:"dmv"`
	Lang  string `toml:"lang"`
}

// Session is the [session] table.
type Session struct {
	Encoding       string `toml:"encoding"`
	MaxAuthRetries int    `toml:"max_auth_retries"`
	MaxMsgSize     int    `toml:"max_msg_size"`
	MaxPackets     int    `toml:"max_packets"`
}

// Transport is the [transport] table.
type Transport struct {
	Timeout      Duration `toml:"timeout"`
	MaxReplySize int64    `toml:"max_reply_size"`
}

// Tree is the [tree] table. An empty SQLitePath keeps the tree in memory.
type Tree struct {
	BaseURI    string            `toml:"base_uri"`
	SQLitePath string            `toml:"sqlite_path"`
	Nodes      map[string]string `toml:"nodes"`
}

// Account is one [[account]] entry.
type Account struct {
	ServerID   string     `toml:"server_id"`
	ServerURI  string     `toml:"server_uri"`
	ClientAuth Credential `toml:"client_auth"`
	ServerAuth Credential `toml:"server_auth"`
}

// Credential is an inline auth table. Secret may be sealed.
type Credential struct {
	Type   string `toml:"type"`
	Name   string `toml:"name"`
	Secret string `toml:"secret"`
	Nonce  string `toml:"nonce"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used without a file: a fresh device id
// and the account of a local Funambol server.
func Default() *File {
	return &File{
		Device: Device{
			DevID: "urn:uuid:" + uuid.NewString(),
			Man:   "omadm",
			Mod:   "testdmclient",
			DmV:   "1.2",
			Lang:  "en-US",
		},
		Session: Session{Encoding: codec.EncodingXML.String()},
		Tree:    Tree{BaseURI: mo.Root},
		Accounts: []Account{{
			ServerID:   DefaultServerID,
			ServerURI:  "http://localhost:8080/funambol/dm",
			ClientAuth: Credential{Type: "digest", Name: "funambol", Secret: "funambol"},
			ServerAuth: Credential{Type: "none"},
		}},
	}
}

// Load reads path over Default. Only keys present in the file replace
// defaults; a file with [[account]] entries replaces the default account.
func Load(path string) (*File, error) {
	cfg := Default()

	var raw File
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown key %s", ErrInvalidConfig, undecoded[0])
	}

	overlay := func(value string, dst *string, key ...string) {
		if meta.IsDefined(key...) {
			*dst = strings.TrimSpace(value)
		}
	}
	overlay(raw.Device.DevID, &cfg.Device.DevID, "device", "dev_id")
	overlay(raw.Device.Man, &cfg.Device.Man, "device", "man")
	overlay(raw.Device.Mod, &cfg.Device.Mod, "device", "mod")
	overlay(raw.Device.DmV, &cfg.Device.DmV, "device", "dmv")
	overlay(raw.Device.Lang, &cfg.Device.Lang, "device", "lang")
	overlay(raw.Session.Encoding, &cfg.Session.Encoding, "session", "encoding")
	overlay(raw.Tree.BaseURI, &cfg.Tree.BaseURI, "tree", "base_uri")
	overlay(raw.Tree.SQLitePath, &cfg.Tree.SQLitePath, "tree", "sqlite_path")

	if meta.IsDefined("session", "max_auth_retries") {
		cfg.Session.MaxAuthRetries = raw.Session.MaxAuthRetries
	}
	if meta.IsDefined("session", "max_msg_size") {
		cfg.Session.MaxMsgSize = raw.Session.MaxMsgSize
	}
	if meta.IsDefined("session", "max_packets") {
		cfg.Session.MaxPackets = raw.Session.MaxPackets
	}
	if meta.IsDefined("transport", "timeout") {
		cfg.Transport.Timeout = raw.Transport.Timeout
	}
	if meta.IsDefined("transport", "max_reply_size") {
		cfg.Transport.MaxReplySize = raw.Transport.MaxReplySize
	}
	if meta.IsDefined("tree", "nodes") {
		cfg.Tree.Nodes = raw.Tree.Nodes
	}
	if meta.IsDefined("account") {
		cfg.Accounts = raw.Accounts
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (f *File) Validate() error {
	if f.Device.DevID == "" {
		return fmt.Errorf("%w: device.dev_id is empty", ErrInvalidConfig)
	}
	if _, err := f.Encoding(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if f.Session.MaxAuthRetries < 0 || f.Session.MaxMsgSize < 0 || f.Session.MaxPackets < 0 {
		return fmt.Errorf("%w: negative session limit", ErrInvalidConfig)
	}
	if f.Transport.Timeout.Duration < 0 || f.Transport.MaxReplySize < 0 {
		return fmt.Errorf("%w: negative transport limit", ErrInvalidConfig)
	}
	base, err := mo.Normalize(f.treeBase())
	if err != nil {
		return fmt.Errorf("%w: tree.base_uri: %w", ErrInvalidConfig, err)
	}
	for uri := range f.Tree.Nodes {
		norm, err := mo.Normalize(uri)
		if err != nil {
			return fmt.Errorf("%w: tree.nodes: %w", ErrInvalidConfig, err)
		}
		if !mo.HasPrefix(norm, base) {
			return fmt.Errorf("%w: node %s outside %s", ErrInvalidConfig, uri, base)
		}
	}

	seen := make(map[string]bool, len(f.Accounts))
	for _, a := range f.Accounts {
		if seen[a.ServerID] {
			return fmt.Errorf("%w: duplicate account %s", ErrInvalidConfig, a.ServerID)
		}
		seen[a.ServerID] = true
		if _, err := a.toAccount(""); err != nil && !errors.Is(err, account.ErrSealed) {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Encoding parses session.encoding.
func (f *File) Encoding() (codec.Encoding, error) {
	if f.Session.Encoding == "" {
		return codec.EncodingXML, nil
	}
	return codec.ParseEncoding(f.Session.Encoding)
}

// DeviceInfo returns the [device] table as devinfo.Info.
func (f *File) DeviceInfo() devinfo.Info {
	return devinfo.Info{
		DevID: f.Device.DevID,
		Man:   f.Device.Man,
		Mod:   f.Device.Mod,
		DmV:   f.Device.DmV,
		Lang:  f.Device.Lang,
	}
}

// AccountStore returns the [[account]] entries as a store. Sealed secrets
// are opened with passphrase.
func (f *File) AccountStore(passphrase string) (*account.StaticStore, error) {
	accounts := make([]*account.Account, 0, len(f.Accounts))
	for _, a := range f.Accounts {
		acc, err := a.toAccount(passphrase)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return account.NewStaticStore(accounts...)
}

func (f *File) treeBase() string {
	if f.Tree.BaseURI == "" {
		return mo.Root
	}
	return f.Tree.BaseURI
}

func (a Account) toAccount(passphrase string) (*account.Account, error) {
	client, err := a.ClientAuth.toCredentials(passphrase)
	if err != nil {
		return nil, fmt.Errorf("account %s client_auth: %w", a.ServerID, err)
	}
	server, err := a.ServerAuth.toCredentials(passphrase)
	if err != nil {
		return nil, fmt.Errorf("account %s server_auth: %w", a.ServerID, err)
	}
	acc := &account.Account{
		ServerID:   a.ServerID,
		ServerURI:  a.ServerURI,
		ClientAuth: client,
		ServerAuth: server,
	}
	if err := acc.Validate(); err != nil {
		return nil, err
	}
	return acc, nil
}

func (c Credential) toCredentials(passphrase string) (account.Credentials, error) {
	t, err := auth.ParseType(c.Type)
	if err != nil {
		return account.Credentials{}, err
	}
	secret, err := account.Open(c.Secret, passphrase)
	if err != nil {
		return account.Credentials{}, err
	}
	var nonce []byte
	if c.Nonce != "" {
		if nonce, err = auth.DecodeNonce(c.Nonce); err != nil {
			return account.Credentials{}, err
		}
	}
	return account.Credentials{Type: t, Name: c.Name, Secret: secret, Nonce: nonce}, nil
}
