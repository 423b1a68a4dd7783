package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/backkem/omadm/pkg/account"
	"github.com/backkem/omadm/pkg/codec"
	"github.com/backkem/omadm/pkg/session"
	"github.com/backkem/omadm/pkg/syncml"
	"github.com/backkem/omadm/pkg/transport"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(*options) bool
	}{
		{"defaults", nil, false, func(o *options) bool { return o.serverID == "funambol" && !o.wbxml }},
		{"wbxml server", []string{"-w", "-s", "other"}, false, func(o *options) bool { return o.wbxml && o.serverID == "other" }},
		{"replay", []string{"-f", "msg.xml"}, false, func(o *options) bool { return o.replayFile == "msg.xml" }},
		{"server and replay", []string{"-s", "other", "-f", "msg.xml"}, true, nil},
		{"extra argument", []string{"now"}, true, nil},
		{"unknown flag", []string{"-x"}, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := parseFlags(tt.args, &bytes.Buffer{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseFlags() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(o) {
				t.Errorf("parseFlags() = %+v", o)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"http status", fmt.Errorf("send: %w", &transport.StatusError{Code: 404}), 404},
		{"decode", session.ErrProtocolDecode, int(session.ResultProtocolDecode)},
		{"unknown server", session.ErrUnknownServer, int(session.ResultInvalidArgument)},
		{"other", errors.New("boom"), int(session.ResultOf(errors.New("boom")))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func testMessage(t *testing.T, enc codec.Encoding) []byte {
	t.Helper()
	c, err := codec.ForEncoding(enc)
	if err != nil {
		t.Fatalf("ForEncoding failed: %v", err)
	}
	data, err := c.Encode(&syncml.Message{
		Hdr: syncml.SyncHdr{
			VerDTD:    syncml.VerDTD,
			VerProto:  syncml.VerProto,
			SessionID: "1",
			MsgID:     "1",
			Target:    syncml.LocRef{LocURI: "IMEI:1"},
			Source:    syncml.LocRef{LocURI: "http://localhost:8080/funambol/dm"},
		},
		Body: syncml.SyncBody{
			Commands: []syncml.Command{&syncml.Get{ItemCommand: syncml.ItemCommand{
				CmdID: "2",
				Items: []syncml.Item{{Target: &syncml.LocRef{LocURI: "./DevInfo/Man"}}},
			}}},
			Final: true,
		},
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return data
}

func TestFormatPacket(t *testing.T) {
	xmlOut := formatPacket(testMessage(t, codec.EncodingXML))
	if !strings.Contains(xmlOut, "\n  <SyncHdr>") {
		t.Errorf("XML dump not indented:\n%s", xmlOut)
	}

	wbxmlOut := formatPacket(testMessage(t, codec.EncodingWBXML))
	if !strings.HasPrefix(wbxmlOut, "00000000  03") {
		t.Errorf("WBXML dump is not a hex dump:\n%s", wbxmlOut)
	}

	if got := formatPacket([]byte("<broken")); got != "<broken" {
		t.Errorf("formatPacket(broken) = %q", got)
	}
}

func TestRun_Replay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "msg.xml")
	if err := os.WriteFile(path, testMessage(t, codec.EncodingXML), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-f", path}, strings.NewReader(""), &stdout, &stderr); code != exitOK {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr.String())
	}
	out := stderr.String()
	if !strings.Contains(out, "Inbound packet 1") || !strings.Contains(out, "Outbound packet 2") {
		t.Errorf("missing packet dumps:\n%s", out)
	}
	if !strings.Contains(stdout.String(), "<Data>omadm</Data>") {
		t.Errorf("answer on stdout has no device manufacturer:\n%s", stdout.String())
	}
}

func TestRun_ReplayDMAcc(t *testing.T) {
	dir := t.TempDir()
	msgPath := filepath.Join(dir, "msg.xml")
	if err := os.WriteFile(msgPath, testMessage(t, codec.EncodingXML), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	cfgPath := filepath.Join(dir, "device.toml")
	cfg := `
[device]
dev_id = "IMEI:1"

[tree.nodes]
"./DMAcc/a/ServerID" = "funambol"
"./DMAcc/a/AppAddr/1/Addr" = "http://dmacc.example/dm"
"./DMAcc/a/AppAuth/1/AAuthLevel" = "CLCRED"
"./DMAcc/a/AppAuth/1/AAuthType" = "BASIC"
"./DMAcc/a/AppAuth/1/AAuthName" = "dev"
"./DMAcc/a/AppAuth/1/AAuthSecret" = "pw"
`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	var stderr bytes.Buffer
	if code := run([]string{"-config", cfgPath, "-f", msgPath}, strings.NewReader(""), &bytes.Buffer{}, &stderr); code != exitOK {
		t.Fatalf("run() = %d, stderr:\n%s", code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "http://dmacc.example/dm") {
		t.Errorf("answer not addressed to the ./DMAcc server:\n%s", stderr.String())
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"usage", []string{"-s", "a", "-f", "b"}, exitUsage},
		{"missing replay file", []string{"-f", filepath.Join(t.TempDir(), "none.xml")}, exitReplayFile},
		{"missing config", []string{"-config", filepath.Join(t.TempDir(), "none.toml")}, exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{}); got != tt.want {
				t.Errorf("run() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRun_Seal(t *testing.T) {
	t.Setenv(account.PassphraseEnv, "correct horse")

	var stdout bytes.Buffer
	if code := run([]string{"-seal", "s3cret"}, strings.NewReader(""), &stdout, &bytes.Buffer{}); code != exitOK {
		t.Fatalf("run() = %d", code)
	}
	sealed := strings.TrimSpace(stdout.String())
	got, err := account.Open(sealed, "correct horse")
	if err != nil || got != "s3cret" {
		t.Errorf("Open(%q) = %q, %v", sealed, got, err)
	}

	t.Setenv(account.PassphraseEnv, "")
	if code := run([]string{"-seal", "s3cret"}, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{}); code != exitUsage {
		t.Errorf("run() without passphrase = %d, want %d", code, exitUsage)
	}
}
