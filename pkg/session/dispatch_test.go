package session

import (
	"context"
	"reflect"
	"testing"

	"github.com/backkem/omadm/pkg/codec"
	"github.com/backkem/omadm/pkg/mo/devinfo"
	"github.com/backkem/omadm/pkg/mo/memtree"
	"github.com/backkem/omadm/pkg/syncml"
	"github.com/backkem/omadm/pkg/ui"
)

func TestSession_Dispatch(t *testing.T) {
	s := newTestSession(t, codec.EncodingXML)
	tree, err := memtree.New("./Vendor")
	if err != nil {
		t.Fatalf("memtree.New failed: %v", err)
	}
	if err := s.AddProvider(tree); err != nil {
		t.Fatalf("AddProvider failed: %v", err)
	}
	ctx := context.Background()
	if err := s.Start(ctx, testServerID, InitiatorClient); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	srv := &testServer{t: t, s: s}

	noResp := getCmd("15", "./DevInfo/Lang")
	noResp.NoResp = &syncml.Empty{}

	err = s.ProcessReply(ctx, srv.reply(true,
		hdrStatus(syncml.StatusAuthenticationAccepted),
		&syncml.Add{ItemCommand: itemCmd("2", "./Vendor/x", syncml.FormatChr, "1")},
		&syncml.Add{ItemCommand: itemCmd("3", "./Vendor/x", syncml.FormatChr, "1")},
		&syncml.Replace{ItemCommand: itemCmd("4", "./Vendor/missing", syncml.FormatChr, "1")},
		&syncml.Replace{ItemCommand: itemCmd("5", "./Vendor/x", syncml.FormatB64, "aGk=")},
		getCmd("6", "./Vendor/x"),
		&syncml.Delete{ItemCommand: itemCmd("7", "./Vendor/x", "", "")},
		getCmd("8", "./Nope/a"),
		&syncml.Exec{CmdID: "9", Items: []syncml.Item{{Target: &syncml.LocRef{LocURI: "./Vendor"}}}},
		&syncml.Atomic{CmdID: "10", Commands: []syncml.Command{
			&syncml.Replace{ItemCommand: itemCmd("11", "./Vendor/y", syncml.FormatChr, "2")},
		}},
		&syncml.Unknown{Element: syncml.CmdCopy, CmdID: "12"},
		&syncml.Sequence{CmdID: "13", Commands: []syncml.Command{getCmd("14", "./DevInfo")}},
		noResp,
		&syncml.Get{ItemCommand: syncml.ItemCommand{CmdID: "16"}},
		&syncml.Add{ItemCommand: itemCmd("17", "./Vendor/z", syncml.FormatB64, "%%%")},
	))
	if err != nil {
		t.Fatalf("ProcessReply failed: %v", err)
	}
	msg := next(t, s)

	tests := []struct {
		cmdRef string
		want   string
	}{
		{"2", "200"},
		{"3", "418"},
		{"4", "404"},
		{"5", "200"},
		{"6", "200"},
		{"7", "200"},
		{"8", "404"},
		{"9", "405"},
		{"10", "406"},
		{"11", "215"},
		{"12", "406"},
		{"13", "200"},
		{"14", "200"},
		{"16", "412"},
		{"17", "400"},
	}
	for _, tt := range tests {
		t.Run("cmd "+tt.cmdRef, func(t *testing.T) {
			if got := statusCode(t, msg, tt.cmdRef); got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
		})
	}

	if sts := statusesFor(msg, "12"); sts[0].Cmd != syncml.CmdCopy {
		t.Errorf("Copy status Cmd = %q", sts[0].Cmd)
	}
	if sts := statusesFor(msg, "2"); !reflect.DeepEqual(sts[0].TargetRef, []string{"./Vendor/x"}) {
		t.Errorf("Add TargetRef = %v", sts[0].TargetRef)
	}
	if len(statusesFor(msg, "15")) != 0 {
		t.Error("Status sent for a NoResp command")
	}
	if res := resultsFor(msg, "15"); len(res) != 1 || res[0].Items[0].Data != "en-US" {
		t.Errorf("NoResp Get results = %+v", res)
	}

	res := resultsFor(msg, "6")
	if len(res) != 1 || res[0].Items[0].Data != "aGk=" || res[0].Items[0].Format() != syncml.FormatB64 {
		t.Errorf("b64 Get results = %+v", res)
	}
	res = resultsFor(msg, "14")
	if len(res) != 1 || res[0].Items[0].Format() != syncml.FormatNode || res[0].Items[0].Data != "DevId/Man/Mod/DmV/Lang" {
		t.Errorf("interior Get results = %+v", res)
	}

	if kind, _ := tree.IsNode(ctx, "./Vendor/y"); kind != 0 {
		t.Error("command inside Atomic was executed")
	}
}

func TestSession_UIAlertsBeforeLaterCommands(t *testing.T) {
	s := newTestSession(t, codec.EncodingXML)
	var journal []string
	if err := s.AddProvider(&recorder{journal: &journal}); err != nil {
		t.Fatalf("AddProvider failed: %v", err)
	}
	s.SetUIHandler(ui.HandlerFunc(func(ctx context.Context, a *ui.Alert) (ui.Response, error) {
		journal = append(journal, "alert:"+a.DisplayMessage)
		return ui.Response{Status: syncml.StatusOK}, nil
	}))
	ctx := context.Background()
	if err := s.Start(ctx, testServerID, InitiatorClient); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	srv := &testServer{t: t, s: s}

	err := s.ProcessReply(ctx, srv.reply(true,
		hdrStatus(syncml.StatusOK),
		&syncml.Alert{CmdID: "2", Data: "1100", Items: []syncml.Item{{Data: "MINDT=1"}, {Data: "one"}}},
		&syncml.Alert{CmdID: "3", Data: "1101", Items: []syncml.Item{{Data: "two"}}},
		getCmd("4", "./Rec/v"),
	))
	if err != nil {
		t.Fatalf("ProcessReply failed: %v", err)
	}

	want := []string{"alert:one", "alert:two", "get"}
	if !reflect.DeepEqual(journal, want) {
		t.Errorf("journal = %v, want %v", journal, want)
	}

	msg := next(t, s)
	if got := statusCode(t, msg, "2"); got != "200" {
		t.Errorf("display status = %s, want 200", got)
	}
	if got := statusCode(t, msg, "3"); got != "200" {
		t.Errorf("confirm status = %s, want 200", got)
	}
	if res := resultsFor(msg, "4"); len(res) != 1 || res[0].Items[0].Data != "ok" {
		t.Errorf("Results = %+v", res)
	}
}

func TestSession_UIReplies(t *testing.T) {
	tests := []struct {
		name      string
		alert     *syncml.Alert
		handler   ui.Handler
		wantCode  string
		wantItems []string
	}{
		{
			name: "input truncated",
			alert: &syncml.Alert{CmdID: "2", Data: "1102", Items: []syncml.Item{
				{Data: "MAXLEN=5"}, {Data: "Enter code"},
			}},
			handler: ui.HandlerFunc(func(ctx context.Context, a *ui.Alert) (ui.Response, error) {
				return ui.Response{Reply: "0123456789"}, nil
			}),
			wantCode:  "200",
			wantItems: []string{"01234"},
		},
		{
			name: "multiple choice",
			alert: &syncml.Alert{CmdID: "2", Data: "1104", Items: []syncml.Item{
				{Data: ""}, {Data: "Pick"}, {Data: "a"}, {Data: "b"}, {Data: "c"},
			}},
			handler: ui.HandlerFunc(func(ctx context.Context, a *ui.Alert) (ui.Response, error) {
				return ui.Response{Reply: "1-3"}, nil
			}),
			wantCode:  "200",
			wantItems: []string{"1", "3"},
		},
		{
			name: "confirm without handler",
			alert: &syncml.Alert{CmdID: "2", Data: "1101", Items: []syncml.Item{
				{Data: "Reboot?"},
			}},
			wantCode: "304",
		},
		{
			name: "input default without handler",
			alert: &syncml.Alert{CmdID: "2", Data: "1102", Items: []syncml.Item{
				{Data: "DR=abc"}, {Data: "Name?"},
			}},
			wantCode:  "200",
			wantItems: []string{"abc"},
		},
		{
			name:     "missing message",
			alert:    &syncml.Alert{CmdID: "2", Data: "1100"},
			wantCode: "412",
		},
		{
			name:     "unsupported alert",
			alert:    &syncml.Alert{CmdID: "2", Data: "1226"},
			wantCode: "406",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := startTestSession(t, codec.EncodingXML)
			if tt.handler != nil {
				s.SetUIHandler(tt.handler)
			}
			srv := &testServer{t: t, s: s}
			if err := s.ProcessReply(context.Background(), srv.reply(true, hdrStatus(syncml.StatusOK), tt.alert)); err != nil {
				t.Fatalf("ProcessReply failed: %v", err)
			}
			msg := next(t, s)
			sts := statusesFor(msg, "2")
			if len(sts) != 1 {
				t.Fatalf("got %d statuses, want 1", len(sts))
			}
			if sts[0].Data != tt.wantCode {
				t.Errorf("status = %s, want %s", sts[0].Data, tt.wantCode)
			}
			var items []string
			for _, it := range sts[0].Items {
				items = append(items, it.Data)
			}
			if !reflect.DeepEqual(items, tt.wantItems) {
				t.Errorf("items = %v, want %v", items, tt.wantItems)
			}
		})
	}
}

func TestSession_WBXMLDevInfo(t *testing.T) {
	s := newTestSession(t, codec.EncodingWBXML)
	p, err := devinfo.New(devinfo.Info{DevID: "dev-wbxml", Man: "Funambol"})
	if err != nil {
		t.Fatalf("devinfo.New failed: %v", err)
	}
	if err := s.AddProvider(p); err != nil {
		t.Fatalf("AddProvider failed: %v", err)
	}
	ctx := context.Background()
	if err := s.Start(ctx, testServerID, InitiatorClient); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	first, err := s.NextPacket()
	if err != nil {
		t.Fatalf("NextPacket failed: %v", err)
	}
	if first.ContentType() != codec.ContentTypeWBXML || first.Data[0] != 0x03 {
		t.Errorf("first packet is not WBXML: %q %x", first.ContentType(), first.Data[:4])
	}
	first.Release()

	srv := &testServer{t: t, s: s}
	if err := s.ProcessReply(ctx, srv.reply(true,
		hdrStatus(syncml.StatusAuthenticationAccepted),
		getCmd("2", "./DevInfo/Man"),
	)); err != nil {
		t.Fatalf("ProcessReply failed: %v", err)
	}

	msg := next(t, s)
	if msg.Hdr.Source.LocURI != "dev-wbxml" {
		t.Errorf("Source = %q, want the registered device id", msg.Hdr.Source.LocURI)
	}
	if got := statusCode(t, msg, "2"); got != "200" {
		t.Errorf("Get status = %s, want 200", got)
	}
	res := resultsFor(msg, "2")
	if len(res) != 1 || res[0].Items[0].Data != "Funambol" {
		t.Errorf("Results = %+v", res)
	}
}
