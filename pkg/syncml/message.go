package syncml

import (
	"encoding/xml"
	"strconv"
)

// Message is one SyncML message: a header and an ordered command body.
type Message struct {
	XMLName xml.Name `xml:"SyncML"`
	XMLNS   string   `xml:"xmlns,attr,omitempty"`
	Hdr     SyncHdr  `xml:"SyncHdr"`
	Body    SyncBody `xml:"SyncBody"`
}

// SyncHdr identifies the session, the message and the two parties.
type SyncHdr struct {
	VerDTD    string `xml:"VerDTD"`
	VerProto  string `xml:"VerProto"`
	SessionID string `xml:"SessionID"`
	MsgID     string `xml:"MsgID"`
	Target    LocRef `xml:"Target"`
	Source    LocRef `xml:"Source"`
	RespURI   string `xml:"RespURI,omitempty"`
	Cred      *Cred  `xml:"Cred,omitempty"`
	Meta      *Meta  `xml:"Meta,omitempty"`
}

// LocRef is a Target or Source element.
type LocRef struct {
	LocURI  string `xml:"LocURI"`
	LocName string `xml:"LocName,omitempty"`
}

// Cred carries authentication data; Meta gives its type and format.
type Cred struct {
	Meta *Meta  `xml:"Meta,omitempty"`
	Data string `xml:"Data"`
}

// Type returns the authentication type, or "" if not given.
func (c *Cred) Type() string {
	if c == nil || c.Meta == nil {
		return ""
	}
	return string(c.Meta.Type)
}

// Chal is an authentication challenge carried in a Status.
type Chal struct {
	Meta *Meta `xml:"Meta"`
}

// Empty is an element with no content (Final, NoResp).
type Empty struct{}

// MetInf is a string element in the syncml:metinf namespace.
type MetInf string

// MarshalXML places the element in the MetInf namespace.
func (m MetInf) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Space = NamespaceMetInf
	return e.EncodeElement(string(m), start)
}

// Meta holds MetInf properties.
type Meta struct {
	Format     MetInf `xml:"Format,omitempty"`
	Type       MetInf `xml:"Type,omitempty"`
	Size       MetInf `xml:"Size,omitempty"`
	NextNonce  MetInf `xml:"NextNonce,omitempty"`
	MaxMsgSize MetInf `xml:"MaxMsgSize,omitempty"`
	MaxObjSize MetInf `xml:"MaxObjSize,omitempty"`
}

// Item is an addressed piece of data.
type Item struct {
	Target *LocRef `xml:"Target,omitempty"`
	Source *LocRef `xml:"Source,omitempty"`
	Meta   *Meta   `xml:"Meta,omitempty"`
	Data   string  `xml:"Data,omitempty"`
}

// TargetURI returns the Target LocURI or "".
func (i *Item) TargetURI() string {
	if i.Target == nil {
		return ""
	}
	return i.Target.LocURI
}

// SourceURI returns the Source LocURI or "".
func (i *Item) SourceURI() string {
	if i.Source == nil {
		return ""
	}
	return i.Source.LocURI
}

// Format returns the item's MetInf Format or "".
func (i *Item) Format() string {
	if i.Meta == nil {
		return ""
	}
	return string(i.Meta.Format)
}

// Type returns the item's MetInf Type or "".
func (i *Item) Type() string {
	if i.Meta == nil {
		return ""
	}
	return string(i.Meta.Type)
}

// Command is any element of a SyncBody.
type Command interface {
	// Name returns the element name (e.g. "Get").
	Name() string

	// ID returns the CmdID.
	ID() string
}

// Alert requests an action identified by its code.
type Alert struct {
	CmdID      string `xml:"CmdID"`
	NoResp     *Empty `xml:"NoResp,omitempty"`
	Data       string `xml:"Data"`
	Correlator string `xml:"Correlator,omitempty"`
	Items      []Item `xml:"Item,omitempty"`
}

// Name implements Command.
func (a *Alert) Name() string { return CmdAlert }

// ID implements Command.
func (a *Alert) ID() string { return a.CmdID }

// Code parses the alert code.
func (a *Alert) Code() (AlertCode, error) { return ParseAlertCode(a.Data) }

// ItemCommand is the shape shared by Get, Add, Replace, Delete.
type ItemCommand struct {
	CmdID  string `xml:"CmdID"`
	NoResp *Empty `xml:"NoResp,omitempty"`
	Meta   *Meta  `xml:"Meta,omitempty"`
	Items  []Item `xml:"Item"`
}

// ID implements Command.
func (c *ItemCommand) ID() string { return c.CmdID }

// Get reads nodes.
type Get struct{ ItemCommand }

// Name implements Command.
func (g *Get) Name() string { return CmdGet }

// Add creates nodes.
type Add struct{ ItemCommand }

// Name implements Command.
func (a *Add) Name() string { return CmdAdd }

// Replace updates nodes.
type Replace struct{ ItemCommand }

// Name implements Command.
func (r *Replace) Name() string { return CmdReplace }

// Delete removes nodes.
type Delete struct{ ItemCommand }

// Name implements Command.
func (d *Delete) Name() string { return CmdDelete }

// Exec runs an executable node.
type Exec struct {
	CmdID      string `xml:"CmdID"`
	NoResp     *Empty `xml:"NoResp,omitempty"`
	Meta       *Meta  `xml:"Meta,omitempty"`
	Correlator string `xml:"Correlator,omitempty"`
	Items      []Item `xml:"Item"`
}

// Name implements Command.
func (x *Exec) Name() string { return CmdExec }

// ID implements Command.
func (x *Exec) ID() string { return x.CmdID }

// Status reports the outcome of a command (or of the header when Cmd is
// SyncHdr and CmdRef is 0).
type Status struct {
	CmdID     string   `xml:"CmdID"`
	MsgRef    string   `xml:"MsgRef"`
	CmdRef    string   `xml:"CmdRef"`
	Cmd       string   `xml:"Cmd"`
	TargetRef []string `xml:"TargetRef,omitempty"`
	SourceRef []string `xml:"SourceRef,omitempty"`
	Chal      *Chal    `xml:"Chal,omitempty"`
	Data      string   `xml:"Data"`
	Items     []Item   `xml:"Item,omitempty"`
}

// Name implements Command.
func (s *Status) Name() string { return CmdStatus }

// ID implements Command.
func (s *Status) ID() string { return s.CmdID }

// Code parses the status code.
func (s *Status) Code() (StatusCode, error) { return ParseStatusCode(s.Data) }

// IsHeaderStatus returns true if this Status answers the SyncHdr.
func (s *Status) IsHeaderStatus() bool {
	return s.Cmd == CmdSyncHdr && s.CmdRef == "0"
}

// Results returns the data read by a Get.
type Results struct {
	CmdID     string   `xml:"CmdID"`
	MsgRef    string   `xml:"MsgRef,omitempty"`
	CmdRef    string   `xml:"CmdRef"`
	Meta      *Meta    `xml:"Meta,omitempty"`
	TargetRef []string `xml:"TargetRef,omitempty"`
	SourceRef []string `xml:"SourceRef,omitempty"`
	Items     []Item   `xml:"Item"`
}

// Name implements Command.
func (r *Results) Name() string { return CmdResults }

// ID implements Command.
func (r *Results) ID() string { return r.CmdID }

// Sequence groups commands that must be executed in order.
type Sequence struct {
	CmdID    string
	NoResp   *Empty
	Meta     *Meta
	Commands []Command
}

// Name implements Command.
func (s *Sequence) Name() string { return CmdSequence }

// ID implements Command.
func (s *Sequence) ID() string { return s.CmdID }

// Atomic groups commands that must all succeed or all be rolled back.
type Atomic struct {
	CmdID    string
	NoResp   *Empty
	Meta     *Meta
	Commands []Command
}

// Name implements Command.
func (a *Atomic) Name() string { return CmdAtomic }

// ID implements Command.
func (a *Atomic) ID() string { return a.CmdID }

// Unknown is a command this package does not model (Copy, Map, ...).
// Only its CmdID is kept so it can be answered.
type Unknown struct {
	Element string `xml:"-"`
	CmdID   string `xml:"CmdID"`
}

// Name implements Command.
func (u *Unknown) Name() string { return u.Element }

// ID implements Command.
func (u *Unknown) ID() string { return u.CmdID }

// SyncBody is the ordered command list plus the Final flag.
type SyncBody struct {
	Commands []Command
	Final    bool
}

// CmdIDString formats a command or message counter.
func CmdIDString(n int) string {
	return strconv.Itoa(n)
}
