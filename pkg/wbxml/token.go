// Package wbxml implements the WAP Binary XML encoding (WAP-192-WBXML)
// with the SyncML 1.2 and MetInf code pages used by OMA DM.
//
// The Writer and Reader work at the token level. Translating a whole SyncML
// document is done by pkg/codec.
package wbxml

// Global tokens, shared by all code pages.
const (
	tokenSwitchPage byte = 0x00
	tokenEnd        byte = 0x01
	tokenEntity     byte = 0x02
	tokenStrI       byte = 0x03
	tokenLiteral    byte = 0x04
	tokenExtI0      byte = 0x40
	tokenExtI2      byte = 0x42
	tokenPI         byte = 0x43
	tokenLiteralC   byte = 0x44
	tokenExtT0      byte = 0x80
	tokenExtT2      byte = 0x82
	tokenStrT       byte = 0x83
	tokenLiteralA   byte = 0x84
	tokenExt0       byte = 0xC0
	tokenExt2       byte = 0xC2
	tokenOpaque     byte = 0xC3
	tokenLiteralAC  byte = 0xC4
)

// Tag token flags.
const (
	flagAttributes byte = 0x80
	flagContent    byte = 0x40
	tagMask        byte = 0x3F
)

// Header constants.
const (
	Version13 byte = 0x03

	// PublicIDSyncML12 is the registered public identifier of
	// "-//SYNCML//DTD SyncML 1.2//EN".
	PublicIDSyncML12 uint32 = 0x1201

	// PublicIDSyncML11 is "-//SYNCML//DTD SyncML 1.1//EN".
	PublicIDSyncML11 uint32 = 0x0FD3

	// CharsetUTF8 is the IANA MIBenum for UTF-8.
	CharsetUTF8 uint32 = 106
)

// Header is the WBXML document header.
type Header struct {
	Version     byte
	PublicID    uint32
	Charset     uint32
	StringTable []byte
}

// Kind is the type of a decoded token.
type Kind int

const (
	KindStart Kind = iota
	KindEnd
	KindText
	KindOpaque
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindStart:
		return "Start"
	case KindEnd:
		return "End"
	case KindText:
		return "Text"
	case KindOpaque:
		return "Opaque"
	default:
		return "Unknown"
	}
}

// Token is one decoded WBXML token.
type Token struct {
	Kind Kind

	// Page and Tag identify the element for Start and End tokens.
	Page byte
	Tag  byte

	// Name is the element name resolved through the code page, or the
	// string-table name for LITERAL tags.
	Name string

	// HasContent is set on Start tokens that are followed by content and
	// an End token. Empty elements produce no End token.
	HasContent bool

	// Text holds inline, table or entity character data.
	Text string

	// Data holds OPAQUE bytes.
	Data []byte
}
