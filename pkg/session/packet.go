package session

import (
	"bytes"

	"github.com/backkem/omadm/pkg/codec"
)

// Packet is one encoded SyncML message and where it goes.
//
// Packets returned by NextPacket are copies owned by the caller. The session
// hands out no further packet until Release is called on the current one.
type Packet struct {
	// URI is the server address the packet must be posted to.
	URI string

	// Data is the encoded message.
	Data []byte

	// Encoding of Data.
	Encoding codec.Encoding

	// HMAC is the value of the x-syncml-hmac transport header, or "" when
	// the account does not use HMAC authentication.
	HMAC string

	owner *Session
	gen   uint64
}

// ContentType returns the HTTP content type of Data.
func (p *Packet) ContentType() string {
	return p.Encoding.ContentType()
}

// Release returns the packet to the session. It is safe to call more than
// once and on packets not obtained from NextPacket.
func (p *Packet) Release() {
	if p.owner != nil && p.owner.held && p.owner.heldGen == p.gen {
		p.owner.held = false
	}
	p.owner = nil
	p.Data = nil
}

func (p *Packet) clone() *Packet {
	return &Packet{
		URI:      p.URI,
		Data:     bytes.Clone(p.Data),
		Encoding: p.Encoding,
		HMAC:     p.HMAC,
	}
}
