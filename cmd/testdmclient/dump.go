package main

import (
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"sync"

	"github.com/backkem/omadm/pkg/client"
	"github.com/backkem/omadm/pkg/codec"
	"github.com/backkem/omadm/pkg/session"
)

// dumper prints packets the way a protocol trace reads: WBXML as hex with
// its ASCII column, XML indented.
type dumper struct {
	mu sync.Mutex
	w  io.Writer
	n  int
}

func newDumper(w io.Writer) *dumper {
	return &dumper{w: w}
}

func (d *dumper) trace(dir client.Direction, pkt *session.Packet) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.n++
	fmt.Fprintf(d.w, "\n----------- %s packet %d (%d bytes) -----------\n", dir, d.n, len(pkt.Data))
	fmt.Fprintln(d.w, formatPacket(pkt.Data))
}

// formatPacket renders data for the trace. The encoding is taken from the
// content, since replayed messages carry no content type.
func formatPacket(data []byte) string {
	if isWBXML(data) {
		return hex.Dump(data)
	}
	msg, err := codec.XML{}.Decode(data)
	if err != nil {
		return string(data)
	}
	out, err := xml.MarshalIndent(msg, "", "  ")
	if err != nil {
		return string(data)
	}
	return string(out)
}

func isWBXML(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '<', 0xEF:
			return false
		default:
			return true
		}
	}
	return false
}
