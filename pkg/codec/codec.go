// Package codec converts SyncML messages to and from their wire encodings.
//
// OMA DM defines two encodings for the same document: plain XML and WBXML.
// Both are served by the Codec interface.
package codec

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/backkem/omadm/pkg/syncml"
)

// Content types of the two encodings.
const (
	ContentTypeXML   = "application/vnd.syncml+xml"
	ContentTypeWBXML = "application/vnd.syncml+wbxml"
)

var (
	// ErrDecode is returned when bytes cannot be decoded into a message.
	ErrDecode = errors.New("codec: decode failed")

	// ErrEncode is returned when a message cannot be encoded.
	ErrEncode = errors.New("codec: encode failed")

	// ErrUnknownEncoding is returned for an unsupported encoding or
	// content type.
	ErrUnknownEncoding = errors.New("codec: unknown encoding")
)

// Encoding selects the wire format.
type Encoding int

const (
	EncodingXML Encoding = iota
	EncodingWBXML
)

// String returns the encoding name.
func (e Encoding) String() string {
	switch e {
	case EncodingXML:
		return "xml"
	case EncodingWBXML:
		return "wbxml"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// IsValid returns true if the encoding is known.
func (e Encoding) IsValid() bool {
	return e == EncodingXML || e == EncodingWBXML
}

// ContentType returns the HTTP content type for the encoding.
func (e Encoding) ContentType() string {
	if e == EncodingWBXML {
		return ContentTypeWBXML
	}
	return ContentTypeXML
}

// ParseEncoding parses "xml" or "wbxml".
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "xml":
		return EncodingXML, nil
	case "wbxml":
		return EncodingWBXML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
	}
}

// Codec encodes and decodes SyncML messages.
type Codec interface {
	// Encode serializes msg.
	Encode(msg *syncml.Message) ([]byte, error)

	// Decode parses data. Errors wrap ErrDecode.
	Decode(data []byte) (*syncml.Message, error)

	// ContentType returns the HTTP content type of encoded messages.
	ContentType() string

	// Encoding returns the wire format.
	Encoding() Encoding
}

// ForEncoding returns the codec for e.
func ForEncoding(e Encoding) (Codec, error) {
	switch e {
	case EncodingXML:
		return XML{}, nil
	case EncodingWBXML:
		return WBXML{}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownEncoding, e)
	}
}

// ForContentType returns the codec for an HTTP Content-Type value.
// Parameters such as charset are ignored. The DM specific types are
// accepted as aliases.
func ForContentType(ct string) (Codec, error) {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, ct)
	}
	switch mt {
	case ContentTypeXML, "application/vnd.syncml.dm+xml":
		return XML{}, nil
	case ContentTypeWBXML, "application/vnd.syncml.dm+wbxml":
		return WBXML{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, ct)
	}
}
