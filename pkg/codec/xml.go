package codec

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/backkem/omadm/pkg/syncml"
)

// XML is the plain XML codec.
type XML struct{}

// Encode implements Codec.
func (XML) Encode(msg *syncml.Message) ([]byte, error) {
	m := *msg
	if m.XMLNS == "" {
		m.XMLNS = syncml.NamespaceSyncML
	}
	out, err := xml.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	buf := make([]byte, 0, len(xml.Header)+len(out))
	buf = append(buf, xml.Header...)
	return append(buf, out...), nil
}

// Decode implements Codec.
func (XML) Decode(data []byte) (*syncml.Message, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty message", ErrDecode)
	}
	var msg syncml.Message
	if err := xml.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &msg, nil
}

// Encoding implements Codec.
func (XML) Encoding() Encoding { return EncodingXML }

// ContentType implements Codec.
func (XML) ContentType() string { return EncodingXML.ContentType() }
