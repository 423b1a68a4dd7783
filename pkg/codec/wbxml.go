package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/backkem/omadm/pkg/syncml"
	"github.com/backkem/omadm/pkg/wbxml"
)

// WBXML is the binary codec. It goes through the XML form so both codecs
// share one document model.
type WBXML struct{}

// Encode implements Codec.
func (WBXML) Encode(msg *syncml.Message) ([]byte, error) {
	doc, err := XML{}.Encode(msg)
	if err != nil {
		return nil, err
	}
	out, err := XMLToWBXML(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return out, nil
}

// Decode implements Codec.
func (WBXML) Decode(data []byte) (*syncml.Message, error) {
	doc, err := WBXMLToXML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return XML{}.Decode(doc)
}

// Encoding implements Codec.
func (WBXML) Encoding() Encoding { return EncodingWBXML }

// element is the in-memory form used while translating XML to WBXML.
// Each element needs to know whether it has content before its tag is
// written.
type element struct {
	name     xml.Name
	text     strings.Builder
	children []*element
}

func (e *element) hasContent() bool {
	return len(e.children) > 0 || e.text.Len() > 0
}

// XMLToWBXML translates a SyncML XML document into WBXML.
func XMLToWBXML(doc []byte) ([]byte, error) {
	root, err := parseTree(doc)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := wbxml.NewWriter(&buf)
	if err := w.WriteHeader(wbxml.PublicIDSyncML12); err != nil {
		return nil, err
	}
	if err := writeElement(w, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parseTree(doc []byte) (*element, error) {
	d := xml.NewDecoder(bytes.NewReader(doc))
	var root *element
	var stack []*element
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{name: t.Name}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("multiple root elements")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, errors.New("no root element")
	}
	trimMixed(root)
	return root, nil
}

// trimMixed drops the indentation whitespace of elements that have children.
func trimMixed(e *element) {
	if len(e.children) == 0 {
		return
	}
	if strings.TrimSpace(e.text.String()) == "" {
		e.text.Reset()
	}
	for _, c := range e.children {
		trimMixed(c)
	}
}

func writeElement(w *wbxml.Writer, e *element) error {
	page, tag, ok := wbxml.SyncML.Lookup(e.name.Space, e.name.Local)
	if !ok {
		return fmt.Errorf("%w: %s", wbxml.ErrUnknownTag, e.name.Local)
	}
	content := e.hasContent()
	if err := w.StartElement(page, tag, content); err != nil {
		return err
	}
	if !content {
		return nil
	}
	if e.text.Len() > 0 {
		if err := w.PutString(e.text.String()); err != nil {
			return err
		}
	}
	for _, c := range e.children {
		if err := writeElement(w, c); err != nil {
			return err
		}
	}
	return w.EndElement()
}

// WBXMLToXML translates a SyncML WBXML document into XML text. MetInf
// elements carry their namespace so the XML form matches what peers send.
func WBXMLToXML(data []byte) ([]byte, error) {
	r := wbxml.NewReader(bytes.NewReader(data), wbxml.SyncML)

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)

	var open []xml.StartElement
	for {
		tok, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch tok.Kind {
		case wbxml.KindStart:
			start := xml.StartElement{Name: xml.Name{Local: tok.Name}}
			switch {
			case len(open) == 0:
				start.Name.Space = syncml.NamespaceSyncML
			case tok.Page == wbxml.PageMetInf.Index:
				start.Name.Space = syncml.NamespaceMetInf
			}
			if err := enc.EncodeToken(start); err != nil {
				return nil, err
			}
			if tok.HasContent {
				open = append(open, start)
			} else if err := enc.EncodeToken(start.End()); err != nil {
				return nil, err
			}
		case wbxml.KindEnd:
			start := open[len(open)-1]
			open = open[:len(open)-1]
			if err := enc.EncodeToken(start.End()); err != nil {
				return nil, err
			}
		case wbxml.KindText:
			if err := enc.EncodeToken(xml.CharData(tok.Text)); err != nil {
				return nil, err
			}
		case wbxml.KindOpaque:
			if err := enc.EncodeToken(xml.CharData(tok.Data)); err != nil {
				return nil, err
			}
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ContentType implements Codec.
func (WBXML) ContentType() string { return EncodingWBXML.ContentType() }
