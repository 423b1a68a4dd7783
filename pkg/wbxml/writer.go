package wbxml

import (
	"io"
	"strings"
)

// Writer encodes WBXML tokens to an io.Writer.
type Writer struct {
	w     io.Writer
	buf   []byte
	page  byte
	depth int
}

// NewWriter creates a new WBXML Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader writes the document header with an empty string table.
func (w *Writer) WriteHeader(publicID uint32) error {
	w.buf = append(w.buf[:0], Version13)
	w.buf = appendMBUint32(w.buf, publicID)
	w.buf = appendMBUint32(w.buf, CharsetUTF8)
	w.buf = appendMBUint32(w.buf, 0)
	return w.flush()
}

// StartElement writes a tag token, switching code page first if needed.
// Elements written with content must be closed with EndElement.
func (w *Writer) StartElement(page, tag byte, content bool) error {
	w.buf = w.buf[:0]
	if page != w.page {
		w.buf = append(w.buf, tokenSwitchPage, page)
		w.page = page
	}
	t := tag & tagMask
	if content {
		t |= flagContent
		w.depth++
	}
	w.buf = append(w.buf, t)
	return w.flush()
}

// EndElement closes the innermost element opened with content.
func (w *Writer) EndElement() error {
	if w.depth == 0 {
		return ErrNotInElement
	}
	w.depth--
	w.buf = append(w.buf[:0], tokenEnd)
	return w.flush()
}

// PutString writes inline text. NUL characters cannot be represented in
// STR_I and are dropped.
func (w *Writer) PutString(s string) error {
	if strings.IndexByte(s, 0) >= 0 {
		s = strings.ReplaceAll(s, "\x00", "")
	}
	w.buf = append(w.buf[:0], tokenStrI)
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
	return w.flush()
}

// PutOpaque writes binary content.
func (w *Writer) PutOpaque(data []byte) error {
	w.buf = append(w.buf[:0], tokenOpaque)
	w.buf = appendMBUint32(w.buf, uint32(len(data)))
	w.buf = append(w.buf, data...)
	return w.flush()
}

// Depth returns the number of open elements.
func (w *Writer) Depth() int {
	return w.depth
}

func (w *Writer) flush() error {
	_, err := w.w.Write(w.buf)
	return err
}
