package wbxml

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"
)

type openElement struct {
	page byte
	tag  byte
	name string
}

// Reader decodes WBXML tokens from an io.Reader.
type Reader struct {
	r      io.ByteReader
	pages  CodePages
	header Header

	headerRead bool
	page       byte
	stack      []openElement
}

// NewReader creates a new WBXML Reader resolving tags through pages.
func NewReader(r io.Reader, pages CodePages) *Reader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{r: br, pages: pages}
}

// ReadHeader reads the document header. Next calls it implicitly.
func (r *Reader) ReadHeader() (Header, error) {
	if r.headerRead {
		return r.header, nil
	}

	v, err := r.r.ReadByte()
	if err != nil {
		return Header{}, eof(err)
	}
	if v>>4 != 0 {
		return Header{}, fmt.Errorf("%w: 0x%02x", ErrUnsupportedVersion, v)
	}
	r.header.Version = v

	pid, err := readMBUint32(r.r)
	if err != nil {
		return Header{}, err
	}
	if pid == 0 {
		// Public id given as a string table index, read and ignored.
		if _, err := readMBUint32(r.r); err != nil {
			return Header{}, err
		}
	}
	r.header.PublicID = pid

	if r.header.Charset, err = readMBUint32(r.r); err != nil {
		return Header{}, err
	}

	n, err := readMBUint32(r.r)
	if err != nil {
		return Header{}, err
	}
	table, err := r.readBytes(n)
	if err != nil {
		return Header{}, err
	}
	r.header.StringTable = table
	r.headerRead = true
	return r.header, nil
}

// Next returns the next token. It returns io.EOF after the root element
// has been closed and the input is exhausted.
func (r *Reader) Next() (Token, error) {
	if _, err := r.ReadHeader(); err != nil {
		return Token{}, err
	}

	for {
		b, err := r.r.ReadByte()
		if err == io.EOF {
			if len(r.stack) > 0 {
				return Token{}, ErrElementNotClosed
			}
			return Token{}, io.EOF
		}
		if err != nil {
			return Token{}, err
		}

		switch b {
		case tokenSwitchPage:
			p, err := r.r.ReadByte()
			if err != nil {
				return Token{}, eof(err)
			}
			if _, ok := r.pages.Page(p); !ok {
				return Token{}, fmt.Errorf("%w: %d", ErrUnknownCodePage, p)
			}
			r.page = p
			continue

		case tokenEnd:
			if len(r.stack) == 0 {
				return Token{}, ErrNotInElement
			}
			top := r.stack[len(r.stack)-1]
			r.stack = r.stack[:len(r.stack)-1]
			return Token{Kind: KindEnd, Page: top.page, Tag: top.tag, Name: top.name}, nil

		case tokenStrI:
			s, err := r.readCString()
			if err != nil {
				return Token{}, err
			}
			return Token{Kind: KindText, Text: s}, nil

		case tokenStrT:
			s, err := r.tableString()
			if err != nil {
				return Token{}, err
			}
			return Token{Kind: KindText, Text: s}, nil

		case tokenEntity:
			c, err := readMBUint32(r.r)
			if err != nil {
				return Token{}, err
			}
			return Token{Kind: KindText, Text: string(rune(c))}, nil

		case tokenOpaque:
			n, err := readMBUint32(r.r)
			if err != nil {
				return Token{}, err
			}
			data, err := r.readBytes(n)
			if err != nil {
				return Token{}, err
			}
			return Token{Kind: KindOpaque, Data: data}, nil

		case tokenPI,
			tokenExtI0, tokenExtI0 + 1, tokenExtI2,
			tokenExtT0, tokenExtT0 + 1, tokenExtT2,
			tokenExt0, tokenExt0 + 1, tokenExt2:
			return Token{}, fmt.Errorf("%w: 0x%02x", ErrUnsupportedToken, b)
		}

		return r.readTag(b)
	}
}

func (r *Reader) readTag(b byte) (Token, error) {
	tok := Token{Kind: KindStart, Page: r.page, HasContent: b&flagContent != 0}

	switch b {
	case tokenLiteral, tokenLiteralC, tokenLiteralA, tokenLiteralAC:
		name, err := r.tableString()
		if err != nil {
			return Token{}, err
		}
		tok.Name = name
	default:
		tok.Tag = b & tagMask
		cp, ok := r.pages.Page(r.page)
		if !ok {
			return Token{}, fmt.Errorf("%w: %d", ErrUnknownCodePage, r.page)
		}
		name, ok := cp.Name(tok.Tag)
		if !ok {
			return Token{}, fmt.Errorf("%w: page %d tag 0x%02x", ErrUnknownTag, r.page, tok.Tag)
		}
		tok.Name = name
	}

	if b&flagAttributes != 0 {
		if err := r.skipAttributes(); err != nil {
			return Token{}, err
		}
	}
	if tok.HasContent {
		r.stack = append(r.stack, openElement{page: tok.Page, tag: tok.Tag, name: tok.Name})
	}
	return tok, nil
}

// skipAttributes discards an attribute list up to its END token.
func (r *Reader) skipAttributes() error {
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			return eof(err)
		}
		switch b {
		case tokenEnd:
			return nil
		case tokenSwitchPage:
			if _, err := r.r.ReadByte(); err != nil {
				return eof(err)
			}
		case tokenStrI:
			if _, err := r.readCString(); err != nil {
				return err
			}
		case tokenStrT, tokenLiteral, tokenEntity:
			if _, err := readMBUint32(r.r); err != nil {
				return err
			}
		case tokenOpaque:
			n, err := readMBUint32(r.r)
			if err != nil {
				return err
			}
			for i := uint32(0); i < n; i++ {
				if _, err := r.r.ReadByte(); err != nil {
					return eof(err)
				}
			}
		}
	}
}

func (r *Reader) readCString() (string, error) {
	var buf bytes.Buffer
	for {
		c, err := r.r.ReadByte()
		if err != nil {
			return "", eof(err)
		}
		if c == 0 {
			break
		}
		buf.WriteByte(c)
	}
	if !utf8.Valid(buf.Bytes()) {
		return "", ErrInvalidUTF8
	}
	return buf.String(), nil
}

func (r *Reader) tableString() (string, error) {
	off, err := readMBUint32(r.r)
	if err != nil {
		return "", err
	}
	table := r.header.StringTable
	if int(off) >= len(table) {
		return "", fmt.Errorf("%w: offset %d", ErrInvalidStringRef, off)
	}
	end := bytes.IndexByte(table[off:], 0)
	if end < 0 {
		return string(table[off:]), nil
	}
	return string(table[off : int(off)+end]), nil
}

// Header returns the header read so far.
func (r *Reader) Header() Header {
	return r.header
}

// readBytes reads n bytes. The result grows with the input read, so a
// length prefix larger than the document fails with ErrUnexpectedEOF
// instead of allocating n bytes up front.
func (r *Reader) readBytes(n uint32) ([]byte, error) {
	out := make([]byte, 0, min(n, 512))
	for i := uint32(0); i < n; i++ {
		b, err := r.r.ReadByte()
		if err != nil {
			return nil, eof(err)
		}
		out = append(out, b)
	}
	return out, nil
}
