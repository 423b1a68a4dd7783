package wbxml

import "errors"

var (
	// ErrUnexpectedEOF is returned when the input ends inside a token.
	ErrUnexpectedEOF = errors.New("wbxml: unexpected end of input")

	// ErrUnsupportedVersion is returned for a header version other than 1.x.
	ErrUnsupportedVersion = errors.New("wbxml: unsupported version")

	// ErrUnsupportedToken is returned for extension and processing
	// instruction tokens, which SyncML never uses.
	ErrUnsupportedToken = errors.New("wbxml: unsupported token")

	// ErrUnknownTag is returned when a tag has no entry in the code page.
	ErrUnknownTag = errors.New("wbxml: unknown tag")

	// ErrUnknownCodePage is returned when a SWITCH_PAGE selects a page with
	// no table.
	ErrUnknownCodePage = errors.New("wbxml: unknown code page")

	// ErrInvalidStringRef is returned when a STR_T or LITERAL offset points
	// outside the string table.
	ErrInvalidStringRef = errors.New("wbxml: invalid string table reference")

	// ErrInvalidUTF8 is returned when an inline string is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("wbxml: invalid UTF-8 string")

	// ErrIntegerOverflow is returned when a mb_u_int32 exceeds 32 bits.
	ErrIntegerOverflow = errors.New("wbxml: mb_u_int32 overflow")

	// ErrNotInElement is returned when End is called with no open element.
	ErrNotInElement = errors.New("wbxml: not in element")

	// ErrElementNotClosed is returned when the document ends with open elements.
	ErrElementNotClosed = errors.New("wbxml: element not closed")
)
