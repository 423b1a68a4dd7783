package wbxml

import "io"

// appendMBUint32 appends v as a multi-byte unsigned integer: big-endian
// groups of 7 bits, continuation bit set on all but the last byte.
func appendMBUint32(b []byte, v uint32) []byte {
	var tmp [5]byte
	i := len(tmp) - 1
	tmp[i] = byte(v & 0x7F)
	v >>= 7
	for v != 0 {
		i--
		tmp[i] = byte(v&0x7F) | 0x80
		v >>= 7
	}
	return append(b, tmp[i:]...)
}

func readMBUint32(r io.ByteReader) (uint32, error) {
	var v uint32
	for i := 0; i < 5; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return 0, eof(err)
		}
		if v > 0x1FFFFFF {
			return 0, ErrIntegerOverflow
		}
		v = v<<7 | uint32(c&0x7F)
		if c&0x80 == 0 {
			return v, nil
		}
	}
	return 0, ErrIntegerOverflow
}

func eof(err error) error {
	if err == io.EOF {
		return ErrUnexpectedEOF
	}
	return err
}
