package encio

import "fmt"

const (
	// FixnumMax is the largest integer written inline as a small integer.
	// Larger values are written in the arbitrary-precision form.
	FixnumMax = 1<<30 - 1

	// FixnumMin is the smallest integer written inline as a small integer.
	FixnumMin = -(1 << 30)

	// IntMax and IntMin bound the values AppendInt accepts; lengths, counts and
	// link indexes all share the small integer format.
	IntMax = 1<<31 - 1
	IntMin = -(1 << 31)
)

// IsFixnum reports whether n is written inline as a small integer.
func IsFixnum(n int64) bool {
	return n >= FixnumMin && n <= FixnumMax
}

// AppendInt appends n to buff using the control byte format.
//
// 0 is the single byte 0x00.
// 1 to 122 are written as n+5, -123 to -1 as n-5.
// Anything else is a byte count (negated for negative n) followed by
// that many little-endian bytes of n.
//
// It panics if n doesn't fit in 32 bits; callers range-check user values first.
func AppendInt(buff []byte, n int64) []byte {
	switch {
	case n == 0:
		return append(buff, 0)
	case 0 < n && n < 123:
		return append(buff, byte(n+5))
	case -124 < n && n < 0:
		return append(buff, byte((n-5)&0xff))
	case n > IntMax || n < IntMin:
		panic(fmt.Sprintf("encio: %v is too big for the small integer format", n))
	}

	var tmp [5]byte
	x := n
	for i := 1; i < len(tmp); i++ {
		tmp[i] = byte(x)
		x >>= 8
		if x == 0 {
			tmp[0] = byte(i)
			return append(buff, tmp[:i+1]...)
		}
		if x == -1 {
			tmp[0] = byte(-i)
			return append(buff, tmp[:i+1]...)
		}
	}

	// 32 bit values always terminate above.
	panic("unreachable")
}

// DecodeInt decodes an integer written by AppendInt from buff.
// It returns the value and the number of bytes consumed, or 0 bytes if buff is too short.
func DecodeInt(buff []byte) (int, int) {
	if len(buff) == 0 {
		return 0, 0
	}

	c := int(int8(buff[0]))
	switch {
	case c == 0:
		return 0, 1
	case c > 4:
		return c - 5, 1
	case c < -4:
		return c + 5, 1
	}

	if c > 0 {
		if len(buff) < c+1 {
			return 0, 0
		}
		n := 0
		for i := 0; i < c; i++ {
			n |= int(buff[i+1]) << (8 * i)
		}
		return n, c + 1
	}

	c = -c
	if len(buff) < c+1 {
		return 0, 0
	}
	n := -1
	for i := 0; i < c; i++ {
		n &^= 0xff << (8 * i)
		n |= int(buff[i+1]) << (8 * i)
	}
	return n, c + 1
}
