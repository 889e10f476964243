package encio

import (
	"math/big"
)

// AppendBig appends n in the arbitrary-precision form: a sign byte ('+' or '-'),
// the number of 16-bit words as a small integer, then the magnitude's words in little-endian order.
func AppendBig(buff []byte, n *big.Int) []byte {
	sign := byte('+')
	if n.Sign() < 0 {
		sign = '-'
	}

	mag := n.Bytes() // big-endian absolute value
	words := (len(mag) + 1) / 2

	buff = append(buff, sign)
	buff = AppendInt(buff, int64(words))
	for i := len(mag) - 1; i >= 0; i-- {
		buff = append(buff, mag[i])
	}
	if len(mag)%2 == 1 {
		buff = append(buff, 0)
	}
	return buff
}

// AppendInt64Big is AppendBig for values held in an int64.
func AppendInt64Big(buff []byte, n int64) []byte {
	return AppendBig(buff, big.NewInt(n))
}

// DecodeBig builds an integer from a sign byte and little-endian magnitude bytes.
func DecodeBig(sign byte, le []byte) (*big.Int, error) {
	if sign != '+' && sign != '-' {
		return nil, Errorf(ErrMalformed, "bad bignum sign byte %#x", sign)
	}

	be := make([]byte, len(le))
	for i := range le {
		be[len(le)-1-i] = le[i]
	}

	n := new(big.Int).SetBytes(be)
	if sign == '-' {
		n.Neg(n)
	}
	return n, nil
}

// Normalize returns n as an int if it fits, and n otherwise.
func Normalize(n *big.Int) interface{} {
	if n.IsInt64() {
		v := n.Int64()
		if int64(int(v)) == v {
			return int(v)
		}
	}
	return n
}
