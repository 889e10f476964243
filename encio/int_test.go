package encio_test

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/maxatome/go-testdeep/td"

	"github.com/stewi1014/marshal/encio"
)

func TestAppendInt(t *testing.T) {
	testCases := []struct {
		n    int64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x06}},
		{122, []byte{0x7f}},
		{123, []byte{0x01, 0x7b}},
		{255, []byte{0x01, 0xff}},
		{256, []byte{0x02, 0x00, 0x01}},
		{-1, []byte{0xfa}},
		{-123, []byte{0x80}},
		{-124, []byte{0xff, 0x84}},
		{-256, []byte{0xff, 0x00}},
		{-257, []byte{0xfe, 0xff, 0xfe}},
		{encio.FixnumMax, []byte{0x04, 0xff, 0xff, 0xff, 0x3f}},
		{encio.FixnumMin, []byte{0xfc, 0x00, 0x00, 0x00, 0xc0}},
		{encio.IntMax, []byte{0x04, 0xff, 0xff, 0xff, 0x7f}},
		{encio.IntMin, []byte{0xfc, 0x00, 0x00, 0x00, 0x80}},
	}

	for _, tC := range testCases {
		t.Run(fmt.Sprint(tC.n), func(t *testing.T) {
			got := encio.AppendInt(nil, tC.n)
			td.Cmp(t, got, tC.want)

			n, size := encio.DecodeInt(got)
			td.Cmp(t, size, len(got))
			td.Cmp(t, int64(n), tC.n)

			r := encio.NewBytesReader(got)
			n, err := r.ReadInt()
			td.CmpNoError(t, err)
			td.Cmp(t, int64(n), tC.n)
			td.Cmp(t, r.Pos(), int64(len(got)))
		})
	}
}

func TestAppendIntPanics(t *testing.T) {
	td.CmpPanic(t, func() { encio.AppendInt(nil, encio.IntMax+1) }, td.Contains("too big"))
	td.CmpPanic(t, func() { encio.AppendInt(nil, encio.IntMin-1) }, td.Contains("too big"))
}

func TestDecodeIntShort(t *testing.T) {
	_, size := encio.DecodeInt([]byte{0x02, 0x01})
	td.Cmp(t, size, 0)

	_, size = encio.DecodeInt(nil)
	td.Cmp(t, size, 0)

	_, err := encio.NewBytesReader([]byte{0x03, 0x01}).ReadInt()
	td.CmpErrorIs(t, err, encio.ErrTruncated)
}

func TestIsFixnum(t *testing.T) {
	td.CmpTrue(t, encio.IsFixnum(encio.FixnumMax))
	td.CmpTrue(t, encio.IsFixnum(encio.FixnumMin))
	td.CmpFalse(t, encio.IsFixnum(encio.FixnumMax+1))
	td.CmpFalse(t, encio.IsFixnum(encio.FixnumMin-1))
}

func TestBig(t *testing.T) {
	testCases := []struct {
		n    string
		want []byte
	}{
		{
			"-4611686018427387903",
			append([]byte{'-', 0x09}, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x3f),
		},
		{
			"-2361183241434822606847",
			append([]byte{'-', 0x0a}, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f, 0x00),
		},
		{
			"18446744073709551616", // 2**64
			append([]byte{'+', 0x0a}, 0, 0, 0, 0, 0, 0, 0, 0, 0x01, 0x00),
		},
		{
			"2147483649", // 2**31+1
			[]byte{'+', 0x07, 0x01, 0x00, 0x00, 0x80},
		},
	}

	for _, tC := range testCases {
		t.Run(tC.n, func(t *testing.T) {
			n, ok := new(big.Int).SetString(tC.n, 10)
			td.CmpTrue(t, ok)

			got := encio.AppendBig(nil, n)
			td.Cmp(t, got, tC.want)

			back, err := encio.NewBytesReader(got).ReadBig()
			td.CmpNoError(t, err)
			td.Cmp(t, back.String(), tC.n)
		})
	}
}

func TestBigBadSign(t *testing.T) {
	_, err := encio.DecodeBig('x', []byte{1, 0})
	td.CmpErrorIs(t, err, encio.ErrMalformed)
}

func TestNormalize(t *testing.T) {
	td.Cmp(t, encio.Normalize(big.NewInt(5)), 5)

	huge := new(big.Int).Lsh(big.NewInt(1), 64)
	td.Cmp(t, encio.Normalize(huge), td.Isa((*big.Int)(nil)))
}
