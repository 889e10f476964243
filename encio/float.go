package encio

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// Reserved float spellings.
const (
	FloatNaN    = "nan"
	FloatInf    = "inf"
	FloatNegInf = "-inf"
)

// FormatFloat returns the decimal text written for f.
// It is the shortest representation that parses back to f; exponents are used
// when the decimal point falls more than 3 places left of the digits, or right of them.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return FloatNaN
	case math.IsInf(f, 1):
		return FloatInf
	case math.IsInf(f, -1):
		return FloatNegInf
	case f == 0:
		if math.Signbit(f) {
			return "-0"
		}
		return "0"
	}

	var sb strings.Builder
	if f < 0 {
		sb.WriteByte('-')
		f = -f
	}

	// d.dddde±xx
	s := strconv.FormatFloat(f, 'e', -1, 64)
	e := strings.IndexByte(s, 'e')
	digits := strings.Replace(s[:e], ".", "", 1)
	exp, _ := strconv.Atoi(s[e+1:])

	decpt := exp + 1
	digs := len(digits)

	switch {
	case decpt < -3 || decpt > digs:
		sb.WriteByte(digits[0])
		if digs > 1 {
			sb.WriteByte('.')
			sb.WriteString(digits[1:])
		}
		sb.WriteByte('e')
		sb.WriteString(strconv.Itoa(decpt - 1))
	case decpt > 0:
		sb.WriteString(digits[:decpt])
		if digs > decpt {
			sb.WriteByte('.')
			sb.WriteString(digits[decpt:])
		}
	default:
		sb.WriteString("0.")
		sb.WriteString(strings.Repeat("0", -decpt))
		sb.WriteString(digits)
	}

	return sb.String()
}

// ParseFloat parses float text written by FormatFloat.
// Older writers appended mantissa bytes after a NUL; anything from the first NUL on is ignored.
func ParseFloat(text []byte) (float64, error) {
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}

	switch string(text) {
	case FloatNaN:
		return math.NaN(), nil
	case FloatInf:
		return math.Inf(1), nil
	case FloatNegInf:
		return math.Inf(-1), nil
	}

	f, err := strconv.ParseFloat(string(text), 64)
	if err != nil {
		return 0, Errorf(ErrMalformed, "bad float %q", text)
	}
	return f, nil
}
