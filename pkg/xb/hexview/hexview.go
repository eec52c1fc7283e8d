// Package hexview decodes hexadecimal digit strings into byte rows for
// display as bits, hex and decimal.
package hexview

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidHex is returned for input containing non-hex characters.
var ErrInvalidHex = errors.New("invalid hex digits")

// ByteRow is one byte, or a trailing lone nibble, of decoded input.
type ByteRow struct {
	// Bits holds 8 flags, or 4 for a nibble, most significant first.
	Bits []bool `json:"bits"`
	// Hex is the digits as written, prefixed with 0x.
	Hex string `json:"hex"`
	// Value is the decimal value of the digits.
	Value int `json:"value"`
}

// IsNibble reports whether the row holds a single hex digit.
func (r ByteRow) IsNibble() bool {
	return len(r.Bits) == 4
}

// BitString returns the bits as 0 and 1 characters.
func (r ByteRow) BitString() string {
	var sb strings.Builder
	for _, b := range r.Bits {
		if b {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// RenderBytes splits digits into two-digit chunks and decodes each one.
// With an odd number of digits the last chunk is a lone nibble, shown as
// four bits with its own value. Empty input yields no rows.
func RenderBytes(digits string) ([]ByteRow, error) {
	rows := make([]ByteRow, 0, (len(digits)+1)/2)
	for i := 0; i < len(digits); i += 2 {
		end := min(i+2, len(digits))
		chunk := digits[i:end]

		v, err := strconv.ParseUint(chunk, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: %q at offset %d", ErrInvalidHex, chunk, i)
		}

		width := 4 * len(chunk)
		bits := make([]bool, width)
		for b := 0; b < width; b++ {
			bits[b] = v&(1<<(width-1-b)) != 0
		}
		rows = append(rows, ByteRow{
			Bits:  bits,
			Hex:   "0x" + chunk,
			Value: int(v),
		})
	}
	return rows, nil
}
