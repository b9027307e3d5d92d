package ionhash

import (
	"fmt"

	"github.com/amazon-ion/ion-go/ion"
)

// Sentinel framing bytes. Every hashed unit is bracketed by begin/end, and
// any occurrence of one of these three bytes inside a unit's payload is
// escaped so the framing can never be confused with value data.
const (
	beginMarkerByte byte = 0x0B
	endMarkerByte   byte = 0x0E
	escapeByte      byte = 0x0C
)

var (
	beginMarker = []byte{beginMarkerByte}
	endMarker   = []byte{endMarkerByte}
)

// tqTable is the canonical type/qualifier byte for each Ion type. The low
// nibble is the qualifier and is normally zero; splitScalar zeroes it out of
// whatever the scalar serializer produced unless the type is bool, symbol,
// or the value is a typed null.
var tqTable = map[ion.Type]byte{
	ion.NullType:    0x0F,
	ion.BoolType:    0x10,
	ion.IntType:     0x20,
	ion.FloatType:   0x40,
	ion.DecimalType: 0x50,
	ion.TimestampType: 0x60,
	ion.SymbolType:  0x70,
	ion.StringType:  0x80,
	ion.ClobType:    0x90,
	ion.BlobType:    0xA0,
	ion.ListType:    0xB0,
	ion.SexpType:    0xC0,
	ion.StructType:  0xD0,
}

const (
	tqSymbolSID0      byte = 0x71
	tqAnnotatedValue  byte = 0xE0
	tqNullQualifier   byte = 0x0F
)

// tqAnnotatedValueBytes is tqAnnotatedValue wrapped in a one-byte slice, for
// the places that append it to an accumulator alongside escape().
var tqAnnotatedValueBytes = []byte{tqAnnotatedValue}

// nullBytes returns the one-byte canonical encoding of a typed null: the
// type's TQ byte combined with the null qualifier. `null` itself (no
// declared type) is 0x0F.
func nullBytes(t ion.Type) []byte {
	tq, ok := tqTable[t]
	if !ok {
		tq = tqTable[ion.NullType]
	}
	return []byte{tq | tqNullQualifier}
}

// splitScalar splits the Ion-binary encoding of a scalar (as produced by an
// external scalar serializer) into its canonical TQ byte and representation.
//
// b[0] is the type/length (TL) byte. If the low nibble is 0x0E, a VarUInt
// length follows starting at b[1]; splitScalar scans for the terminating
// byte (high bit set) to find how many bytes that length occupies. The
// representation is everything after the TL byte and the length bytes.
//
// The returned TQ byte has its low (length) nibble zeroed out, *unless* the
// Ion type is bool or symbol (whose low nibble carries real information) or
// the low nibble is already 0x0F (a typed null).
func splitScalar(t ion.Type, b []byte) (tq byte, representation []byte, err error) {
	if len(b) == 0 {
		return 0, nil, fmt.Errorf("ionhash: empty scalar encoding for type %v", t)
	}

	lenLen, err := lengthOfLength(b)
	if err != nil {
		return 0, nil, err
	}

	offset := 1 + lenLen
	if offset > len(b) {
		return 0, nil, fmt.Errorf("ionhash: malformed scalar encoding for type %v: length overruns value", t)
	}
	representation = b[offset:]

	tq = b[0]
	if t != ion.BoolType && t != ion.SymbolType && tq&0x0F != 0x0F {
		tq &= 0xF0
	}
	return tq, representation, nil
}

// lengthOfLength returns the number of bytes occupied by a VarUInt length
// field following the TL byte, or 0 if the TL byte's low nibble does not
// signal one (i.e. the length is packed into the low nibble itself).
func lengthOfLength(b []byte) (int, error) {
	if b[0]&0x0F != 0x0E {
		return 0, nil
	}
	for i := 1; i < len(b); i++ {
		if b[i]&0x80 != 0 {
			return i, nil
		}
	}
	return 0, fmt.Errorf("ionhash: unterminated VarUInt length in scalar encoding")
}

// escape returns a copy of r in which every beginMarkerByte, endMarkerByte,
// or escapeByte is preceded by one escapeByte. If r contains none of those
// three bytes, it is returned unchanged (no copy).
func escape(r []byte) []byte {
	needsEscape := false
	for _, b := range r {
		if b == beginMarkerByte || b == endMarkerByte || b == escapeByte {
			needsEscape = true
			break
		}
	}
	if !needsEscape {
		return r
	}

	out := make([]byte, 0, len(r)+4)
	for _, b := range r {
		if b == beginMarkerByte || b == endMarkerByte || b == escapeByte {
			out = append(out, escapeByte)
		}
		out = append(out, b)
	}
	return out
}

// unescape is escape's inverse: every escapeByte that precedes a
// begin/end/escape byte is dropped, and the sentinel byte it was protecting
// is kept as data. It exists for testing escape's round-trip property; the
// core never needs to unescape, since hashing only ever writes into a
// one-way accumulator.
//
// The escaped byte itself is never reinterpreted as a fresh escape prefix:
// after consuming an escape pair, the scan resumes two bytes ahead, not one,
// so a data byte that happens to equal escapeByte (e.g. the original bytes
// 0x0C, 0x0B, escaped to 0x0C 0x0C 0x0C 0x0B) round-trips correctly.
func unescape(r []byte) []byte {
	out := make([]byte, 0, len(r))
	for i := 0; i < len(r); {
		if r[i] == escapeByte && i+1 < len(r) {
			next := r[i+1]
			if next == beginMarkerByte || next == endMarkerByte || next == escapeByte {
				out = append(out, next)
				i += 2
				continue
			}
		}
		out = append(out, r[i])
		i++
	}
	return out
}

// serializeSymbolToken produces the canonical scalar bytes for a symbol
// token: a single tqSymbolSID0 byte for the unknown symbol (SID 0), or the
// symbol TQ byte followed by the UTF-8 text otherwise.
func serializeSymbolToken(tok ion.SymbolToken) []byte {
	if tok.Text == nil && tok.LocalSID == 0 {
		return []byte{tqSymbolSID0}
	}
	text := ""
	if tok.Text != nil {
		text = *tok.Text
	}
	out := make([]byte, 0, 1+len(text))
	out = append(out, tqTable[ion.SymbolType])
	out = append(out, text...)
	return out
}
