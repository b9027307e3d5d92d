package ionhash

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/amazon-ion/ion-go/ion"
)

// ScalarSerializer returns the Ion binary encoding of a scalar value
// (type/length prefix plus representation) exactly as an Ion binary writer
// would emit it. The default, DefaultScalarSerializer, builds on ion-go's
// own Writer rather than re-implementing Ion's numeric/temporal encodings.
type ScalarSerializer func(t ion.Type, value any) ([]byte, error)

// DefaultScalarSerializer serializes bool, int, float, decimal, timestamp,
// blob and clob values by asking a scratch ion-go binary writer (with no
// symbol table) to write exactly that one value, then stripping the
// 4-byte Ion Version Marker the writer prepends. string and symbol have a
// canonical form that doesn't go through an Ion binary writer, so they are
// encoded directly: string here, symbol by codec.go's serializeSymbolToken.
func DefaultScalarSerializer(t ion.Type, value any) ([]byte, error) {
	switch t {
	case ion.StringType:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("ionhash: string scalar requires a string value, got %T", value)
		}
		out := make([]byte, 0, 1+len(s))
		out = append(out, tqTable[ion.StringType])
		out = append(out, s...)
		return out, nil
	case ion.SymbolType:
		tok, ok := value.(ion.SymbolToken)
		if !ok {
			return nil, fmt.Errorf("ionhash: symbol scalar requires an ion.SymbolToken value, got %T", value)
		}
		return serializeSymbolToken(tok), nil
	}

	var buf bytes.Buffer
	w := ion.NewBinaryWriter(&buf)
	if err := writeScalar(w, t, value); err != nil {
		return nil, fmt.Errorf("ionhash: serializing %v scalar: %w", t, err)
	}
	if err := w.Finish(); err != nil {
		return nil, fmt.Errorf("ionhash: finishing scratch ion writer: %w", err)
	}

	b := buf.Bytes()
	if len(b) < 4 {
		return nil, fmt.Errorf("ionhash: scratch ion writer produced no value for %v", t)
	}
	return b[4:], nil // strip the BVM; no symbol table was used so nothing else precedes the value.
}

func writeScalar(w ion.Writer, t ion.Type, value any) error {
	switch t {
	case ion.BoolType:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		return w.WriteBool(v)
	case ion.IntType:
		switch v := value.(type) {
		case int64:
			return w.WriteInt(v)
		case int:
			return w.WriteInt(int64(v))
		case *big.Int:
			return w.WriteBigInt(v)
		default:
			return fmt.Errorf("expected int64 or *big.Int, got %T", value)
		}
	case ion.FloatType:
		v, ok := value.(float64)
		if !ok {
			return fmt.Errorf("expected float64, got %T", value)
		}
		return w.WriteFloat(v)
	case ion.DecimalType:
		v, ok := value.(*ion.Decimal)
		if !ok {
			return fmt.Errorf("expected *ion.Decimal, got %T", value)
		}
		return w.WriteDecimal(v)
	case ion.TimestampType:
		v, ok := value.(ion.Timestamp)
		if !ok {
			return fmt.Errorf("expected ion.Timestamp, got %T", value)
		}
		return w.WriteTimestamp(v)
	case ion.BlobType:
		v, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("expected []byte, got %T", value)
		}
		return w.WriteBlob(v)
	case ion.ClobType:
		v, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("expected []byte, got %T", value)
		}
		return w.WriteClob(v)
	default:
		return fmt.Errorf("unsupported scalar type %v", t)
	}
}

// scalarBytes obtains the canonical (TQ, representation) pair for a scalar
// event: the null encoding if the value is absent, otherwise the result of
// running the scalar serializer's output through the TQ/representation
// split.
func scalarBytes(ser ScalarSerializer, t ion.Type, value any) (tq byte, representation []byte, err error) {
	var raw []byte
	if value == nil {
		raw = nullBytes(t)
	} else {
		raw, err = ser(t, value)
		if err != nil {
			return 0, nil, err
		}
	}
	return splitScalar(t, raw)
}
