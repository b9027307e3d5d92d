package ionhash

import (
	"math/big"

	"github.com/amazon-ion/ion-go/ion"
)

// HashWriter wraps an ion-go Writer and adds Ion Hash functionality. Unlike
// the reader side there is no skip ambiguity: the caller drives every call
// explicitly, so each one both forwards to the wrapped writer and feeds the
// same event to the hasher.
type HashWriter struct {
	w       ion.Writer
	hasher  *Hasher
	enabled bool

	pendingFieldName   *ion.SymbolToken
	pendingAnnotations []ion.SymbolToken
}

// NewHashWriter constructs a HashWriter over w, using provider to obtain
// accumulators and DefaultScalarSerializer for scalar encoding.
func NewHashWriter(w ion.Writer, provider HasherProvider) *HashWriter {
	return &HashWriter{w: w, hasher: NewHasher(provider), enabled: true}
}

func (hw *HashWriter) DisableHashing() { hw.enabled = false }
func (hw *HashWriter) EnableHashing()  { hw.enabled = true }

// Digest returns the driver's current digest. Legal only at the same depth
// hashing started.
func (hw *HashWriter) Digest() ([]byte, error) { return hw.hasher.Digest() }

// FieldName records the field name for the value about to be written and
// forwards it to the wrapped writer. Consumed by the next value/container
// write and cleared afterward.
func (hw *HashWriter) FieldName(name string) error {
	if err := hw.w.FieldName(name); err != nil {
		return err
	}
	tok := ion.NewSymbolTokenFromString(name)
	hw.pendingFieldName = &tok
	return nil
}

// Annotations records the annotations for the value about to be written and
// forwards them to the wrapped writer.
func (hw *HashWriter) Annotations(names ...string) error {
	if err := hw.w.Annotations(names...); err != nil {
		return err
	}
	toks := make([]ion.SymbolToken, len(names))
	for i, n := range names {
		toks[i] = ion.NewSymbolTokenFromString(n)
	}
	hw.pendingAnnotations = toks
	return nil
}

func (hw *HashWriter) takePending() (*ion.SymbolToken, []ion.SymbolToken) {
	fn, ann := hw.pendingFieldName, hw.pendingAnnotations
	hw.pendingFieldName, hw.pendingAnnotations = nil, nil
	return fn, ann
}

func (hw *HashWriter) scalarEvent(t ion.Type, value any) error {
	fn, ann := hw.takePending()
	if !hw.enabled {
		return nil
	}
	return hw.hasher.Scalar(Event{Kind: ScalarEvent, Type: t, Value: value, FieldName: fn, Annotations: ann})
}

func (hw *HashWriter) WriteNull() error {
	if err := hw.w.WriteNull(); err != nil {
		return err
	}
	return hw.scalarEvent(ion.NullType, nil)
}

func (hw *HashWriter) WriteNullType(t ion.Type) error {
	if err := hw.w.WriteNullType(t); err != nil {
		return err
	}
	return hw.scalarEvent(t, nil)
}

func (hw *HashWriter) WriteBool(v bool) error {
	if err := hw.w.WriteBool(v); err != nil {
		return err
	}
	return hw.scalarEvent(ion.BoolType, v)
}

func (hw *HashWriter) WriteInt(v int64) error {
	if err := hw.w.WriteInt(v); err != nil {
		return err
	}
	return hw.scalarEvent(ion.IntType, v)
}

func (hw *HashWriter) WriteBigInt(v *big.Int) error {
	if err := hw.w.WriteBigInt(v); err != nil {
		return err
	}
	return hw.scalarEvent(ion.IntType, v)
}

func (hw *HashWriter) WriteFloat(v float64) error {
	if err := hw.w.WriteFloat(v); err != nil {
		return err
	}
	return hw.scalarEvent(ion.FloatType, v)
}

func (hw *HashWriter) WriteDecimal(v *ion.Decimal) error {
	if err := hw.w.WriteDecimal(v); err != nil {
		return err
	}
	return hw.scalarEvent(ion.DecimalType, v)
}

func (hw *HashWriter) WriteTimestamp(v ion.Timestamp) error {
	if err := hw.w.WriteTimestamp(v); err != nil {
		return err
	}
	return hw.scalarEvent(ion.TimestampType, v)
}

func (hw *HashWriter) WriteString(v string) error {
	if err := hw.w.WriteString(v); err != nil {
		return err
	}
	return hw.scalarEvent(ion.StringType, v)
}

func (hw *HashWriter) WriteSymbolFromString(v string) error {
	if err := hw.w.WriteSymbolFromString(v); err != nil {
		return err
	}
	return hw.scalarEvent(ion.SymbolType, ion.NewSymbolTokenFromString(v))
}

func (hw *HashWriter) WriteSymbol(tok ion.SymbolToken) error {
	if err := hw.w.WriteSymbol(tok); err != nil {
		return err
	}
	return hw.scalarEvent(ion.SymbolType, tok)
}

func (hw *HashWriter) WriteBlob(v []byte) error {
	if err := hw.w.WriteBlob(v); err != nil {
		return err
	}
	return hw.scalarEvent(ion.BlobType, v)
}

func (hw *HashWriter) WriteClob(v []byte) error {
	if err := hw.w.WriteClob(v); err != nil {
		return err
	}
	return hw.scalarEvent(ion.ClobType, v)
}

func (hw *HashWriter) beginContainer(t ion.Type) error {
	fn, ann := hw.takePending()
	if !hw.enabled {
		return nil
	}
	return hw.hasher.StepIn(Event{Kind: ContainerStartEvent, Type: t, FieldName: fn, Annotations: ann})
}

func (hw *HashWriter) endContainer() error {
	if !hw.enabled {
		return nil
	}
	return hw.hasher.StepOut()
}

func (hw *HashWriter) BeginList() error {
	if err := hw.w.BeginList(); err != nil {
		return err
	}
	return hw.beginContainer(ion.ListType)
}

func (hw *HashWriter) EndList() error {
	if err := hw.w.EndList(); err != nil {
		return err
	}
	return hw.endContainer()
}

func (hw *HashWriter) BeginSexp() error {
	if err := hw.w.BeginSexp(); err != nil {
		return err
	}
	return hw.beginContainer(ion.SexpType)
}

func (hw *HashWriter) EndSexp() error {
	if err := hw.w.EndSexp(); err != nil {
		return err
	}
	return hw.endContainer()
}

func (hw *HashWriter) BeginStruct() error {
	if err := hw.w.BeginStruct(); err != nil {
		return err
	}
	return hw.beginContainer(ion.StructType)
}

func (hw *HashWriter) EndStruct() error {
	if err := hw.w.EndStruct(); err != nil {
		return err
	}
	return hw.endContainer()
}

// Finish flushes the wrapped writer. It does not touch the hasher: callers
// read the digest explicitly via Digest once depth has returned to 0.
func (hw *HashWriter) Finish() error { return hw.w.Finish() }
