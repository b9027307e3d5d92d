package ionhash

import (
	"fmt"

	"github.com/amazon-ion/ion-go/ion"
)

// HashReader wraps an ion-go Reader and adds Ion Hash functionality: every
// event the wrapped reader produces is fed to a Hasher as a side effect of
// the normal Next/StepIn/StepOut pull protocol, exactly as if the event had
// been forwarded through the driver directly.
//
// ion-go's reader is pull-based: a container's children are only visited if
// the caller explicitly calls StepIn after seeing a container-start. If the
// caller instead calls Next (to move to the following sibling) or StepOut
// (to return to the parent) without stepping in, the underlying reader
// silently skips the container's encoded bytes. The hash must be correct
// regardless, so whenever this happens, HashReader transparently drives the
// underlying reader through the skipped subtree itself (StepIn, walk every
// child, StepOut), feeding each event to the hasher, before resuming
// whatever the caller actually asked for. None of this is visible through
// the wrapped reader's own cursor: the caller still sees a reader that
// skipped the subtree.
type HashReader struct {
	r       ion.Reader
	hasher  *Hasher
	enabled bool

	// pending holds the most recently observed container-start event, for
	// as long as it remains un-stepped-into by the caller.
	pending *Event
	err     error
}

// NewHashReader constructs a HashReader over r, using provider to obtain
// accumulators and DefaultScalarSerializer for scalar encoding.
func NewHashReader(r ion.Reader, provider HasherProvider) *HashReader {
	return &HashReader{r: r, hasher: NewHasher(provider), enabled: true}
}

// DisableHashing stops events from reaching the hasher; events still flow
// through to the wrapped reader.
func (hr *HashReader) DisableHashing() { hr.enabled = false }

// EnableHashing resumes feeding events to the hasher.
func (hr *HashReader) EnableHashing() { hr.enabled = true }

// Digest returns the driver's current digest. Legal only at the same depth
// hashing started.
func (hr *HashReader) Digest() ([]byte, error) { return hr.hasher.Digest() }

// RootDigests reports the per-algorithm digests captured by the most recent
// Digest call, when provider was built from NewMultiHasherProvider. ok is
// false for any other provider.
func (hr *HashReader) RootDigests() (digests map[string][]byte, ok bool) {
	return hr.hasher.RootDigests()
}

// Err returns the first error encountered by HashReader or the wrapped
// reader.
func (hr *HashReader) Err() error {
	if hr.err != nil {
		return hr.err
	}
	return hr.r.Err()
}

// Type, IsNull, Annotations, FieldName, and the scalar value accessors
// delegate straight to the wrapped reader: HashReader changes the control
// flow of Next/StepIn/StepOut, not how values are read.
func (hr *HashReader) Type() ion.Type               { return hr.r.Type() }
func (hr *HashReader) IsNull() bool                 { return hr.r.IsNull() }
func (hr *HashReader) SymbolTable() ion.SymbolTable { return hr.r.SymbolTable() }

func (hr *HashReader) Annotations() ([]ion.SymbolToken, error) { return hr.r.Annotations() }
func (hr *HashReader) FieldName() (*ion.SymbolToken, error)    { return hr.r.FieldName() }
func (hr *HashReader) BoolValue() (*bool, error)               { return hr.r.BoolValue() }
func (hr *HashReader) Int64Value() (*int64, error)             { return hr.r.Int64Value() }
func (hr *HashReader) FloatValue() (*float64, error)           { return hr.r.FloatValue() }
func (hr *HashReader) DecimalValue() (*ion.Decimal, error)     { return hr.r.DecimalValue() }
func (hr *HashReader) TimestampValue() (*ion.Timestamp, error) { return hr.r.TimestampValue() }
func (hr *HashReader) StringValue() (*string, error)           { return hr.r.StringValue() }
func (hr *HashReader) ByteValue() ([]byte, error)               { return hr.r.ByteValue() }
func (hr *HashReader) SymbolValue() (*ion.SymbolToken, error)   { return hr.r.SymbolValue() }

// Next advances to the next value at the current depth. If the previously
// observed value was a container-start the caller never stepped into, its
// entire subtree is materialized and hashed first.
func (hr *HashReader) Next() bool {
	if hr.err != nil {
		return false
	}
	if hr.pending != nil {
		if err := hr.skipPendingContainer(); err != nil {
			hr.err = err
			return false
		}
	}
	if !hr.r.Next() {
		hr.err = hr.r.Err()
		return false
	}
	return hr.observeCurrent()
}

// StepIn descends into the container the reader is positioned at. Since
// the container-start was already fed to the hasher when Next observed it,
// StepIn only needs to forward to the wrapped reader and clear the pending
// marker.
func (hr *HashReader) StepIn() error {
	if err := hr.r.StepIn(); err != nil {
		return err
	}
	hr.pending = nil
	return nil
}

// StepOut returns to the parent container. Any remaining siblings at the
// current depth that the caller chose not to visit are materialized and
// hashed first.
func (hr *HashReader) StepOut() error {
	if hr.pending != nil {
		if err := hr.skipPendingContainer(); err != nil {
			return err
		}
	}
	for hr.r.Next() {
		if err := hr.observeCurrentErr(); err != nil {
			return err
		}
		if hr.pending != nil {
			if err := hr.skipPendingContainer(); err != nil {
				return err
			}
		}
	}
	if err := hr.r.Err(); err != nil {
		return err
	}
	if err := hr.r.StepOut(); err != nil {
		return err
	}
	if hr.enabled {
		return hr.hasher.StepOut()
	}
	return nil
}

// observeCurrent feeds the value the wrapped reader is now positioned at to
// the hasher (scalar, or the opening half of a container — see StepIn's
// doc comment for why StepIn doesn't feed it again), returning true to
// match Next's bool contract.
func (hr *HashReader) observeCurrent() bool {
	if err := hr.observeCurrentErr(); err != nil {
		hr.err = err
		return false
	}
	return true
}

func (hr *HashReader) observeCurrentErr() error {
	ev, err := hr.currentEvent()
	if err != nil {
		return err
	}
	if ev.Kind == ContainerStartEvent {
		hr.pending = &ev
		if hr.enabled {
			return hr.hasher.StepIn(ev)
		}
		return nil
	}
	if hr.enabled {
		return hr.hasher.Scalar(ev)
	}
	return nil
}

// skipPendingContainer materializes and hashes the full subtree of the
// pending container-start, by driving the wrapped reader through it
// directly, then clears the pending marker. After it returns, the wrapped
// reader is positioned just past the container, ready for the next real
// Next()/StepOut() call — exactly as if the container had never been
// entered.
func (hr *HashReader) skipPendingContainer() error {
	if err := hr.r.StepIn(); err != nil {
		return err
	}
	for hr.r.Next() {
		if err := hr.observeCurrentErr(); err != nil {
			return err
		}
		if hr.pending != nil {
			if err := hr.skipPendingContainer(); err != nil {
				return err
			}
		}
	}
	if err := hr.r.Err(); err != nil {
		return err
	}
	if err := hr.r.StepOut(); err != nil {
		return err
	}
	hr.pending = nil
	if hr.enabled {
		return hr.hasher.StepOut()
	}
	return nil
}

// currentEvent builds an Event describing the value the wrapped reader is
// currently positioned at.
func (hr *HashReader) currentEvent() (Event, error) {
	t := hr.r.Type()

	annotations, err := hr.r.Annotations()
	if err != nil {
		return Event{}, fmt.Errorf("ionhash: reading annotations: %w", err)
	}

	var fieldName *ion.SymbolToken
	if fn, err := hr.r.FieldName(); err == nil && fn != nil {
		fieldName = fn
	}

	isNull := hr.r.IsNull()
	switch {
	case (t == ion.ListType || t == ion.SexpType || t == ion.StructType) && !isNull:
		return Event{
			Kind:        ContainerStartEvent,
			Type:        t,
			Annotations: annotations,
			FieldName:   fieldName,
		}, nil
	default:
		// scalars, and typed null containers (null.list etc.), which hash as
		// a null value of their type rather than as an opened container.
		var value any
		if !isNull {
			value, err = scalarValue(hr.r, t)
			if err != nil {
				return Event{}, err
			}
		}
		return Event{
			Kind:        ScalarEvent,
			Type:        t,
			Value:       value,
			Annotations: annotations,
			FieldName:   fieldName,
		}, nil
	}
}

// scalarValue extracts the Go value for a scalar reader position,
// matching the dynamic types ScalarSerializer/writeScalar expect.
func scalarValue(r ion.Reader, t ion.Type) (any, error) {
	switch t {
	case ion.BoolType:
		v, err := r.BoolValue()
		if err != nil || v == nil {
			return nil, err
		}
		return *v, nil
	case ion.IntType:
		v, err := r.Int64Value()
		if err != nil || v == nil {
			return nil, err
		}
		return *v, nil
	case ion.FloatType:
		v, err := r.FloatValue()
		if err != nil || v == nil {
			return nil, err
		}
		return *v, nil
	case ion.DecimalType:
		v, err := r.DecimalValue()
		if err != nil {
			return nil, err
		}
		return v, nil
	case ion.TimestampType:
		v, err := r.TimestampValue()
		if err != nil || v == nil {
			return nil, err
		}
		return *v, nil
	case ion.StringType:
		v, err := r.StringValue()
		if err != nil || v == nil {
			return nil, err
		}
		return *v, nil
	case ion.SymbolType:
		v, err := r.SymbolValue()
		if err != nil || v == nil {
			return nil, err
		}
		return *v, nil
	case ion.BlobType, ion.ClobType:
		return r.ByteValue()
	default:
		return nil, fmt.Errorf("ionhash: unsupported scalar type %v", t)
	}
}
