package ionhash

import "github.com/amazon-ion/ion-go/ion"

// EventKind enumerates the event vocabulary the Hasher driver consumes.
type EventKind int

const (
	// ScalarEvent carries a non-container value: a null, bool, int, float,
	// decimal, timestamp, symbol, string, clob, or blob.
	ScalarEvent EventKind = iota
	// ContainerStartEvent opens a list, sexp, or struct.
	ContainerStartEvent
	// ContainerEndEvent closes the most recently opened container.
	ContainerEndEvent
	// StreamEndEvent marks the end of the event stream; it never reaches
	// the hash.
	StreamEndEvent
)

// Event is one value event delivered to the Hasher driver: an event kind,
// an Ion type (for scalar/container-start events), an optional value
// payload (absent marks a typed null), an ordered annotation list, an
// optional field name (present only for direct children of a struct), and
// a nesting depth.
type Event struct {
	Kind  EventKind
	Type  ion.Type
	Depth int

	// Value holds the scalar payload, or nil for a typed null. Interpreted
	// according to Type: bool, int64/*big.Int, float64, *ion.Decimal,
	// ion.Timestamp, ion.SymbolToken, string, or []byte (clob/blob).
	Value any

	Annotations []ion.SymbolToken
	FieldName   *ion.SymbolToken
}

// hasFieldName reports whether the event carries a field name, i.e. whether
// it is a direct child of a struct.
func (e Event) hasFieldName() bool {
	return e.FieldName != nil
}
