package ionhash

import (
	"sort"

	"github.com/amazon-ion/ion-go/ion"
)

// frame is implemented by both serializer (for lists, sexps, and the
// top-level depth-0 frame) and structSerializer. It is the unit the Hasher
// driver stacks one per nesting level.
type frame interface {
	scalar(ev Event) error
	stepIn(ev Event) error
	stepOut() error
	digest() []byte
	appendFieldHash(digest []byte)
	accumulator() HashAccumulator
}

// serializer implements the hashing logic for every Ion type except
// struct: scalars accumulate directly, containers frame their children
// between a begin and end marker, and annotations get their own begin/end
// wrapper.
type serializer struct {
	ser   ScalarSerializer
	hash  HashAccumulator
	depth int

	hasContainerAnnotations bool
}

func newSerializer(ser ScalarSerializer, hash HashAccumulator, depth int) *serializer {
	return &serializer{ser: ser, hash: hash, depth: depth}
}

func (s *serializer) update(b []byte)   { s.hash.Update(b) }
func (s *serializer) beginMarker()      { s.hash.Update(beginMarker) }
func (s *serializer) endMarker()        { s.hash.Update(endMarker) }

func (s *serializer) handleFieldName(ev Event) error {
	if ev.FieldName != nil && s.depth > 0 {
		return s.writeSymbol(*ev.FieldName)
	}
	return nil
}

func (s *serializer) handleAnnotationsBegin(ev Event, isContainer bool) error {
	if len(ev.Annotations) == 0 {
		return nil
	}
	s.beginMarker()
	s.update(tqAnnotatedValueBytes)
	for _, a := range ev.Annotations {
		if err := s.writeSymbol(a); err != nil {
			return err
		}
	}
	if isContainer {
		s.hasContainerAnnotations = true
	}
	return nil
}

func (s *serializer) handleAnnotationsEndScalar(ev Event) {
	if len(ev.Annotations) > 0 {
		s.endMarker()
	}
}

func (s *serializer) handleAnnotationsEndContainer() {
	if s.hasContainerAnnotations {
		s.endMarker()
		s.hasContainerAnnotations = false
	}
}

// writeSymbol emits a framed symbol: begin marker, canonical (TQ,
// representation) pair for the token, end marker.
func (s *serializer) writeSymbol(tok ion.SymbolToken) error {
	s.beginMarker()
	tq, representation, err := splitScalar(ion.SymbolType, serializeSymbolToken(tok))
	if err != nil {
		return err
	}
	s.update([]byte{tq})
	if len(representation) > 0 {
		s.update(escape(representation))
	}
	s.endMarker()
	return nil
}

func (s *serializer) scalar(ev Event) error {
	if err := s.handleAnnotationsBegin(ev, false); err != nil {
		return err
	}
	s.beginMarker()
	tq, representation, err := scalarBytes(s.ser, ev.Type, ev.Value)
	if err != nil {
		return err
	}
	s.update([]byte{tq})
	if len(representation) > 0 {
		s.update(escape(representation))
	}
	s.endMarker()
	s.handleAnnotationsEndScalar(ev)
	return nil
}

func (s *serializer) stepIn(ev Event) error {
	if err := s.handleFieldName(ev); err != nil {
		return err
	}
	if err := s.handleAnnotationsBegin(ev, true); err != nil {
		return err
	}
	s.beginMarker()
	s.update([]byte{tqTable[ev.Type]})
	return nil
}

func (s *serializer) stepOut() error {
	s.endMarker()
	s.handleAnnotationsEndContainer()
	return nil
}

func (s *serializer) digest() []byte {
	return s.hash.Digest()
}

func (s *serializer) accumulator() HashAccumulator { return s.hash }

// appendFieldHash is only meaningful for structSerializer; on a plain
// serializer it is unreachable because the Hasher driver only calls it
// when the current top of stack is a struct frame.
func (s *serializer) appendFieldHash([]byte) {}

// structSerializer specializes serializer for Ion structs: direct scalar
// children are routed through a dedicated scalar sub-serializer so each
// field produces an independent digest, nested containers contribute their
// own digest when they are popped, and at step_out those per-field digests
// are sorted (compareFieldDigests) and concatenated into the struct's own
// accumulator.
type structSerializer struct {
	*serializer

	scalarSerializer *serializer
	fieldHashes      [][]byte
}

func newStructSerializer(ser ScalarSerializer, hash HashAccumulator, depth int, provider HasherProvider) *structSerializer {
	return &structSerializer{
		serializer:       newSerializer(ser, hash, depth),
		scalarSerializer: newSerializer(ser, provider(), depth+1),
	}
}

func (s *structSerializer) scalar(ev Event) error {
	if err := s.scalarSerializer.handleFieldName(ev); err != nil {
		return err
	}
	if err := s.scalarSerializer.scalar(ev); err != nil {
		return err
	}
	s.appendFieldHash(s.scalarSerializer.digest())
	return nil
}

func (s *structSerializer) stepOut() error {
	sort.Slice(s.fieldHashes, func(i, j int) bool {
		return compareFieldDigests(s.fieldHashes[i], s.fieldHashes[j]) < 0
	})
	for _, fh := range s.fieldHashes {
		s.update(escape(fh))
	}
	return s.serializer.stepOut()
}

func (s *structSerializer) appendFieldHash(digest []byte) {
	s.fieldHashes = append(s.fieldHashes, digest)
}
