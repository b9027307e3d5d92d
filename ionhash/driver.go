package ionhash

import (
	"errors"

	"github.com/amazon-ion/ion-go/ion"
)

// ErrStackUnderflow is returned by (*Hasher).StepOut when called at depth
// 0, i.e. with no container open to step out of.
var ErrStackUnderflow = errors.New("ionhash: step_out called with no container open")

// ErrPrematureDigest is returned by (*Hasher).Digest when one or more
// containers are still open.
var ErrPrematureDigest = errors.New("ionhash: digest requested with unfinished containers open")

// Hasher is the driver of the Ion Hash algorithm: a stack of frames
// mirroring the nesting of the Ion data being hashed. A new Hasher is
// created with its stack holding a single non-struct frame at depth 0,
// using an accumulator the provider produced.
//
// Once an operation returns an error a Hasher is poisoned and must be
// discarded. Once Digest is called successfully its accumulator has been
// reset, so the Hasher can be reused at the caller's discretion. A Hasher
// is not safe for concurrent use from multiple goroutines.
type Hasher struct {
	provider HasherProvider
	ser      ScalarSerializer
	stack    []frame
}

// NewHasher constructs a Hasher over the given accumulator provider, using
// DefaultScalarSerializer to serialize scalar values.
func NewHasher(provider HasherProvider) *Hasher {
	return NewHasherWithScalarSerializer(provider, DefaultScalarSerializer)
}

// NewHasherWithScalarSerializer is NewHasher but with an explicit scalar
// serializer, for callers that want to bypass the ion-go-backed default
// (e.g. tests exercising the codec directly against fixed byte sequences).
func NewHasherWithScalarSerializer(provider HasherProvider, ser ScalarSerializer) *Hasher {
	h := &Hasher{provider: provider, ser: ser}
	h.stack = []frame{newSerializer(ser, provider(), 0)}
	return h
}

func (h *Hasher) top() frame       { return h.stack[len(h.stack)-1] }
func (h *Hasher) depth() int       { return len(h.stack) - 1 }

// Scalar feeds a non-container value event to the current frame.
func (h *Hasher) Scalar(ev Event) error {
	return h.top().scalar(ev)
}

// StepIn opens a new frame for a container-start event. Children of a
// struct always hash into a fresh, independent accumulator so their
// digests can be sorted at step-out; children of any other container
// continue to accumulate into the hash their parent owns.
func (h *Hasher) StepIn(ev Event) error {
	var hash HashAccumulator
	if _, isStruct := h.top().(*structSerializer); isStruct {
		hash = h.provider()
	} else {
		hash = h.topAccumulator()
	}

	var f frame
	if ev.Type == ion.StructType {
		f = newStructSerializer(h.ser, hash, h.depth(), h.provider)
	} else {
		f = newSerializer(h.ser, hash, h.depth())
	}

	h.stack = append(h.stack, f)
	return f.stepIn(ev)
}

// topAccumulator returns the HashAccumulator backing the current top frame,
// so a non-struct child container can continue writing into it.
func (h *Hasher) topAccumulator() HashAccumulator {
	return h.top().accumulator()
}

// StepOut closes the current frame. If the frame beneath it (after
// popping) is a struct frame, the popped frame's digest becomes one more
// field-hash for that struct.
func (h *Hasher) StepOut() error {
	if h.depth() == 0 {
		return ErrStackUnderflow
	}
	top := h.top()
	if err := top.stepOut(); err != nil {
		return err
	}
	h.stack = h.stack[:len(h.stack)-1]

	if _, isStruct := h.top().(*structSerializer); isStruct {
		// escape is applied once, at emission time inside
		// structSerializer.stepOut's sort-and-concatenate loop, not here.
		h.top().appendFieldHash(top.digest())
	}
	return nil
}

// Digest returns the digest of the sole remaining frame. Legal only when
// every opened container has been stepped back out of (depth 0).
func (h *Hasher) Digest() ([]byte, error) {
	if h.depth() != 0 {
		return nil, ErrPrematureDigest
	}
	return h.top().digest(), nil
}
