package ionhash

// HashAccumulator is the core's sole cryptographic collaborator: accept
// bytes, and on demand produce a digest of everything accumulated so far.
// Digest must reset the accumulator to its initial state so the same
// instance can be reused.
type HashAccumulator interface {
	Update(b []byte)
	Digest() []byte
}

// HasherProvider is a factory of independent HashAccumulators. Every call
// must return an accumulator that shares no mutable state with any other
// accumulator the provider has returned; the Hasher driver and struct
// frames depend on that independence to produce correct, comparable
// per-field digests.
type HasherProvider func() HashAccumulator
