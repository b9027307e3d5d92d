package ionhash

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// stdHashAccumulator adapts the standard hash.Hash interface (and
// golang.org/x/crypto's blake2b, which implements it too) to HashAccumulator:
// Update forwards to Write, Digest calls Sum then Reset so the same
// accumulator can serve another value.
type stdHashAccumulator struct {
	h hash.Hash
}

func (a *stdHashAccumulator) Update(b []byte) { a.h.Write(b) }

func (a *stdHashAccumulator) Digest() []byte {
	d := a.h.Sum(nil)
	a.h.Reset()
	return d
}

// NewHasherProvider resolves a named algorithm to a HasherProvider, the same
// standard hash.Hash construction pattern used for a container digest
// algorithm via crypto/sha1. Supported names: sha256, sha1, md5, sha512,
// blake2b256.
func NewHasherProvider(alg string) (HasherProvider, error) {
	newHash, err := hashConstructor(alg)
	if err != nil {
		return nil, err
	}
	return func() HashAccumulator {
		return &stdHashAccumulator{h: newHash()}
	}, nil
}

func hashConstructor(alg string) (func() hash.Hash, error) {
	switch alg {
	case "sha256":
		return sha256.New, nil
	case "sha1":
		return sha1.New, nil
	case "md5":
		return md5.New, nil
	case "sha512":
		return sha512.New, nil
	case "blake2b256":
		return func() hash.Hash {
			h, err := blake2b.New256(nil)
			if err != nil {
				// blake2b.New256 only fails for a too-long key, and we
				// never pass one.
				panic(fmt.Sprintf("ionhash: blake2b256: %v", err))
			}
			return h
		}, nil
	default:
		return nil, fmt.Errorf("ionhash: unknown hash algorithm %q", alg)
	}
}

// pooledAccumulator returns its hash.Hash to the owning sync.Pool on Digest,
// after resetting it, so the pool only ever hands out zeroed hashers. The
// next Update or Digest takes a hash.Hash from the pool again, so the same
// accumulator can be reused after Digest.
type pooledAccumulator struct {
	pool *sync.Pool
	h    hash.Hash
}

func (a *pooledAccumulator) Update(b []byte) {
	if a.h == nil {
		a.h = a.pool.Get().(hash.Hash)
	}
	a.h.Write(b)
}

func (a *pooledAccumulator) Digest() []byte {
	if a.h == nil {
		a.h = a.pool.Get().(hash.Hash)
	}
	d := a.h.Sum(nil)
	a.h.Reset()
	a.pool.Put(a.h)
	a.h = nil
	return d
}

// NewPooledHasherProvider wraps a hash constructor in a sync.Pool of
// reusable hash.Hash values, for callers that construct many short-lived
// accumulators in a tight loop — the CLI's zip-archive batch mode is one
// such caller.
func NewPooledHasherProvider(alg string) (HasherProvider, error) {
	newHash, err := hashConstructor(alg)
	if err != nil {
		return nil, err
	}
	pool := &sync.Pool{New: func() any { return newHash() }}
	return func() HashAccumulator {
		h := pool.Get().(hash.Hash)
		return &pooledAccumulator{pool: pool, h: h}
	}, nil
}

// MultiHasher fans a single pass over an Ion value out to one accumulator
// per named algorithm, so a caller can obtain several algorithms' digests
// without re-walking the value tree.
type MultiHasher struct {
	names []string
	accs  []HashAccumulator
	last  map[string][]byte
}

func (m *MultiHasher) Update(b []byte) {
	for _, a := range m.accs {
		a.Update(b)
	}
}

// Digest resets every sub-accumulator and returns the first algorithm's
// digest, matching the single-digest HashAccumulator contract so a
// MultiHasher can sit directly in the driver's frame stack. Digests
// returns the full per-algorithm set captured by this call.
func (m *MultiHasher) Digest() []byte {
	last := make(map[string][]byte, len(m.accs))
	var primary []byte
	for i, a := range m.accs {
		d := a.Digest()
		last[m.names[i]] = d
		if i == 0 {
			primary = d
		}
	}
	m.last = last
	return primary
}

// Digests returns the per-algorithm digests captured by the most recent
// Digest call, keyed by algorithm name.
func (m *MultiHasher) Digests() map[string][]byte { return m.last }

// NewMultiHasherProvider builds a HasherProvider whose accumulators are
// MultiHashers fanning out to one independent sub-accumulator per algorithm
// named in algs. Every call (including the ones the driver makes for
// nested struct-field frames) returns a fresh, fully independent set of
// sub-accumulators.
func NewMultiHasherProvider(algs ...string) (HasherProvider, error) {
	if len(algs) == 0 {
		return nil, fmt.Errorf("ionhash: NewMultiHasherProvider requires at least one algorithm")
	}
	providers := make([]HasherProvider, len(algs))
	for i, alg := range algs {
		p, err := NewHasherProvider(alg)
		if err != nil {
			return nil, err
		}
		providers[i] = p
	}
	return func() HashAccumulator {
		mh := &MultiHasher{names: algs, accs: make([]HashAccumulator, len(providers))}
		for i, p := range providers {
			mh.accs[i] = p()
		}
		return mh
	}, nil
}

// RootDigests reports the per-algorithm digests captured by h's most recent
// top-level Digest call, when h was constructed over a provider from
// NewMultiHasherProvider. ok is false for any other provider.
func (h *Hasher) RootDigests() (digests map[string][]byte, ok bool) {
	mh, ok := h.stack[0].accumulator().(*MultiHasher)
	if !ok {
		return nil, false
	}
	return mh.Digests(), true
}
