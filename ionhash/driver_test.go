package ionhash

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/amazon-ion/ion-go/ion"
)

// identityAccumulator concatenates every update() call unchanged, turning
// digest() into the exact byte sequence the concrete end-to-end scenarios
// below are written against.
type identityAccumulator struct{ buf []byte }

func (a *identityAccumulator) Update(b []byte) { a.buf = append(a.buf, b...) }

func (a *identityAccumulator) Digest() []byte {
	d := a.buf
	a.buf = nil
	return d
}

func identityProvider() HashAccumulator { return &identityAccumulator{} }

func wantBytes(t *testing.T, hexPairs string) []byte {
	t.Helper()
	fields := strings.Fields(hexPairs)
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		b, err := hex.DecodeString(f)
		if err != nil || len(b) != 1 {
			t.Fatalf("bad hex byte %q in test vector", f)
		}
		out = append(out, b[0])
	}
	return out
}

func symTok(s string) *ion.SymbolToken {
	tok := ion.NewSymbolTokenFromString(s)
	return &tok
}

// TestConcreteScenarios covers seven concrete end-to-end byte sequences for
// null, bool, int, string, list, struct, and annotated values, driving the
// Hasher directly (bypassing the ion-go event adapters) over an identity
// accumulator.
func TestConcreteScenarios(t *testing.T) {
	t.Run("null", func(t *testing.T) {
		h := NewHasher(identityProvider)
		if err := h.Scalar(Event{Kind: ScalarEvent, Type: ion.NullType}); err != nil {
			t.Fatal(err)
		}
		got, err := h.Digest()
		if err != nil {
			t.Fatal(err)
		}
		if want := wantBytes(t, "0B 0F 0E"); !bytes.Equal(got, want) {
			t.Errorf("got %x, want %x", got, want)
		}
	})

	t.Run("false", func(t *testing.T) {
		h := NewHasher(identityProvider)
		if err := h.Scalar(Event{Kind: ScalarEvent, Type: ion.BoolType, Value: false}); err != nil {
			t.Fatal(err)
		}
		got, _ := h.Digest()
		if want := wantBytes(t, "0B 10 0E"); !bytes.Equal(got, want) {
			t.Errorf("got %x, want %x", got, want)
		}
	})

	t.Run("int 5", func(t *testing.T) {
		h := NewHasher(identityProvider)
		if err := h.Scalar(Event{Kind: ScalarEvent, Type: ion.IntType, Value: int64(5)}); err != nil {
			t.Fatal(err)
		}
		got, _ := h.Digest()
		if want := wantBytes(t, "0B 20 05 0E"); !bytes.Equal(got, want) {
			t.Errorf("got %x, want %x", got, want)
		}
	})

	t.Run(`string "hi"`, func(t *testing.T) {
		h := NewHasher(identityProvider)
		if err := h.Scalar(Event{Kind: ScalarEvent, Type: ion.StringType, Value: "hi"}); err != nil {
			t.Fatal(err)
		}
		got, _ := h.Digest()
		if want := wantBytes(t, "0B 80 68 69 0E"); !bytes.Equal(got, want) {
			t.Errorf("got %x, want %x", got, want)
		}
	})

	t.Run("list [1,2,3]", func(t *testing.T) {
		h := NewHasher(identityProvider)
		if err := h.StepIn(Event{Kind: ContainerStartEvent, Type: ion.ListType}); err != nil {
			t.Fatal(err)
		}
		for _, n := range []int64{1, 2, 3} {
			if err := h.Scalar(Event{Kind: ScalarEvent, Type: ion.IntType, Value: n}); err != nil {
				t.Fatal(err)
			}
		}
		if err := h.StepOut(); err != nil {
			t.Fatal(err)
		}
		got, _ := h.Digest()
		want := wantBytes(t, "0B B0 0B 20 01 0E 0B 20 02 0E 0B 20 03 0E 0E")
		if !bytes.Equal(got, want) {
			t.Errorf("got %x, want %x", got, want)
		}
	})

	structScenario := func(t *testing.T, order []string) []byte {
		h := NewHasher(identityProvider)
		if err := h.StepIn(Event{Kind: ContainerStartEvent, Type: ion.StructType}); err != nil {
			t.Fatal(err)
		}
		values := map[string]int64{"a": 1, "b": 2, "c": 3}
		for _, name := range order {
			ev := Event{Kind: ScalarEvent, Type: ion.IntType, Value: values[name], FieldName: symTok(name)}
			if err := h.Scalar(ev); err != nil {
				t.Fatal(err)
			}
		}
		if err := h.StepOut(); err != nil {
			t.Fatal(err)
		}
		got, err := h.Digest()
		if err != nil {
			t.Fatal(err)
		}
		return got
	}

	structWant := wantBytes(t, "0B D0 0C 0B 70 61 0C 0E 0C 0B 20 01 0C 0E "+
		"0C 0B 70 62 0C 0E 0C 0B 20 02 0C 0E "+
		"0C 0B 70 63 0C 0E 0C 0B 20 03 0C 0E 0E")

	t.Run("struct {a:1,b:2,c:3} in order", func(t *testing.T) {
		got := structScenario(t, []string{"a", "b", "c"})
		if !bytes.Equal(got, structWant) {
			t.Errorf("got %x, want %x", got, structWant)
		}
	})

	t.Run("struct field order is irrelevant", func(t *testing.T) {
		for _, order := range [][]string{
			{"c", "b", "a"},
			{"b", "a", "c"},
			{"c", "a", "b"},
		} {
			got := structScenario(t, order)
			if !bytes.Equal(got, structWant) {
				t.Errorf("order %v: got %x, want %x", order, got, structWant)
			}
		}
	})

	t.Run("annotated int hi::7", func(t *testing.T) {
		h := NewHasher(identityProvider)
		ev := Event{Kind: ScalarEvent, Type: ion.IntType, Value: int64(7), Annotations: []ion.SymbolToken{*symTok("hi")}}
		if err := h.Scalar(ev); err != nil {
			t.Fatal(err)
		}
		got, _ := h.Digest()
		want := wantBytes(t, "0B E0 0B 70 68 69 0E 0B 20 07 0E 0E")
		if !bytes.Equal(got, want) {
			t.Errorf("got %x, want %x", got, want)
		}
	})
}

func TestEmptyStruct(t *testing.T) {
	h := NewHasher(identityProvider)
	if err := h.StepIn(Event{Kind: ContainerStartEvent, Type: ion.StructType}); err != nil {
		t.Fatal(err)
	}
	if err := h.StepOut(); err != nil {
		t.Fatal(err)
	}
	got, _ := h.Digest()
	if want := wantBytes(t, "0B D0 0E"); !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestListOrderSensitive(t *testing.T) {
	digestOf := func(vals []int64) []byte {
		h := NewHasher(identityProvider)
		_ = h.StepIn(Event{Kind: ContainerStartEvent, Type: ion.ListType})
		for _, v := range vals {
			_ = h.Scalar(Event{Kind: ScalarEvent, Type: ion.IntType, Value: v})
		}
		_ = h.StepOut()
		d, _ := h.Digest()
		return d
	}
	a := digestOf([]int64{1, 2, 3})
	b := digestOf([]int64{3, 2, 1})
	if bytes.Equal(a, b) {
		t.Errorf("list digest must be order-sensitive, got equal digests for permuted lists")
	}
}

func TestSID0AsFieldNameAndAnnotation(t *testing.T) {
	h := NewHasher(identityProvider)
	if err := h.StepIn(Event{Kind: ContainerStartEvent, Type: ion.StructType}); err != nil {
		t.Fatal(err)
	}
	unknown := ion.SymbolToken{}
	ev := Event{Kind: ScalarEvent, Type: ion.IntType, Value: int64(1), FieldName: &unknown, Annotations: []ion.SymbolToken{unknown}}
	if err := h.Scalar(ev); err != nil {
		t.Fatal(err)
	}
	if err := h.StepOut(); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Digest(); err != nil {
		t.Fatalf("digest with SID0 field name/annotation: %v", err)
	}
}

func TestFieldNameAnnotationTextWithSentinelBytesIsEscaped(t *testing.T) {
	dirty := "a\x0bb\x0cc\x0ed"
	h := NewHasher(identityProvider)
	if err := h.StepIn(Event{Kind: ContainerStartEvent, Type: ion.StructType}); err != nil {
		t.Fatal(err)
	}
	ev := Event{Kind: ScalarEvent, Type: ion.IntType, Value: int64(1), FieldName: symTok(dirty), Annotations: []ion.SymbolToken{*symTok(dirty)}}
	if err := h.Scalar(ev); err != nil {
		t.Fatal(err)
	}
	if err := h.StepOut(); err != nil {
		t.Fatal(err)
	}
	got, err := h.Digest()
	if err != nil {
		t.Fatal(err)
	}
	// the raw symbol text bytes (field name and annotation) must never appear
	// unescaped in the output: every 0x0b/0x0c/0x0e in "dirty" must be
	// preceded by an extra 0x0c.
	if bytes.Contains(got, []byte("a\x0bb")) {
		t.Errorf("field name or annotation containing sentinel bytes was not escaped: %x", got)
	}
}

func TestDeepNesting(t *testing.T) {
	const depth = 1024
	h := NewHasher(identityProvider)
	for i := 0; i < depth; i++ {
		if err := h.StepIn(Event{Kind: ContainerStartEvent, Type: ion.ListType}); err != nil {
			t.Fatalf("step_in at depth %d: %v", i, err)
		}
	}
	if err := h.Scalar(Event{Kind: ScalarEvent, Type: ion.IntType, Value: int64(1)}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < depth; i++ {
		if err := h.StepOut(); err != nil {
			t.Fatalf("step_out at depth %d: %v", i, err)
		}
	}
	if _, err := h.Digest(); err != nil {
		t.Fatalf("digest after deep nesting: %v", err)
	}
}

func TestStepOutUnderflow(t *testing.T) {
	h := NewHasher(identityProvider)
	if err := h.StepOut(); err != ErrStackUnderflow {
		t.Errorf("StepOut at depth 0 = %v, want ErrStackUnderflow", err)
	}
}

func TestDigestWithOpenContainerErrors(t *testing.T) {
	h := NewHasher(identityProvider)
	if err := h.StepIn(Event{Kind: ContainerStartEvent, Type: ion.ListType}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Digest(); err != ErrPrematureDigest {
		t.Errorf("Digest with open container = %v, want ErrPrematureDigest", err)
	}
}
