package ionhash

import (
	"bytes"
	"testing"

	"github.com/amazon-ion/ion-go/ion"
)

func TestHashWriterListDigest(t *testing.T) {
	var buf bytes.Buffer
	w := ion.NewBinaryWriter(&buf)
	hw := NewHashWriter(w, identityProvider)

	if err := hw.BeginList(); err != nil {
		t.Fatal(err)
	}
	for _, n := range []int64{1, 2, 3} {
		if err := hw.WriteInt(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := hw.EndList(); err != nil {
		t.Fatal(err)
	}
	if err := hw.Finish(); err != nil {
		t.Fatal(err)
	}

	got, err := hw.Digest()
	if err != nil {
		t.Fatal(err)
	}
	want := wantBytes(t, "0B B0 0B 20 01 0E 0B 20 02 0E 0B 20 03 0E 0E")
	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestHashWriterStructFieldOrderIrrelevant(t *testing.T) {
	digestOf := func(order []string) []byte {
		var buf bytes.Buffer
		w := ion.NewBinaryWriter(&buf)
		hw := NewHashWriter(w, identityProvider)
		values := map[string]int64{"a": 1, "b": 2, "c": 3}
		if err := hw.BeginStruct(); err != nil {
			t.Fatal(err)
		}
		for _, name := range order {
			if err := hw.FieldName(name); err != nil {
				t.Fatal(err)
			}
			if err := hw.WriteInt(values[name]); err != nil {
				t.Fatal(err)
			}
		}
		if err := hw.EndStruct(); err != nil {
			t.Fatal(err)
		}
		d, err := hw.Digest()
		if err != nil {
			t.Fatal(err)
		}
		return d
	}

	inOrder := digestOf([]string{"a", "b", "c"})
	reversed := digestOf([]string{"c", "b", "a"})
	if !bytes.Equal(inOrder, reversed) {
		t.Errorf("struct digest depends on field write order: %x != %x", inOrder, reversed)
	}
}

func TestHashWriterAnnotations(t *testing.T) {
	var buf bytes.Buffer
	w := ion.NewBinaryWriter(&buf)
	hw := NewHashWriter(w, identityProvider)

	if err := hw.Annotations("hi"); err != nil {
		t.Fatal(err)
	}
	if err := hw.WriteInt(7); err != nil {
		t.Fatal(err)
	}
	if err := hw.Finish(); err != nil {
		t.Fatal(err)
	}

	got, err := hw.Digest()
	if err != nil {
		t.Fatal(err)
	}
	want := wantBytes(t, "0B E0 0B 70 68 69 0E 0B 20 07 0E 0E")
	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestHashWriterDisableHashing(t *testing.T) {
	var buf bytes.Buffer
	w := ion.NewBinaryWriter(&buf)
	hw := NewHashWriter(w, identityProvider)

	hw.DisableHashing()
	if err := hw.WriteInt(42); err != nil {
		t.Fatal(err)
	}
	hw.EnableHashing()
	if err := hw.WriteInt(5); err != nil {
		t.Fatal(err)
	}
	if err := hw.Finish(); err != nil {
		t.Fatal(err)
	}

	got, err := hw.Digest()
	if err != nil {
		t.Fatal(err)
	}
	want := wantBytes(t, "0B 20 05 0E")
	if !bytes.Equal(got, want) {
		t.Errorf("disabled-hashing value leaked into digest: got %x, want %x", got, want)
	}
}
