package cpool

import (
	"bytes"
	"testing"
)

func TestAddUTF8Deduplicates(t *testing.T) {
	p := New()
	a := p.AddUTF8("X")
	b := p.AddUTF8("X")
	if a != b {
		t.Errorf("expected AddUTF8(\"X\") to return the same index twice, got %d and %d", a, b)
	}
}

func TestLongReservesNextIndex(t *testing.T) {
	p := New()
	k := p.AddLong(42)
	next := p.AddUTF8("after-long")
	if next != k+2 {
		t.Errorf("expected next allocated index to be k+2 (%d), got %d", k+2, next)
	}
}

func TestDoubleReservesNextIndex(t *testing.T) {
	p := New()
	k := p.AddDouble(3.14)
	next := p.AddUTF8("after-double")
	if next != k+2 {
		t.Errorf("expected next allocated index to be k+2 (%d), got %d", k+2, next)
	}
}

func TestClassRefDeduplicates(t *testing.T) {
	p := New()
	a := p.AddClass("java/lang/String")
	b := p.AddClass("java/lang/String")
	if a != b {
		t.Error("expected AddClass to dedup identical internal names")
	}
}

func TestMethodRefComposesAndDeduplicates(t *testing.T) {
	p := New()
	a := p.AddMethodRef("java/lang/Object", "toString", "()Ljava/lang/String;")
	b := p.AddMethodRef("java/lang/Object", "toString", "()Ljava/lang/String;")
	if a != b {
		t.Error("expected identical MethodRef to dedup")
	}
	c := p.AddMethodRef("java/lang/Object", "hashCode", "()I")
	if a == c {
		t.Error("expected different MethodRef to get a distinct index")
	}
}

func TestCountIsLastIndexPlusOne(t *testing.T) {
	p := New()
	idx := p.AddUTF8("only entry")
	if p.Count() != idx+1 {
		t.Errorf("Count() = %d, want %d", p.Count(), idx+1)
	}
}

func TestWriteRoundtripsUTF8(t *testing.T) {
	p := New()
	p.AddUTF8("hello")
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected non-empty serialized pool")
	}
}

func TestEntryUnbound(t *testing.T) {
	p := New()
	if _, ok := p.Entry(5); ok {
		t.Error("expected out-of-range index to report not-bound")
	}
}

func TestLongSecondSlotUnusable(t *testing.T) {
	p := New()
	idx := p.AddLong(1)
	if _, ok := p.Entry(idx + 1); ok {
		t.Error("expected the slot after a Long entry to be unusable")
	}
}

func TestModifiedUTF8Roundtrip(t *testing.T) {
	cases := []string{"hello", "", "a\x00b", "café", "\U0001F600"}
	for _, c := range cases {
		enc := encodeModifiedUTF8(c)
		dec := decodeModifiedUTF8(enc)
		if dec != c {
			t.Errorf("roundtrip(%q) = %q", c, dec)
		}
	}
}
