package stringPool

import "testing"

func TestInternDeduplicates(t *testing.T) {
	Reset()
	a := Intern("java/lang/String")
	b := Intern("java/lang/String")
	if a != b {
		t.Errorf("expected same index for repeated intern, got %d and %d", a, b)
	}
	if Len() != 1 {
		t.Errorf("expected pool length 1, got %d", Len())
	}
}

func TestInternDistinctStrings(t *testing.T) {
	Reset()
	a := Intern("A")
	b := Intern("B")
	if a == b {
		t.Error("expected distinct indices for distinct strings")
	}
	gotA, ok := Get(a)
	if !ok || gotA != "A" {
		t.Errorf("Get(%d) = %q, %v; want \"A\", true", a, gotA, ok)
	}
}

func TestGetOutOfRange(t *testing.T) {
	Reset()
	if _, ok := Get(99); ok {
		t.Error("expected Get on empty pool to report not-found")
	}
}
