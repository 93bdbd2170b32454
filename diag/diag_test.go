package diag

import "testing"

func TestErrorFormatting(t *testing.T) {
	e := New(Span{File: "A.java", Line: 3, Column: 5}, TypeError, "cannot assign %s to %s", "int", "String")
	want := "A.java:3:5: TypeError: cannot assign int to String"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestListAccumulates(t *testing.T) {
	var l List
	if l.HasErrors() {
		t.Error("expected empty list to report no errors")
	}
	l.Add(New(Span{}, ParseError, "boom"))
	if !l.HasErrors() {
		t.Error("expected list to report errors after Add")
	}
	if len(l.Errors) != 1 {
		t.Errorf("expected 1 error, got %d", len(l.Errors))
	}
}

func TestKindString(t *testing.T) {
	if ParseError.String() != "ParseError" {
		t.Errorf("ParseError.String() = %q", ParseError.String())
	}
	if InvariantViolation.String() != "InvariantViolation" {
		t.Errorf("InvariantViolation.String() = %q", InvariantViolation.String())
	}
}
