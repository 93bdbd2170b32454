package trace

import (
	"bytes"
	"strings"
	"testing"
)

func withCapturedOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := out
	var buf bytes.Buffer
	mu.Lock()
	out = &buf
	mu.Unlock()
	defer func() {
		mu.Lock()
		out = old
		mu.Unlock()
	}()
	fn()
	return buf.String()
}

func TestSeverityFiltering(t *testing.T) {
	SetLevel(WARNING)
	defer Reset()

	got := withCapturedOutput(t, func() {
		Trace("should be filtered")
		Info("should be filtered too")
		Warning("this one shows")
	})

	if strings.Contains(got, "should be filtered") {
		t.Errorf("expected FINE/INFO messages to be filtered, got: %q", got)
	}
	if !strings.Contains(got, "this one shows") {
		t.Errorf("expected WARNING message to appear, got: %q", got)
	}
}

func TestLevelString(t *testing.T) {
	cases := map[Level]string{FINE: "FINE", INFO: "INFO", WARNING: "WARNING", SEVERE: "SEVERE"}
	for lvl, want := range cases {
		if got := lvl.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", lvl, got, want)
		}
	}
}
