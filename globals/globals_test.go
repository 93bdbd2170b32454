package globals

import "testing"

func TestInitGlobalsResetsState(t *testing.T) {
	g := InitGlobals("test")
	g.Verbose = true
	g.OutDir = "/tmp/out"

	g2 := InitGlobals("test")
	if g2.Verbose {
		t.Error("expected Verbose to reset to false on re-init")
	}
	if g2.OutDir != "." {
		t.Errorf("expected OutDir to reset to default, got %q", g2.OutDir)
	}
}

func TestGetGlobalRefReturnsSameInstance(t *testing.T) {
	InitGlobals("test")
	a := GetGlobalRef()
	b := GetGlobalRef()
	if a != b {
		t.Error("expected GetGlobalRef to return the same singleton instance")
	}
}
