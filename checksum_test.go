package datastore

import "testing"

func TestChecksumStringsOrderIndependent(t *testing.T) {
	a := checksumStrings([]string{"one", "two", "three"})
	b := checksumStrings([]string{"three", "one", "two"})
	if a != b {
		t.Errorf("checksum depends on input order: %d != %d", a, b)
	}
}

func TestChecksumStringsSensitiveToContent(t *testing.T) {
	a := checksumStrings([]string{"one", "two"})
	b := checksumStrings([]string{"one", "three"})
	if a == b {
		t.Errorf("different content produced the same checksum")
	}
}

func TestChecksumStampsUsesStampField(t *testing.T) {
	tasks := map[string]*TaskDef{
		"x": {ID: "x", Stamp: "x@1.0"},
		"y": {ID: "y", Stamp: "y@2.0"},
	}
	got := checksumStamps(tasks)
	want := checksumStrings([]string{"x@1.0", "y@2.0"})
	if got != want {
		t.Errorf("checksumStamps = %d, want %d", got, want)
	}
}

func TestChecksumIDs(t *testing.T) {
	got := checksumIDs([]string{"b", "a"})
	want := checksumStrings([]string{"a", "b"})
	if got != want {
		t.Errorf("checksumIDs = %d, want %d", got, want)
	}
}
