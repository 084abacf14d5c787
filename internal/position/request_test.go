package position

import "testing"

func TestRawKeyOffsetIsAbsoluteValue(t *testing.T) {
	pos := Raw{IsOffset: true, Offset: 42}
	neg := Raw{IsOffset: true, Offset: -42}
	if pos.Key() != neg.Key() {
		t.Fatalf("pos.Key()=%q neg.Key()=%q, want equal canonical keys", pos.Key(), neg.Key())
	}
	if pos.Key() != "42" {
		t.Fatalf("Key() = %q, want %q", pos.Key(), "42")
	}
}

func TestRawKeyPair(t *testing.T) {
	r := Raw{Line: 3, Column: 7}
	if r.Key() != "3,7" {
		t.Fatalf("Key() = %q, want %q", r.Key(), "3,7")
	}
}
