package idgen

import (
	"strings"
	"testing"
)

func TestNanoID_Length(t *testing.T) {
	for _, n := range []int{4, 8, 21} {
		gen := NanoID(n)
		id := gen()
		if len(id) != n {
			t.Errorf("NanoID(%d): got length %d", n, len(id))
		}
	}
}

func TestNanoID_Unique(t *testing.T) {
	gen := NanoID(12)
	seen := make(map[string]bool)
	for range 1000 {
		id := gen()
		if seen[id] {
			t.Fatalf("duplicate ID: %s", id)
		}
		seen[id] = true
	}
}

func TestUUIDv7_Parses(t *testing.T) {
	id := UUIDv7()()
	if _, err := Parse(id); err != nil {
		t.Fatalf("Parse(%q): %v", id, err)
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for range 50 {
		cur := gen()
		if cur < prev {
			t.Fatalf("UUIDv7 not monotonic: %s < %s", cur, prev)
		}
		prev = cur
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("aud_", NanoID(8))
	id := gen()
	if !strings.HasPrefix(id, "aud_") {
		t.Fatalf("expected aud_ prefix, got %q", id)
	}
	if len(id) != len("aud_")+8 {
		t.Fatalf("unexpected length: %q", id)
	}
}

func TestTimestamped(t *testing.T) {
	gen := Timestamped(NanoID(4))
	id := gen()
	if !strings.Contains(id, "_") {
		t.Fatalf("expected timestamp separator in %q", id)
	}
	if len(id) != len("20060102T150405Z")+1+4 {
		t.Fatalf("unexpected length: %q", id)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Fatal("expected error for invalid UUID")
	}
}
