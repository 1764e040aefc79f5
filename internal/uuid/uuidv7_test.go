package uuid

import (
	"strings"
	"testing"
)

func TestNew_IsVersion7(t *testing.T) {
	id := New()
	if _, err := Parse(id); err != nil {
		t.Fatalf("expected valid uuid, got %q", id)
	}
	// The version nibble is the first character of the third group.
	if got := strings.Split(id, "-")[2][0]; got != '7' {
		t.Errorf("expected version 7, got %c in %s", got, id)
	}
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("0190A0B4-7C3E-7ABC-8DEF-0123456789AB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0190a0b4-7c3e-7abc-8def-0123456789ab" {
		t.Errorf("expected lowercased uuid, got %s", got)
	}

	if _, err := Parse("not-a-uuid"); err == nil {
		t.Error("expected error for invalid uuid")
	}
	if _, err := Parse("12345"); err == nil {
		t.Error("expected 12345 to be invalid")
	}
}
