package ident

import (
	"strings"
	"testing"
)

func TestNewReturnsCanonicalLowercase(t *testing.T) {
	src := NewSource()

	id := src.New()
	if len(id) != 26 {
		t.Fatalf("expected 26-char ulid, got %q (%d chars)", id, len(id))
	}
	if id != strings.ToLower(id) {
		t.Fatalf("expected lowercase ulid, got %q", id)
	}

	parsed, err := Parse(id)
	if err != nil {
		t.Fatalf("parse own id: %v", err)
	}
	if parsed != id {
		t.Fatalf("expected parse round trip, got %q vs %q", parsed, id)
	}
}

func TestNewIsMonotonic(t *testing.T) {
	src := NewSource()

	prev := src.New()
	for i := 0; i < 1000; i++ {
		next := src.New()
		if next <= prev {
			t.Fatalf("expected strictly increasing ids, got %q after %q", next, prev)
		}
		prev = next
	}
}

func TestParseAcceptsEitherCase(t *testing.T) {
	src := NewSource()
	id := src.New()

	parsed, err := Parse(strings.ToUpper(id))
	if err != nil {
		t.Fatalf("parse uppercase: %v", err)
	}
	if parsed != id {
		t.Fatalf("expected canonical form %q, got %q", id, parsed)
	}
}

func TestParseRejectsIllegalIDs(t *testing.T) {
	for _, raw := range []string{
		"",
		"not-a-ulid",
		"01ARZ3NDEKTSV4RRFFQ69G5FA", // 25 chars
		"01ARZ3NDEKTSV4RRFFQ69G5FAVX",
		"01ARZ3NDEKTSV4RRFFQ69G5FAI", // I is not in the alphabet
	} {
		if _, err := Parse(raw); err != ErrIllegalID {
			t.Fatalf("expected ErrIllegalID for %q, got %v", raw, err)
		}
	}
}
