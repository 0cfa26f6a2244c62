package testfixtures

import (
	"slices"
	"testing"
)

func TestIDGeneratorIssuesInOrder(t *testing.T) {
	gen := NewIDGenerator("slot")

	if peek := gen.Peek(); peek != "slot-1" {
		t.Fatalf("expected slot-1 to be next, got %q", peek)
	}
	first := gen.Next()
	second := gen.NextFunc()()

	if first != "slot-1" || second != "slot-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
	if issued := gen.Issued(); !slices.Equal(issued, []string{"slot-1", "slot-2"}) {
		t.Fatalf("unexpected issued ids: %v", issued)
	}
}

func TestIDGeneratorDefaultsPrefix(t *testing.T) {
	if id := NewIDGenerator("").Next(); id != "id-1" {
		t.Fatalf("expected id-1, got %q", id)
	}
}
