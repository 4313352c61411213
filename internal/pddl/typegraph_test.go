package pddl

import (
	"strings"
	"testing"
)

func TestSortTypes_ParentsFirst(t *testing.T) {
	names := []string{"truck", "vehicle", "location"}
	parents := map[string]string{"truck": "vehicle", "vehicle": "object", "location": "object"}

	sorted, cycle := sortTypes(names, parents)
	if cycle != nil {
		t.Fatalf("expected no cycle, got %v", cycle)
	}
	if len(sorted) != 3 {
		t.Fatalf("expected 3 types, got %v", sorted)
	}
	if indexOf(sorted, "vehicle") >= indexOf(sorted, "truck") {
		t.Errorf("expected vehicle before truck, got %v", sorted)
	}
}

func TestSortTypes_Cycle(t *testing.T) {
	names := []string{"a", "b", "c"}
	parents := map[string]string{"a": "b", "b": "c", "c": "a"}

	sorted, cycle := sortTypes(names, parents)
	if sorted != nil {
		t.Fatalf("expected no order for a cycle, got %v", sorted)
	}
	if len(cycle) != 4 || cycle[0] != cycle[len(cycle)-1] {
		t.Fatalf("expected closed cycle path, got %v", cycle)
	}
	if got := formatCycle(cycle); !strings.Contains(got, " -> ") {
		t.Errorf("formatted cycle %q", got)
	}
}

func TestSortTypes_Empty(t *testing.T) {
	sorted, cycle := sortTypes(nil, nil)
	if sorted != nil || cycle != nil {
		t.Fatalf("expected nil results, got %v %v", sorted, cycle)
	}
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
