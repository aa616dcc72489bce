package docstore

import (
	"testing"
	"time"
)

func TestMergeKeepsUnpatchedFields(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	record := testDoc{ID: "d1", Name: "Ama", Role: "driver", Amount: 10, CreatedAt: created}

	merged, err := Merge(record, Patch{"role": "manager"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.Role != "manager" {
		t.Fatalf("expected role manager, got %s", merged.Role)
	}
	if merged.ID != "d1" || merged.Name != "Ama" || merged.Amount != 10 || !merged.CreatedAt.Equal(created) {
		t.Fatalf("unpatched fields changed: %+v", merged)
	}
}

func TestCompareValuesTimestamps(t *testing.T) {
	early := "2024-03-01T09:00:00Z"
	late := "2024-03-01T10:00:00+01:00" // same instant as 09:00Z
	c, ok := compareValues(early, late)
	if !ok || c != 0 {
		t.Fatalf("expected equal instants, got %d ok=%v", c, ok)
	}

	c, ok = compareValues(early, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	if !ok || c >= 0 {
		t.Fatalf("expected earlier, got %d ok=%v", c, ok)
	}

	if _, ok := compareValues("abc", 12.0); ok {
		t.Fatal("expected mismatched kinds to be incomparable")
	}
}

func TestMatchesNamedStringType(t *testing.T) {
	type role string
	fields := map[string]any{"role": "driver"}
	if !matches(fields, Filter{Field: "role", Op: Eq, Value: role("driver")}) {
		t.Fatal("expected named string to match")
	}
	if matches(fields, Filter{Field: "missing", Op: Eq, Value: "driver"}) {
		t.Fatal("expected missing field not to match")
	}
}
