package docstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// encodeDoc flattens a document into its JSON field map, minus the id
func encodeDoc(doc any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("document must encode to an object: %w", err)
	}
	delete(fields, "id")
	return fields, nil
}

// normalize converts a patch value into its JSON-decoded form
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Merge overlays patch onto record by field name and returns the result.
// Fields absent from patch keep their values.
func Merge[T any](record T, patch Patch) (T, error) {
	var out T
	raw, err := json.Marshal(record)
	if err != nil {
		return out, fmt.Errorf("merge: encode record: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return out, fmt.Errorf("merge: record is not an object: %w", err)
	}
	for k, v := range patch {
		enc, err := json.Marshal(v)
		if err != nil {
			return out, fmt.Errorf("merge: encode %s: %w", k, err)
		}
		fields[k] = enc
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("merge: %w", err)
	}
	if err := json.Unmarshal(merged, &out); err != nil {
		return out, fmt.Errorf("merge: decode: %w", err)
	}
	return out, nil
}

// compareValues orders two JSON-decoded values. Strings that both parse as
// RFC 3339 timestamps compare chronologically. ok is false when the values
// are of different kinds.
func compareValues(a, b any) (cmp int, ok bool) {
	switch av := a.(type) {
	case float64:
		bv, isNum := toFloat(b)
		if !isNum {
			return 0, false
		}
		return compareFloat(av, bv), true
	case string:
		switch bv := b.(type) {
		case string:
			ta, errA := time.Parse(time.RFC3339Nano, av)
			tb, errB := time.Parse(time.RFC3339Nano, bv)
			if errA == nil && errB == nil {
				return ta.Compare(tb), true
			}
			switch {
			case av < bv:
				return -1, true
			case av > bv:
				return 1, true
			}
			return 0, true
		case time.Time:
			ta, err := time.Parse(time.RFC3339Nano, av)
			if err != nil {
				return 0, false
			}
			return ta.Compare(bv), true
		}
	case bool:
		bv, isBool := b.(bool)
		if !isBool {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		if !av {
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// matches evaluates one filter against a JSON-decoded field map
func matches(fields map[string]any, f Filter) bool {
	stored, ok := fields[f.Field]
	if !ok {
		return false
	}
	want := f.Value
	if _, isTime := want.(time.Time); !isTime {
		if _, isNum := toFloat(want); !isNum {
			n, err := normalize(want)
			if err != nil {
				return false
			}
			want = n
		}
	}
	if f.Op == Eq {
		if c, ok := compareValues(stored, want); ok {
			return c == 0
		}
		a, errA := normalize(stored)
		b, errB := normalize(want)
		return errA == nil && errB == nil && fmt.Sprint(a) == fmt.Sprint(b)
	}
	c, ok := compareValues(stored, want)
	if !ok {
		return false
	}
	switch f.Op {
	case Lt:
		return c < 0
	case Lte:
		return c <= 0
	case Gt:
		return c > 0
	case Gte:
		return c >= 0
	}
	return false
}
