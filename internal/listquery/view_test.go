package listquery

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestViewTransitionsResetPage(t *testing.T) {
	v := NewView([]string{"name"}, "name")
	v.SetPage(3)

	v.SortBy("name")
	st := v.State()
	if st.SortDir != Desc || st.Page != 1 {
		t.Fatalf("same field should toggle to desc and reset page, got %+v", st)
	}

	v.SetPage(2)
	v.SortBy("email")
	st = v.State()
	if st.SortField != "email" || st.SortDir != Asc || st.Page != 1 {
		t.Fatalf("new field should sort asc from page 1, got %+v", st)
	}

	v.SetPage(2)
	v.SetFilter("role", "driver")
	if st := v.State(); st.Page != 1 || st.Filters["role"] != "driver" {
		t.Fatalf("filter should reset page, got %+v", st)
	}
	v.SetFilter("role", All)
	if _, ok := v.State().Filters["role"]; ok {
		t.Fatal("All should clear the filter")
	}

	v.SetPage(2)
	v.SetSearch("ko")
	if st := v.State(); st.Page != 1 || st.Search != "ko" {
		t.Fatalf("search should reset page, got %+v", st)
	}
}

func TestApplyClampsPage(t *testing.T) {
	v := NewView([]string{"name"}, "name")
	v.SetPage(99)

	res := Apply(v, makeRows(23))
	if res.Page.Page != 3 || res.View.Page != 3 || len(res.Items) != 3 {
		t.Fatalf("expected clamped page 3, got %+v", res.Page)
	}
}

func TestDebouncerRunsLastCall(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls, last atomic.Int32
	for i := int32(1); i <= 5; i++ {
		d.Do(func() {
			calls.Add(1)
			last.Store(i)
		})
	}
	time.Sleep(100 * time.Millisecond)

	if calls.Load() != 1 || last.Load() != 5 {
		t.Fatalf("expected one call with the last value, got %d calls, last %d", calls.Load(), last.Load())
	}

	d.Do(func() { calls.Add(1) })
	d.Stop()
	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 1 {
		t.Fatal("stopped call still ran")
	}
}
