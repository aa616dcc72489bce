package listquery

import "sync"

// ViewState is the presentation input of one list page
type ViewState struct {
	Search    string            `json:"search"`
	Filters   map[string]string `json:"filters"`
	SortField string            `json:"sortField"`
	SortDir   Direction         `json:"sortDir"`
	Page      int               `json:"page"`
}

// View holds the search, filter, sort and page selection of a list page.
// Any change other than SetPage returns to page 1.
type View struct {
	searchFields []string
	pageSize     int

	mu    sync.Mutex
	state ViewState
}

func NewView(searchFields []string, sortField string) *View {
	return &View{
		searchFields: searchFields,
		pageSize:     DefaultPageSize,
		state: ViewState{
			Filters:   map[string]string{},
			SortField: sortField,
			SortDir:   Asc,
			Page:      1,
		},
	}
}

func (v *View) SetSearch(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Search = text
	v.state.Page = 1
}

// SetFilter sets a categorical filter. All clears it.
func (v *View) SetFilter(field, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if value == "" || value == All {
		delete(v.state.Filters, field)
	} else {
		v.state.Filters[field] = value
	}
	v.state.Page = 1
}

// SortBy toggles direction on the current field; a new field starts
// ascending
func (v *View) SortBy(field string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if field == v.state.SortField {
		if v.state.SortDir == Asc {
			v.state.SortDir = Desc
		} else {
			v.state.SortDir = Asc
		}
	} else {
		v.state.SortField = field
		v.state.SortDir = Asc
	}
	v.state.Page = 1
}

func (v *View) SetPage(page int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Page = page
}

func (v *View) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.state
	out.Filters = make(map[string]string, len(v.state.Filters))
	for k, val := range v.state.Filters {
		out.Filters[k] = val
	}
	return out
}

// Result is a rendered page plus the view state that produced it
type Result[T any] struct {
	Page[T]
	View ViewState `json:"view"`
}

// Apply filters, sorts and paginates items under the view's current state
func Apply[T Record](v *View, items []T) Result[T] {
	st := v.State()
	filtered := Filter(items, st.Search, v.searchFields, st.Filters)
	sorted := Sort(filtered, st.SortField, st.SortDir)
	page := Paginate(sorted, st.Page, v.pageSize)
	st.Page = page.Page
	return Result[T]{Page: page, View: st}
}
