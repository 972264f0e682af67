package pieces

import (
	"net/url"

	"howett.net/jigsaw"
)

// FilterSet narrows a query set by exact matches on the named fields,
// taking values from the query string.
type FilterSet struct {
	Fields []string
}

// Bind applies the filter set to qs using the values in query.
func (fs *FilterSet) Bind(query url.Values, qs jigsaw.QuerySet) *Filters {
	return &Filters{set: fs, data: query, base: qs}
}

// Filters is a FilterSet bound to a request. Templates read it to render
// the filter form.
type Filters struct {
	set  *FilterSet
	data url.Values
	base jigsaw.QuerySet
}

// Filter is one field of a bound filter set.
type Filter struct {
	Name  string
	Value string
}

// Fields returns each filter with its submitted value.
func (f *Filters) Fields() []Filter {
	out := make([]Filter, len(f.set.Fields))
	for i, name := range f.set.Fields {
		out[i] = Filter{Name: name, Value: f.data.Get(name)}
	}
	return out
}

// Active reports whether any filter has a value.
func (f *Filters) Active() bool {
	for _, name := range f.set.Fields {
		if f.data.Get(name) != "" {
			return true
		}
	}
	return false
}

// QuerySet returns the base query set narrowed by every filter with a
// value. Empty values do not filter.
func (f *Filters) QuerySet() jigsaw.QuerySet {
	qs := f.base.Clone()
	for _, name := range f.set.Fields {
		if v := f.data.Get(name); v != "" {
			qs = qs.Filter(name, v)
		}
	}
	return qs
}
