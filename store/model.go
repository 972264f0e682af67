// Package store describes the objects jigsaw's stock stores hold: generic
// records of a named model.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"howett.net/jigsaw"
)

// Model describes one kind of record and the table holding it.
type Model struct {
	Name    string
	App     string
	Verbose string
	Table   string

	// PK names the primary key column; "id" when empty.
	PK string

	// Fields lists the non-key columns. Stores refuse to filter on or
	// write columns not listed here, when it is set.
	Fields []string

	// URL returns a record's canonical location.
	URL func(*Record) string
}

var _ jigsaw.Model = &Model{}

func (m *Model) ModelName() string { return m.Name }
func (m *Model) AppLabel() string  { return m.App }

func (m *Model) VerboseName() string {
	if m.Verbose != "" {
		return m.Verbose
	}
	return strings.ReplaceAll(m.Name, "_", " ")
}

func (m *Model) PrimaryKey() string {
	if m.PK != "" {
		return m.PK
	}
	return "id"
}

// TableName returns the table records of m live in.
func (m *Model) TableName() string {
	if m.Table != "" {
		return m.Table
	}
	return m.Name
}

// HasColumn reports whether name is the primary key or a declared field.
func (m *Model) HasColumn(name string) bool {
	if name == m.PrimaryKey() || len(m.Fields) == 0 {
		return true
	}
	for _, f := range m.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// New returns an unsaved record of m.
func (m *Model) New(values map[string]interface{}) *Record {
	r := &Record{Model: m, Values: make(map[string]interface{}, len(values))}
	for k, v := range values {
		r.Values[k] = v
	}
	return r
}

// Record is one row of a Model.
type Record struct {
	Model  *Model
	Values map[string]interface{}
}

var (
	_ jigsaw.Keyed       = &Record{}
	_ jigsaw.FieldSetter = &Record{}
	_ jigsaw.URLer       = &Record{}
)

// PK returns the primary key, or nil for an unsaved record.
func (r *Record) PK() interface{} {
	return r.Values[r.Model.PrimaryKey()]
}

// Fields exposes the record's values, e.g. to templates.
func (r *Record) Fields() map[string]interface{} {
	return r.Values
}

// Get returns the value of field name.
func (r *Record) Get(name string) interface{} {
	return r.Values[name]
}

// String returns the value of field name formatted as a string; "" when
// the field is unset.
func (r *Record) String(name string) string {
	v, ok := r.Values[name]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func (r *Record) SetField(name string, value interface{}) {
	if r.Values == nil {
		r.Values = make(map[string]interface{})
	}
	r.Values[name] = value
}

func (r *Record) AbsoluteURL() string {
	if r.Model.URL == nil {
		return ""
	}
	return r.Model.URL(r)
}

// Columns returns the names of the record's set fields, sorted, with the
// primary key excluded.
func (r *Record) Columns() []string {
	pk := r.Model.PrimaryKey()
	cols := make([]string, 0, len(r.Values))
	for k := range r.Values {
		if k != pk {
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	return cols
}

// MarshalJSON encodes the record as an object of its fields.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Values)
}

// Clone returns a copy of r that shares no field map.
func (r *Record) Clone() *Record {
	return r.Model.New(r.Values)
}

// Saver persists records. A record without a primary key is inserted and
// receives one.
type Saver interface {
	Save(ctx context.Context, r *Record) error
}

// Deleter removes records.
type Deleter interface {
	Delete(ctx context.Context, r *Record) error
}
