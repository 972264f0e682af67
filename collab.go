package jigsaw

import (
	"context"
	"mime/multipart"
	"net/url"
)

// Model describes the type of object a QuerySet yields.
type Model interface {
	ModelName() string
	AppLabel() string
	VerboseName() string
	PrimaryKey() string
}

// QuerySet is a lazily evaluated, narrowable query against a persistent
// store. Narrowing operations return new query sets and never modify the
// receiver.
type QuerySet interface {
	Model() Model
	Clone() QuerySet
	Filter(field string, value interface{}) QuerySet
	Slice(offset, limit int) QuerySet

	Count(ctx context.Context) (int, error)
	All(ctx context.Context) ([]interface{}, error)

	// Get returns the single matching object. It fails with ErrNotFound
	// or ErrMultipleObjects.
	Get(ctx context.Context) (interface{}, error)
}

// Keyed is implemented by objects with a primary key.
type Keyed interface {
	PK() interface{}
}

// FieldSetter is implemented by objects whose fields can be assigned by
// name, such as the foreign key of an inline child.
type FieldSetter interface {
	SetField(name string, value interface{})
}

// URLer is implemented by objects that know their canonical location.
type URLer interface {
	AbsoluteURL() string
}

// FormArgs carries what a FormFactory needs to build one form.
type FormArgs struct {
	Prefix   string
	Initial  map[string]interface{}
	Data     url.Values
	Files    map[string][]*multipart.FileHeader
	Instance interface{}
}

// Form is a single, possibly bound, editable form. An invalid form is not
// an error; it carries its own error state and is rendered back.
type Form interface {
	IsValid() bool
	Errors() map[string][]string
	Save(ctx context.Context) (interface{}, error)
}

type FormFactory func(args FormArgs) (Form, error)

// FormsetArgs carries what a FormsetFactory needs to build a formset. A nil
// QuerySet means there are no existing rows.
type FormsetArgs struct {
	// Context bounds the loading of existing rows.
	Context  context.Context
	Prefix   string
	QuerySet QuerySet
	Data     url.Values
	Files    map[string][]*multipart.FileHeader
}

// Formset is a collection of forms over a set of objects plus blank extra
// rows.
type Formset interface {
	IsValid() bool
	Errors() []map[string][]string

	// Save persists every changed row. prepare, if not nil, is called with
	// each object before it is written.
	Save(ctx context.Context, prepare func(obj interface{}) error) ([]interface{}, error)
}

type FormsetFactory func(args FormsetArgs) (Formset, error)
