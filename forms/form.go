package forms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/pkg/errors"

	"howett.net/jigsaw"
	"howett.net/jigsaw/store"
)

// ErrInvalid is returned when saving a form that did not validate.
var ErrInvalid = errors.New("forms: saving an invalid form")

// ModelForm edits one record of a model. It is bound when it was built
// with submitted data.
type ModelForm struct {
	prefix   string
	fields   []Field
	model    *store.Model
	saver    store.Saver
	instance *store.Record
	initial  map[string]interface{}
	data     url.Values

	validated bool
	cleaned   map[string]interface{}
	errors    map[string][]string
}

var _ jigsaw.Form = &ModelForm{}

// NewModelForm builds a form over fields of model. instance may be nil for
// a form creating a new record; data may be nil for an unbound form.
func NewModelForm(model *store.Model, saver store.Saver, fields []Field, args jigsaw.FormArgs) (*ModelForm, error) {
	f := &ModelForm{
		prefix:  args.Prefix,
		fields:  fields,
		model:   model,
		saver:   saver,
		initial: args.Initial,
		data:    args.Data,
	}
	if args.Instance != nil {
		r, ok := args.Instance.(*store.Record)
		if !ok {
			return nil, errors.Errorf("forms: %T is not a record", args.Instance)
		}
		if r.Model != model {
			return nil, errors.Errorf("forms: editing a %s with a %s form", r.Model.Name, model.Name)
		}
		f.instance = r
	}
	return f, nil
}

// ModelFormFactory returns a factory for forms editing fields of model,
// saved through saver.
func ModelFormFactory(model *store.Model, saver store.Saver, fields ...Field) jigsaw.FormFactory {
	return func(args jigsaw.FormArgs) (jigsaw.Form, error) {
		return NewModelForm(model, saver, fields, args)
	}
}

// HTMLName returns the input name of the field called name.
func (f *ModelForm) HTMLName(name string) string {
	if f.prefix == "" {
		return name
	}
	return f.prefix + "-" + name
}

func (f *ModelForm) Prefix() string          { return f.prefix }
func (f *ModelForm) IsBound() bool           { return f.data != nil }
func (f *ModelForm) Instance() *store.Record { return f.instance }
func (f *ModelForm) Model() *store.Model     { return f.model }

// initialValue is what an unbound form shows for field: the instance's
// value, else the configured initial value.
func (f *ModelForm) initialValue(field Field) interface{} {
	if f.instance != nil {
		if v, ok := f.instance.Values[field.Name]; ok {
			return v
		}
	}
	return f.initial[field.Name]
}

// Value returns the text a template should show for the field called name.
func (f *ModelForm) Value(name string) string {
	for _, field := range f.fields {
		if field.Name != name {
			continue
		}
		if f.IsBound() {
			return f.data.Get(f.HTMLName(name))
		}
		return field.format(f.initialValue(field))
	}
	return ""
}

// HasChanged reports whether the submitted data differs from what the form
// would show unbound.
func (f *ModelForm) HasChanged() bool {
	if !f.IsBound() {
		return false
	}
	for _, field := range f.fields {
		submitted := f.data.Get(f.HTMLName(field.Name))
		if submitted != field.format(f.initialValue(field)) {
			return true
		}
	}
	return false
}

func (f *ModelForm) validate() {
	if f.validated {
		return
	}
	f.validated = true
	f.errors = make(map[string][]string)
	if !f.IsBound() {
		return
	}

	f.cleaned = make(map[string]interface{}, len(f.fields))
	for _, field := range f.fields {
		v, errs := field.clean(f.data.Get(f.HTMLName(field.Name)))
		if len(errs) > 0 {
			f.errors[field.Name] = errs
			continue
		}
		f.cleaned[field.Name] = v
	}
}

// IsValid reports whether the form is bound and every field cleaned.
func (f *ModelForm) IsValid() bool {
	f.validate()
	return f.IsBound() && len(f.errors) == 0
}

// Errors returns the messages of each invalid field.
func (f *ModelForm) Errors() map[string][]string {
	f.validate()
	return f.errors
}

// Cleaned returns the validated value of field name.
func (f *ModelForm) Cleaned(name string) interface{} {
	f.validate()
	return f.cleaned[name]
}

// BoundField is a field paired with its form state, for templates.
type BoundField struct {
	Field
	HTMLName string
	Value    string
	Errors   []string
}

// Fields returns every field in declaration order.
func (f *ModelForm) Fields() []BoundField {
	errs := f.Errors()
	out := make([]BoundField, len(f.fields))
	for i, field := range f.fields {
		out[i] = BoundField{
			Field:    field,
			HTMLName: f.HTMLName(field.Name),
			Value:    f.Value(field.Name),
			Errors:   errs[field.Name],
		}
	}
	return out
}

// record returns the record the form would save: a copy of the instance,
// or a new record, carrying the cleaned values.
func (f *ModelForm) record() (*store.Record, error) {
	if !f.IsValid() {
		return nil, ErrInvalid
	}
	var r *store.Record
	if f.instance != nil {
		r = f.instance.Clone()
	} else {
		r = f.model.New(nil)
	}
	for _, field := range f.fields {
		r.SetField(field.Name, f.cleaned[field.Name])
	}
	return r, nil
}

// Save writes the form's record and returns it. The instance the form was
// built with is left untouched.
func (f *ModelForm) Save(ctx context.Context) (interface{}, error) {
	r, err := f.record()
	if err != nil {
		return nil, err
	}
	if err := f.saver.Save(ctx, r); err != nil {
		return nil, errors.Wrapf(err, "forms: saving %s", f.model.Name)
	}
	return r, nil
}

func (f *ModelForm) String() string {
	return fmt.Sprintf("<%s form %q>", f.model.Name, f.prefix)
}

func (f *ModelForm) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"bound":  f.IsBound(),
		"fields": f.Fields(),
	})
}
