package forms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"howett.net/jigsaw"
	"howett.net/jigsaw/store"
)

const (
	totalForms   = "TOTAL_FORMS"
	initialForms = "INITIAL_FORMS"

	msgManagement = "ManagementForm data is missing or has been tampered with."
)

// ModelFormset edits the records of a query set plus a number of blank
// extra rows. Submitted data carries a management form giving the row
// counts: {prefix}-TOTAL_FORMS and {prefix}-INITIAL_FORMS.
type ModelFormset struct {
	prefix   string
	model    *store.Model
	saver    store.Saver
	fields   []Field
	extra    int
	existing []*store.Record
	data     url.Values

	forms   []*ModelForm
	nonForm []string
}

var _ jigsaw.Formset = &ModelFormset{}

// FormsetOption configures a ModelFormset factory.
type FormsetOption func(*formsetConfig)

type formsetConfig struct {
	extra int
}

// Extra sets the number of blank rows offered; the default is one.
func Extra(n int) FormsetOption {
	return func(c *formsetConfig) {
		c.extra = n
	}
}

// ModelFormsetFactory returns a factory for formsets editing fields of
// model, saved through saver.
func ModelFormsetFactory(model *store.Model, saver store.Saver, fields []Field, opts ...FormsetOption) jigsaw.FormsetFactory {
	cfg := formsetConfig{extra: 1}
	for _, opt := range opts {
		opt(&cfg)
	}
	return func(args jigsaw.FormsetArgs) (jigsaw.Formset, error) {
		return NewModelFormset(model, saver, fields, cfg.extra, args)
	}
}

// NewModelFormset loads the rows of args.QuerySet and builds the forms.
func NewModelFormset(model *store.Model, saver store.Saver, fields []Field, extra int, args jigsaw.FormsetArgs) (*ModelFormset, error) {
	fs := &ModelFormset{
		prefix: args.Prefix,
		model:  model,
		saver:  saver,
		fields: fields,
		extra:  extra,
		data:   args.Data,
	}
	if fs.prefix == "" {
		fs.prefix = "form"
	}

	if args.QuerySet != nil {
		ctx := args.Context
		if ctx == nil {
			ctx = context.Background()
		}
		objs, err := args.QuerySet.All(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "forms: loading %s rows", model.Name)
		}
		for _, o := range objs {
			r, ok := o.(*store.Record)
			if !ok {
				return nil, errors.Errorf("forms: %T is not a record", o)
			}
			fs.existing = append(fs.existing, r)
		}
	}

	if err := fs.build(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *ModelFormset) formPrefix(i int) string {
	return fmt.Sprintf("%s-%d", fs.prefix, i)
}

func (fs *ModelFormset) managementValue(name string) (int, bool) {
	raw, ok := fs.data[fs.ManagementName(name)]
	if !ok || len(raw) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(raw[0])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (fs *ModelFormset) build() error {
	total, initial := len(fs.existing)+fs.extra, len(fs.existing)
	if fs.IsBound() {
		t, ok1 := fs.managementValue(totalForms)
		i, ok2 := fs.managementValue(initialForms)
		if !ok1 || !ok2 || i > t || i > len(fs.existing) {
			fs.nonForm = []string{msgManagement}
			return nil
		}
		total, initial = t, i
	}

	pk := fs.model.PrimaryKey()
	for i := 0; i < total; i++ {
		args := jigsaw.FormArgs{
			Prefix: fs.formPrefix(i),
			Data:   fs.data,
		}
		if i < initial {
			args.Instance = fs.existing[i]
			if fs.IsBound() {
				if r := fs.lookup(fs.data.Get(fs.formPrefix(i) + "-" + pk)); r != nil {
					args.Instance = r
				}
			}
		}
		f, err := NewModelForm(fs.model, fs.saver, fs.fields, args)
		if err != nil {
			return err
		}
		fs.forms = append(fs.forms, f)
	}
	return nil
}

// lookup finds an existing row by its formatted primary key.
func (fs *ModelFormset) lookup(key string) *store.Record {
	if key == "" {
		return nil
	}
	for _, r := range fs.existing {
		if fmt.Sprint(r.PK()) == key {
			return r
		}
	}
	return nil
}

func (fs *ModelFormset) Prefix() string { return fs.prefix }
func (fs *ModelFormset) IsBound() bool  { return fs.data != nil }

// ManagementName returns the input name of a management field.
func (fs *ModelFormset) ManagementName(name string) string {
	return fs.prefix + "-" + name
}

// TotalForms and InitialForms feed the management form.
func (fs *ModelFormset) TotalForms() int   { return len(fs.forms) }
func (fs *ModelFormset) InitialForms() int { return fs.initialCount() }

func (fs *ModelFormset) initialCount() int {
	n := 0
	for _, f := range fs.forms {
		if f.instance != nil {
			n++
		}
	}
	return n
}

// Forms returns every row, existing ones first.
func (fs *ModelFormset) Forms() []*ModelForm {
	return fs.forms
}

// PKName returns the hidden input carrying the key of row i.
func (fs *ModelFormset) PKName(i int) string {
	return fs.formPrefix(i) + "-" + fs.model.PrimaryKey()
}

// NonFormErrors returns errors not tied to a row.
func (fs *ModelFormset) NonFormErrors() []string {
	return fs.nonForm
}

// skipped reports whether row f is a blank extra row left untouched.
func (fs *ModelFormset) skipped(f *ModelForm) bool {
	return f.instance == nil && !f.HasChanged()
}

// IsValid reports whether the formset is bound and every row it would save
// validates. Every row is validated so each carries its errors.
func (fs *ModelFormset) IsValid() bool {
	if !fs.IsBound() || len(fs.nonForm) > 0 {
		return false
	}
	valid := true
	for _, f := range fs.forms {
		if fs.skipped(f) {
			continue
		}
		if !f.IsValid() {
			valid = false
		}
	}
	return valid
}

// Errors returns one error map per row.
func (fs *ModelFormset) Errors() []map[string][]string {
	out := make([]map[string][]string, len(fs.forms))
	for i, f := range fs.forms {
		if fs.skipped(f) {
			out[i] = map[string][]string{}
			continue
		}
		out[i] = f.Errors()
	}
	return out
}

// Save writes every changed row. prepare sees each record before it is
// written.
func (fs *ModelFormset) Save(ctx context.Context, prepare func(obj interface{}) error) ([]interface{}, error) {
	if !fs.IsValid() {
		return nil, ErrInvalid
	}
	var saved []interface{}
	for _, f := range fs.forms {
		if !f.HasChanged() {
			continue
		}
		r, err := f.record()
		if err != nil {
			return saved, err
		}
		if prepare != nil {
			if err := prepare(r); err != nil {
				return saved, err
			}
		}
		if err := fs.saver.Save(ctx, r); err != nil {
			return saved, errors.Wrapf(err, "forms: saving %s", fs.model.Name)
		}
		saved = append(saved, r)
	}
	return saved, nil
}

func (fs *ModelFormset) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"prefix":          fs.prefix,
		"total_forms":     fs.TotalForms(),
		"initial_forms":   fs.InitialForms(),
		"forms":           fs.forms,
		"non_form_errors": fs.nonForm,
	})
}
