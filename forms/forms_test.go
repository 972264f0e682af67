package forms

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"howett.net/jigsaw"
	"howett.net/jigsaw/store"
	"howett.net/jigsaw/store/memstore"
)

var (
	bugModel  = &store.Model{Name: "bug", App: "tracker", Fields: []string{"title", "votes", "open", "project"}}
	noteModel = &store.Model{Name: "note", App: "tracker", Fields: []string{"bug", "data"}}

	bugFields = []Field{
		{Name: "title", Required: true, MaxLength: 8},
		{Name: "votes", Kind: Int},
		{Name: "open", Kind: Bool},
	}
	noteFields = []Field{
		{Name: "data", Required: true},
	}
)

func TestModelForm(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	factory := ModelFormFactory(bugModel, s, bugFields...)

	t.Run("Unbound", func(t *testing.T) {
		f, err := factory(jigsaw.FormArgs{Initial: map[string]interface{}{"votes": 3}})
		if err != nil {
			t.Fatal(err)
		}
		if f.IsValid() {
			t.Error("unbound form is valid")
		}
		mf := f.(*ModelForm)
		if got := mf.Value("votes"); got != "3" {
			t.Errorf("initial value: got %q", got)
		}
		if len(mf.Errors()) != 0 {
			t.Errorf("unbound form has errors: %v", mf.Errors())
		}
	})

	t.Run("Errors", func(t *testing.T) {
		f, _ := factory(jigsaw.FormArgs{Data: url.Values{"title": {""}, "votes": {"many"}}})
		if f.IsValid() {
			t.Fatal("invalid form validated")
		}
		want := map[string][]string{
			"title": {"This field is required."},
			"votes": {"Enter a whole number."},
		}
		if diff := cmp.Diff(want, f.Errors()); diff != "" {
			t.Error(diff)
		}

		f, _ = factory(jigsaw.FormArgs{Data: url.Values{"title": {"far too long"}}})
		if got := f.Errors()["title"]; len(got) != 1 || got[0] != "Ensure this value has at most 8 characters (it has 12)." {
			t.Errorf("max length: got %v", got)
		}
	})

	t.Run("SaveNew", func(t *testing.T) {
		f, _ := factory(jigsaw.FormArgs{Data: url.Values{"title": {" crash "}, "votes": {"2"}, "open": {"on"}}})
		obj, err := f.Save(ctx)
		if err != nil {
			t.Fatal(err)
		}
		r := obj.(*store.Record)
		want := map[string]interface{}{"id": int64(1), "title": "crash", "votes": int64(2), "open": true}
		if diff := cmp.Diff(want, r.Values); diff != "" {
			t.Error(diff)
		}
	})

	t.Run("SaveInstanceLeavesOriginal", func(t *testing.T) {
		orig := bugModel.New(map[string]interface{}{"title": "old", "project": int64(7)})
		if err := s.Save(ctx, orig); err != nil {
			t.Fatal(err)
		}
		f, _ := factory(jigsaw.FormArgs{Instance: orig, Data: url.Values{"title": {"new"}}})
		obj, err := f.Save(ctx)
		if err != nil {
			t.Fatal(err)
		}
		r := obj.(*store.Record)
		if r.PK() != orig.PK() || r.String("title") != "new" || r.String("project") != "7" {
			t.Errorf("saved %v", r.Values)
		}
		if orig.String("title") != "old" {
			t.Error("instance mutated")
		}
	})

	t.Run("SaveInvalid", func(t *testing.T) {
		f, _ := factory(jigsaw.FormArgs{Data: url.Values{}})
		if _, err := f.Save(ctx); err != ErrInvalid {
			t.Errorf("got %v", err)
		}
	})

	t.Run("WrongInstance", func(t *testing.T) {
		if _, err := factory(jigsaw.FormArgs{Instance: noteModel.New(nil)}); err == nil {
			t.Error("accepted a record of another model")
		}
	})

	t.Run("Prefix", func(t *testing.T) {
		f, _ := factory(jigsaw.FormArgs{Prefix: "bug", Data: url.Values{"bug-title": {"x"}}})
		if !f.IsValid() {
			t.Errorf("prefixed form invalid: %v", f.Errors())
		}
	})
}

func TestModelFormset(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	existing := noteModel.New(map[string]interface{}{"bug": int64(1), "data": "first"})
	if err := s.Save(ctx, existing); err != nil {
		t.Fatal(err)
	}
	factory := ModelFormsetFactory(noteModel, s, noteFields, Extra(2))
	qs := s.Objects(noteModel).Filter("bug", 1)

	t.Run("Unbound", func(t *testing.T) {
		fs, err := factory(jigsaw.FormsetArgs{Prefix: "notes", QuerySet: qs})
		if err != nil {
			t.Fatal(err)
		}
		mfs := fs.(*ModelFormset)
		if mfs.TotalForms() != 3 || mfs.InitialForms() != 1 {
			t.Errorf("got %d/%d forms", mfs.TotalForms(), mfs.InitialForms())
		}
		if got := mfs.Forms()[0].Value("data"); got != "first" {
			t.Errorf("existing row shows %q", got)
		}
		if mfs.ManagementName("TOTAL_FORMS") != "notes-TOTAL_FORMS" {
			t.Error(mfs.ManagementName("TOTAL_FORMS"))
		}
	})

	t.Run("MissingManagementForm", func(t *testing.T) {
		fs, err := factory(jigsaw.FormsetArgs{Prefix: "notes", QuerySet: qs, Data: url.Values{}})
		if err != nil {
			t.Fatal(err)
		}
		if fs.IsValid() {
			t.Error("formset without management data is valid")
		}
		if got := fs.(*ModelFormset).NonFormErrors(); len(got) != 1 {
			t.Errorf("got %v", got)
		}
	})

	t.Run("SaveChangedRows", func(t *testing.T) {
		data := url.Values{
			"notes-TOTAL_FORMS":   {"3"},
			"notes-INITIAL_FORMS": {"1"},
			"notes-0-id":          {"1"},
			"notes-0-data":        {"first"},
			"notes-1-data":        {"second"},
			"notes-2-data":        {""},
		}
		fs, err := factory(jigsaw.FormsetArgs{Prefix: "notes", QuerySet: qs, Data: data})
		if err != nil {
			t.Fatal(err)
		}
		if !fs.IsValid() {
			t.Fatalf("invalid: %v", fs.Errors())
		}
		saved, err := fs.Save(ctx, func(obj interface{}) error {
			obj.(jigsaw.FieldSetter).SetField("bug", int64(1))
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(saved) != 1 || saved[0].(*store.Record).String("data") != "second" {
			t.Errorf("saved %v", saved)
		}
		if n, _ := qs.Count(ctx); n != 2 {
			t.Errorf("%d notes on bug 1", n)
		}
	})

	t.Run("InvalidRow", func(t *testing.T) {
		data := url.Values{
			"notes-TOTAL_FORMS":   {"2"},
			"notes-INITIAL_FORMS": {"1"},
			"notes-0-id":          {"1"},
			"notes-0-data":        {""},
			"notes-1-data":        {""},
		}
		fs, _ := factory(jigsaw.FormsetArgs{Prefix: "notes", QuerySet: qs, Data: data})
		if fs.IsValid() {
			t.Fatal("blanked existing row validated")
		}
		want := []map[string][]string{
			{"data": {"This field is required."}},
			{},
		}
		if diff := cmp.Diff(want, fs.Errors()); diff != "" {
			t.Error(diff)
		}
	})
}
