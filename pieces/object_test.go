package pieces

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"howett.net/jigsaw"
	"howett.net/jigsaw/forms"
	"howett.net/jigsaw/store"
	"howett.net/jigsaw/store/memstore"
)

var (
	objectModel = &store.Model{
		Name:   "myobject",
		App:    "tests",
		Fields: []string{"slug", "other_slug_field"},
		URL: func(r *store.Record) string {
			return fmt.Sprintf("/objects/%v/", r.PK())
		},
	}
	otherModel  = &store.Model{Name: "myotherobject", App: "tests"}
	inlineModel = &store.Model{Name: "myinline", App: "tests", Fields: []string{"root_obj", "data"}}

	objectFields = []forms.Field{
		{Name: "slug", Required: true, MaxLength: 16},
		{Name: "other_slug_field", Required: true, MaxLength: 16},
	}
	inlineFields = []forms.Field{
		{Name: "data", Required: true, MaxLength: 32},
	}
)

type fixture struct {
	store   *memstore.Store
	objects jigsaw.QuerySet
	others  jigsaw.QuerySet
	inlines jigsaw.QuerySet
}

func newFixture(t *testing.T, nobjects, nothers int) *fixture {
	t.Helper()
	s := memstore.New()
	ctx := context.Background()
	for i := 1; i <= nobjects; i++ {
		r := objectModel.New(map[string]interface{}{
			"slug":             fmt.Sprintf("obj-%d", i),
			"other_slug_field": fmt.Sprintf("other-%d", i),
		})
		if err := s.Save(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	for i := 1; i <= nothers; i++ {
		if err := s.Save(ctx, otherModel.New(nil)); err != nil {
			t.Fatal(err)
		}
	}
	return &fixture{
		store:   s,
		objects: s.Objects(objectModel),
		others:  s.Objects(otherModel),
		inlines: s.Objects(inlineModel),
	}
}

func get(vars map[string]string, query url.Values) *jigsaw.Request {
	return &jigsaw.Request{Method: http.MethodGet, Vars: vars, Query: query}
}

func post(vars map[string]string, data url.Values) *jigsaw.Request {
	return &jigsaw.Request{Method: http.MethodPost, Vars: vars, Query: url.Values{}, Data: data}
}

func collect(t *testing.T, c *jigsaw.Class, mode jigsaw.Mode, req *jigsaw.Request) (*jigsaw.View, *jigsaw.Context) {
	t.Helper()
	v, err := c.New(mode, req)
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := v.ContextData()
	if err != nil {
		t.Fatal(err)
	}
	return v, ctx
}

func sortedKeys(ctx *jigsaw.Context) []string {
	keys := ctx.Keys()
	sort.Strings(keys)
	return keys
}

func TestDetailWithPinnedList(t *testing.T) {
	f := newFixture(t, 3, 4)
	view := jigsaw.MustClass("ObjectView",
		jigsaw.Slot("other", jigsaw.Declare(&Object{QuerySet: f.others}, jigsaw.WithMode(jigsaw.ModeList))),
		jigsaw.Slot("obj", jigsaw.Declare(&Object{QuerySet: f.objects})),
	)

	v, ctx := collect(t, view, jigsaw.ModeDetail, get(map[string]string{"pk": "1"}, nil))

	want := []string{"obj", "other_is_paginated", "other_list", "other_page_obj", "other_paginator"}
	if diff := cmp.Diff(want, sortedKeys(ctx)); diff != "" {
		t.Errorf("context keys (-want +got):\n%s", diff)
	}
	if got := ctx.Get(jigsaw.K("obj")).(*store.Record).String("slug"); got != "obj-1" {
		t.Errorf("obj: got %q", got)
	}
	if got := ctx.Get(jigsaw.Key{Piece: "other", Suffix: jigsaw.SuffixList}).([]interface{}); len(got) != 4 {
		t.Errorf("other_list: got %d objects", len(got))
	}
	if ctx.Get(jigsaw.Key{Piece: "other", Suffix: jigsaw.SuffixIsPaginated}) != false {
		t.Error("unpaginated list reported as paginated")
	}
	if ctx.Get(jigsaw.Key{Piece: "other", Suffix: jigsaw.SuffixPaginator}) != nil {
		t.Error("unpaginated list has a paginator")
	}

	name, err := v.TemplateName()
	if err != nil || name != "tests/obj_detail.html" {
		t.Errorf("template: got %q, %v", name, err)
	}
}

func TestObjectLookup(t *testing.T) {
	f := newFixture(t, 3, 0)
	view := jigsaw.MustClass("SingleObjectView",
		jigsaw.Slot("obj", jigsaw.Declare(&Object{QuerySet: f.objects, SlugField: "other_slug_field"})),
	)

	t.Run("BySlug", func(t *testing.T) {
		_, ctx := collect(t, view, jigsaw.ModeDetail, get(map[string]string{"slug": "other-2"}, nil))
		if got := ctx.Get(jigsaw.K("obj")).(*store.Record).PK(); got != int64(2) {
			t.Errorf("got pk %v", got)
		}
	})

	t.Run("PKWinsOverSlug", func(t *testing.T) {
		_, ctx := collect(t, view, jigsaw.ModeDetail, get(map[string]string{"pk": "3", "slug": "other-2"}, nil))
		if got := ctx.Get(jigsaw.K("obj")).(*store.Record).PK(); got != int64(3) {
			t.Errorf("got pk %v", got)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		v, _ := view.New(jigsaw.ModeDetail, get(map[string]string{"pk": "42"}, nil))
		_, err := v.ContextData()
		if !errors.Is(err, jigsaw.ErrNotFound) || jigsaw.StatusCode(err) != http.StatusNotFound {
			t.Fatalf("got %v", err)
		}
		if err.Error() != "No myobject found matching the query" {
			t.Errorf("message: %q", err)
		}
	})

	t.Run("NoIdentifier", func(t *testing.T) {
		v, _ := view.New(jigsaw.ModeDetail, get(nil, nil))
		_, err := v.ContextData()
		var cerr *jigsaw.ConfigurationError
		if !errors.As(err, &cerr) || cerr.Class != "SingleObjectView" || cerr.Piece != "obj" {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("NoQuerySet", func(t *testing.T) {
		bare := jigsaw.MustClass("Bare", jigsaw.Slot("obj", jigsaw.Declare(&Object{})))
		v, _ := bare.New(jigsaw.ModeList, get(nil, nil))
		_, err := v.ContextData()
		var cerr *jigsaw.ConfigurationError
		if !errors.As(err, &cerr) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("ContextObjectName", func(t *testing.T) {
		named := jigsaw.MustClass("Named", jigsaw.Slot("obj", jigsaw.Declare(&Object{QuerySet: f.objects, ContextObjectName: "thing"})))
		_, ctx := collect(t, named, jigsaw.ModeDetail, get(map[string]string{"pk": "1"}, nil))
		if !ctx.Has(jigsaw.K("thing")) || ctx.Has(jigsaw.K("obj")) {
			t.Errorf("keys: %v", ctx.Keys())
		}
	})
}

func TestUpdateInvalid(t *testing.T) {
	f := newFixture(t, 1, 0)
	view := jigsaw.MustClass("ObjectView",
		jigsaw.Slot("obj", jigsaw.Declare(&Object{
			QuerySet: f.objects,
			Form:     forms.ModelFormFactory(objectModel, f.store, objectFields...),
		})),
	)

	req := post(map[string]string{"pk": "1"}, url.Values{"slug": {"changed"}})
	v, ctx := collect(t, view, jigsaw.ModeUpdate, req)
	res, err := v.Dispatch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res != nil {
		t.Fatalf("invalid form short-circuited with %#v", res)
	}

	form := ctx.Get(jigsaw.Key{Piece: "obj", Suffix: jigsaw.SuffixForm}).(jigsaw.Form)
	want := map[string][]string{"other_slug_field": {"This field is required."}}
	if diff := cmp.Diff(want, form.Errors()); diff != "" {
		t.Error(diff)
	}

	obj, err := f.objects.Filter("id", 1).Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := obj.(*store.Record).String("slug"); got != "obj-1" {
		t.Errorf("object modified in storage: slug %q", got)
	}
}

func TestNewWithInline(t *testing.T) {
	f := newFixture(t, 0, 0)
	view := jigsaw.MustClass("ObjectView",
		jigsaw.Slot("obj", jigsaw.Declare(&Object{
			QuerySet: f.objects,
			Form:     forms.ModelFormFactory(objectModel, f.store, objectFields...),
			Inlines: []*Inline{{
				Name:     "children",
				FKField:  "root_obj",
				QuerySet: f.inlines,
				Formset:  forms.ModelFormsetFactory(inlineModel, f.store, inlineFields, forms.Extra(2)),
			}},
		})),
	)

	t.Run("InlineNameCollides", func(t *testing.T) {
		_, err := jigsaw.NewClass("Clash",
			jigsaw.Extends(view),
			jigsaw.Slot("obj_children", jigsaw.Declare(jigsaw.Plain)),
		)
		var cerr *jigsaw.ConfigurationError
		if !errors.As(err, &cerr) {
			t.Errorf("got %v, want a configuration error", err)
		}
	})

	t.Run("Unbound", func(t *testing.T) {
		_, ctx := collect(t, view, jigsaw.ModeNew, get(nil, nil))
		want := []string{"obj_children_formset", "obj_form"}
		if diff := cmp.Diff(want, sortedKeys(ctx)); diff != "" {
			t.Error(diff)
		}
	})

	t.Run("InvalidChildBlocksSave", func(t *testing.T) {
		data := url.Values{
			"slug":                   {"root"},
			"other_slug_field":       {"other"},
			"children-TOTAL_FORMS":   {"2"},
			"children-INITIAL_FORMS": {"0"},
			"children-0-data":        {"this child has far more than thirty-two characters"},
		}
		v, ctx := collect(t, view, jigsaw.ModeNew, post(nil, data))
		res, err := v.Dispatch(ctx)
		if err != nil || res != nil {
			t.Fatalf("got %v, %v", res, err)
		}
		if n, _ := f.objects.Count(context.Background()); n != 0 {
			t.Errorf("%d objects saved", n)
		}
	})

	t.Run("Save", func(t *testing.T) {
		data := url.Values{
			"slug":                   {"root"},
			"other_slug_field":       {"other"},
			"children-TOTAL_FORMS":   {"2"},
			"children-INITIAL_FORMS": {"0"},
			"children-0-data":        {"first child"},
			"children-1-data":        {""},
		}
		v, ctx := collect(t, view, jigsaw.ModeNew, post(nil, data))
		res, err := v.Dispatch(ctx)
		if err != nil {
			t.Fatal(err)
		}
		rd, ok := res.(*jigsaw.Redirect)
		if !ok {
			t.Fatalf("got %#v, want a redirect", res)
		}
		if rd.URL != "/objects/1/" {
			t.Errorf("redirect to %q", rd.URL)
		}

		ctx2 := context.Background()
		if n, _ := f.objects.Count(ctx2); n != 1 {
			t.Errorf("%d objects saved", n)
		}
		children, err := f.inlines.Filter("root_obj", 1).All(ctx2)
		if err != nil {
			t.Fatal(err)
		}
		if len(children) != 1 || children[0].(*store.Record).String("data") != "first child" {
			t.Errorf("children: %v", children)
		}
	})

	t.Run("UpdateScopesInline", func(t *testing.T) {
		_, ctx := collect(t, view, jigsaw.ModeUpdate, get(map[string]string{"pk": "1"}, nil))
		fs := ctx.Get(jigsaw.Key{Piece: "obj_children", Suffix: jigsaw.SuffixFormset}).(*forms.ModelFormset)
		if fs.InitialForms() != 1 || fs.TotalForms() != 3 {
			t.Errorf("got %d/%d rows", fs.InitialForms(), fs.TotalForms())
		}
	})
}

func TestSuccessURL(t *testing.T) {
	f := newFixture(t, 0, 0)
	view := jigsaw.MustClass("ObjectView",
		jigsaw.Slot("obj", jigsaw.Declare(&Object{
			QuerySet:   f.others,
			Form:       forms.ModelFormFactory(otherModel, f.store),
			SuccessURL: "/done/{{.id}}/",
		})),
	)
	v, ctx := collect(t, view, jigsaw.ModeNew, post(nil, url.Values{}))
	res, err := v.Dispatch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rd := res.(*jigsaw.Redirect); rd.URL != "/done/1/" {
		t.Errorf("redirect to %q", rd.URL)
	}

	noURL := jigsaw.MustClass("NoURL",
		jigsaw.Slot("obj", jigsaw.Declare(&Object{
			QuerySet: f.others,
			Form:     forms.ModelFormFactory(otherModel, f.store),
		})),
	)
	v, ctx = collect(t, noURL, jigsaw.ModeNew, post(nil, url.Values{}))
	_, err = v.Dispatch(ctx)
	var cerr *jigsaw.ConfigurationError
	if !errors.As(err, &cerr) {
		t.Errorf("got %v, want a configuration error", err)
	}

	missingField := jigsaw.MustClass("MissingField",
		jigsaw.Slot("obj", jigsaw.Declare(&Object{
			QuerySet:   f.others,
			Form:       forms.ModelFormFactory(otherModel, f.store),
			SuccessURL: "/done/{{.pk}}/",
		})),
	)
	v, ctx = collect(t, missingField, jigsaw.ModeNew, post(nil, url.Values{}))
	res, err = v.Dispatch(ctx)
	if !errors.As(err, &cerr) {
		t.Errorf("got %v, %v; want a configuration error", res, err)
	}
}

func TestPagination(t *testing.T) {
	f := newFixture(t, 12, 0)
	view := jigsaw.MustClass("ListView",
		jigsaw.Slot("obj", jigsaw.Declare(&Object{QuerySet: f.objects, PaginateBy: 10})),
	)
	list := jigsaw.Key{Piece: "obj", Suffix: jigsaw.SuffixList}
	paginated := jigsaw.Key{Piece: "obj", Suffix: jigsaw.SuffixIsPaginated}

	page := func(token string) (*jigsaw.Context, error) {
		v, err := view.New(jigsaw.ModeList, get(nil, url.Values{"page": {token}}))
		if err != nil {
			t.Fatal(err)
		}
		return v.ContextData()
	}

	t.Run("SecondPage", func(t *testing.T) {
		ctx, err := page("2")
		if err != nil {
			t.Fatal(err)
		}
		if got := ctx.Get(list).([]interface{}); len(got) != 2 {
			t.Errorf("got %d objects", len(got))
		}
		if ctx.Get(paginated) != true {
			t.Error("not paginated")
		}
		p := ctx.Get(jigsaw.Key{Piece: "obj", Suffix: jigsaw.SuffixPageObj}).(*Page)
		if p.Number != 2 || p.HasNext() || !p.HasPrevious() || p.StartIndex() != 11 || p.EndIndex() != 12 {
			t.Errorf("page %+v", p)
		}
	})

	t.Run("Last", func(t *testing.T) {
		ctx, err := page("last")
		if err != nil {
			t.Fatal(err)
		}
		if got := ctx.Get(jigsaw.Key{Piece: "obj", Suffix: jigsaw.SuffixPageObj}).(*Page).Number; got != 2 {
			t.Errorf("last is page %d", got)
		}
	})

	t.Run("All", func(t *testing.T) {
		ctx, err := page("all")
		if err != nil {
			t.Fatal(err)
		}
		if got := ctx.Get(list).([]interface{}); len(got) != 12 {
			t.Errorf("got %d objects", len(got))
		}
		if ctx.Get(paginated) != false {
			t.Error("paginated")
		}
	})

	for _, token := range []string{"3", "0", "first"} {
		t.Run("Invalid/"+token, func(t *testing.T) {
			_, err := page(token)
			if jigsaw.StatusCode(err) != http.StatusNotFound {
				t.Errorf("got %v", err)
			}
		})
	}

	t.Run("DefaultsToFirst", func(t *testing.T) {
		ctx, err := page("")
		if err != nil {
			t.Fatal(err)
		}
		if got := ctx.Get(list).([]interface{}); len(got) != 10 {
			t.Errorf("got %d objects", len(got))
		}
	})
}

func TestFilters(t *testing.T) {
	f := newFixture(t, 3, 0)
	view := jigsaw.MustClass("ListView",
		jigsaw.Slot("obj", jigsaw.Declare(&Object{QuerySet: f.objects, Filters: []string{"slug"}})),
	)

	_, ctx := collect(t, view, jigsaw.ModeList, get(nil, url.Values{"slug": {"obj-2"}}))
	filters := ctx.Get(jigsaw.Key{Piece: "obj", Suffix: jigsaw.SuffixFilters}).(*Filters)
	if !filters.Active() {
		t.Error("filters inactive")
	}
	got := ctx.Get(jigsaw.Key{Piece: "obj", Suffix: jigsaw.SuffixList}).([]interface{})
	if len(got) != 1 || got[0].(*store.Record).PK() != int64(2) {
		t.Errorf("got %v", got)
	}

	_, ctx = collect(t, view, jigsaw.ModeList, get(nil, url.Values{"slug": {""}}))
	if got := ctx.Get(jigsaw.Key{Piece: "obj", Suffix: jigsaw.SuffixList}).([]interface{}); len(got) != 3 {
		t.Errorf("empty filter narrowed the list to %d", len(got))
	}
}

func TestQuerySetFuncSeesEarlierPieces(t *testing.T) {
	f := newFixture(t, 2, 0)
	ctx := context.Background()
	for _, d := range []string{"a", "b", "c"} {
		root := int64(1)
		if d == "c" {
			root = 2
		}
		if err := f.store.Save(ctx, inlineModel.New(map[string]interface{}{"root_obj": root, "data": d})); err != nil {
			t.Fatal(err)
		}
	}

	view := jigsaw.MustClass("ScopedView",
		jigsaw.Slot("obj", jigsaw.Declare(&Object{QuerySet: f.objects}, jigsaw.WithMode(jigsaw.ModeDetail))),
		jigsaw.Slot("child", jigsaw.Declare(&Object{
			QuerySetFunc: func(c *jigsaw.Context, req *jigsaw.Request) (jigsaw.QuerySet, error) {
				root := c.Get(jigsaw.K("obj")).(jigsaw.Keyed)
				return f.inlines.Filter("root_obj", root.PK()), nil
			},
		}, jigsaw.WithMode(jigsaw.ModeList))),
	)

	_, c := collect(t, view, jigsaw.ModeDetail, get(map[string]string{"pk": "1"}, nil))
	if got := c.Get(jigsaw.Key{Piece: "child", Suffix: jigsaw.SuffixList}).([]interface{}); len(got) != 2 {
		t.Errorf("got %d children of obj 1", len(got))
	}
}
