package jigsaw

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestViewBinding(t *testing.T) {
	tr := &trace{}
	base := MustClass("base",
		Slot("inherited", Declare(tr.factory(), WithDefaultMode(ModeDetail))),
		Slot("pinned", Declare(tr.factory(), WithMode(ModeList))),
	)
	sub := base.MustExtend("sub",
		Slot("own", Declare(tr.factory(), WithDefaultMode(ModeDetail))),
	)

	v, err := sub.New(ModeUpdate, newTestRequest("GET", "/"))
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]Mode{}
	for _, p := range v.Pieces() {
		got[p.Name()] = p.Mode()
	}
	want := map[string]Mode{
		"inherited": ModeDetail,
		"pinned":    ModeList,
		"own":       ModeUpdate,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("modes (-want +got):\n%s", diff)
	}

	if _, err := v.Piece("missing"); err == nil {
		t.Error("found a piece that does not exist")
	}
}

func TestContextData(t *testing.T) {
	tr := &trace{}
	cls := MustClass("fold",
		Slot("first", Declare(tr.factory())),
		Slot("second", Declare(tr.factory(), WithMode(ModeList))),
	)
	v, err := cls.New(ModeDetail, newTestRequest("GET", "/"))
	if err != nil {
		t.Fatal(err)
	}

	first, err := v.ContextData()
	if err != nil {
		t.Fatal(err)
	}
	second, err := v.ContextData()
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]interface{}{"first": ModeDetail, "second": ModeList}
	if diff := cmp.Diff(want, first.Map()); diff != "" {
		t.Errorf("context (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(first.Map(), second.Map()); diff != "" {
		t.Errorf("second collection differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"contribute first", "contribute second", "contribute first", "contribute second"}, tr.events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

type resetPiece struct {
	*BasePiece
}

func (p *resetPiece) Contribute(ctx *Context, req *Request) (*Context, error) {
	fresh := NewContext()
	fresh.Set(K(p.Name()), "only")
	return fresh, nil
}

type failingPiece struct {
	*BasePiece
}

var errContribute = errors.New("store went away")

func (p *failingPiece) Contribute(ctx *Context, req *Request) (*Context, error) {
	return nil, errContribute
}

func TestContextDataEdges(t *testing.T) {
	t.Run("Reset", func(t *testing.T) {
		cls := MustClass("reset",
			Slot("early", Declare(setter(K("early"), 1))),
			Slot("reset", Declare(FactoryFunc(func(b Binding) (Piece, error) {
				return &resetPiece{NewBasePiece(b)}, nil
			}))),
		)
		v, _ := cls.New(ModeDetail, newTestRequest("GET", "/"))
		ctx, err := v.ContextData()
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"reset"}, ctx.Keys()); diff != "" {
			t.Errorf("keys (-want +got):\n%s", diff)
		}
	})

	t.Run("Error", func(t *testing.T) {
		cls := MustClass("failing", Slot("broken", Declare(FactoryFunc(func(b Binding) (Piece, error) {
			return &failingPiece{NewBasePiece(b)}, nil
		}))))
		v, _ := cls.New(ModeDetail, newTestRequest("GET", "/"))
		if _, err := v.ContextData(); err != errContribute {
			t.Errorf("got %v", err)
		}
	})

	t.Run("CollisionLogged", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		cls := MustClass("colliding",
			Slot("bug", Declare(setter(Key{"bug", SuffixList}, 1))),
			Slot("other", Declare(setter(K("bug_list"), 2))),
		)
		v, _ := cls.New(ModeDetail, newTestRequest("GET", "/"), FieldLoggingOption(logger))
		ctx, err := v.ContextData()
		if err != nil {
			t.Fatal(err)
		}
		if ctx.Get(K("bug_list")) != 2 {
			t.Error("later piece did not win")
		}
		entry := hook.LastEntry()
		if entry == nil || entry.Level != logrus.WarnLevel || entry.Data["key"] != "bug_list" {
			t.Errorf("collision not logged: %v", entry)
		}
	})

	t.Run("NilFactoryResult", func(t *testing.T) {
		cls := MustClass("nil", Slot("nothing", Declare(FactoryFunc(func(b Binding) (Piece, error) {
			return nil, nil
		}))))
		if _, err := cls.New(ModeDetail, newTestRequest("GET", "/")); err == nil {
			t.Error("bound a nil piece")
		}
	})
}

func TestTemplateName(t *testing.T) {
	frag := func(name string) *Template { return Declare(Plain, WithTemplateName(name)) }

	tests := []struct {
		name string
		cls  *Class
		mode Mode
		want string
	}{
		{"Explicit", MustClass("c", TemplateName("page.html"), TemplatePrefix("x/"), Slot("a", frag("a"))), ModeDetail, "page.html"},
		{"Prefix", MustClass("c", TemplatePrefix("bugs/"), Slot("a", frag("a"))), ModeList, "bugs/list.html"},
		{"LastPieceWins", MustClass("c", Slot("a", frag("first")), Slot("b", frag("second"))), ModeDetail, "second.html"},
		{"SkipsSilentPieces", MustClass("c", Slot("a", frag("first")), Slot("b", Declare(Plain))), ModeDetail, "first.html"},
		{"PiecePrefix", MustClass("c", Slot("a", Declare(Plain, WithTemplatePrefix("bugs/bug_"), WithMode(ModeList)))), ModeDetail, "bugs/bug_list.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.cls.New(tt.mode, newTestRequest("GET", "/"))
			if err != nil {
				t.Fatal(err)
			}
			got, err := v.TemplateName()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	v, _ := MustClass("none", Slot("a", Declare(Plain))).New(ModeDetail, newTestRequest("GET", "/"))
	_, err := v.TemplateName()
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Errorf("expected a configuration error, got %v", err)
	}
}

func TestDispatch(t *testing.T) {
	stop := NewRedirect("/done/")

	t.Run("ReverseOrder", func(t *testing.T) {
		tr := &trace{}
		cls := MustClass("d",
			Slot("a", Declare(tr.factory())),
			Slot("b", Declare(tr.factory())),
			Slot("c", Declare(tr.factory())),
		)
		v, _ := cls.New(ModeUpdate, newTestRequest("POST", "/"))
		res, err := v.Dispatch(NewContext())
		if err != nil || res != nil {
			t.Fatalf("got %v, %v", res, err)
		}
		if diff := cmp.Diff([]string{"dispatch c", "dispatch b", "dispatch a"}, tr.events); diff != "" {
			t.Errorf("events (-want +got):\n%s", diff)
		}
	})

	t.Run("FirstResultWins", func(t *testing.T) {
		tr := &trace{results: map[string]Result{"b": stop, "a": NewRedirect("/never/")}}
		cls := MustClass("d",
			Slot("a", Declare(tr.factory())),
			Slot("b", Declare(tr.factory())),
			Slot("c", Declare(tr.factory())),
		)
		v, _ := cls.New(ModeNew, newTestRequest("POST", "/"))
		res, err := v.Dispatch(NewContext())
		if err != nil || res != stop {
			t.Fatalf("got %v, %v", res, err)
		}
		if diff := cmp.Diff([]string{"dispatch c", "dispatch b"}, tr.events); diff != "" {
			t.Errorf("events (-want +got):\n%s", diff)
		}
	})

	t.Run("OnlySubmittingModes", func(t *testing.T) {
		tr := &trace{}
		cls := MustClass("d",
			Slot("form", Declare(tr.factory())),
			Slot("list", Declare(tr.factory(), WithMode(ModeList))),
			Slot("sidebar", Declare(tr.eagerFactory(), WithMode(ModeDetail))),
		)
		v, _ := cls.New(ModeUpdate, newTestRequest("POST", "/"))
		if _, err := v.Dispatch(NewContext()); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"dispatch sidebar", "dispatch form"}, tr.events); diff != "" {
			t.Errorf("events (-want +got):\n%s", diff)
		}
	})
}
