package pieces

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"text/template"

	"github.com/sirupsen/logrus"

	"howett.net/jigsaw"
)

// Object declares a piece over one model. Depending on its mode it fetches
// one object (detail, update, delete), a filtered and paginated list
// (list), and offers a form for the object (new, update).
type Object struct {
	// Model overrides the model taken from QuerySet.
	Model jigsaw.Model

	// QuerySet is cloned for every request. QuerySetFunc, when set, builds
	// the query set instead; it sees what earlier pieces contributed.
	QuerySet     jigsaw.QuerySet
	QuerySetFunc func(ctx *jigsaw.Context, req *jigsaw.Request) (jigsaw.QuerySet, error)

	SlugField    string // "slug"
	PKURLKwarg   string // "pk"
	SlugURLKwarg string // "slug"

	// ContextObjectName replaces the piece name in context keys.
	ContextObjectName string

	Filters   []string
	FilterSet *FilterSet

	PaginateBy      int
	PaginateOrphans int
	PageKwarg       string // "page"
	PageAllName     string // "all"
	AllowEmpty      *bool  // true

	Form    jigsaw.FormFactory
	Initial map[string]interface{}

	// SuccessURL is a text/template executed over the saved object's
	// fields, e.g. "/bugs/{{.id}}/".
	SuccessURL     string
	SuccessURLFunc func(obj interface{}) (string, error)

	Valid   func(p *ObjectPiece, form jigsaw.Form) (jigsaw.Result, error)
	Invalid func(p *ObjectPiece, form jigsaw.Form) (jigsaw.Result, error)

	Inlines []*Inline

	once        sync.Once
	successTmpl *template.Template
	successErr  error
}

var (
	_ jigsaw.Factory      = &Object{}
	_ jigsaw.ContextNamer = &Object{}
)

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func (o *Object) NewPiece(b jigsaw.Binding) (jigsaw.Piece, error) {
	return &ObjectPiece{
		BasePiece: jigsaw.NewBasePiece(b),
		cfg:       o,
	}, nil
}

// ContextNames returns the names the piece bound to slot contributes
// under: its context object name and one per inline formset.
func (o *Object) ContextNames(slot string) []string {
	name := orDefault(o.ContextObjectName, slot)
	names := []string{name}
	for _, in := range o.Inlines {
		names = append(names, name+"_"+in.Name)
	}
	return names
}

func (o *Object) filterSet() *FilterSet {
	if o.FilterSet != nil {
		return o.FilterSet
	}
	if len(o.Filters) > 0 {
		return &FilterSet{Fields: o.Filters}
	}
	return nil
}

func (o *Object) allowEmpty() bool {
	return o.AllowEmpty == nil || *o.AllowEmpty
}

func (o *Object) successTemplate() (*template.Template, error) {
	o.once.Do(func() {
		o.successTmpl, o.successErr = template.New("success").Option("missingkey=error").Parse(o.SuccessURL)
	})
	return o.successTmpl, o.successErr
}

// ObjectPiece is a bound Object.
type ObjectPiece struct {
	*jigsaw.BasePiece
	cfg *Object

	qs      jigsaw.QuerySet
	object  interface{}
	form    jigsaw.Form
	inlines []*InlinePiece
}

// ContextName returns the name the piece's context keys are built on.
func (p *ObjectPiece) ContextName() string {
	return orDefault(p.cfg.ContextObjectName, p.Name())
}

// Object returns the object fetched or saved during this request.
func (p *ObjectPiece) Object() interface{} { return p.object }

// Form returns the object form built during this request.
func (p *ObjectPiece) Form() jigsaw.Form { return p.form }

// Inlines returns the bound inline formsets.
func (p *ObjectPiece) Inlines() []*InlinePiece { return p.inlines }

func (p *ObjectPiece) model() jigsaw.Model {
	switch {
	case p.cfg.Model != nil:
		return p.cfg.Model
	case p.cfg.QuerySet != nil:
		return p.cfg.QuerySet.Model()
	case p.qs != nil:
		return p.qs.Model()
	}
	return nil
}

// QuerySet returns a fresh query set for this request.
func (p *ObjectPiece) QuerySet(ctx *jigsaw.Context, req *jigsaw.Request) (jigsaw.QuerySet, error) {
	var qs jigsaw.QuerySet
	switch {
	case p.cfg.QuerySetFunc != nil:
		var err error
		if qs, err = p.cfg.QuerySetFunc(ctx, req); err != nil {
			return nil, err
		}
	case p.cfg.QuerySet != nil:
		qs = p.cfg.QuerySet.Clone()
	}
	if qs == nil {
		return nil, misconfigured(p.BasePiece, "missing a queryset. Define QuerySet or QuerySetFunc")
	}
	p.qs = qs
	return qs, nil
}

// GetObject looks the object up by the primary key URL variable or, when
// that is absent, by the slug.
func (p *ObjectPiece) GetObject(ctx *jigsaw.Context, req *jigsaw.Request) (interface{}, error) {
	qs, err := p.QuerySet(ctx, req)
	if err != nil {
		return nil, err
	}

	if pk, ok := req.Var(orDefault(p.cfg.PKURLKwarg, "pk")); ok {
		qs = qs.Filter(qs.Model().PrimaryKey(), pk)
	} else if slug, ok := req.Var(orDefault(p.cfg.SlugURLKwarg, "slug")); ok {
		qs = qs.Filter(orDefault(p.cfg.SlugField, "slug"), slug)
	} else {
		return nil, misconfigured(p.BasePiece, "Generic detail view %s must be called with either an object pk or a slug.", p.Name())
	}

	obj, err := qs.Get(req.Context())
	if errors.Is(err, jigsaw.ErrNotFound) {
		return nil, &jigsaw.NotFoundError{
			Reason: fmt.Sprintf("No %s found matching the query", qs.Model().VerboseName()),
			Err:    err,
		}
	}
	return obj, err
}

func (p *ObjectPiece) paginate(req *jigsaw.Request, qs jigsaw.QuerySet) (*Paginator, *Page, []interface{}, error) {
	all := func() (*Paginator, *Page, []interface{}, error) {
		objs, err := qs.All(req.Context())
		return nil, nil, objs, err
	}
	if p.cfg.PaginateBy <= 0 {
		return all()
	}

	token := req.Query.Get(orDefault(p.cfg.PageKwarg, "page"))
	if token == "" {
		token = "1"
	}
	number, convErr := strconv.Atoi(token)
	if convErr != nil && token != "last" {
		if token == orDefault(p.cfg.PageAllName, "all") {
			return all()
		}
		return nil, nil, nil, jigsaw.NotFound("Page is not 'last', nor can it be converted to an int.")
	}

	paginator, err := NewPaginator(req.Context(), qs, p.cfg.PaginateBy, p.cfg.PaginateOrphans, p.cfg.allowEmpty())
	if err != nil {
		return nil, nil, nil, err
	}
	if convErr != nil {
		number = paginator.NumPages()
	}
	page, err := paginator.Page(number)
	if err != nil {
		if err == ErrPageLessThan1 || err == ErrEmptyPage {
			return nil, nil, nil, jigsaw.NotFound("Invalid page (%d): %s", number, err)
		}
		return nil, nil, nil, err
	}
	return paginator, page, page.ObjectList, nil
}

func (p *ObjectPiece) contributeList(ctx *jigsaw.Context, req *jigsaw.Request) error {
	name := p.ContextName()
	qs, err := p.QuerySet(ctx, req)
	if err != nil {
		return err
	}

	if fs := p.cfg.filterSet(); fs != nil {
		filters := fs.Bind(req.Query, qs)
		ctx.Set(jigsaw.Key{Piece: name, Suffix: jigsaw.SuffixFilters}, filters)
		qs = filters.QuerySet()
	}

	paginator, page, objs, err := p.paginate(req, qs)
	if err != nil {
		return err
	}

	var pv, ov interface{}
	paginated := false
	if paginator != nil {
		pv, ov = paginator, page
		paginated = page.HasOtherPages()
	}
	ctx.Set(jigsaw.Key{Piece: name, Suffix: jigsaw.SuffixList}, objs)
	ctx.Set(jigsaw.Key{Piece: name, Suffix: jigsaw.SuffixIsPaginated}, paginated)
	ctx.Set(jigsaw.Key{Piece: name, Suffix: jigsaw.SuffixPaginator}, pv)
	ctx.Set(jigsaw.Key{Piece: name, Suffix: jigsaw.SuffixPageObj}, ov)
	return nil
}

func (p *ObjectPiece) Contribute(ctx *jigsaw.Context, req *jigsaw.Request) (*jigsaw.Context, error) {
	name := p.ContextName()

	switch p.Mode() {
	case jigsaw.ModeDetail, jigsaw.ModeUpdate, jigsaw.ModeDelete:
		obj, err := p.GetObject(ctx, req)
		if err != nil {
			return nil, err
		}
		p.object = obj
		ctx.Set(jigsaw.K(name), obj)
	case jigsaw.ModeList:
		if err := p.contributeList(ctx, req); err != nil {
			return nil, err
		}
	}

	if p.Mode() == jigsaw.ModeNew || p.Mode() == jigsaw.ModeUpdate {
		if p.cfg.Form == nil {
			return nil, misconfigured(p.BasePiece, "no form to %s the object with", p.Mode())
		}
		args := formArgs(req, "", p.cfg.Initial)
		args.Instance = p.object
		form, err := p.cfg.Form(args)
		if err != nil {
			return nil, err
		}
		p.form = form
		ctx.Set(jigsaw.Key{Piece: name, Suffix: jigsaw.SuffixForm}, form)

		p.inlines = p.inlines[:0]
		for _, in := range p.cfg.Inlines {
			ip := in.bindTo(p)
			if err := ip.contribute(ctx, req); err != nil {
				return nil, err
			}
			p.inlines = append(p.inlines, ip)
		}
	}
	return ctx, nil
}

// Dispatch validates the object form and every inline formset. The save
// happens only when all of them are valid.
func (p *ObjectPiece) Dispatch(ctx *jigsaw.Context) (jigsaw.Result, error) {
	form := formFromContext(ctx, jigsaw.Key{Piece: p.ContextName(), Suffix: jigsaw.SuffixForm}, p.form)
	if form == nil {
		return nil, misconfigured(p.BasePiece, "dispatched without a form")
	}

	valid := form.IsValid()
	for _, ip := range p.inlines {
		if !ip.formset.IsValid() {
			valid = false
		}
	}

	if !valid {
		p.Log().Debug("form invalid")
		if p.cfg.Invalid != nil {
			return p.cfg.Invalid(p, form)
		}
		return nil, nil
	}
	if p.cfg.Valid != nil {
		return p.cfg.Valid(p, form)
	}
	return p.FormValid(form)
}

// FormValid saves the object, then the inline rows pointing at it, and
// redirects to the success URL.
func (p *ObjectPiece) FormValid(form jigsaw.Form) (jigsaw.Result, error) {
	rctx := p.Request.Context()
	obj, err := form.Save(rctx)
	if err != nil {
		return nil, err
	}
	p.object = obj

	for _, ip := range p.inlines {
		ip.root = obj
		if err := ip.save(rctx); err != nil {
			return nil, err
		}
	}

	url, err := p.SuccessURL(obj)
	if err != nil {
		return nil, err
	}
	entry := p.Log().WithField("redirect", url)
	if k, ok := obj.(jigsaw.Keyed); ok {
		entry = entry.WithFields(logrus.Fields{"pk": k.PK()})
	}
	entry.Info("object saved")
	return jigsaw.NewRedirect(url), nil
}

// SuccessURL returns where to go once obj is saved.
func (p *ObjectPiece) SuccessURL(obj interface{}) (string, error) {
	if p.cfg.SuccessURLFunc != nil {
		return p.cfg.SuccessURLFunc(obj)
	}
	if p.cfg.SuccessURL != "" {
		t, err := p.cfg.successTemplate()
		if err != nil {
			return "", misconfigured(p.BasePiece, "bad success URL: %v", err)
		}
		var data interface{} = obj
		if f, ok := obj.(interface{ Fields() map[string]interface{} }); ok {
			data = f.Fields()
		}
		var sb strings.Builder
		if err := t.Execute(&sb, data); err != nil {
			return "", misconfigured(p.BasePiece, "success URL %q: %v", p.cfg.SuccessURL, err)
		}
		return sb.String(), nil
	}
	if u, ok := obj.(jigsaw.URLer); ok {
		if url := u.AbsoluteURL(); url != "" {
			return url, nil
		}
	}
	return "", misconfigured(p.BasePiece, "No URL to redirect to. Either provide a url or define an AbsoluteURL method on the model.")
}

// TemplateName proposes {app}/{name}_{mode}, or {name}_{mode} for a model
// without an app label.
func (p *ObjectPiece) TemplateName() string {
	if name := p.BasePiece.TemplateName(); name != "" {
		return name
	}
	frag := p.Name() + "_" + string(p.Mode())
	if m := p.model(); m != nil && m.AppLabel() != "" {
		return m.AppLabel() + "/" + frag
	}
	return frag
}
