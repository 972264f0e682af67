package pieces

import (
	"context"

	"howett.net/jigsaw"
)

// Inline declares a formset over the children of a root object: rows of
// QuerySet whose FKField holds the root's primary key.
//
// Listed in Object.Inlines, the root is the object being edited and the
// formset is keyed {object}_{Name}_formset. Declared as a piece of its own,
// the root is read from the context entry named Root.
type Inline struct {
	Name     string
	FKField  string
	QuerySet jigsaw.QuerySet
	Formset  jigsaw.FormsetFactory

	Root string

	// SuccessURL is where a standalone inline redirects after saving.
	SuccessURL string

	// Valid replaces the save of a standalone inline; Invalid sees the
	// formset when any row fails validation.
	Valid   func(p *InlinePiece, fs jigsaw.Formset) (jigsaw.Result, error)
	Invalid func(p *InlinePiece, fs jigsaw.Formset) (jigsaw.Result, error)
}

var _ jigsaw.Factory = &Inline{}

func (in *Inline) NewPiece(b jigsaw.Binding) (jigsaw.Piece, error) {
	return &InlinePiece{
		BasePiece: jigsaw.NewBasePiece(b),
		cfg:       in,
		key:       jigsaw.Key{Piece: b.Name, Suffix: jigsaw.SuffixFormset},
		prefix:    orDefault(in.Name, b.Name),
	}, nil
}

// bindTo binds the inline as a child of an object piece.
func (in *Inline) bindTo(parent *ObjectPiece) *InlinePiece {
	b := parent.Binding
	b.Name = parent.ContextName() + "_" + in.Name
	b.Template = nil
	b.Logger = parent.Log().WithField("inline", in.Name)
	return &InlinePiece{
		BasePiece: jigsaw.NewBasePiece(b),
		cfg:       in,
		key:       jigsaw.Key{Piece: b.Name, Suffix: jigsaw.SuffixFormset},
		prefix:    in.Name,
		root:      parent.object,
		owned:     true,
	}
}

// InlinePiece is a bound Inline.
type InlinePiece struct {
	*jigsaw.BasePiece
	cfg    *Inline
	key    jigsaw.Key
	prefix string

	root    interface{}
	owned   bool
	formset jigsaw.Formset
}

// Formset returns the formset built during this request.
func (p *InlinePiece) Formset() jigsaw.Formset { return p.formset }

// Root returns the object the rows belong to.
func (p *InlinePiece) Root() interface{} { return p.root }

func rootPK(root interface{}) interface{} {
	if k, ok := root.(jigsaw.Keyed); ok {
		return k.PK()
	}
	return nil
}

func (p *InlinePiece) contribute(ctx *jigsaw.Context, req *jigsaw.Request) error {
	if p.cfg.Formset == nil {
		return misconfigured(p.BasePiece, "inline %s has no formset", p.prefix)
	}
	if p.cfg.FKField == "" {
		return misconfigured(p.BasePiece, "inline %s has no foreign key field", p.prefix)
	}

	args := jigsaw.FormsetArgs{
		Context: req.Context(),
		Prefix:  p.prefix,
	}
	if pk := rootPK(p.root); pk != nil && p.cfg.QuerySet != nil {
		args.QuerySet = p.cfg.QuerySet.Clone().Filter(p.cfg.FKField, pk)
	}
	if req.Submitted() {
		args.Data = req.Data
		args.Files = req.Files
	}

	fs, err := p.cfg.Formset(args)
	if err != nil {
		return err
	}
	p.formset = fs
	ctx.Set(p.key, fs)
	return nil
}

func (p *InlinePiece) Contribute(ctx *jigsaw.Context, req *jigsaw.Request) (*jigsaw.Context, error) {
	if !p.owned && p.cfg.Root != "" {
		p.root = ctx.Get(jigsaw.K(p.cfg.Root))
	}
	if err := p.contribute(ctx, req); err != nil {
		return nil, err
	}
	return ctx, nil
}

// save writes the changed rows, pointing each at the root first.
func (p *InlinePiece) save(ctx context.Context) error {
	pk := rootPK(p.root)
	if pk == nil {
		return misconfigured(p.BasePiece, "saving inline %s without a saved root object", p.prefix)
	}
	_, err := p.formset.Save(ctx, func(obj interface{}) error {
		fs, ok := obj.(jigsaw.FieldSetter)
		if !ok {
			return misconfigured(p.BasePiece, "cannot assign %s on %T", p.cfg.FKField, obj)
		}
		fs.SetField(p.cfg.FKField, pk)
		return nil
	})
	return err
}

// Dispatch saves a standalone inline, or hands it to the Valid or Invalid
// hook. Inlines of an object piece are saved by it instead.
func (p *InlinePiece) Dispatch(ctx *jigsaw.Context) (jigsaw.Result, error) {
	if p.owned || p.formset == nil {
		return nil, nil
	}
	if !p.formset.IsValid() {
		p.Log().Debug("formset invalid")
		if p.cfg.Invalid != nil {
			return p.cfg.Invalid(p, p.formset)
		}
		return nil, nil
	}
	if p.cfg.Valid != nil {
		return p.cfg.Valid(p, p.formset)
	}
	if err := p.save(p.Request.Context()); err != nil {
		return nil, err
	}
	if p.cfg.SuccessURL != "" {
		return jigsaw.NewRedirect(p.cfg.SuccessURL), nil
	}
	if u, ok := p.root.(jigsaw.URLer); ok && u.AbsoluteURL() != "" {
		return jigsaw.NewRedirect(u.AbsoluteURL()), nil
	}
	return nil, nil
}
