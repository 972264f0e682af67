package pieces

import (
	"howett.net/jigsaw"
)

// ModelFormset declares a piece editing every object of a query set, plus
// blank rows for new ones.
type ModelFormset struct {
	QuerySet     jigsaw.QuerySet
	QuerySetFunc func(ctx *jigsaw.Context, req *jigsaw.Request) (jigsaw.QuerySet, error)
	Formset      jigsaw.FormsetFactory

	// SuccessURL is where the default valid path redirects after saving;
	// without one the page is rendered again.
	SuccessURL string

	Valid   func(p *ModelFormsetPiece, fs jigsaw.Formset) (jigsaw.Result, error)
	Invalid func(p *ModelFormsetPiece, fs jigsaw.Formset) (jigsaw.Result, error)
}

var _ jigsaw.Factory = &ModelFormset{}

func (m *ModelFormset) NewPiece(b jigsaw.Binding) (jigsaw.Piece, error) {
	return &ModelFormsetPiece{BasePiece: jigsaw.NewBasePiece(b), cfg: m}, nil
}

// ModelFormsetPiece is a bound ModelFormset.
type ModelFormsetPiece struct {
	*jigsaw.BasePiece
	cfg     *ModelFormset
	formset jigsaw.Formset
}

func (p *ModelFormsetPiece) Formset() jigsaw.Formset { return p.formset }

func (p *ModelFormsetPiece) Contribute(ctx *jigsaw.Context, req *jigsaw.Request) (*jigsaw.Context, error) {
	if p.cfg.Formset == nil {
		return nil, misconfigured(p.BasePiece, "no formset")
	}

	var qs jigsaw.QuerySet
	switch {
	case p.cfg.QuerySetFunc != nil:
		var err error
		if qs, err = p.cfg.QuerySetFunc(ctx, req); err != nil {
			return nil, err
		}
	case p.cfg.QuerySet != nil:
		qs = p.cfg.QuerySet.Clone()
	default:
		return nil, misconfigured(p.BasePiece, "missing a queryset. Define QuerySet or QuerySetFunc")
	}

	args := jigsaw.FormsetArgs{
		Context:  req.Context(),
		Prefix:   p.Name(),
		QuerySet: qs,
	}
	if req.Submitted() {
		args.Data = req.Data
		args.Files = req.Files
	}
	fs, err := p.cfg.Formset(args)
	if err != nil {
		return nil, err
	}
	p.formset = fs
	ctx.Set(jigsaw.Key{Piece: p.Name(), Suffix: jigsaw.SuffixFormset}, fs)
	return ctx, nil
}

func (p *ModelFormsetPiece) Dispatch(ctx *jigsaw.Context) (jigsaw.Result, error) {
	fs := p.formset
	if v, ok := ctx.Get(jigsaw.Key{Piece: p.Name(), Suffix: jigsaw.SuffixFormset}).(jigsaw.Formset); ok {
		fs = v
	}
	if fs == nil {
		return nil, nil
	}

	if !fs.IsValid() {
		if p.cfg.Invalid != nil {
			return p.cfg.Invalid(p, fs)
		}
		return nil, nil
	}
	if p.cfg.Valid != nil {
		return p.cfg.Valid(p, fs)
	}

	saved, err := fs.Save(p.Request.Context(), nil)
	if err != nil {
		return nil, err
	}
	p.Log().WithField("rows", len(saved)).Info("formset saved")
	if p.cfg.SuccessURL != "" {
		return jigsaw.NewRedirect(p.cfg.SuccessURL), nil
	}
	return nil, nil
}
