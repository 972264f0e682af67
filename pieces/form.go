package pieces

import (
	"howett.net/jigsaw"
)

// Form declares a piece offering one form that is not tied to an object.
// Like any piece it takes part in dispatch only in modes that accept
// submissions, unless AlwaysDispatch is set.
type Form struct {
	Form    jigsaw.FormFactory
	Initial map[string]interface{}
	Prefix  string

	AlwaysDispatch bool

	Valid   func(p *FormPiece, form jigsaw.Form) (jigsaw.Result, error)
	Invalid func(p *FormPiece, form jigsaw.Form) (jigsaw.Result, error)
}

var _ jigsaw.Factory = &Form{}

func (f *Form) NewPiece(b jigsaw.Binding) (jigsaw.Piece, error) {
	return &FormPiece{BasePiece: jigsaw.NewBasePiece(b), cfg: f}, nil
}

// FormPiece is a bound Form.
type FormPiece struct {
	*jigsaw.BasePiece
	cfg  *Form
	form jigsaw.Form
}

func (p *FormPiece) Form() jigsaw.Form { return p.form }

func (p *FormPiece) AcceptsSubmission() bool {
	return p.cfg.AlwaysDispatch || p.Mode().AcceptsSubmission()
}

func (p *FormPiece) key() jigsaw.Key {
	return jigsaw.Key{Piece: p.Name(), Suffix: jigsaw.SuffixForm}
}

func (p *FormPiece) Contribute(ctx *jigsaw.Context, req *jigsaw.Request) (*jigsaw.Context, error) {
	if p.cfg.Form == nil {
		return nil, misconfigured(p.BasePiece, "no form")
	}
	form, err := p.cfg.Form(formArgs(req, p.cfg.Prefix, p.cfg.Initial))
	if err != nil {
		return nil, err
	}
	p.form = form
	ctx.Set(p.key(), form)
	return ctx, nil
}

func (p *FormPiece) Dispatch(ctx *jigsaw.Context) (jigsaw.Result, error) {
	form := formFromContext(ctx, p.key(), p.form)
	if form == nil {
		return nil, nil
	}
	if form.IsValid() {
		if p.cfg.Valid != nil {
			return p.cfg.Valid(p, form)
		}
		return nil, nil
	}
	if p.cfg.Invalid != nil {
		return p.cfg.Invalid(p, form)
	}
	return nil, nil
}
