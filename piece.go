package jigsaw

import (
	"github.com/sirupsen/logrus"
)

// Piece is a unit of view logic bound to one concern of a page. A bound
// piece lives for exactly one request.
type Piece interface {
	Name() string
	Mode() Mode

	// TemplateName returns the template name fragment this piece proposes
	// for the page, or "".
	TemplateName() string

	// Contribute folds this piece's values into ctx and returns the
	// context the next piece should see. Returning a fresh context
	// discards everything contributed so far.
	Contribute(ctx *Context, req *Request) (*Context, error)
}

// Dispatcher is implemented by pieces that react to submitted data. A
// non-nil Result becomes the response.
type Dispatcher interface {
	Dispatch(ctx *Context) (Result, error)
}

// SubmissionAcceptor lets a piece decide for itself whether it takes part
// in dispatch, overriding its mode's default.
type SubmissionAcceptor interface {
	AcceptsSubmission() bool
}

func acceptsSubmission(p Piece) bool {
	if sa, ok := p.(SubmissionAcceptor); ok {
		return sa.AcceptsSubmission()
	}
	return p.Mode().AcceptsSubmission()
}

// Factory creates bound pieces from a declaration.
type Factory interface {
	NewPiece(b Binding) (Piece, error)
}

// ContextNamer is implemented by factories whose pieces contribute context
// keys under names other than their slot name.
type ContextNamer interface {
	ContextNames(slot string) []string
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(b Binding) (Piece, error)

func (f FactoryFunc) NewPiece(b Binding) (Piece, error) {
	return f(b)
}

// Template is the unbound declaration of a piece on a view class. It is
// immutable and shared by every view built from the class and its
// subclasses.
type Template struct {
	factory        Factory
	mode           Mode
	defaultMode    Mode
	templateName   string
	templatePrefix string
	config         map[string]interface{}
}

// TemplateOption configures a Template.
type TemplateOption func(*Template)

// WithMode pins the piece to m regardless of the view's mode.
func WithMode(m Mode) TemplateOption {
	return func(t *Template) {
		t.mode = m
	}
}

// WithDefaultMode sets the mode the piece runs under when a subclass
// inherits it without redeclaring it.
func WithDefaultMode(m Mode) TemplateOption {
	return func(t *Template) {
		t.defaultMode = m
	}
}

// WithTemplateName sets an explicit template name fragment.
func WithTemplateName(name string) TemplateOption {
	return func(t *Template) {
		t.templateName = name
	}
}

// WithTemplatePrefix makes the piece propose prefix+mode as its template
// name fragment.
func WithTemplatePrefix(prefix string) TemplateOption {
	return func(t *Template) {
		t.templatePrefix = prefix
	}
}

// WithConfig attaches an arbitrary named value to the declaration.
func WithConfig(key string, value interface{}) TemplateOption {
	return func(t *Template) {
		t.config[key] = value
	}
}

// Declare returns a piece declaration built by f.
func Declare(f Factory, opts ...TemplateOption) *Template {
	t := &Template{
		factory: f,
		config:  make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Template) Factory() Factory       { return t.factory }
func (t *Template) Mode() Mode             { return t.mode }
func (t *Template) DefaultMode() Mode      { return t.defaultMode }
func (t *Template) TemplateName() string   { return t.templateName }
func (t *Template) TemplatePrefix() string { return t.templatePrefix }

// Config returns the named configuration value.
func (t *Template) Config(key string) (interface{}, bool) {
	v, ok := t.config[key]
	return v, ok
}

// Bind expands the declaration into a bound piece for view.
func (t *Template) Bind(name string, view *View, inherited bool) (Piece, error) {
	if t.factory == nil {
		return nil, Misconfigured(name, "declared without a factory")
	}

	b := Binding{
		Name:      name,
		Mode:      ResolveMode(t.mode, t.defaultMode, view.Mode(), inherited),
		ViewMode:  view.Mode(),
		Inherited: inherited,
		View:      view,
		Request:   view.Request(),
		Template:  t,
		Logger: view.Logger().WithFields(logrus.Fields{
			"piece": name,
		}),
	}
	return t.factory.NewPiece(b)
}

// Binding is the per-request state a factory receives when a view is
// instantiated.
type Binding struct {
	Name      string
	Mode      Mode
	ViewMode  Mode
	Inherited bool

	// View is the owning view. Pieces use it to look things up, never to
	// keep it alive beyond the request.
	View     *View
	Request  *Request
	Template *Template
	Logger   logrus.FieldLogger
}

// BasePiece implements the default Piece behaviour. Concrete pieces embed
// it and override what they need.
type BasePiece struct {
	Binding
}

// NewBasePiece binds a plain piece that contributes nothing.
func NewBasePiece(b Binding) *BasePiece {
	return &BasePiece{Binding: b}
}

func (p *BasePiece) Name() string { return p.Binding.Name }
func (p *BasePiece) Mode() Mode   { return p.Binding.Mode }

func (p *BasePiece) TemplateName() string {
	t := p.Binding.Template
	if t == nil {
		return ""
	}
	if t.templateName != "" {
		return t.templateName
	}
	if t.templatePrefix != "" {
		return t.templatePrefix + string(p.Binding.Mode)
	}
	return ""
}

func (p *BasePiece) Contribute(ctx *Context, req *Request) (*Context, error) {
	return ctx, nil
}

// Config returns a named value from the piece's declaration.
func (p *BasePiece) Config(key string) (interface{}, bool) {
	if p.Binding.Template == nil {
		return nil, false
	}
	return p.Binding.Template.Config(key)
}

// Log returns the piece's logger.
func (p *BasePiece) Log() logrus.FieldLogger {
	if p.Binding.Logger == nil {
		return logrus.StandardLogger()
	}
	return p.Binding.Logger
}

// Plain is a Factory for pieces that only carry a template name; it is
// useful for pages whose template is driven by a piece with no data.
var Plain Factory = FactoryFunc(func(b Binding) (Piece, error) {
	return NewBasePiece(b), nil
})
