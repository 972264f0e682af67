package jigsaw

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// View is one instantiation of a Class for one request: the mode is fixed
// and every piece template has been bound.
type View struct {
	class   *Class
	mode    Mode
	request *Request
	logger  logrus.FieldLogger

	pieces []Piece
	byName map[string]Piece

	context *Context
}

// ViewOption configures a View under construction.
type ViewOption func(*View) error

// FieldLoggingOption sends the view's and its pieces' logs to logger.
func FieldLoggingOption(logger logrus.FieldLogger) ViewOption {
	return func(v *View) error {
		v.logger = logger
		return nil
	}
}

// New binds every piece of c for a request served under mode.
func (c *Class) New(mode Mode, req *Request, opts ...ViewOption) (*View, error) {
	v := &View{
		class:   c,
		mode:    mode,
		request: req,
		byName:  make(map[string]Piece, len(c.pieces)),
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	if v.logger == nil {
		v.logger = logrus.StandardLogger()
	}
	v.logger = v.logger.WithFields(logrus.Fields{
		"view": c.name,
		"mode": mode,
	})

	v.pieces = make([]Piece, 0, len(c.pieces))
	for _, s := range c.pieces {
		p, err := s.template.Bind(s.name, v, c.Inherited(s.name))
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, &ConfigurationError{Class: c.name, Piece: s.name, Reason: "factory returned no piece"}
		}
		v.pieces = append(v.pieces, p)
		v.byName[s.name] = p
	}
	return v, nil
}

func (v *View) Class() *Class              { return v.class }
func (v *View) Mode() Mode                 { return v.mode }
func (v *View) Request() *Request          { return v.request }
func (v *View) Logger() logrus.FieldLogger { return v.logger }

// Pieces returns the bound pieces in registration order.
func (v *View) Pieces() []Piece {
	return append([]Piece(nil), v.pieces...)
}

// Piece returns the bound piece called name.
func (v *View) Piece(name string) (Piece, error) {
	p, ok := v.byName[name]
	if !ok {
		return nil, fmt.Errorf("jigsaw: piece %q not found in view %s", name, v.class.name)
	}
	return p, nil
}

// Context returns the context accumulated so far. While ContextData runs,
// a piece sees everything the pieces before it contributed.
func (v *View) Context() *Context {
	if v.context == nil {
		return NewContext()
	}
	return v.context
}

// ContextData folds every piece's contribution, in registration order,
// into a fresh context.
func (v *View) ContextData() (*Context, error) {
	ctx := NewContext()
	v.context = ctx
	for _, p := range v.pieces {
		next, err := p.Contribute(ctx, v.request)
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = NewContext()
		}
		ctx = next
		v.context = ctx
	}

	for _, c := range ctx.Collisions() {
		v.logger.WithFields(logrus.Fields{
			"key":      c.Name,
			"previous": c.Previous.Piece,
			"piece":    c.Key.Piece,
		}).Warn("context key overwritten by another piece")
	}
	return ctx, nil
}

// TemplateName picks the page template: the class's explicit name, then
// its prefix plus the mode, then the first fragment offered by a piece
// scanning from the last registered one.
func (v *View) TemplateName() (string, error) {
	if v.class.templateName != "" {
		return v.class.templateName, nil
	}
	if v.class.templatePrefix != "" {
		return v.class.templatePrefix + string(v.mode) + ".html", nil
	}
	for i := len(v.pieces) - 1; i >= 0; i-- {
		if frag := v.pieces[i].TemplateName(); frag != "" {
			return frag + ".html", nil
		}
	}
	return "", &ConfigurationError{Class: v.class.name, Reason: fmt.Sprintf("no template for mode %q", v.mode)}
}

// Dispatch offers the submitted action to pieces from the last registered
// to the first. The first non-nil result wins.
func (v *View) Dispatch(ctx *Context) (Result, error) {
	for i := len(v.pieces) - 1; i >= 0; i-- {
		p := v.pieces[i]
		d, ok := p.(Dispatcher)
		if !ok || !acceptsSubmission(p) {
			continue
		}
		res, err := d.Dispatch(ctx)
		if err != nil {
			return nil, err
		}
		if res != nil {
			v.logger.WithField("piece", p.Name()).Debug("dispatch short-circuited")
			return res, nil
		}
	}
	return nil, nil
}
