package jigsaw

import (
	"net/http"
	"net/http/httptest"
)

// trace records the order pieces were driven in.
type trace struct {
	events  []string
	results map[string]Result
}

func (tr *trace) add(ev string) { tr.events = append(tr.events, ev) }

type tracePiece struct {
	*BasePiece
	tr *trace
}

func (p *tracePiece) Contribute(ctx *Context, req *Request) (*Context, error) {
	p.tr.add("contribute " + p.Name())
	ctx.Set(K(p.Name()), p.Mode())
	return ctx, nil
}

func (p *tracePiece) Dispatch(ctx *Context) (Result, error) {
	p.tr.add("dispatch " + p.Name())
	return p.tr.results[p.Name()], nil
}

func (tr *trace) factory() Factory {
	return FactoryFunc(func(b Binding) (Piece, error) {
		return &tracePiece{BasePiece: NewBasePiece(b), tr: tr}, nil
	})
}

// eager takes part in dispatch whatever its mode.
type eager struct {
	*tracePiece
}

func (eager) AcceptsSubmission() bool { return true }

func (tr *trace) eagerFactory() Factory {
	return FactoryFunc(func(b Binding) (Piece, error) {
		return eager{&tracePiece{BasePiece: NewBasePiece(b), tr: tr}}, nil
	})
}

// setter writes a fixed value under a fixed key.
func setter(k Key, v interface{}) Factory {
	return FactoryFunc(func(b Binding) (Piece, error) {
		return &setterPiece{BasePiece: NewBasePiece(b), k: k, v: v}, nil
	})
}

type setterPiece struct {
	*BasePiece
	k Key
	v interface{}
}

func (p *setterPiece) Contribute(ctx *Context, req *Request) (*Context, error) {
	ctx.Set(p.k, p.v)
	return ctx, nil
}

func newTestRequest(method, target string) *Request {
	req, err := NewRequest(httptest.NewRequest(method, target, nil))
	if err != nil {
		panic(err)
	}
	return req
}

// capture is a Renderer that keeps what it was asked to render.
type capture struct {
	page *Page
	err  error
}

func (c *capture) Render(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	c.page = v.(*Page)
	w.WriteHeader(status)
	w.Write([]byte(c.page.Template))
}

func (c *capture) Error(w http.ResponseWriter, r *http.Request, err error) {
	c.err = err
	http.Error(w, err.Error(), StatusCode(err))
}
