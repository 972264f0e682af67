package jigsaw

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"howett.net/jigsaw/internal/httputil"
	"howett.net/jigsaw/internal/rayman"
)

// Handler serves one Class under one Mode. A fresh View is built for every
// request and discarded afterwards.
type Handler struct {
	class    *Class
	mode     Mode
	renderer Renderer
	logger   logrus.FieldLogger
	viewOpts []ViewOption
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// RendererOption sets the renderer pages and errors go through.
func RendererOption(r Renderer) HandlerOption {
	return func(h *Handler) {
		h.renderer = r
	}
}

// HandlerLoggingOption sets the logger used when the request carries none.
func HandlerLoggingOption(logger logrus.FieldLogger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// ViewOptions passes opts to every View the handler builds.
func ViewOptions(opts ...ViewOption) HandlerOption {
	return func(h *Handler) {
		h.viewOpts = append(h.viewOpts, opts...)
	}
}

// Handler returns an http.Handler serving c under mode. Missing a mode or a
// renderer is a setup mistake and panics.
func (c *Class) Handler(mode Mode, opts ...HandlerOption) *Handler {
	h := &Handler{
		class: c,
		mode:  mode,
	}
	for _, opt := range opts {
		opt(h)
	}
	if mode == "" {
		panic(&ConfigurationError{Class: c.name, Reason: "handler needs a mode"})
	}
	if h.renderer == nil {
		panic(&ConfigurationError{Class: c.name, Reason: "handler needs a renderer"})
	}
	return h
}

func (h *Handler) requestLogger(r *http.Request) logrus.FieldLogger {
	if _, ok := rayman.FromRequest(r); ok || h.logger == nil {
		return rayman.RequestLogger(r)
	}
	return h.logger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.class.AllowsMethod(r.Method) {
		w.Header().Set("Allow", strings.Join(h.class.methods, ", "))
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	logger := h.requestLogger(r)
	bw := httputil.NewBufferedResponseWriter(w)
	defer bw.Flush()

	if err := h.serve(bw, r, logger); err != nil {
		bw.Discard()
		h.fail(bw, r, logger, err)
	}
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger) error {
	req, err := NewRequest(r)
	if err != nil {
		return err
	}

	opts := append([]ViewOption{FieldLoggingOption(logger)}, h.viewOpts...)
	view, err := h.class.New(h.mode, req, opts...)
	if err != nil {
		return err
	}

	ctx, err := view.ContextData()
	if err != nil {
		return err
	}

	if req.Submitted() {
		res, err := view.Dispatch(ctx)
		if err != nil {
			return err
		}
		if res != nil {
			res.Respond(w, r)
			return nil
		}
	}

	name, err := view.TemplateName()
	if err != nil {
		return err
	}

	h.renderer.Render(w, r, http.StatusOK, &Page{
		Template: name,
		Mode:     view.Mode(),
		Context:  ctx,
		Request:  req,
	})
	return nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger, err error) {
	status := StatusCode(err)
	entry := logger.WithFields(logrus.Fields{
		"status": status,
		"error":  err,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("view failed")
	} else {
		entry.Debug("view failed")
	}
	h.renderer.Error(w, r, err)
}
