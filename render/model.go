package render

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"howett.net/jigsaw"
)

// FuncMap is the type of the map providing template functions to every
// template of a Model.
type FuncMap template.FuncMap

// FunctionProvider is the interface that allows Model consumers to
// provide their own template functions.
type FunctionProvider interface {
	GetViewFunctions() FuncMap
}

// ErrorTemplater is implemented by errors that want a template other than
// error.html.
type ErrorTemplater interface {
	ErrorTemplateName() string
}

const errorTemplate = "error.html"

// Model is a set of templates loaded from a file system. It implements
// jigsaw.Renderer.
type Model struct {
	mu           sync.RWMutex
	fsys         fs.FS
	extensions   []string
	baseTemplate *template.Template
	tmpl         *template.Template
	reloadAlways bool
	logger       logrus.FieldLogger
}

var _ jigsaw.Renderer = &Model{}

// New loads every template under fsys.
func New(fsys fs.FS, options ...ModelOption) (*Model, error) {
	m := &Model{
		fsys:         fsys,
		extensions:   []string{".html", ".tmpl"},
		baseTemplate: template.New(".base").Funcs(defaultFuncs()),
		logger:       logrus.StandardLogger(),
	}

	for _, opt := range options {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, m.Reload()
}

func (m *Model) wants(name string) bool {
	ext := path.Ext(name)
	for _, e := range m.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Reload parses the templates again. The set in use is swapped only once
// every template parsed.
func (m *Model) Reload() error {
	tmpl, err := m.baseTemplate.Clone()
	if err != nil {
		return err
	}

	n := 0
	err = fs.WalkDir(m.fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !m.wants(name) {
			return nil
		}
		src, err := fs.ReadFile(m.fsys, name)
		if err != nil {
			return err
		}
		if _, err := tmpl.New(name).Parse(string(src)); err != nil {
			return errors.Wrapf(err, "render: parsing %s", name)
		}
		n++
		return nil
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.tmpl = tmpl
	m.mu.Unlock()

	m.logger.WithField("templates", n).Debug("templates loaded")
	return nil
}

func (m *Model) template() (*template.Template, error) {
	if m.reloadAlways {
		if err := m.Reload(); err != nil {
			return nil, err
		}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tmpl, nil
}

// Has reports whether a template called name is loaded.
func (m *Model) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tmpl.Lookup(name) != nil
}

// Execute renders the template called name into a buffer.
func (m *Model) Execute(name string, data interface{}) (*bytes.Buffer, error) {
	tmpl, err := m.template()
	if err != nil {
		return nil, err
	}
	t := tmpl.Lookup(name)
	if t == nil {
		return nil, &jigsaw.ConfigurationError{Reason: "template " + name + " not found"}
	}
	buf := &bytes.Buffer{}
	if err := t.Execute(buf, data); err != nil {
		return nil, errors.Wrapf(err, "render: executing %s", name)
	}
	return buf, nil
}

// pageData is the dot of a page template.
func pageData(r *http.Request, p *jigsaw.Page) map[string]interface{} {
	data := p.Context.Map()
	if _, ok := data["request"]; !ok {
		data["request"] = r
	}
	if _, ok := data["mode"]; !ok {
		data["mode"] = p.Mode
	}
	return data
}

func (m *Model) Render(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	page, ok := v.(*jigsaw.Page)
	if !ok {
		m.Error(w, r, errors.Errorf("render: cannot render a %T", v))
		return
	}

	buf, err := m.Execute(page.Template, pageData(r, page))
	if err != nil {
		m.Error(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (m *Model) Error(w http.ResponseWriter, r *http.Request, err error) {
	status := jigsaw.StatusCode(err)
	name := errorTemplate
	var et ErrorTemplater
	if errors.As(err, &et) {
		name = et.ErrorTemplateName()
	}

	logger := m.logger.WithFields(logrus.Fields{
		"status": status,
		"error":  err,
	})

	// details of server errors stay in the log.
	shown := err
	if status >= http.StatusInternalServerError {
		shown = errors.New(http.StatusText(status))
	}

	buf, rerr := m.Execute(name, map[string]interface{}{
		"error":       shown,
		"status":      status,
		"status_text": http.StatusText(status),
		"request":     r,
	})
	if rerr != nil {
		logger.WithField("render_error", rerr).Error("failed to render error page")
		http.Error(w, strings.TrimSpace(shown.Error()), status)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
