package jigsaw

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"unicode"
)

type slot struct {
	name     string
	template *Template
}

// Class is a composite view declaration: an ordered set of named piece
// templates, inherited and overridable across parents. A Class is immutable
// once built and safe for concurrent use.
type Class struct {
	name    string
	parents []*Class

	own    []slot
	pieces []slot
	index  map[string]int
	local  map[string]bool

	templateName   string
	templatePrefix string
	methods        []string
}

// ClassOption configures a Class under construction.
type ClassOption func(*classBuilder) error

type classBuilder struct {
	parents        []*Class
	slots          []slot
	templateName   *string
	templatePrefix *string
	methods        []string
}

// Extends makes the class inherit every piece of parents, in order.
func Extends(parents ...*Class) ClassOption {
	return func(b *classBuilder) error {
		for _, p := range parents {
			if p == nil {
				return fmt.Errorf("nil parent class")
			}
		}
		b.parents = append(b.parents, parents...)
		return nil
	}
}

// Slot declares a piece named name on the class.
func Slot(name string, t *Template) ClassOption {
	return func(b *classBuilder) error {
		if name == "" {
			return fmt.Errorf("empty piece name")
		}
		if t == nil {
			return fmt.Errorf("piece %s has no template", name)
		}
		for _, s := range b.slots {
			if s.name == name {
				return fmt.Errorf("piece %s declared twice", name)
			}
		}
		b.slots = append(b.slots, slot{name, t})
		return nil
	}
}

// TemplateName fixes the page template, bypassing every other lookup.
func TemplateName(name string) ClassOption {
	return func(b *classBuilder) error {
		b.templateName = &name
		return nil
	}
}

// TemplatePrefix makes the page template prefix+mode+".html".
func TemplatePrefix(prefix string) ClassOption {
	return func(b *classBuilder) error {
		b.templatePrefix = &prefix
		return nil
	}
}

// Methods restricts the HTTP methods handlers built from the class answer.
func Methods(methods ...string) ClassOption {
	return func(b *classBuilder) error {
		for _, m := range methods {
			b.methods = append(b.methods, strings.ToUpper(m))
		}
		return nil
	}
}

var defaultMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodHead,
	http.MethodOptions,
	http.MethodTrace,
}

// NewClass builds a view class.
func NewClass(name string, opts ...ClassOption) (*Class, error) {
	b := &classBuilder{}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, &ConfigurationError{Class: name, Reason: err.Error()}
		}
	}

	c := &Class{
		name:    name,
		parents: b.parents,
		own:     b.slots,
		index:   make(map[string]int),
		local:   make(map[string]bool),
	}

	// Parents first, in order, then our own declarations. A name seen
	// again keeps its first position and takes the later template.
	for _, p := range b.parents {
		for _, s := range p.pieces {
			c.put(s)
		}
	}
	for _, s := range b.slots {
		c.put(s)
		c.local[s.name] = true
	}

	// Page template settings inherit like any other attribute; the first
	// parent that sets one wins.
	for _, p := range b.parents {
		if c.templateName == "" {
			c.templateName = p.templateName
		}
		if c.templatePrefix == "" {
			c.templatePrefix = p.templatePrefix
		}
		if c.methods == nil {
			c.methods = p.methods
		}
	}
	if b.templateName != nil {
		c.templateName = *b.templateName
	}
	if b.templatePrefix != nil {
		c.templatePrefix = *b.templatePrefix
	}
	if b.methods != nil {
		c.methods = b.methods
	}
	if c.methods == nil {
		c.methods = defaultMethods
	}

	if err := c.checkKeys(); err != nil {
		return nil, err
	}
	return c, nil
}

// MustClass is like NewClass but panics on error. It simplifies declaring
// classes as package-level variables.
func MustClass(name string, opts ...ClassOption) *Class {
	c, err := NewClass(name, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Class) put(s slot) {
	if i, ok := c.index[s.name]; ok {
		c.pieces[i] = s
		return
	}
	c.index[s.name] = len(c.pieces)
	c.pieces = append(c.pieces, s)
}

// checkKeys rejects classes where a piece's context keys clash with
// another piece: a suffixed key equal to a bare piece name, or a name a
// factory contributes under (see ContextNamer) that another piece owns.
func (c *Class) checkKeys() error {
	type base struct{ name, slot string }
	var bases []base
	for _, a := range c.pieces {
		bases = append(bases, base{a.name, a.name})
		if cn, ok := a.template.factory.(ContextNamer); ok {
			for _, n := range cn.ContextNames(a.name) {
				if n == a.name {
					continue
				}
				if _, ok := c.index[n]; ok {
					return &ConfigurationError{
						Class:  c.name,
						Reason: fmt.Sprintf("context name %s of piece %s collides with piece %s", n, a.name, n),
					}
				}
				bases = append(bases, base{n, a.name})
			}
		}
	}

	for _, b := range bases {
		for _, suf := range Suffixes() {
			if suf == SuffixNone {
				continue
			}
			k := Key{b.name, suf}.String()
			if _, ok := c.index[k]; ok {
				return &ConfigurationError{
					Class:  c.name,
					Reason: fmt.Sprintf("context key %s of piece %s collides with piece %s", k, b.slot, k),
				}
			}
		}
	}
	return nil
}

// Extend derives a subclass with c as its only parent.
func (c *Class) Extend(name string, opts ...ClassOption) (*Class, error) {
	return NewClass(name, append([]ClassOption{Extends(c)}, opts...)...)
}

// MustExtend is like Extend but panics on error.
func (c *Class) MustExtend(name string, opts ...ClassOption) *Class {
	sub, err := c.Extend(name, opts...)
	if err != nil {
		panic(err)
	}
	return sub
}

func (c *Class) Name() string { return c.name }

func (c *Class) String() string { return c.name }

// Parents returns the classes c extends.
func (c *Class) Parents() []*Class {
	return append([]*Class(nil), c.parents...)
}

// BasePieces returns the names of the pieces declared on c itself, in
// declaration order.
func (c *Class) BasePieces() []string {
	names := make([]string, len(c.own))
	for i, s := range c.own {
		names[i] = s.name
	}
	return names
}

// Pieces returns the names of every piece of c, inherited ones included,
// in registration order.
func (c *Class) Pieces() []string {
	names := make([]string, len(c.pieces))
	for i, s := range c.pieces {
		names[i] = s.name
	}
	return names
}

// Template returns the declaration registered under name.
func (c *Class) Template(name string) (*Template, bool) {
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.pieces[i].template, true
}

// Inherited reports whether the piece called name comes from a parent and
// is not redeclared by c.
func (c *Class) Inherited(name string) bool {
	_, ok := c.index[name]
	return ok && !c.local[name]
}

// TemplateName returns the explicit page template of the class, if any.
func (c *Class) TemplateName() string { return c.templateName }

// TemplatePrefix returns the page template prefix of the class, if any.
func (c *Class) TemplatePrefix() string { return c.templatePrefix }

// AllowsMethod reports whether handlers of c answer method.
func (c *Class) AllowsMethod(method string) bool {
	for _, m := range c.methods {
		if m == method {
			return true
		}
	}
	return false
}

var templateType = reflect.TypeOf((*Template)(nil))

// NewClassFromStruct builds a class whose own pieces are the exported
// *Template fields of decl, in field order. A field's slot name is taken
// from its `jigsaw` tag, or derived from the field name (BugList becomes
// bug_list). Fields tagged `jigsaw:"-"` are skipped.
func NewClassFromStruct(name string, decl interface{}, opts ...ClassOption) (*Class, error) {
	v := reflect.Indirect(reflect.ValueOf(decl))
	if v.Kind() != reflect.Struct {
		return nil, &ConfigurationError{Class: name, Reason: fmt.Sprintf("declaration is a %s, not a struct", v.Kind())}
	}

	var slots []ClassOption
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" || f.Type != templateType {
			continue
		}
		slotName := f.Tag.Get("jigsaw")
		if slotName == "-" {
			continue
		}
		if slotName == "" {
			slotName = snakeCase(f.Name)
		}
		tmpl, _ := v.Field(i).Interface().(*Template)
		slots = append(slots, Slot(slotName, tmpl))
	}
	return NewClass(name, append(opts, slots...)...)
}

func snakeCase(s string) string {
	var b strings.Builder
	rs := []rune(s)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(rs[i-1]) || (i+1 < len(rs) && unicode.IsLower(rs[i+1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
