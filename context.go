package jigsaw

// Collision records a write to a Context under a key whose rendered name was
// already claimed by a different typed key.
type Collision struct {
	Name     string
	Previous Key
	Key      Key
}

type contextEntry struct {
	key   Key
	value interface{}
}

// Context accumulates the values pieces contribute for one request. It keeps
// insertion order so rendering and tests are deterministic. Later writes to
// the same name win.
type Context struct {
	entries    map[string]*contextEntry
	order      []string
	collisions []Collision
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{
		entries: make(map[string]*contextEntry),
	}
}

// Set stores v under k.
func (c *Context) Set(k Key, v interface{}) {
	name := k.String()
	if e, ok := c.entries[name]; ok {
		if e.key != k {
			c.collisions = append(c.collisions, Collision{Name: name, Previous: e.key, Key: k})
		}
		e.key = k
		e.value = v
		return
	}
	c.entries[name] = &contextEntry{key: k, value: v}
	c.order = append(c.order, name)
}

// Lookup returns the value stored under k and whether it was present.
func (c *Context) Lookup(k Key) (interface{}, bool) {
	e, ok := c.entries[k.String()]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Get returns the value stored under k, or nil.
func (c *Context) Get(k Key) interface{} {
	v, _ := c.Lookup(k)
	return v
}

// Has reports whether anything is stored under k.
func (c *Context) Has(k Key) bool {
	_, ok := c.entries[k.String()]
	return ok
}

// Delete removes k.
func (c *Context) Delete(k Key) {
	name := k.String()
	if _, ok := c.entries[name]; !ok {
		return
	}
	delete(c.entries, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of stored values.
func (c *Context) Len() int {
	return len(c.order)
}

// Keys returns the rendered names in insertion order.
func (c *Context) Keys() []string {
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	return keys
}

// Map flattens the context into the map handed to templates.
func (c *Context) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(c.order))
	for _, name := range c.order {
		m[name] = c.entries[name].value
	}
	return m
}

// Clone returns a shallow copy; values are shared.
func (c *Context) Clone() *Context {
	n := &Context{
		entries:    make(map[string]*contextEntry, len(c.entries)),
		order:      make([]string, len(c.order)),
		collisions: append([]Collision(nil), c.collisions...),
	}
	copy(n.order, c.order)
	for name, e := range c.entries {
		ce := *e
		n.entries[name] = &ce
	}
	return n
}

// Collisions returns every write that replaced a value stored under a
// different typed key with the same rendered name.
func (c *Context) Collisions() []Collision {
	return append([]Collision(nil), c.collisions...)
}
