// Package model is a small attribute-bag entity that satisfies idmap.Entity.
//
//	users, _ := idmap.Wrap(cache, "user", "id", model.Constructor("id"))
//	u, _ := users.New(ctx, idmap.Attrs{"id": 5, "name": "Ada"}, nil)
//	defer u.Release()
package model

import (
	"reflect"
	"sync"

	"github.com/unkn0wn-root/idmap"
)

// ParseFunc turns raw input (for example a server payload) into attributes.
type ParseFunc func(raw idmap.Attrs) (idmap.Attrs, error)

// ValidateFunc checks the attributes a Merge would produce.
type ValidateFunc func(next idmap.Attrs) error

type Option func(*Model)

func WithParse(fn ParseFunc) Option       { return func(m *Model) { m.parse = fn } }
func WithValidate(fn ValidateFunc) Option { return func(m *Model) { m.validate = fn } }

type listener struct {
	attr  string
	scope any
	fn    func(any)
}

// Model holds attributes and notifies observers when one changes.
// Observers run on the goroutine that made the change, after the model's lock
// is released, so they may call back into the model.
type Model struct {
	idmap.Handle

	idAttr   string
	parse    ParseFunc
	validate ValidateFunc

	mu        sync.RWMutex
	attrs     idmap.Attrs
	listeners []listener
}

var (
	_ idmap.Entity      = (*Model)(nil)
	_ idmap.Snapshotter = (*Model)(nil)
)

// New returns an empty model whose identity is stored under idAttr.
func New(idAttr string, opts ...Option) *Model {
	m := &Model{idAttr: idAttr, attrs: make(idmap.Attrs)}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Constructor adapts New for idmap.Wrap. With ConstructOptions.Parse set the
// parse func runs on attrs first.
func Constructor(idAttr string, opts ...Option) idmap.Constructor[*Model] {
	return func(attrs idmap.Attrs, co *idmap.ConstructOptions) (*Model, error) {
		m := New(idAttr, opts...)
		if co != nil && co.Parse {
			parsed, err := m.Parse(attrs)
			if err != nil {
				return nil, err
			}
			attrs = parsed
		}
		if err := m.Merge(attrs); err != nil {
			return nil, err
		}
		return m, nil
	}
}

func (m *Model) Get(attr string) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attrs[attr]
}

// ID returns the identity attribute.
func (m *Model) ID() any { return m.Get(m.idAttr) }

func (m *Model) Set(attr string, v any) error {
	return m.Merge(idmap.Attrs{attr: v})
}

// Merge applies attrs. Values equal to the current ones do not notify.
func (m *Model) Merge(attrs idmap.Attrs) error {
	if len(attrs) == 0 {
		return nil
	}
	m.mu.Lock()
	if m.validate != nil {
		next := make(idmap.Attrs, len(m.attrs)+len(attrs))
		for k, v := range m.attrs {
			next[k] = v
		}
		for k, v := range attrs {
			next[k] = v
		}
		if err := m.validate(next); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	var changed []string
	for k, v := range attrs {
		if old, ok := m.attrs[k]; ok && reflect.DeepEqual(old, v) {
			continue
		}
		m.attrs[k] = v
		changed = append(changed, k)
	}
	var fire []func()
	for _, k := range changed {
		v := m.attrs[k]
		for _, l := range m.listeners {
			if l.attr == k {
				fn := l.fn
				fire = append(fire, func() { fn(v) })
			}
		}
	}
	m.mu.Unlock()

	for _, f := range fire {
		f()
	}
	return nil
}

// Parse runs the parse func, or returns attrs unchanged without one.
func (m *Model) Parse(attrs idmap.Attrs) (idmap.Attrs, error) {
	if m.parse == nil {
		return attrs, nil
	}
	return m.parse(attrs)
}

// Observe registers fn for changes of attr. scope must be comparable.
func (m *Model) Observe(attr string, scope any, fn func(any)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, listener{attr: attr, scope: scope, fn: fn})
	m.mu.Unlock()
}

func (m *Model) Unobserve(scope any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.listeners[:0]
	for _, l := range m.listeners {
		if l.scope != scope {
			kept = append(kept, l)
		}
	}
	for i := len(kept); i < len(m.listeners); i++ {
		m.listeners[i] = listener{}
	}
	m.listeners = kept
}

// Attributes returns a copy of the current attributes.
func (m *Model) Attributes() idmap.Attrs {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(idmap.Attrs, len(m.attrs))
	for k, v := range m.attrs {
		out[k] = v
	}
	return out
}
