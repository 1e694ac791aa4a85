package idmap

import (
	"context"
	"sync"
)

// Type is a wrapped constructor for one entity type. Its New returns the cached
// instance for an identity when there is one.
type Type[E Entity] struct {
	c      *Cache
	ns     Namespace
	idAttr string
	ctor   Constructor[E]
}

// Wrap registers a namespace called name on c and returns the caching
// constructor for E. idAttr is the attribute holding the identity.
func Wrap[E Entity](c *Cache, name, idAttr string, ctor Constructor[E]) (*Type[E], error) {
	if c == nil {
		return nil, ErrNilCache
	}
	if ctor == nil {
		return nil, ErrNilConstructor
	}
	if idAttr == "" {
		return nil, ErrEmptyIDAttribute
	}
	ns, err := c.Register(name)
	if err != nil {
		return nil, err
	}
	return &Type[E]{c: c, ns: ns, idAttr: idAttr, ctor: ctor}, nil
}

func (t *Type[E]) Namespace() Namespace { return t.ns }
func (t *Type[E]) IDAttribute() string  { return t.idAttr }

// Key returns the cache key for an identity value of this type.
func (t *Type[E]) Key(id any) (Key, bool) {
	s, ok := identityOf(id)
	if !ok {
		return Key{}, false
	}
	return Key{NS: t.ns, ID: s}, true
}

// New returns the entity for attrs' identity, building it on a miss and merging
// attrs into it on a hit. Each call counts one acquisition, given back with
// Release. Without an identity a new entity is returned and registered once its
// identity attribute is first assigned.
//
// Errors from the constructor, Parse and Merge are returned unchanged.
func (t *Type[E]) New(ctx context.Context, attrs Attrs, opts *ConstructOptions) (E, error) {
	var zero E
	if t.c.isClosed() {
		return zero, ErrClosed
	}

	var raw any
	if attrs != nil {
		raw = attrs[t.idAttr]
	}
	key, ok := t.Key(raw)
	if !ok {
		e, err := t.ctor(attrs, opts)
		if err != nil {
			return zero, err
		}
		t.bindLater(e)
		return e, nil
	}

	if e, hit := t.c.acquire(key, nil); hit {
		t.c.hooks.Hit(t.ns.name, key.ID)
		return t.update(e, attrs, opts)
	}

	build, hydrated := attrs, false
	if t.c.arc != nil {
		if saved, ok := t.c.arc.load(ctx, key, t.c.currentEpoch()); ok {
			build, hydrated = overlay(saved, attrs), true
		}
	}
	fresh, err := t.ctor(build, opts)
	if err != nil {
		return zero, err
	}

	e, hit := t.c.acquire(key, fresh)
	if hit {
		// lost the race to another New for the same key
		t.c.hooks.Hit(t.ns.name, key.ID)
		return t.update(e, attrs, opts)
	}
	if hydrated {
		t.c.arc.drop(ctx, key) // the live entity owns that state now
	}
	t.c.hooks.Miss(t.ns.name, key.ID)
	t.c.log.Debug("cache miss; registered new entity", key.fields("hydrated", hydrated))
	return fresh, nil
}

// update merges attrs into an entity that was just acquired. On failure the
// acquisition is given back.
func (t *Type[E]) update(e Entity, attrs Attrs, opts *ConstructOptions) (E, error) {
	var zero E
	if opts != nil && opts.Parse {
		parsed, err := e.Parse(attrs)
		if err != nil {
			e.Release()
			return zero, err
		}
		attrs = parsed
	}
	if err := e.Merge(attrs); err != nil {
		e.Release()
		return zero, err
	}
	return e.(E), nil
}

func (t *Type[E]) bindLater(e E) {
	b := &binder[E]{t: t, e: e}
	e.Observe(t.idAttr, b, b.onIdentity)
}

// binder registers one identity-less entity the first time it gets an
// identity. The binder itself is the subscription scope.
type binder[E Entity] struct {
	t    *Type[E]
	e    E
	once sync.Once
}

func (b *binder[E]) onIdentity(v any) {
	key, ok := b.t.Key(v)
	if !ok {
		return
	}
	b.once.Do(func() {
		t := b.t
		defer b.e.Unobserve(b)
		displaced, err := t.c.bindLate(key, b.e)
		if err != nil {
			t.c.log.Debug("late bind skipped", key.fields("err", err))
			return
		}
		if displaced {
			t.c.log.Debug("late bind replaced registered entity", key.fields())
		}
		t.c.hooks.Bound(t.ns.name, key.ID, displaced)
	})
}

// overlay returns base with top applied over it. Neither input is modified.
func overlay(base, top Attrs) Attrs {
	out := make(Attrs, len(base)+len(top))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range top {
		out[k] = v
	}
	return out
}
