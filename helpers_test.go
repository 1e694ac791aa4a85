package idmap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	pr "github.com/unkn0wn-root/idmap/provider"
)

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type memProvider struct {
	mu  sync.Mutex
	m   map[string]memEntry
	err error // returned by every call when set
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string]memEntry)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, false, p.err
	}
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return false, p.err
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.m[key] = memEntry{v: value, exp: exp}
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	delete(p.m, key)
	return nil
}

func (p *memProvider) Close(_ context.Context) error { return nil }

func (p *memProvider) has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.m[key]
	return ok
}

type observer struct {
	attr  string
	scope any
	fn    func(any)
}

// user is a minimal Entity used across the package tests.
type user struct {
	Handle

	mu       sync.Mutex
	attrs    Attrs
	obs      []observer
	mergeErr error
	parsed   int
}

var (
	_ Entity      = (*user)(nil)
	_ Snapshotter = (*user)(nil)
)

var errMerge = errors.New("merge rejected")

func (u *user) get(k string) any {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.attrs[k]
}

func (u *user) Merge(a Attrs) error {
	u.mu.Lock()
	if u.mergeErr != nil {
		u.mu.Unlock()
		return u.mergeErr
	}
	var fire []func()
	for k, v := range a {
		u.attrs[k] = v
		for _, o := range u.obs {
			if o.attr == k {
				fn, v := o.fn, v
				fire = append(fire, func() { fn(v) })
			}
		}
	}
	u.mu.Unlock()
	for _, f := range fire {
		f()
	}
	return nil
}

// Parse prefixes string names so tests can tell parsed input apart.
func (u *user) Parse(a Attrs) (Attrs, error) {
	u.mu.Lock()
	u.parsed++
	u.mu.Unlock()
	out := make(Attrs, len(a))
	for k, v := range a {
		if s, ok := v.(string); ok && k == "name" {
			v = "parsed:" + s
		}
		out[k] = v
	}
	return out, nil
}

func (u *user) Observe(attr string, scope any, fn func(any)) {
	u.mu.Lock()
	u.obs = append(u.obs, observer{attr: attr, scope: scope, fn: fn})
	u.mu.Unlock()
}

func (u *user) Unobserve(scope any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	var kept []observer
	for _, o := range u.obs {
		if o.scope != scope {
			kept = append(kept, o)
		}
	}
	u.obs = kept
}

func (u *user) observers() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.obs)
}

func (u *user) Attributes() Attrs {
	u.mu.Lock()
	defer u.mu.Unlock()
	return overlay(nil, u.attrs)
}

// newUser is a Constructor[*user]. It copies attrs and honors opts.Parse.
func newUser(a Attrs, opts *ConstructOptions) (*user, error) {
	u := &user{attrs: make(Attrs)}
	if opts != nil && opts.Parse {
		var err error
		if a, err = u.Parse(a); err != nil {
			return nil, err
		}
	}
	for k, v := range a {
		u.attrs[k] = v
	}
	return u, nil
}

// recHooks records events for assertions.
type recHooks struct {
	NopHooks
	mu            sync.Mutex
	hits, misses  int
	bound         int
	displaced     int
	overReleased  []int
	purged, reset int
	archiveErrs   []*ArchiveError
}

func (h *recHooks) Hit(string, string)  { h.mu.Lock(); h.hits++; h.mu.Unlock() }
func (h *recHooks) Miss(string, string) { h.mu.Lock(); h.misses++; h.mu.Unlock() }
func (h *recHooks) Bound(_, _ string, displaced bool) {
	h.mu.Lock()
	h.bound++
	if displaced {
		h.displaced++
	}
	h.mu.Unlock()
}
func (h *recHooks) OverReleased(_, _ string, n int) {
	h.mu.Lock()
	h.overReleased = append(h.overReleased, n)
	h.mu.Unlock()
}
func (h *recHooks) Purged(n int) { h.mu.Lock(); h.purged += n; h.mu.Unlock() }
func (h *recHooks) Reset(n int)  { h.mu.Lock(); h.reset += n; h.mu.Unlock() }
func (h *recHooks) ArchiveError(e *ArchiveError) {
	h.mu.Lock()
	h.archiveErrs = append(h.archiveErrs, e)
	h.mu.Unlock()
}

func newTestCache(t *testing.T, opts Options) *Cache {
	t.Helper()
	cc := New(opts)
	t.Cleanup(func() { _ = cc.Close(context.Background()) })
	return cc
}

func wrapUsers(t *testing.T, cc *Cache, name string) *Type[*user] {
	t.Helper()
	users, err := Wrap(cc, name, "id", newUser)
	if err != nil {
		t.Fatalf("Wrap(%q): %v", name, err)
	}
	return users
}

func mustNew(t *testing.T, ty *Type[*user], a Attrs) *user {
	t.Helper()
	u, err := ty.New(context.Background(), a, nil)
	if err != nil {
		t.Fatalf("New(%v): %v", a, err)
	}
	return u
}

func count(t *testing.T, cc *Cache, ty *Type[*user], id any) int {
	t.Helper()
	k, ok := ty.Key(id)
	if !ok {
		t.Fatalf("no key for %v", id)
	}
	n, _ := cc.Count(k)
	return n
}
