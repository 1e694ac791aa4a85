package idmap

import "sync/atomic"

// binding ties a Handle to one key of one cache generation.
type binding struct {
	c     *Cache
	key   Key
	epoch uint64
}

// Handle gives an entity its Release operation. Embed it by value in entity
// types; the zero value is unbound and Release is a no-op until the cache binds
// it to a key.
//
// Release decrements the usage count of the key, which is shared by every
// holder of the entity. It is not a per-caller reference.
type Handle struct {
	b atomic.Pointer[binding]
}

func (h *Handle) handle() *Handle { return h }

// Release gives back one acquisition. Handles bound before the last
// Cache.Reset are ignored.
func (h *Handle) Release() {
	if b := h.b.Load(); b != nil {
		b.c.release(b.key, b.epoch)
	}
}

// Key returns the key the entity is registered under, if any.
func (h *Handle) Key() (Key, bool) {
	if b := h.b.Load(); b != nil {
		return b.key, true
	}
	return Key{}, false
}

func (h *Handle) bind(c *Cache, key Key, epoch uint64) {
	h.b.Store(&binding{c: c, key: key, epoch: epoch})
}
