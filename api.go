package idmap

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/idmap/codec"
	pr "github.com/unkn0wn-root/idmap/provider"
)

// Attrs is a bag of entity attributes keyed by attribute name.
type Attrs map[string]any

// Entity is the capability set the cache needs from a cached object.
// Entity types satisfy the unexported part of the interface by embedding Handle.
type Entity interface {
	// Merge applies attrs to the entity in place.
	Merge(attrs Attrs) error
	// Parse transforms raw attributes before Merge (ConstructOptions.Parse).
	Parse(attrs Attrs) (Attrs, error)
	// Observe registers fn for changes of attr. scope identifies the
	// subscription for Unobserve and must not remove other subscriptions.
	Observe(attr string, scope any, fn func(value any))
	// Unobserve removes every subscription registered with scope.
	Unobserve(scope any)
	// Release gives back one acquisition of the entity.
	Release()

	handle() *Handle
}

// Snapshotter is implemented by entities whose attributes can be archived on purge.
type Snapshotter interface {
	Attributes() Attrs
}

// Constructor builds a new, uncached entity.
type Constructor[E Entity] func(attrs Attrs, opts *ConstructOptions) (E, error)

// ConstructOptions are passed through to the constructor. Parse additionally
// makes cache hits run Entity.Parse before merging.
type ConstructOptions struct {
	Parse bool
	Extra map[string]any
}

// Options tune a Cache. The zero value is a usable, archive-less cache.
type Options struct {
	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	// PurgeInterval runs Purge periodically when > 0. Close stops it.
	PurgeInterval time.Duration

	// Archive keeps attribute snapshots of purged entities. Optional.
	Archive    pr.Provider
	Codec      c.Codec[Attrs] // nil => JSON
	ArchiveTTL time.Duration  // 0 => 10m
}

// Snapshot is a copy of the cache state. Mutating it does not affect the cache;
// the entities themselves are the shared live instances.
type Snapshot struct {
	Entries map[Key]Entity
	Counts  map[Key]int
}

// Maintainer is the type-independent part of the cache API.
type Maintainer interface {
	Purge(ctx context.Context) int
	Reset()
	Inspect() Snapshot
	Close(ctx context.Context) error
}

var _ Maintainer = (*Cache)(nil)
