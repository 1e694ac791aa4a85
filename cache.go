package idmap

import (
	"context"
	"sync"
	"time"
)

// Cache is the identity map shared by every type wrapped on it.
// The zero value is not usable; construct with New.
type Cache struct {
	log   Logger
	hooks Hooks
	arc   *archive // nil when no archive provider is configured

	// mu guards everything below. An insert and its count increment are
	// always made in one critical section.
	mu      sync.Mutex
	entries map[Key]Entity
	counts  map[Key]int
	epoch   uint64
	names   map[string]Namespace
	nextNS  uint64
	closed  bool

	// background purge
	ticker    *time.Ticker
	stopCh    chan struct{}
	closeWg   sync.WaitGroup
	closeOnce sync.Once
}

// New creates an empty cache.
func New(opts Options) *Cache {
	cc := &Cache{
		entries: make(map[Key]Entity),
		counts:  make(map[Key]int),
		names:   make(map[string]Namespace),
	}
	opts = opts.withDefaults()
	cc.log = opts.Logger
	cc.hooks = opts.Hooks

	if opts.Archive != nil {
		cc.arc = &archive{
			p:     opts.Archive,
			codec: opts.Codec,
			ttl:   opts.ArchiveTTL,
			log:   cc.log,
			hooks: cc.hooks,
		}
	}

	if opts.PurgeInterval > 0 {
		cc.ticker = time.NewTicker(opts.PurgeInterval)
		cc.stopCh = make(chan struct{})
		cc.closeWg.Add(1)
		go cc.purgeLoop()
	}
	return cc
}

// Register allocates the namespace for one entity type. Names must be unique
// per cache; they label logs and hooks and address archived snapshots.
func (cc *Cache) Register(name string) (Namespace, error) {
	if name == "" {
		return Namespace{}, ErrEmptyName
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if _, ok := cc.names[name]; ok {
		return Namespace{}, ErrNamespaceTaken
	}
	cc.nextNS++
	ns := Namespace{token: cc.nextNS, name: name}
	cc.names[name] = ns
	return ns, nil
}

// acquire returns the entity registered under key, or inserts fresh when the
// slot is empty, and counts one acquisition either way. hit reports whether an
// existing entity was returned.
func (cc *Cache) acquire(key Key, fresh Entity) (e Entity, hit bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	e, hit = cc.entries[key]
	if !hit {
		if fresh == nil {
			return nil, false
		}
		e = fresh
		cc.entries[key] = e
	}
	cc.counts[key]++
	e.handle().bind(cc, key, cc.epoch)
	return e, hit
}

// bindLate registers a lazily identified entity, overwriting any occupant.
// displaced reports whether a different entity was overwritten. A closed cache
// registers nothing and returns ErrClosed.
func (cc *Cache) bindLate(key Key, e Entity) (displaced bool, err error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.closed {
		return false, ErrClosed
	}
	prev, ok := cc.entries[key]
	cc.entries[key] = e
	cc.counts[key]++
	e.handle().bind(cc, key, cc.epoch)
	return ok && prev != e, nil
}

func (cc *Cache) release(key Key, epoch uint64) {
	cc.mu.Lock()
	if epoch != cc.epoch {
		cc.mu.Unlock()
		return
	}
	if _, ok := cc.entries[key]; !ok {
		// purged; nothing left to account for
		cc.mu.Unlock()
		cc.log.Debug("release of purged entry ignored", key.fields())
		return
	}
	cc.counts[key]--
	n := cc.counts[key]
	cc.mu.Unlock()

	if n < 0 {
		// accepted; Purge treats it like zero
		cc.hooks.OverReleased(key.NS.name, key.ID, n)
		cc.log.Debug("release below zero", key.fields("count", n))
	}
}

// Purge removes every entry whose usage count is <= 0, together with its
// counter, and returns how many entries were removed. Removed entities are
// archived when an archive is configured.
func (cc *Cache) Purge(ctx context.Context) int {
	type victim struct {
		key Key
		e   Entity
	}
	var victims []victim

	cc.mu.Lock()
	for k, n := range cc.counts {
		if n > 0 {
			continue
		}
		if e, ok := cc.entries[k]; ok {
			delete(cc.entries, k)
			delete(cc.counts, k)
			victims = append(victims, victim{key: k, e: e})
		}
	}
	epoch := cc.epoch
	cc.mu.Unlock()

	if len(victims) == 0 {
		return 0
	}
	if cc.arc != nil {
		for _, v := range victims {
			if s, ok := v.e.(Snapshotter); ok {
				cc.arc.store(ctx, v.key, epoch, s.Attributes())
			}
		}
	}
	cc.hooks.Purged(len(victims))
	cc.log.Debug("purged unused entries", Fields{"removed": len(victims)})
	return len(victims)
}

// Reset drops all entries and counters. Handles bound before the reset stop
// affecting counts, and archived snapshots taken before it are ignored.
func (cc *Cache) Reset() {
	cc.mu.Lock()
	n := len(cc.entries)
	cc.entries = make(map[Key]Entity)
	cc.counts = make(map[Key]int)
	cc.epoch++
	cc.mu.Unlock()

	cc.hooks.Reset(n)
	cc.log.Info("cache reset", Fields{"dropped": n})
}

// Inspect returns a copy of the entry map and the usage counters.
func (cc *Cache) Inspect() Snapshot {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	s := Snapshot{
		Entries: make(map[Key]Entity, len(cc.entries)),
		Counts:  make(map[Key]int, len(cc.counts)),
	}
	for k, e := range cc.entries {
		s.Entries[k] = e
	}
	for k, n := range cc.counts {
		s.Counts[k] = n
	}
	return s
}

// Count returns the usage count recorded for key.
func (cc *Cache) Count(key Key) (int, bool) {
	cc.mu.Lock()
	n, ok := cc.counts[key]
	cc.mu.Unlock()
	return n, ok
}

// Len returns the number of registered entries.
func (cc *Cache) Len() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return len(cc.entries)
}

// Close stops the background purge and closes the archive provider.
// Entries stay readable; New on a type of a closed cache returns ErrClosed and
// identity-less entities are no longer registered when they get an identity.
func (cc *Cache) Close(ctx context.Context) error {
	var err error
	cc.closeOnce.Do(func() {
		cc.mu.Lock()
		cc.closed = true
		cc.mu.Unlock()

		if cc.stopCh != nil {
			close(cc.stopCh)
			cc.closeWg.Wait()
			if cc.ticker != nil {
				cc.ticker.Stop()
			}
		}
		if cc.arc != nil {
			err = cc.arc.p.Close(ctx)
		}
	})
	return err
}

func (cc *Cache) isClosed() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.closed
}

func (cc *Cache) currentEpoch() uint64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.epoch
}

func (cc *Cache) purgeLoop() {
	defer cc.closeWg.Done()
	for {
		select {
		case <-cc.ticker.C:
			cc.Purge(context.Background())
		case <-cc.stopCh:
			return
		}
	}
}
