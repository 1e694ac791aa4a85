// usage:
//
// import (
//
//	"log/slog"
//
//	"github.com/unkn0wn-root/idmap"
//	"github.com/unkn0wn-root/idmap/hooks/async"
//	"github.com/unkn0wn-root/idmap/sloghooks"
//
// )
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    HitEvery:  100, // sample logs: ~every 100th hit
//	    MissEvery: 10,
//	})
//
// hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
// defer hooks.Close()
//
//	cache := idmap.New(idmap.Options{
//	    Hooks:         hooks, // or `raw` if you don’t want async
//	    PurgeInterval: time.Minute,
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/idmap"
)

// Hooks forwards events to inner on worker goroutines. Events are dropped when
// the queue is full or after Close.
type Hooks struct {
	inner   idmap.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends racing Close
	closed  bool
	dropped atomic.Uint64
}

var _ idmap.Hooks = (*Hooks)(nil)

func New(inner idmap.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped returns how many events were discarded.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) Hit(ns, id string)  { h.try(func() { h.inner.Hit(ns, id) }) }
func (h *Hooks) Miss(ns, id string) { h.try(func() { h.inner.Miss(ns, id) }) }
func (h *Hooks) Bound(ns, id string, displaced bool) {
	h.try(func() { h.inner.Bound(ns, id, displaced) })
}
func (h *Hooks) OverReleased(ns, id string, n int) {
	h.try(func() { h.inner.OverReleased(ns, id, n) })
}
func (h *Hooks) Purged(n int) { h.try(func() { h.inner.Purged(n) }) }
func (h *Hooks) Reset(n int)  { h.try(func() { h.inner.Reset(n) }) }
func (h *Hooks) ArchiveError(err *idmap.ArchiveError) {
	h.try(func() { h.inner.ArchiveError(err) })
}
