package idmap

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them after releasing its lock, on hot paths.
type Hooks interface {
	// New found an entry for the key and merged into it.
	Hit(namespace, id string)
	// New built a fresh entity for the key.
	Miss(namespace, id string)

	// A lazily identified entity was registered. displaced reports that it
	// overwrote a different entity registered under the same key.
	Bound(namespace, id string, displaced bool)

	// Release drove the usage count below zero.
	OverReleased(namespace, id string, count int)

	// Purge removed n entries; Reset dropped n entries.
	Purged(n int)
	Reset(n int)

	// An archive operation failed (best effort, the cache carried on).
	ArchiveError(err *ArchiveError)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string, string)               {}
func (NopHooks) Miss(string, string)              {}
func (NopHooks) Bound(string, string, bool)       {}
func (NopHooks) OverReleased(string, string, int) {}
func (NopHooks) Purged(int)                       {}
func (NopHooks) Reset(int)                        {}
func (NopHooks) ArchiveError(*ArchiveError)       {}

