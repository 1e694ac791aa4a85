package idmap

import (
	"time"

	c "github.com/unkn0wn-root/idmap/codec"
)

const defaultArchiveTTL = 10 * time.Minute

// withDefaults fills unset options. Codec and ArchiveTTL only matter when an
// archive is configured.
func (o Options) withDefaults() Options {
	o.Logger = coalesce[Logger](o.Logger, NopLogger{})
	o.Hooks = coalesce[Hooks](o.Hooks, NopHooks{})
	if o.Archive != nil {
		o.Codec = coalesce[c.Codec[Attrs]](o.Codec, c.JSON[Attrs]{})
		o.ArchiveTTL = coalesce(o.ArchiveTTL, defaultArchiveTTL)
	}
	return o
}

// coalesce returns v unless it is the zero value of T, in which case def.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
