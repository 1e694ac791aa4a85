// Package sloghooks logs cache events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/idmap"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery  uint64
	MissEvery uint64
	// Optional id redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ idmap.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(ns, id string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("idmap.hit", "ns", ns, "id", h.redact(id))
}

func (h *Hooks) Miss(ns, id string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("idmap.miss", "ns", ns, "id", h.redact(id))
}

func (h *Hooks) Bound(ns, id string, displaced bool) {
	if h.l == nil {
		return
	}
	if displaced {
		h.l.Warn("idmap.bound", "ns", ns, "id", h.redact(id), "displaced", true)
		return
	}
	h.l.Debug("idmap.bound", "ns", ns, "id", h.redact(id), "displaced", false)
}

func (h *Hooks) OverReleased(ns, id string, count int) {
	if h.l == nil {
		return
	}
	h.l.Warn("idmap.over_released",
		"ns", ns,
		"id", h.redact(id),
		"count", count)
}

func (h *Hooks) Purged(n int) {
	if h.l == nil {
		return
	}
	h.l.Info("idmap.purged", "removed", n)
}

func (h *Hooks) Reset(n int) {
	if h.l == nil {
		return
	}
	h.l.Info("idmap.reset", "dropped", n)
}

func (h *Hooks) ArchiveError(err *idmap.ArchiveError) {
	if h.l == nil || err == nil {
		return
	}
	h.l.Warn("idmap.archive_error",
		"op", err.Op,
		"key", h.redact(err.Key),
		"err", err.Err)
}
