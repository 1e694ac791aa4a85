package idmap

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/idmap/codec"
	"github.com/unkn0wn-root/idmap/internal/util"
	"github.com/unkn0wn-root/idmap/internal/wire"
	pr "github.com/unkn0wn-root/idmap/provider"
)

// archive keeps attribute snapshots of purged entities so that a later miss for
// the same key starts from the last known state. It never holds live entities.
type archive struct {
	p     pr.Provider
	codec c.Codec[Attrs]
	ttl   time.Duration
	log   Logger
	hooks Hooks
}

func storageKey(k Key) string { return util.StorageKey(k.NS.name, k.ID) }

func (a *archive) store(ctx context.Context, k Key, epoch uint64, attrs Attrs) {
	sk := storageKey(k)
	payload, err := a.codec.Encode(attrs)
	if err != nil {
		a.fail("encode", sk, err)
		return
	}
	frame, err := wire.EncodeSnapshot(wire.Snapshot{Epoch: epoch, Key: sk, Payload: payload})
	if err != nil {
		a.fail("encode", sk, err)
		return
	}
	ok, err := a.p.Set(ctx, sk, frame, int64(len(frame)), a.ttl)
	if err != nil {
		a.fail("store", sk, err)
		return
	}
	if !ok {
		a.log.Debug("archive write rejected by provider (pressure)", Fields{"key": sk})
	}
}

// load returns the snapshot for k when one from the current epoch exists.
// Corrupt, foreign and stale frames are deleted.
func (a *archive) load(ctx context.Context, k Key, epoch uint64) (Attrs, bool) {
	sk := storageKey(k)
	raw, ok, err := a.p.Get(ctx, sk)
	if err != nil {
		a.fail("load", sk, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	s, err := wire.DecodeSnapshot(raw)
	if err != nil || s.Key != sk {
		a.drop(ctx, k) // self-heal corrupt
		return nil, false
	}
	if s.Epoch != epoch {
		a.drop(ctx, k)
		return nil, false
	}
	attrs, err := a.codec.Decode(s.Payload)
	if err != nil {
		a.fail("decode", sk, err)
		a.drop(ctx, k)
		return nil, false
	}
	return attrs, true
}

func (a *archive) drop(ctx context.Context, k Key) {
	sk := storageKey(k)
	if err := a.p.Del(ctx, sk); err != nil {
		a.fail("delete", sk, err)
	}
}

func (a *archive) fail(op, key string, err error) {
	ae := &ArchiveError{Op: op, Key: key, Err: err}
	a.hooks.ArchiveError(ae)
	a.log.Warn("archive operation failed", Fields{"op": op, "key": key, "err": err})
}
