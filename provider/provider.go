// Package provider defines the byte store behind the optional idmap archive.
//
// The archive stores framed attribute snapshots of purged entities under keys
// of the form "idmap:<len>:<namespace>:<id>". That keyspace is owned by idmap;
// foreign writes fail frame validation and are deleted on read.
//
// Implementations MUST be byte-for-byte transparent: Get returns exactly the
// bytes previously passed to Set for the key.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs. Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. cost is the frame size in bytes and
	// may be ignored. Returns ok=false when the store rejected the write under
	// pressure; the snapshot is then simply lost.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Deleting a missing key is not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
