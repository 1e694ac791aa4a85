package idmap

import (
	"errors"
	"fmt"
)

var (
	ErrNilCache         = errors.New("idmap: nil cache")
	ErrNilConstructor   = errors.New("idmap: nil constructor")
	ErrEmptyName        = errors.New("idmap: empty namespace name")
	ErrEmptyIDAttribute = errors.New("idmap: empty identity attribute name")
	ErrNamespaceTaken   = errors.New("idmap: namespace name already registered")
	ErrClosed           = errors.New("idmap: cache closed")
)

// ArchiveError reports a failed archive operation. It never fails a cache
// operation; it is handed to Hooks.ArchiveError and the logger.
type ArchiveError struct {
	Op  string // "load", "store", "delete", "encode", "decode"
	Key string // storage key
	Err error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("idmap: archive %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }
