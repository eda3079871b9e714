// Package storage keeps the latest payload received per URL.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Snapshot is one successfully received payload.
type Snapshot struct {
	Body       string
	ReceivedAt time.Time
}

// Store persists snapshots keyed by source URL.
type Store interface {
	Close() error
	SaveSnapshot(url string, snap Snapshot) error
	LatestSnapshot(url string) (Snapshot, bool, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	SnapshotTTL     time.Duration
	CleanupInterval time.Duration
}

const (
	defaultSnapshotTTL     = 24 * time.Hour
	defaultCleanupInterval = time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = defaultSnapshotTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                                  { return nil }
func (noopStore) SaveSnapshot(string, Snapshot) error           { return nil }
func (noopStore) LatestSnapshot(string) (Snapshot, bool, error) { return Snapshot{}, false, nil }
