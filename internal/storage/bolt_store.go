package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	snapshotBucket = "snapshots"
	// value layout: expiry unix seconds | received unix nanos | body
	headerBytes = 16
)

// boltStore implements a Store backed by BoltDB.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	snapshotTTL     time.Duration
	cleanupInterval time.Duration
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(snapshotBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		snapshotTTL:     opts.SnapshotTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SaveSnapshot replaces the stored snapshot for url.
func (b *boltStore) SaveSnapshot(url string, snap Snapshot) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return fmt.Errorf("snapshot bucket missing")
		}
		return bucket.Put([]byte(url), encodeSnapshot(now.Add(b.snapshotTTL), snap))
	})
}

// LatestSnapshot returns the unexpired snapshot for url, if any.
func (b *boltStore) LatestSnapshot(url string) (Snapshot, bool, error) {
	if b == nil || b.db == nil {
		return Snapshot{}, false, nil
	}

	if err := b.maybeCleanupExpired(time.Now()); err != nil {
		return Snapshot{}, false, err
	}

	var (
		snap  Snapshot
		found bool
	)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return fmt.Errorf("snapshot bucket missing")
		}

		key := []byte(url)
		value := bucket.Get(key)
		if value == nil {
			return nil
		}

		expiry, decoded, ok := decodeSnapshot(value)
		if !ok || !expiry.After(time.Now()) {
			return bucket.Delete(key)
		}

		snap, found = decoded, true
		return nil
	})
	return snap, found, err
}

// maybeCleanupExpired removes expired snapshots on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return fmt.Errorf("snapshot bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, _, ok := decodeSnapshot(v)
			if !ok || !expiry.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

func encodeSnapshot(expiry time.Time, snap Snapshot) []byte {
	buf := make([]byte, headerBytes+len(snap.Body))
	binary.BigEndian.PutUint64(buf[:8], uint64(expiry.Unix()))
	binary.BigEndian.PutUint64(buf[8:16], uint64(snap.ReceivedAt.UnixNano()))
	copy(buf[headerBytes:], snap.Body)
	return buf
}

// decodeSnapshot decodes the expiry and snapshot from the stored byte slice.
func decodeSnapshot(value []byte) (time.Time, Snapshot, bool) {
	if len(value) < headerBytes {
		return time.Time{}, Snapshot{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value[:8]))
	if unix <= 0 {
		return time.Time{}, Snapshot{}, false
	}
	received := int64(binary.BigEndian.Uint64(value[8:16]))
	return time.Unix(unix, 0), Snapshot{
		Body:       string(value[headerBytes:]),
		ReceivedAt: time.Unix(0, received).UTC(),
	}, true
}
