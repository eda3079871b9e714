package storage

import (
	"testing"
	"time"
)

func TestBoltStoreSavesAndExpiresSnapshots(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		SnapshotTTL:     1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	storeRaw, err := openBolt(dir+"/snapshots.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	const url = "http://device.local/timerdata.sts"

	_, found, err := store.LatestSnapshot(url)
	if err != nil || found {
		t.Fatalf("expected no snapshot, found=%v err=%v", found, err)
	}

	received := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	if err := store.SaveSnapshot(url, Snapshot{Body: `{"x":1}`, ReceivedAt: received}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	snap, found, err := store.LatestSnapshot(url)
	if err != nil || !found {
		t.Fatalf("expected snapshot, found=%v err=%v", found, err)
	}
	if snap.Body != `{"x":1}` || !snap.ReceivedAt.Equal(received) {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	_, found, err = store.LatestSnapshot(url)
	if err != nil {
		t.Fatalf("LatestSnapshot after expiry: %v", err)
	}
	if found {
		t.Fatalf("expected snapshot to expire and be removed")
	}
}

func TestSaveSnapshotReplacesPrevious(t *testing.T) {
	store, err := NewStore("bbolt", t.TempDir()+"/nested/snapshots.db", Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	store.SaveSnapshot("u", Snapshot{Body: "old", ReceivedAt: time.Now()})
	store.SaveSnapshot("u", Snapshot{Body: "new", ReceivedAt: time.Now()})

	snap, found, err := store.LatestSnapshot("u")
	if err != nil || !found || snap.Body != "new" {
		t.Fatalf("unexpected snapshot %+v found=%v err=%v", snap, found, err)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.SaveSnapshot("x", Snapshot{Body: "b"}); err != nil {
		t.Fatalf("noop store SaveSnapshot: %v", err)
	}
	if _, found, _ := store.LatestSnapshot("x"); found {
		t.Fatalf("noop store should never find snapshots")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported storage type")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing bbolt path")
	}
}
