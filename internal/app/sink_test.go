package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/samvad-hq/samvad-status-poller/internal/logger"
	"github.com/samvad-hq/samvad-status-poller/internal/storage"
	"github.com/samvad-hq/samvad-status-poller/pkg/publishers"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// fakeStore records saved snapshots and can inject errors.
type fakeStore struct {
	mu    sync.Mutex
	saved map[string]storage.Snapshot
	err   error
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) SaveSnapshot(url string, snap storage.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = make(map[string]storage.Snapshot)
	}
	f.saved[url] = snap
	return nil
}

func (f *fakeStore) LatestSnapshot(url string) (storage.Snapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.saved[url]
	return snap, ok, nil
}

// fakePublisher records published events and can inject errors.
type fakePublisher struct {
	mu     sync.Mutex
	events []publishers.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, evt publishers.Event) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

func TestSinkStoresAndPublishesParsedVars(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	sink := NewSink(context.Background(), "http://device.local/timerdata.sts", store, pub, nil)

	if _, ok := sink.Latest(); ok {
		t.Fatalf("expected no vars before first payload")
	}

	sink.ParseVars(`{"state":"running","elapsed":42}`)

	got, ok := sink.Latest()
	if !ok || got["state"] != "running" || got["elapsed"] != "42" {
		t.Fatalf("unexpected vars %#v", got)
	}

	snap, ok, _ := store.LatestSnapshot("http://device.local/timerdata.sts")
	if !ok || snap.Body != `{"state":"running","elapsed":42}` || snap.ReceivedAt.IsZero() {
		t.Fatalf("snapshot not saved: %#v", snap)
	}

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(pub.events))
	}
	evt := pub.events[0]
	if evt.ID == "" || evt.SourceURL != "http://device.local/timerdata.sts" || evt.Vars["state"] != "running" {
		t.Fatalf("unexpected event %#v", evt)
	}
}

func TestSinkLatestReturnsCopy(t *testing.T) {
	sink := NewSink(context.Background(), "u", nil, nil, nil)
	sink.ParseVars(`{"a":"1"}`)

	first, _ := sink.Latest()
	first["a"] = "changed"

	again, _ := sink.Latest()
	if again["a"] != "1" {
		t.Fatalf("Latest leaked internal map, got %q", again["a"])
	}
}

func TestSinkLogsDownstreamFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.New(zap.New(core))

	store := &fakeStore{err: errors.New("disk full")}
	pub := &fakePublisher{err: errors.New("queue down")}
	sink := NewSink(context.Background(), "u", store, pub, log)

	sink.ParseVars("<span id=\"t\">1</span>")

	if got, _ := sink.Latest(); got["t"] != "1" {
		t.Fatalf("vars not kept when downstream fails: %#v", got)
	}
	if n := logs.FilterMessage("snapshot save failed").Len(); n != 1 {
		t.Fatalf("expected storage failure log, got %d", n)
	}
	if n := logs.FilterMessage("status event publish failed").Len(); n != 1 {
		t.Fatalf("expected publish failure log, got %d", n)
	}
}

func TestSinkDropsPayloadsAfterClose(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	sink := NewSink(context.Background(), "u", store, pub, nil)

	sink.Close()
	sink.ParseVars(`{"a":"1"}`)

	if _, ok := sink.Latest(); ok {
		t.Fatalf("expected no vars after Close")
	}
	if len(store.saved) != 0 || len(pub.events) != 0 {
		t.Fatalf("closed sink touched downstream: saved=%d events=%d", len(store.saved), len(pub.events))
	}
}
