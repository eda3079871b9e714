package app

import (
	"context"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-status-poller/internal/logger"
	"github.com/samvad-hq/samvad-status-poller/internal/storage"
	"github.com/samvad-hq/samvad-status-poller/pkg/publishers"
	"github.com/samvad-hq/samvad-status-poller/pkg/vars"
)

// EventPublisher delivers status events downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Sink consumes successful status payloads for a single source URL: it parses
// them into vars, keeps the latest snapshot and fans the event out.
type Sink struct {
	ctx       context.Context
	sourceURL string
	store     storage.Store
	publisher EventPublisher
	log       logger.Logger

	mu     sync.RWMutex
	latest vars.Vars
	seen   bool

	// life is held for reading while a payload is delivered downstream.
	life   sync.RWMutex
	closed bool
}

// NewSink builds a Sink. store and publisher may be nil.
func NewSink(ctx context.Context, sourceURL string, store storage.Store, publisher EventPublisher, log logger.Logger) *Sink {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Sink{
		ctx:       ctx,
		sourceURL: sourceURL,
		store:     store,
		publisher: publisher,
		log:       logger.Ensure(log),
	}
}

// ParseVars handles the body of a 200 response. Payloads arriving after Close
// are dropped.
func (s *Sink) ParseVars(body string) {
	s.life.RLock()
	defer s.life.RUnlock()
	if s.closed {
		s.log.DebugObj("status payload dropped after shutdown", "sink_closed", s.sourceURL)
		return
	}

	parsed, err := vars.Parse(body)
	if err != nil {
		s.log.WarnObj("status payload parse failed", "sink_error", map[string]any{
			"url":   s.sourceURL,
			"error": err.Error(),
		})
		parsed = vars.Vars{}
	}

	s.mu.Lock()
	s.latest = parsed
	s.seen = true
	s.mu.Unlock()

	s.log.InfoObj("status payload received", "status_vars", map[string]any{
		"url":   s.sourceURL,
		"bytes": len(body),
		"keys":  parsed.Keys(),
	})

	if s.store != nil {
		snap := storage.Snapshot{Body: body, ReceivedAt: time.Now().UTC()}
		if err := s.store.SaveSnapshot(s.sourceURL, snap); err != nil {
			s.log.ErrorObj("snapshot save failed", "storage_error", map[string]any{
				"url":   s.sourceURL,
				"error": err.Error(),
			})
		}
	}

	if s.publisher == nil {
		return
	}
	evt := publishers.NewEvent(s.sourceURL, body, parsed)
	delivered, err := s.publisher.Publish(s.ctx, evt)
	if err != nil {
		s.log.ErrorObj("status event publish failed", "publish_error", map[string]any{
			"event_id":  evt.ID,
			"delivered": delivered,
			"error":     err.Error(),
		})
		return
	}
	s.log.DebugObj("status event published", "publish_result", map[string]any{
		"event_id":  evt.ID,
		"delivered": delivered,
	})
}

// Close waits for an in-progress delivery and drops later ones.
func (s *Sink) Close() {
	s.life.Lock()
	s.closed = true
	s.life.Unlock()
}

// Latest returns the vars parsed from the most recent payload.
func (s *Sink) Latest() (vars.Vars, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.seen {
		return nil, false
	}
	out := make(vars.Vars, len(s.latest))
	for k, v := range s.latest {
		out[k] = v
	}
	return out, true
}
