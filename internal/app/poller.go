package app

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/samvad-hq/samvad-status-poller/internal/config"
	"github.com/samvad-hq/samvad-status-poller/internal/logger"
	"github.com/samvad-hq/samvad-status-poller/internal/requester"
	"github.com/samvad-hq/samvad-status-poller/internal/storage"
	"github.com/samvad-hq/samvad-status-poller/pkg/httpclient"
	"github.com/samvad-hq/samvad-status-poller/pkg/publishers"
)

// shutdownGrace bounds how long Run waits for an outstanding request on exit.
const shutdownGrace = 2 * time.Second

// Poller periodically requests the status URL. A tick is skipped while the
// previous request has not completed.
type Poller struct {
	cfg      *config.Config
	target   string
	client   *requester.Client
	sink     *Sink
	fanout   *publishers.Fanout
	store    storage.Store
	interval time.Duration
	grace    time.Duration
	last     *requester.Handle
	log      logger.Logger
}

// NewPoller builds the poller runtime from config.
func NewPoller(ctx context.Context, cfg *config.Config, log logger.Logger) (*Poller, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	ctors, err := httpclient.Constructors(cfg.Transports)
	if err != nil {
		return nil, fmt.Errorf("resolve transports: %w", err)
	}

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		SnapshotTTL:     cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"snapshot_ttl_seconds":     int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	target := resolveTarget(cfg.BaseURL, cfg.TargetURL)
	// Deliveries for a request that completes during shutdown still need a live context.
	sink := NewSink(context.WithoutCancel(ctx), target, store, fanout, log)
	client := requester.New(requester.Options{
		Constructors:              ctors,
		Parser:                    sink,
		Logger:                    log,
		MIMEOverride:              cfg.MIMEOverride,
		BaseURL:                   cfg.BaseURL,
		ReleaseOnTransportFailure: cfg.ReleaseOnTransportFailure,
	})

	return &Poller{
		cfg:      cfg,
		target:   target,
		client:   client,
		sink:     sink,
		fanout:   fanout,
		store:    store,
		interval: cfg.PollInterval,
		grace:    shutdownGrace,
		log:      log,
	}, nil
}

// resolveTarget returns target resolved against base, or target unchanged.
func resolveTarget(base, target string) string {
	if base == "" {
		return target
	}
	b, err := url.Parse(base)
	if err != nil {
		return target
	}
	ref, err := url.Parse(target)
	if err != nil {
		return target
	}
	return b.ResolveReference(ref).String()
}

// buildFanout loads the optional publishers file. An empty path disables publishing.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if path == "" {
		log.InfoObj("publishers disabled", "publishers_file", path)
		return publishers.NewFanout(nil), nil
	}

	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// Client exposes the underlying request client.
func (p *Poller) Client() *requester.Client { return p.client }

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("poller is not initialized")
	}
	defer p.close()

	p.log.InfoObj("poller loop starting", "poller_state", map[string]any{
		"target_url":       p.target,
		"transports":       p.cfg.Transports,
		"publishers_count": p.fanout.Size(),
		"poll_interval":    p.interval.String(),
	})

	p.tick()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.InfoObj("poller loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			p.tick()
		}
	}
}

// tick starts a request unless one is outstanding.
func (p *Poller) tick() {
	if p.client.InFlight() {
		p.log.DebugObj("request still in flight; skipping tick", "poller_skip", p.target)
		return
	}
	h, err := p.client.Initiate(p.target)
	if err != nil {
		p.log.ErrorObj("status request failed to start", "error", err.Error())
		return
	}
	p.last = h
}

// drain waits up to the grace period for the last request to reach DONE.
func (p *Poller) drain() {
	if p.last == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.grace)
	defer cancel()
	if _, err := p.last.Wait(ctx); err != nil {
		p.log.WarnObj("outstanding request abandoned on shutdown", "poller_drain", map[string]any{
			"request_id": p.last.ID(),
			"url":        p.last.URL(),
		})
	}
}

func (p *Poller) close() {
	p.drain()
	p.sink.Close()

	if err := p.fanout.Close(); err != nil {
		p.log.ErrorObj("publisher close failed", "error", err.Error())
	}
	if p.store == nil {
		return
	}
	if err := p.store.Close(); err != nil {
		p.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
