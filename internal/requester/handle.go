package requester

import (
	"context"
	"sync"

	"github.com/samvad-hq/samvad-status-poller/pkg/httpclient"
)

// Result is the terminal outcome of a request.
type Result struct {
	Status int
	Body   string
}

// OK reports whether the server answered 200.
func (r Result) OK() bool { return r.Status == statusOK }

// Handle tracks one outstanding request. It resolves exactly once, when the
// transport reaches DONE; intermediate phases are not exposed.
type Handle struct {
	id        string
	url       string
	transport string
	tr        httpclient.Transport

	once   sync.Once
	done   chan struct{}
	result Result
}

func newHandle(id, url, transport string, tr httpclient.Transport) *Handle {
	return &Handle{
		id:        id,
		url:       url,
		transport: transport,
		tr:        tr,
		done:      make(chan struct{}),
	}
}

func (h *Handle) ID() string        { return h.id }
func (h *Handle) URL() string       { return h.url }
func (h *Handle) Transport() string { return h.transport }

// Done is closed when the request reaches its terminal phase.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Result returns the outcome and whether the request has completed.
func (h *Handle) Result() (Result, bool) {
	select {
	case <-h.done:
		return h.result, true
	default:
		return Result{}, false
	}
}

// Wait blocks until the request completes or ctx ends. Ending ctx only stops the
// wait; the request itself keeps running.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// resolve runs fn and publishes res the first time it is called.
func (h *Handle) resolve(res Result, fn func()) {
	h.once.Do(func() {
		fn()
		h.result = res
		close(h.done)
	})
}
