package httpclient

import (
	"fmt"
	"io"
	"sync"
)

// roundTripFunc performs the wire exchange and returns the status and an unread body.
// accept is the advisory MIME type, empty when not overridden.
type roundTripFunc func(method, url string, body []byte, accept string) (int, io.ReadCloser, error)

// exchange is the state machine shared by every transport. Transitions after Send
// are delivered from a single goroutine, so callbacks observe them in order.
type exchange struct {
	name      string
	roundTrip roundTripFunc

	mu       sync.Mutex
	state    ReadyState
	sent     bool
	method   string
	url      string
	mime     string
	status   int
	text     string
	onChange func()
}

func newExchange(name string, rt roundTripFunc) *exchange {
	return &exchange{name: name, roundTrip: rt}
}

// OnStateChange registers the transition callback.
func (e *exchange) OnStateChange(fn func()) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

// Open records the request line and moves to OPENED.
func (e *exchange) Open(method, url string) error {
	e.mu.Lock()
	if e.state != StateUnsent {
		state := e.state
		e.mu.Unlock()
		return fmt.Errorf("%s open in state %s: %w", e.name, state, ErrInvalidState)
	}
	e.method, e.url = method, url
	e.mu.Unlock()

	e.transition(StateOpened)
	return nil
}

// Send starts the exchange in the background and returns immediately.
func (e *exchange) Send(body []byte) error {
	e.mu.Lock()
	if e.state != StateOpened || e.sent {
		state := e.state
		e.mu.Unlock()
		return fmt.Errorf("%s send in state %s: %w", e.name, state, ErrInvalidState)
	}
	e.sent = true
	method, url, mime := e.method, e.url, e.mime
	e.mu.Unlock()

	go e.run(method, url, body, mime)
	return nil
}

func (e *exchange) run(method, url string, body []byte, mime string) {
	status, rc, err := e.roundTrip(method, url, body, mime)
	if err != nil {
		e.finish(0, "")
		return
	}
	defer rc.Close()

	e.mu.Lock()
	e.status = status
	e.mu.Unlock()
	e.transition(StateHeadersReceived)
	e.transition(StateLoading)

	data, err := io.ReadAll(rc)
	if err != nil {
		e.finish(0, "")
		return
	}
	e.finish(status, string(data))
}

func (e *exchange) finish(status int, text string) {
	e.mu.Lock()
	e.status = status
	e.text = text
	e.mu.Unlock()
	e.transition(StateDone)
}

func (e *exchange) transition(s ReadyState) {
	e.mu.Lock()
	e.state = s
	fn := e.onChange
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// overrideMimeType is ignored once the response has started arriving.
func (e *exchange) overrideMimeType(mime string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state >= StateLoading {
		return
	}
	e.mime = mime
}

// ReadyState returns the current phase.
func (e *exchange) ReadyState() ReadyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status returns the response status code.
func (e *exchange) Status() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// ResponseText returns the body once the exchange is DONE.
func (e *exchange) ResponseText() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateDone {
		return ""
	}
	return e.text
}
