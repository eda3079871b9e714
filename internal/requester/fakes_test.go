package requester

import (
	"sync"

	"github.com/samvad-hq/samvad-status-poller/pkg/httpclient"
)

// fakeTransport is driven by the test through advance.
type fakeTransport struct {
	mu       sync.Mutex
	state    httpclient.ReadyState
	status   int
	body     string
	onChange func()
	method   string
	url      string
	sent     bool
	sentBody []byte
}

func (f *fakeTransport) Open(method, url string) error {
	f.mu.Lock()
	f.method, f.url = method, url
	f.mu.Unlock()
	f.advance(httpclient.StateOpened, 0, "")
	return nil
}

func (f *fakeTransport) Send(body []byte) error {
	f.mu.Lock()
	f.sent = true
	f.sentBody = body
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) OnStateChange(fn func()) {
	f.mu.Lock()
	f.onChange = fn
	f.mu.Unlock()
}

func (f *fakeTransport) ReadyState() httpclient.ReadyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransport) Status() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeTransport) ResponseText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.body
}

// advance moves to state and fires the callback, as a real transport would.
func (f *fakeTransport) advance(state httpclient.ReadyState, status int, body string) {
	f.mu.Lock()
	f.state, f.status, f.body = state, status, body
	fn := f.onChange
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// complete walks the remaining phases to DONE.
func (f *fakeTransport) complete(status int, body string) {
	f.advance(httpclient.StateHeadersReceived, status, "")
	f.advance(httpclient.StateLoading, status, "")
	f.advance(httpclient.StateDone, status, body)
}

// mimeTransport additionally accepts a MIME override.
type mimeTransport struct {
	*fakeTransport
	mime string
}

func (m *mimeTransport) OverrideMimeType(mime string) { m.mime = mime }

func constructorFor(name string, tr httpclient.Transport) httpclient.Constructor {
	return httpclient.Constructor{
		Name: name,
		New:  func() (httpclient.Transport, error) { return tr, nil },
	}
}

// recordingParser counts ParseVars calls.
type recordingParser struct {
	mu     sync.Mutex
	bodies []string
}

func (p *recordingParser) ParseVars(body string) {
	p.mu.Lock()
	p.bodies = append(p.bodies, body)
	p.mu.Unlock()
}

func (p *recordingParser) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.bodies...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []string
}

func (n *recordingNotifier) Alert(msg string) {
	n.mu.Lock()
	n.alerts = append(n.alerts, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}
