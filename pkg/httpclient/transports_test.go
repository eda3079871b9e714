package httpclient

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// runGet opens and sends a GET on tr, returning the observed state sequence once DONE.
func runGet(t *testing.T, tr Transport, url string) []ReadyState {
	t.Helper()

	var (
		mu     sync.Mutex
		states []ReadyState
	)
	done := make(chan struct{})
	tr.OnStateChange(func() {
		s := tr.ReadyState()
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
		if s == StateDone {
			close(done)
		}
	})

	if err := tr.Open(http.MethodGet, url); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := tr.Send(nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("transport never reached DONE")
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]ReadyState(nil), states...)
}

func newStatusServer(t *testing.T, accepts chan<- string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if accepts != nil {
			select {
			case accepts <- r.Header.Get("Accept"):
			default:
			}
		}
		switch r.URL.Path {
		case "/status.json":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"x":1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTransportsCompleteWithStatusAndBody(t *testing.T) {
	builders := map[string]func() Transport{
		TransportResty:   func() Transport { return NewRestyTransport() },
		TransportNetHTTP: func() Transport { return NewNetHTTPTransport(nil) },
		TransportRawConn: func() Transport { return NewRawConnTransport() },
	}

	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			srv := newStatusServer(t, nil)
			tr := build()

			states := runGet(t, tr, srv.URL+"/status.json")
			want := []ReadyState{StateOpened, StateHeadersReceived, StateLoading, StateDone}
			if len(states) != len(want) {
				t.Fatalf("states = %v, want %v", states, want)
			}
			for i := range want {
				if states[i] != want[i] {
					t.Fatalf("states = %v, want %v", states, want)
				}
			}
			if tr.Status() != http.StatusOK {
				t.Fatalf("status = %d", tr.Status())
			}
			if tr.ResponseText() != `{"x":1}` {
				t.Fatalf("body = %q", tr.ResponseText())
			}
		})
	}
}

func TestTransportsReportNotFound(t *testing.T) {
	for _, c := range DefaultConstructors() {
		t.Run(c.Name, func(t *testing.T) {
			srv := newStatusServer(t, nil)
			tr, err := c.New()
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			runGet(t, tr, srv.URL+"/missing")
			if tr.Status() != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", tr.Status())
			}
		})
	}
}

func TestTransportFailureFinishesWithZeroStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	for _, c := range DefaultConstructors() {
		t.Run(c.Name, func(t *testing.T) {
			tr, err := c.New()
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			states := runGet(t, tr, url+"/status.json")
			if states[len(states)-1] != StateDone {
				t.Fatalf("last state = %v", states[len(states)-1])
			}
			if tr.Status() != 0 {
				t.Fatalf("status = %d, want 0", tr.Status())
			}
			if tr.ResponseText() != "" {
				t.Fatalf("expected empty body, got %q", tr.ResponseText())
			}
		})
	}
}

func TestMIMEOverrideSentAsAccept(t *testing.T) {
	transports := []Transport{NewRestyTransport(), NewNetHTTPTransport(nil)}
	for _, tr := range transports {
		accepts := make(chan string, 1)
		srv := newStatusServer(t, accepts)

		mo, ok := tr.(MIMEOverrider)
		if !ok {
			t.Fatalf("%T does not implement MIMEOverrider", tr)
		}
		mo.OverrideMimeType("text/xml")
		runGet(t, tr, srv.URL+"/status.json")

		if accept := <-accepts; accept != "text/xml" {
			t.Fatalf("%T sent Accept %q", tr, accept)
		}
	}

	if _, ok := Transport(NewRawConnTransport()).(MIMEOverrider); ok {
		t.Fatalf("rawconn transport should not expose a MIME override")
	}
}

func TestOpenAndSendRejectMisuse(t *testing.T) {
	tr := NewNetHTTPTransport(nil)
	if err := tr.Send(nil); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Send before Open: got %v", err)
	}
	if err := tr.Open(http.MethodGet, "http://127.0.0.1:1/"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := tr.Open(http.MethodGet, "http://127.0.0.1:1/"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second Open: got %v", err)
	}
}

func TestConstructorsKeepOrderAndRejectUnknown(t *testing.T) {
	cs, err := Constructors([]string{"RawConn", "resty"})
	if err != nil {
		t.Fatalf("Constructors: %v", err)
	}
	if len(cs) != 2 || cs[0].Name != TransportRawConn || cs[1].Name != TransportResty {
		t.Fatalf("unexpected constructors %#v", cs)
	}

	if _, err := Constructors([]string{"activex"}); err == nil {
		t.Fatalf("expected error for unknown transport")
	}
}

func TestReadyStateString(t *testing.T) {
	if StateHeadersReceived.String() != "HEADERS_RECEIVED" || ReadyState(42).String() != "UNKNOWN" {
		t.Fatalf("unexpected ReadyState strings")
	}
}

func TestRestyTransportsReuseConnections(t *testing.T) {
	var opened atomic.Int32
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"x":1}`))
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			opened.Add(1)
		}
	}
	srv.Start()
	t.Cleanup(srv.Close)
	t.Cleanup(CloseIdleConnections)

	first, second := NewRestyTransport(), NewRestyTransport()
	if first.client != second.client {
		t.Fatalf("resty transports must share one client")
	}

	const requests = 20
	for i := 0; i < requests; i++ {
		tr := NewRestyTransport()
		runGet(t, tr, srv.URL+"/status.json")
		if tr.Status() != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, tr.Status())
		}
	}

	if got := opened.Load(); got != 1 {
		t.Fatalf("expected %d sequential requests to share 1 connection, opened %d", requests, got)
	}
}
