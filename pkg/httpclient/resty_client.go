package httpclient

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// TransportResty names the resty-backed transport.
const TransportResty = "resty"

var (
	sharedRestyOnce sync.Once
	sharedResty     *resty.Client
)

// sharedRestyClient returns the process-wide client backing every RestyTransport,
// so keep-alive connections are pooled across requests.
func sharedRestyClient() *resty.Client {
	sharedRestyOnce.Do(func() { sharedResty = newRestyBaseClient(0) })
	return sharedResty
}

// CloseIdleConnections drops pooled connections held by the resty and net/http
// transports.
func CloseIdleConnections() {
	sharedRestyClient().GetClient().CloseIdleConnections()
	http.DefaultClient.CloseIdleConnections()
}

// RestyTransport runs an exchange through resty.Client.
type RestyTransport struct {
	*exchange
	client *resty.Client
}

// NewRestyTransport creates a transport with no client-side deadline. All
// RestyTransports share one client and its connection pool.
func NewRestyTransport() *RestyTransport {
	t := &RestyTransport{client: sharedRestyClient()}
	t.exchange = newExchange(TransportResty, t.roundTrip)
	return t
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

// OverrideMimeType sets the Accept header sent with the request.
func (r *RestyTransport) OverrideMimeType(mime string) { r.overrideMimeType(mime) }

func (r *RestyTransport) roundTrip(method, url string, body []byte, accept string) (int, io.ReadCloser, error) {
	req := r.client.R().SetDoNotParseResponse(true)
	if accept != "" {
		req.SetHeader("Accept", accept)
	}
	if len(body) > 0 {
		req.SetBody(bytes.NewReader(body))
	}
	resp, err := req.Execute(method, url)
	if err != nil {
		return 0, nil, err
	}
	raw := resp.RawBody()
	if raw == nil {
		raw = io.NopCloser(bytes.NewReader(nil))
	}
	return resp.StatusCode(), raw, nil
}
