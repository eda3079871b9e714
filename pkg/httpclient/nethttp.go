package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// TransportNetHTTP names the net/http transport.
const TransportNetHTTP = "nethttp"

// NetHTTPTransport runs an exchange through a net/http Client.
type NetHTTPTransport struct {
	*exchange
	client *http.Client
}

// NewNetHTTPTransport creates a transport using client, or http.DefaultClient when nil.
func NewNetHTTPTransport(client *http.Client) *NetHTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	t := &NetHTTPTransport{client: client}
	t.exchange = newExchange(TransportNetHTTP, t.roundTrip)
	return t
}

// OverrideMimeType sets the Accept header sent with the request.
func (n *NetHTTPTransport) OverrideMimeType(mime string) { n.overrideMimeType(mime) }

func (n *NetHTTPTransport) roundTrip(method, url string, body []byte, accept string) (int, io.ReadCloser, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, resp.Body, nil
}
