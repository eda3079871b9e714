package httpclient

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
)

// TransportRawConn names the hand-framed HTTP/1.1 transport.
const TransportRawConn = "rawconn"

// RawConnTransport writes an HTTP/1.1 request directly onto a TCP (or TLS) connection
// and reads the reply with http.ReadResponse. It does not support MIME overrides.
type RawConnTransport struct {
	*exchange
	dial func(network, addr string, useTLS bool) (net.Conn, error)
}

// NewRawConnTransport creates a transport dialing with net.Dial / tls.Dial.
func NewRawConnTransport() *RawConnTransport {
	t := &RawConnTransport{dial: dialConn}
	t.exchange = newExchange(TransportRawConn, t.roundTrip)
	return t
}

func dialConn(network, addr string, useTLS bool) (net.Conn, error) {
	if useTLS {
		return tls.Dial(network, addr, nil)
	}
	return net.Dial(network, addr)
}

func (r *RawConnTransport) roundTrip(method, rawURL string, body []byte, _ string) (int, io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, nil, fmt.Errorf("parse url: %w", err)
	}

	useTLS := false
	port := u.Port()
	switch u.Scheme {
	case "http":
		if port == "" {
			port = "80"
		}
	case "https":
		useTLS = true
		if port == "" {
			port = "443"
		}
	default:
		return 0, nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	conn, err := r.dial("tcp", net.JoinHostPort(u.Hostname(), port), useTLS)
	if err != nil {
		return 0, nil, fmt.Errorf("dial %s: %w", u.Host, err)
	}

	w := bufio.NewWriter(conn)
	fmt.Fprintf(w, "%s %s HTTP/1.1\r\n", method, u.RequestURI())
	fmt.Fprintf(w, "Host: %s\r\n", u.Host)
	fmt.Fprintf(w, "User-Agent: samvad-status-poller\r\n")
	fmt.Fprintf(w, "Connection: close\r\n")
	if len(body) > 0 {
		fmt.Fprintf(w, "Content-Length: %s\r\n", strconv.Itoa(len(body)))
	}
	fmt.Fprintf(w, "\r\n")
	if len(body) > 0 {
		w.Write(body)
	}
	if err := w.Flush(); err != nil {
		conn.Close()
		return 0, nil, fmt.Errorf("write request: %w", err)
	}

	req := &http.Request{Method: method, URL: u}
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		conn.Close()
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, connBody{ReadCloser: resp.Body, conn: conn}, nil
}

// connBody closes the connection together with the response body.
type connBody struct {
	io.ReadCloser
	conn net.Conn
}

func (c connBody) Close() error {
	err := c.ReadCloser.Close()
	if cerr := c.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
