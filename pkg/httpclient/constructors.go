package httpclient

import (
	"fmt"
	"strings"
)

// DefaultOrder is the transport preference order used when none is configured:
// resty first, then plain net/http, then the hand-framed rawconn transport as the
// last fallback.
var DefaultOrder = []string{TransportResty, TransportNetHTTP, TransportRawConn}

// DefaultConstructors returns the built-in transports in DefaultOrder.
func DefaultConstructors() []Constructor {
	cs, _ := Constructors(DefaultOrder)
	return cs
}

// Constructors resolves names into constructors, keeping the given order.
func Constructors(names []string) ([]Constructor, error) {
	out := make([]Constructor, 0, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		c, ok := builtin(key)
		if !ok {
			return nil, fmt.Errorf("unknown transport %q", name)
		}
		out = append(out, c)
	}
	return out, nil
}

func builtin(name string) (Constructor, bool) {
	switch name {
	case TransportResty:
		return Constructor{Name: name, New: func() (Transport, error) { return NewRestyTransport(), nil }}, true
	case TransportNetHTTP:
		return Constructor{Name: name, New: func() (Transport, error) { return NewNetHTTPTransport(nil), nil }}, true
	case TransportRawConn:
		return Constructor{Name: name, New: func() (Transport, error) { return NewRawConnTransport(), nil }}, true
	default:
		return Constructor{}, false
	}
}
