package httpclient

import "errors"

// ReadyState is the progress phase of a single exchange.
type ReadyState int

const (
	StateUnsent ReadyState = iota
	StateOpened
	StateHeadersReceived
	StateLoading
	StateDone
)

func (s ReadyState) String() string {
	switch s {
	case StateUnsent:
		return "UNSENT"
	case StateOpened:
		return "OPENED"
	case StateHeadersReceived:
		return "HEADERS_RECEIVED"
	case StateLoading:
		return "LOADING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// ErrUnavailable is returned by a constructor whose transport cannot be built in this environment.
var ErrUnavailable = errors.New("transport unavailable")

// ErrInvalidState is returned when Open or Send is called out of order.
var ErrInvalidState = errors.New("invalid transport state")

// Transport abstracts one asynchronous HTTP exchange so callers can swap implementations.
// A Transport is single use: Open once, Send once.
type Transport interface {
	Open(method, url string) error
	Send(body []byte) error
	// OnStateChange registers fn to run after every ReadyState transition.
	OnStateChange(fn func())
	ReadyState() ReadyState
	// Status is the response status code, 0 until headers arrive or on transport failure.
	Status() int
	// ResponseText is the response body, valid once DONE.
	ResponseText() string
}

// MIMEOverrider is implemented by transports that accept an advisory response MIME type.
type MIMEOverrider interface {
	OverrideMimeType(mime string)
}

// Constructor builds a named transport. New returns an error (usually wrapping
// ErrUnavailable) when the transport cannot be created.
type Constructor struct {
	Name string
	New  func() (Transport, error)
}
