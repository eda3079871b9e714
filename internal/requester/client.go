// Package requester issues single asynchronous GET requests over the first
// available transport and tracks whether one is outstanding.
package requester

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/samvad-hq/samvad-status-poller/internal/logger"
	"github.com/samvad-hq/samvad-status-poller/pkg/httpclient"
)

const (
	statusOK = http.StatusOK

	// DefaultMIMEOverride asks transports to treat the body as XML-compatible text.
	DefaultMIMEOverride = "text/xml"

	giveUpMessage = "Giving up: cannot create an HTTP transport instance"
)

// ErrTransportUnavailable is returned when no transport could be constructed.
var ErrTransportUnavailable = errors.New("no http transport available")

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	Constructors []httpclient.Constructor
	Parser       Parser
	Notifier     Notifier
	Logger       logger.Logger
	MIMEOverride string
	// BaseURL resolves relative request URLs such as "/timerdata.sts". Without it
	// relative URLs are sent as-is and fail at the transport (status 0).
	BaseURL string
	// ReleaseOnTransportFailure clears the in-flight flag when no transport could
	// be built. By default the flag stays set and the client reports busy until the
	// next successful completion.
	ReleaseOnTransportFailure bool
}

// Client starts requests and owns the in-flight flag.
type Client struct {
	constructors     []httpclient.Constructor
	parser           Parser
	notifier         Notifier
	log              logger.Logger
	mime             string
	base             *url.URL
	releaseOnFailure bool

	inFlight atomic.Bool
}

// New builds a Client from opts.
func New(opts Options) *Client {
	log := logger.Ensure(opts.Logger)

	c := &Client{
		constructors:     opts.Constructors,
		parser:           opts.Parser,
		notifier:         opts.Notifier,
		log:              log,
		mime:             opts.MIMEOverride,
		releaseOnFailure: opts.ReleaseOnTransportFailure,
	}
	if c.constructors == nil {
		c.constructors = httpclient.DefaultConstructors()
	}
	if c.parser == nil {
		c.parser = ParserFunc(func(string) {})
	}
	if c.notifier == nil {
		c.notifier = logNotifier{log: log}
	}
	if c.mime == "" {
		c.mime = DefaultMIMEOverride
	}
	if opts.BaseURL != "" {
		if base, err := url.Parse(opts.BaseURL); err == nil && base.IsAbs() {
			c.base = base
		} else {
			log.WarnObj("ignoring base url", "request_config", map[string]any{"base_url": opts.BaseURL})
		}
	}
	return c
}

// InFlight reports whether a request was started and has not reached DONE.
// It records state only; it does not stop overlapping requests.
func (c *Client) InFlight() bool { return c.inFlight.Load() }

// Initiate starts a GET for target and returns immediately. The parser runs once
// the response arrives with status 200.
func (c *Client) Initiate(target string) (*Handle, error) {
	c.inFlight.Store(true)
	target = c.resolve(target)

	name, tr, err := c.selectTransport()
	if err != nil {
		c.notifier.Alert(giveUpMessage)
		c.log.ErrorObj("request transport unavailable", "request_error", map[string]any{
			"url":   target,
			"error": err.Error(),
		})
		if c.releaseOnFailure {
			c.inFlight.Store(false)
		}
		return nil, fmt.Errorf("initiate %s: %w", target, err)
	}

	if mo, ok := tr.(httpclient.MIMEOverrider); ok {
		mo.OverrideMimeType(c.mime)
	}

	h := newHandle(uuid.NewString(), target, name, tr)
	tr.OnStateChange(func() { c.onStateChange(h) })

	if err := tr.Open(http.MethodGet, target); err != nil {
		c.inFlight.Store(false)
		return nil, fmt.Errorf("open %s: %w", target, err)
	}
	if err := tr.Send(nil); err != nil {
		c.inFlight.Store(false)
		return nil, fmt.Errorf("send %s: %w", target, err)
	}

	c.log.DebugObj("request sent", "request", map[string]any{
		"id":        h.ID(),
		"url":       target,
		"transport": name,
	})
	return h, nil
}

// resolve applies the base URL to relative references. Unparseable input is
// passed through unchanged.
func (c *Client) resolve(raw string) string {
	if c.base == nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil || ref.IsAbs() {
		return raw
	}
	return c.base.ResolveReference(ref).String()
}

// onStateChange runs on every transition; only the first DONE has effects.
func (c *Client) onStateChange(h *Handle) {
	if h.tr.ReadyState() != httpclient.StateDone {
		return
	}

	res := Result{Status: h.tr.Status(), Body: h.tr.ResponseText()}
	h.resolve(res, func() {
		if res.OK() {
			c.parser.ParseVars(res.Body)
		}
		c.inFlight.Store(false)
		c.log.DebugObj("request completed", "request", map[string]any{
			"id":     h.ID(),
			"url":    h.URL(),
			"status": res.Status,
		})
	})
}

// selectTransport returns the first constructor that succeeds.
func (c *Client) selectTransport() (string, httpclient.Transport, error) {
	errs := []error{ErrTransportUnavailable}
	for _, ctor := range c.constructors {
		tr, err := construct(ctor)
		if err == nil {
			return ctor.Name, tr, nil
		}
		c.log.DebugObj("transport attempt failed", "transport_attempt", map[string]any{
			"transport": ctor.Name,
			"error":     err.Error(),
		})
		errs = append(errs, err)
	}
	return "", nil, errors.Join(errs...)
}

// construct converts a panicking or empty constructor into an error.
func construct(ctor httpclient.Constructor) (tr httpclient.Transport, err error) {
	if ctor.New == nil {
		return nil, fmt.Errorf("%s: %w", ctor.Name, httpclient.ErrUnavailable)
	}
	defer func() {
		if r := recover(); r != nil {
			tr, err = nil, fmt.Errorf("%s: constructor panic: %v", ctor.Name, r)
		}
	}()

	tr, err = ctor.New()
	if err == nil && tr == nil {
		err = fmt.Errorf("%s: %w", ctor.Name, httpclient.ErrUnavailable)
	}
	return tr, err
}

type logNotifier struct {
	log logger.Logger
}

func (n logNotifier) Alert(msg string) {
	n.log.ErrorObj("request alert", "alert", msg)
}
