package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/acs/internal/shared"
	"golang.org/x/time/rate"
)

// ConnState is the connection state of a [Channel].
type ConnState int32

const (
	StateIdle ConnState = iota
	StateConnecting
	StateOpen
	StateErrored
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("ConnState(%d)", int32(s))
	}
}

const (
	DefaultPath              = "/sse/stream"
	DefaultReconnectInterval = 3 * time.Second
	DefaultBuffer            = 32
)

// StatusError is reported when the stream endpoint answers with a non-2xx status.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stream endpoint returned status %d", e.Status)
}

// Permanent reports whether reconnecting cannot help.
func (e *StatusError) Permanent() bool {
	return e.Status >= 400 && e.Status < 500
}

// Options configures [Open].
type Options struct {
	URL       string // absolute URL, or a path relative to BaseURL
	BaseURL   string
	FilterKey string // sent as the userId query parameter

	// Token returns the current access token, sent as the token query parameter.
	// It is called on every connection attempt.
	Token func() (string, error)

	HTTPClient        *http.Client
	Logger            *log.Logger
	ReconnectInterval time.Duration
	Buffer            int

	OnOpen  func()
	OnError func(err error)
	OnClose func()
}

// Channel is a long-lived server push connection delivering decoded events in arrival order.
type Channel struct {
	opts    Options
	url     string
	events  chan Event
	state   atomic.Int32
	limiter *rate.Limiter
	logger  *log.Logger

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	notifying atomic.Bool

	// reader outlives each connection and carries the last event id across reconnects.
	reader *Reader
}

// Open starts streaming in the background and returns immediately.
//
// The returned channel reconnects after network failures, server errors and
// end of stream. A 4xx response leaves it [StateErrored] until it is closed.
func Open(ctx context.Context, opts Options) (*Channel, error) {
	if opts.URL == "" {
		opts.URL = DefaultPath
	}
	endpoint, err := resolveURL(opts.URL, opts.BaseURL)
	if err != nil {
		return nil, err
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = DefaultReconnectInterval
	}
	if opts.Buffer < 0 {
		opts.Buffer = 0
	} else if opts.Buffer == 0 {
		opts.Buffer = DefaultBuffer
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Channel{
		opts:    opts,
		url:     endpoint,
		events:  make(chan Event, opts.Buffer),
		limiter: rate.NewLimiter(rate.Every(opts.ReconnectInterval), 1),
		logger:  shared.WithLogger(opts.Logger, "component", "live", "key", opts.FilterKey),
		cancel:  cancel,
		done:    make(chan struct{}),
		reader:  NewReader(http.NoBody),
	}
	c.setState(StateConnecting)

	go c.run(ctx)
	return c, nil
}

// Events delivers decoded events. It is closed once the channel stops.
func (c *Channel) Events() <-chan Event { return c.events }

// State returns the current connection state.
func (c *Channel) State() ConnState {
	if c == nil {
		return StateIdle
	}
	return ConnState(c.state.Load())
}

// Connected reports whether the stream is currently open.
func (c *Channel) Connected() bool { return c.State() == StateOpen }

func (c *Channel) setState(s ConnState) { c.state.Store(int32(s)) }

// Close stops the stream and waits for the reader to exit.
//
// It is safe to call more than once and on a nil or never-opened channel.
// Called from OnOpen or OnError, it returns without waiting and OnClose runs
// once the reader has exited.
func (c *Channel) Close() error {
	if c == nil || c.cancel == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.cancel()
		if c.notifying.Load() {
			go c.finish()
			return
		}
		c.finish()
	})
	return nil
}

func (c *Channel) finish() {
	<-c.done
	c.setState(StateIdle)
	if c.opts.OnClose != nil {
		c.opts.OnClose()
	}
}

// notify runs a callback on the reader goroutine.
func (c *Channel) notify(fn func()) {
	c.notifying.Store(true)
	defer c.notifying.Store(false)
	fn()
}

func (c *Channel) run(ctx context.Context) {
	defer func() {
		c.setState(StateIdle)
		close(c.events)
		close(c.done)
	}()

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}

		err := c.stream(ctx)
		if ctx.Err() != nil {
			return
		}

		c.setState(StateErrored)
		c.logger.Warn("stream interrupted", "error", err)
		if c.opts.OnError != nil {
			c.notify(func() { c.opts.OnError(err) })
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Permanent() {
			<-ctx.Done()
			return
		}
	}
}

// stream holds one connection open until it fails or ctx is canceled.
func (c *Channel) stream(ctx context.Context) error {
	c.setState(StateConnecting)

	token := ""
	if c.opts.Token != nil {
		t, err := c.opts.Token()
		if err != nil {
			return fmt.Errorf("failed to load access token: %w", err)
		}
		token = t
	}

	target, err := withQuery(c.url, c.opts.FilterKey, token)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if id := c.reader.LastEventID(); id != "" {
		req.Header.Set("Last-Event-ID", id)
	}

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode}
	}

	c.setState(StateOpen)
	c.logger.Debug("stream open")
	if c.opts.OnOpen != nil {
		c.notify(c.opts.OnOpen)
	}

	c.reader.Reset(resp.Body)
	for {
		frame, err := c.reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return shared.ErrStreamClosed
			}
			return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
		}

		if frame.Retry > 0 {
			c.limiter.SetLimit(rate.Every(frame.Retry))
		}
		if strings.TrimSpace(frame.Data) == "" {
			continue
		}

		ev, err := Decode(frame.Event, []byte(frame.Data))
		if err != nil {
			c.logger.Warn("discarding live update", "error", err)
			continue
		}

		select {
		case c.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// resolveURL returns raw when it is absolute, or joins it to base otherwise.
func resolveURL(raw, base string) (string, error) {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		if _, err := url.Parse(raw); err != nil {
			return "", fmt.Errorf("%w: stream url %q", shared.ErrInvalidConfig, raw)
		}
		return raw, nil
	}

	if base == "" {
		return "", fmt.Errorf("%w: relative stream url %q needs an api base url", shared.ErrInvalidConfig, raw)
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	joined := strings.TrimRight(base, "/") + raw
	if _, err := url.Parse(joined); err != nil {
		return "", fmt.Errorf("%w: stream url %q", shared.ErrInvalidConfig, joined)
	}
	return joined, nil
}

// withQuery adds the filter key and token to endpoint, keeping any existing parameters.
func withQuery(endpoint, key, token string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: stream url %q", shared.ErrInvalidConfig, endpoint)
	}
	q := u.Query()
	if key != "" {
		q.Set("userId", key)
	}
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
