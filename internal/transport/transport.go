package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"feedloom/internal/types"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "feedloom/1.0 (+https://github.com/feedloom/feedloom)"

	maxBodySize = 8 << 20
)

type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport sends provider requests through the shared limiter with a
// fixed per-call timeout and classifies failures into the types taxonomy.
type Transport struct {
	client    *http.Client
	limiter   Limiter
	timeout   time.Duration
	userAgent string
}

type Option func(*Transport)

func WithClient(client *http.Client) Option {
	return func(t *Transport) {
		if client != nil {
			t.client = client
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(t *Transport) {
		if ua != "" {
			t.userAgent = ua
		}
	}
}

func New(limiter Limiter, timeout time.Duration, opts ...Option) *Transport {
	if limiter == nil {
		limiter = NoopLimiter()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	t := &Transport{
		client:    &http.Client{},
		limiter:   limiter,
		timeout:   timeout,
		userAgent: DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Transport) Timeout() time.Duration {
	return t.timeout
}

// Get issues a GET with optional extra headers.
func (t *Transport) Get(ctx context.Context, provider, url string, headers http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &types.TransportError{Provider: provider, URL: url, Cause: fmt.Errorf("failed to create request: %w", err)}
	}

	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	return t.Send(provider, req)
}

func (t *Transport) Send(provider string, req *http.Request) (*Response, error) {
	url := req.URL.String()
	parent := req.Context()

	release, err := t.limiter.Wait(parent)
	if err != nil {
		return nil, &types.TransportError{Provider: provider, URL: url, Cause: fmt.Errorf("rate limiter: %w", err)}
	}
	defer release()

	ctx, cancel := context.WithTimeout(parent, t.timeout)
	defer cancel()

	req = req.WithContext(ctx)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, t.classify(parent, ctx, provider, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, t.classify(parent, ctx, provider, url, fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &types.RateLimitedError{
			Provider:   provider,
			URL:        url,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &types.StatusError{Provider: provider, URL: url, StatusCode: resp.StatusCode}
	}

	return &Response{
		URL:        url,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (t *Transport) classify(parent, ctx context.Context, provider, url string, err error) error {
	base := types.TransportError{Provider: provider, URL: url, Cause: err}

	if parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &types.TimeoutError{TransportError: base, Timeout: t.timeout}
	}

	return &base
}

// parseRetryAfter accepts both delta-seconds and HTTP-date forms.
func parseRetryAfter(raw string, now time.Time) time.Duration {
	if raw == "" {
		return 0
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}

	if at, err := http.ParseTime(raw); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}

	return 0
}

// Scope is a per-fetch view of the transport for code that needs a plain
// *http.Client, such as scripted providers. Calls made through its client
// share the limiter, get the per-call timeout once admitted, and are
// cancelled with the scope's context. A 429 answer is handed to the caller
// unchanged and remembered for RateLimited.
type Scope struct {
	ctx       context.Context
	provider  string
	transport *Transport

	mu          sync.Mutex
	rateLimited *types.RateLimitedError
}

func (t *Transport) NewScope(ctx context.Context, provider string) *Scope {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Scope{ctx: ctx, provider: provider, transport: t}
}

func (s *Scope) Client() *http.Client {
	base := s.transport.client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{Transport: &scopedRoundTripper{scope: s, base: base}}
}

// RateLimited returns the last 429 seen by the scope's client, or nil.
func (s *Scope) RateLimited() *types.RateLimitedError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rateLimited
}

func (s *Scope) record(err *types.RateLimitedError) {
	s.mu.Lock()
	s.rateLimited = err
	s.mu.Unlock()
}

type scopedRoundTripper struct {
	scope *Scope
	base  http.RoundTripper
}

func (rt *scopedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	s := rt.scope
	t := s.transport

	// requests built without a context inherit the scope's
	parent := req.Context()
	if parent == context.Background() {
		parent = s.ctx
	}

	release, err := t.limiter.Wait(parent)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(parent, t.timeout)
	stop := context.AfterFunc(s.ctx, cancel)

	req = req.Clone(ctx)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := rt.base.RoundTrip(req)
	if err != nil {
		stop()
		cancel()
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		s.record(&types.RateLimitedError{
			Provider:   s.provider,
			URL:        req.URL.String(),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		})
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: func() { stop(); cancel() }}
	return resp, nil
}

// cancelOnClose keeps the call's timeout context alive until the body has
// been consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel func()
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
