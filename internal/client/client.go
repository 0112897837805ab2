package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/arjenou/5000React/internal/transport"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultAttempts = 3
	DefaultBackoff  = time.Second
	DefaultCacheTTL = 5 * time.Minute
)

// Kind classifies a failed call.
type Kind string

const (
	KindNetwork Kind = "network"
	KindTimeout Kind = "timeout"
	KindHTTP    Kind = "http"
	KindDecode  Kind = "decode"
)

// Result is what every call resolves to. Failures never surface as a Go
// error: Success is false and Error/Kind describe what went wrong.
type Result[T any] struct {
	Success    bool
	Data       T
	Pagination *transport.Pagination
	Message    string
	Error      string
	Kind       Kind
	Status     int
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded unless RawBody is set.
	Body        interface{}
	RawBody     []byte
	ContentType string
	// Cacheable GETs are served from the TTL cache and de-duplicated while in
	// flight. Joined callers share one fetch that ignores the first caller's
	// cancellation.
	Cacheable bool
	// Unwrapped responses carry the payload itself instead of the success envelope.
	Unwrapped bool
}

type callError struct {
	kind    Kind
	status  int
	message string
}

func (e *callError) Error() string {
	return e.message
}

type envelope struct {
	Success    bool                  `json:"success"`
	Data       json.RawMessage       `json:"data"`
	Pagination *transport.Pagination `json:"pagination"`
	Message    string                `json:"message"`
	Error      string                `json:"error"`
}

type Client struct {
	baseURL  string
	session  *Session
	http     *http.Client
	timeout  time.Duration
	attempts int
	wait     time.Duration
	cacheTTL time.Duration
	cache    *gocache.Cache
	inflight singleflight.Group
	log      *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each attempt, not the call as a whole.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithAttempts(n int) Option {
	return func(c *Client) { c.attempts = n }
}

func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.wait = d }
}

func WithCacheTTL(d time.Duration) Option {
	return func(c *Client) { c.cacheTTL = d }
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New builds a client for the API at baseURL. session may be nil for
// anonymous use.
func New(baseURL string, session *Session, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		session:  session,
		http:     &http.Client{},
		timeout:  DefaultTimeout,
		attempts: DefaultAttempts,
		wait:     DefaultBackoff,
		cacheTTL: DefaultCacheTTL,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.session == nil {
		c.session = NewSession()
	}
	if c.attempts < 1 {
		c.attempts = 1
	}
	c.cache = gocache.New(c.cacheTTL, 2*c.cacheTTL)
	return c
}

func (c *Client) Session() *Session {
	return c.session
}

// FlushCache drops every cached response.
func (c *Client) FlushCache() {
	c.cache.Flush()
}

// Call performs req and decodes the response payload into T.
func Call[T any](ctx context.Context, c *Client, req Request) Result[T] {
	var res Result[T]

	body, status, err := c.do(ctx, req)
	if err != nil {
		var ce *callError
		if errors.As(err, &ce) {
			res.Kind = ce.kind
			res.Status = ce.status
			res.Error = ce.message
		} else {
			res.Kind = KindNetwork
			res.Error = err.Error()
		}
		return res
	}
	res.Status = status

	if req.Unwrapped {
		if err := json.Unmarshal(body, &res.Data); err != nil {
			return decodeFailure(res, err)
		}
		res.Success = true
		return res
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return decodeFailure(res, err)
	}
	if !env.Success {
		res.Kind = KindHTTP
		res.Error = env.Error
		return res
	}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &res.Data); err != nil {
			return decodeFailure(res, err)
		}
	}
	res.Success = true
	res.Pagination = env.Pagination
	res.Message = env.Message
	return res
}

func decodeFailure[T any](res Result[T], err error) Result[T] {
	res.Kind = KindDecode
	res.Error = "invalid response: " + err.Error()
	return res
}

func (c *Client) do(ctx context.Context, req Request) ([]byte, int, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	if req.Cacheable && req.Method == http.MethodGet {
		key := cacheKey(req)
		if v, ok := c.cache.Get(key); ok {
			c.log.Debug("client cache: hit", slog.String("key", key))
			return v.([]byte), http.StatusOK, nil
		}
		// The shared fetch is detached from the caller that started it, so a
		// caller giving up does not fail the others. Each caller still stops
		// waiting when its own ctx ends.
		ch := c.inflight.DoChan(key, func() (interface{}, error) {
			body, _, err := c.fetch(context.WithoutCancel(ctx), req)
			if err != nil {
				return nil, err
			}
			c.cache.SetDefault(key, body)
			return body, nil
		})
		var res singleflight.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			return nil, 0, contextFailure(ctx.Err())
		}
		if res.Shared {
			c.log.Debug("client cache: joined in-flight request", slog.String("key", key))
		}
		if res.Err != nil {
			return nil, 0, res.Err
		}
		return res.Val.([]byte), http.StatusOK, nil
	}

	body, status, err := c.fetch(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	if req.Method != http.MethodGet {
		c.cache.Flush()
	}
	return body, status, nil
}

// fetch runs the request with retries. Network failures, timeouts and non-2xx
// statuses are all retried the same way.
func (c *Client) fetch(ctx context.Context, req Request) ([]byte, int, error) {
	payload, contentType, err := encodeBody(req)
	if err != nil {
		return nil, 0, &callError{kind: KindDecode, message: "encode request: " + err.Error()}
	}
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var (
		body    []byte
		status  int
		attempt int
	)
	operation := func() error {
		attempt++
		b, code, err := c.attempt(ctx, req.Method, target, payload, contentType)
		if err != nil {
			c.log.Debug("client request: attempt failed",
				slog.String("method", req.Method),
				slog.String("path", req.Path),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			return err
		}
		body, status = b, code
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.wait), uint64(c.attempts-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, 0, contextFailure(err)
		}
		return nil, 0, err
	}
	return body, status, nil
}

func (c *Client) attempt(ctx context.Context, method, target string, payload []byte, contentType string) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, 0, backoff.Permanent(&callError{kind: KindNetwork, message: err.Error()})
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token := c.session.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, classify(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, classify(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, &callError{kind: KindHTTP, status: resp.StatusCode, message: errorMessage(resp.StatusCode, body)}
	}
	return body, resp.StatusCode, nil
}

func contextFailure(err error) *callError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &callError{kind: KindTimeout, message: "request timed out"}
	}
	return &callError{kind: KindNetwork, message: "request canceled"}
}

func classify(ctx context.Context, err error) error {
	var ne net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &callError{kind: KindTimeout, message: "request timed out"}
	}
	return &callError{kind: KindNetwork, message: "network error: " + err.Error()}
}

func errorMessage(status int, body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
		return env.Error
	}
	return fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
}

func encodeBody(req Request) ([]byte, string, error) {
	if req.RawBody != nil {
		return req.RawBody, req.ContentType, nil
	}
	if req.Body == nil {
		return nil, "", nil
	}
	b, err := json.Marshal(req.Body)
	if err != nil {
		return nil, "", err
	}
	return b, "application/json", nil
}

// cacheKey is method + path + the encoded query; url.Values.Encode sorts by key.
func cacheKey(req Request) string {
	key := req.Method + " " + req.Path
	if len(req.Query) > 0 {
		key += "?" + req.Query.Encode()
	}
	return key
}
