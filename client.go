package collectorpro

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/uxmeas/collectorpro-sub003/internal/backoff"
)

const maxResponseBodySize = 10 * 1024 * 1024

// Client issues JSON requests against one base URL, serving GET reads from a
// TTL cache and retrying transient failures with capped exponential backoff.
// Every attempt is bounded by the configured timeout. It is safe for
// concurrent use.
type Client struct {
	name              string
	baseURL           string
	httpClient        *http.Client
	defaultHeader     http.Header
	maxRetries        int
	retryBaseDelay    time.Duration
	maxRetryDelay     time.Duration
	backoffMultiplier float64
	jitter            float64
	backoffStrategy   backoff.Strategy
	backoff           *backoff.Calculator
	timeout           time.Duration
	middleware        []Middleware
	cache             Cache
	cacheDisabled     bool
	defaultCache      bool
	cacheTTL          time.Duration
	cacheKeyFunc      CacheKeyFunc
	cacheCondition    CacheCondition
	coalesce          bool
	group             singleflight.Group
	limiter           *rate.Limiter
	metrics           *MetricsCollector
	debug             *DebugConfig
	logger            Logger
	clock             clock.Clock
	retryNotify       RetryNotify
	validationError   error
}

// New constructs a Client using the provided functional options. A best effort
// validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		name:              "default",
		httpClient:        &http.Client{},
		defaultHeader:     make(http.Header),
		maxRetries:        3,
		retryBaseDelay:    time.Second,
		maxRetryDelay:     10 * time.Second,
		backoffMultiplier: 2.0,
		jitter:            0,
		backoffStrategy:   backoff.ExponentialStrategy{},
		timeout:           10 * time.Second,
		middleware:        []Middleware{},
		cacheTTL:          5 * time.Minute,
		cacheKeyFunc:      DefaultCacheKeyFunc,
		cacheCondition:    DefaultCacheCondition,
		debug:             DefaultDebugConfig(),
		logger:            NopLogger(),
		clock:             clock.New(),
	}

	for _, option := range options {
		option(client)
	}

	if client.cache == nil && !client.cacheDisabled {
		client.cache = NewInMemoryCacheWithClock(client.clock)
		client.defaultCache = true
	}
	client.backoff = backoff.NewCalculator(client.backoffStrategy, client.retryBaseDelay,
		client.maxRetryDelay, client.backoffMultiplier, client.jitter)

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Get performs a cache-eligible GET of endpoint.
func (c *Client) Get(ctx context.Context, endpoint string, opts ...RequestOption) (*Response, error) {
	desc, err := c.NewRequest(http.MethodGet, endpoint, nil, opts...)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, desc)
}

// Post sends body as JSON. Posts are never cached unless WithCacheEnabled
// marks the call as an idempotent read.
func (c *Client) Post(ctx context.Context, endpoint string, body interface{}, opts ...RequestOption) (*Response, error) {
	desc, err := c.NewRequest(http.MethodPost, endpoint, body, opts...)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, desc)
}

// Put sends body as JSON. Never cached.
func (c *Client) Put(ctx context.Context, endpoint string, body interface{}, opts ...RequestOption) (*Response, error) {
	desc, err := c.NewRequest(http.MethodPut, endpoint, body, opts...)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, desc)
}

// Delete performs a DELETE of endpoint. Never cached.
func (c *Client) Delete(ctx context.Context, endpoint string, opts ...RequestOption) (*Response, error) {
	desc, err := c.NewRequest(http.MethodDelete, endpoint, nil, opts...)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, desc)
}

// NewRequest builds a descriptor for endpoint relative to the base URL.
// body may be nil, []byte / json.RawMessage (sent verbatim) or any value
// encodable as JSON.
func (c *Client) NewRequest(method, endpoint string, body interface{}, opts ...RequestOption) (*RequestDescriptor, error) {
	desc := &RequestDescriptor{
		Method:   method,
		Endpoint: endpoint,
		URL:      c.resolveURL(endpoint),
		Header:   make(http.Header),
	}

	payload, err := encodeBody(body)
	if err != nil {
		return nil, &ClientError{
			Type:      ErrorTypeBadRequest,
			Message:   "failed to encode request body",
			Cause:     err,
			Method:    method,
			URL:       desc.URL,
			Endpoint:  endpoint,
			Timestamp: c.clock.Now(),
		}
	}
	desc.Body = payload

	desc.Header.Set("Content-Type", "application/json")
	desc.Header.Set("Accept", "application/json")
	for k, v := range c.defaultHeader {
		desc.Header[k] = append([]string(nil), v...)
	}
	for _, opt := range opts {
		opt(desc)
	}
	return desc, nil
}

func encodeBody(body interface{}) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return json.Marshal(b)
	}
}

func (c *Client) resolveURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if strings.HasSuffix(c.baseURL, "/") && strings.HasPrefix(endpoint, "/") {
		return c.baseURL + endpoint[1:]
	}
	return c.baseURL + endpoint
}

// Do executes a prepared descriptor: cache lookup, then the retrying fetch,
// then the cache store for cache-eligible successes.
func (c *Client) Do(ctx context.Context, desc *RequestDescriptor) (*Response, error) {
	start := c.clock.Now()
	endpoint := desc.Endpoint

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}

	if c.debugEnabled(c.debug.LogRequests) {
		c.logger.Debug("Starting request", "requestID", requestID, "method", desc.Method, "url", desc.URL)
	}

	c.metrics.RecordRequestStart(desc.Method, endpoint)
	defer c.metrics.RecordRequestEnd(desc.Method, endpoint)

	cacheEnabled := c.shouldCacheRequest(desc)

	var cacheKey string
	if cacheEnabled {
		cacheKey = c.cacheKeyFunc(desc)
		if entry, found := c.cache.Get(cacheKey); found {
			if c.debugEnabled(c.debug.LogCache) {
				c.logger.Debug("Cache hit", "requestID", requestID, "cacheKey", cacheKey)
			}
			c.metrics.RecordCacheHit(desc.Method, endpoint)
			c.metrics.RecordRequest(desc.Method, endpoint, entry.StatusCode, c.clock.Since(start))
			return responseFromCache(entry), nil
		}
		c.metrics.RecordCacheMiss(desc.Method, endpoint)
		if c.debugEnabled(c.debug.LogCache) {
			c.logger.Debug("Cache miss", "requestID", requestID, "cacheKey", cacheKey)
		}
	}

	fetch := func(ctx context.Context) (*Response, error) {
		resp, err := c.doWithRetry(ctx, desc, requestID, start)
		if err != nil {
			return nil, err
		}
		if cacheEnabled {
			ttl := c.getCacheTTLForRequest(desc)
			c.cache.Set(cacheKey, c.newCacheEntry(cacheKey, resp, ttl))
			if c.metrics != nil {
				c.metrics.RecordCacheSize(c.name, c.cache.Len())
			}
			if c.debugEnabled(c.debug.LogCache) {
				c.logger.Debug("Response cached", "requestID", requestID, "cacheKey", cacheKey, "ttl", ttl)
			}
		}
		return resp, nil
	}

	var (
		resp *Response
		err  error
	)
	if cacheEnabled && c.coalesce {
		resp, err = c.coalesced(ctx, desc, requestID, start, cacheKey, fetch)
	} else {
		resp, err = fetch(ctx)
	}

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		statusCode = clientErr.StatusCode
		c.metrics.RecordError(clientErr.Type, desc.Method, endpoint)
		if c.debugEnabled(c.debug.LogRequests) {
			c.logger.Warn("Request failed", "requestID", requestID, "kind", clientErr.Type, "error", clientErr.Error())
		}
	}
	c.metrics.RecordRequest(desc.Method, endpoint, statusCode, c.clock.Since(start))

	return resp, err
}

// coalesced collapses identical concurrent cache-eligible fetches onto one
// network call. The fetch runs detached from any single caller so that one
// caller cancelling does not fail the others.
func (c *Client) coalesced(ctx context.Context, desc *RequestDescriptor, requestID string, start time.Time, key string, fetch func(context.Context) (*Response, error)) (*Response, error) {
	// typed callers only share a flight with callers decoding the same type
	if desc.decodeType != "" {
		key += "\x00" + desc.decodeType
	}
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return fetch(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.metrics.RecordCoalesced(desc.Method, desc.Endpoint)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Response).clone(), nil
	case <-ctx.Done():
		return nil, c.newError(ErrorTypeTimeout, "request cancelled while waiting for shared fetch", ctx.Err(), requestID, desc, 0, 0, start)
	}
}

func (c *Client) doWithRetry(ctx context.Context, desc *RequestDescriptor, requestID string, start time.Time) (*Response, error) {
	var lastErr *ClientError

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if c.debugEnabled(c.debug.LogRetries) {
				c.logger.Info("Retry attempt", "requestID", requestID, "attempt", attempt, "maxRetries", c.maxRetries, "endpoint", desc.Endpoint)
			}
			c.metrics.RecordRetry(desc.Method, desc.Endpoint, attempt)
		}

		resp, err := c.attempt(ctx, desc, requestID, attempt, start)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsTransient(err) || ctx.Err() != nil || attempt == c.maxRetries {
			break
		}

		delay := c.backoff.Delay(attempt)
		if c.retryNotify != nil {
			c.retryNotify(err, attempt, delay)
		}
		if c.debugEnabled(c.debug.LogRetries) {
			c.logger.Info("Scheduling retry", "requestID", requestID, "attempt", attempt+1, "backoff", delay, "endpoint", desc.Endpoint, "error", err.Error())
		}

		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			lastErr = c.newError(ErrorTypeTimeout, "request cancelled during backoff", sleepErr, requestID, desc, attempt, 0, start)
			break
		}
	}

	if lastErr == nil {
		return nil, c.newError(ErrorTypeServer, "no attempt was made", nil, requestID, desc, 0, 0, start)
	}
	return nil, lastErr
}

// attempt performs one network round trip bounded by the client timeout.
// The body is read before the attempt context is released.
func (c *Client) attempt(ctx context.Context, desc *RequestDescriptor, requestID string, attempt int, start time.Time) (*Response, *ClientError) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.newError(ErrorTypeTimeout, "rate limiter wait aborted", err, requestID, desc, attempt, 0, start)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if desc.Body != nil {
		bodyReader = bytes.NewReader(desc.Body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, desc.Method, desc.URL, bodyReader)
	if err != nil {
		return nil, c.newError(ErrorTypeBadRequest, "invalid request", err, requestID, desc, attempt, 0, start)
	}
	req.Header = desc.Header.Clone()

	httpResp, err := c.executeMiddleware(req)
	if err != nil {
		return nil, c.transportError(ctx, attemptCtx, "network request failed", err, requestID, desc, attempt, start)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBodySize))
	if err != nil {
		return nil, c.transportError(ctx, attemptCtx, "failed to read response body", err, requestID, desc, attempt, start)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		kind := classifyStatus(httpResp.StatusCode)
		msg := fmt.Sprintf("unexpected status %d", httpResp.StatusCode)
		return nil, c.newError(kind, msg, nil, requestID, desc, attempt, httpResp.StatusCode, start)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && !json.Valid(trimmed) {
		return nil, c.newError(ErrorTypeParse, "response body is not valid JSON", nil, requestID, desc, attempt, httpResp.StatusCode, start)
	}
	if desc.decode != nil {
		if err := desc.decode(body); err != nil {
			return nil, c.newError(ErrorTypeParse, "response body does not match the expected shape", err, requestID, desc, attempt, httpResp.StatusCode, start)
		}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
		Body:       body,
		Timestamp:  c.clock.Now(),
	}, nil
}

func (c *Client) transportError(ctx, attemptCtx context.Context, msg string, cause error, requestID string, desc *RequestDescriptor, attempt int, start time.Time) *ClientError {
	switch {
	case ctx.Err() != nil:
		return c.newError(ErrorTypeTimeout, "request cancelled", ctx.Err(), requestID, desc, attempt, 0, start)
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		return c.newError(ErrorTypeTimeout, fmt.Sprintf("attempt exceeded %v", c.timeout), cause, requestID, desc, attempt, 0, start)
	default:
		return c.newError(ErrorTypeServer, msg, cause, requestID, desc, attempt, 0, start)
	}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := c.clock.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) executeMiddleware(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripperFunc(c.httpClient.Do)

	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

func (c *Client) newError(kind ErrorType, message string, cause error, requestID string, desc *RequestDescriptor, attempt, statusCode int, start time.Time) *ClientError {
	now := c.clock.Now()
	return &ClientError{
		Type:       kind,
		Message:    message,
		Cause:      cause,
		RequestID:  requestID,
		Method:     desc.Method,
		URL:        desc.URL,
		Endpoint:   desc.Endpoint,
		StatusCode: statusCode,
		Attempt:    attempt + 1,
		MaxRetries: c.maxRetries,
		Timestamp:  now,
		Duration:   now.Sub(start),
	}
}

func (c *Client) debugEnabled(flag bool) bool {
	return c.debug != nil && c.debug.Enabled && flag
}

// StartJanitor evicts expired cache entries every interval until ctx ends.
func (c *Client) StartJanitor(ctx context.Context, interval time.Duration) {
	if c.cache == nil || interval <= 0 {
		return
	}
	ticker := c.clock.Ticker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.ClearExpiredCache()
			}
		}
	}()
}

// BaseURL returns the prefix prepended to every endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}
