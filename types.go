package collectorpro

import (
	"bytes"
	"net/http"
	"time"
)

// Middleware represents a middleware function
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// RequestDescriptor is a single logical request before it is sent.
type RequestDescriptor struct {
	Method   string
	Endpoint string
	URL      string
	Body     []byte
	Header   http.Header

	cache  *cacheControl
	decode     func([]byte) error
	decodeType string
}

// CacheCondition determines whether a request is cache-eligible when no
// per-call override is present.
type CacheCondition func(desc *RequestDescriptor) bool

// CacheKeyFunc derives the cache key of a request.
type CacheKeyFunc func(desc *RequestDescriptor) string

// RetryNotify is called before each backoff wait with the error that
// triggered the retry and the delay about to be slept.
type RetryNotify func(err error, attempt int, delay time.Duration)

// cacheControl holds the per-call cache overrides
type cacheControl struct {
	enabled *bool
	ttl     time.Duration
}

// Response is the buffered outcome of a successful request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Timestamp  time.Time
	Cached     bool
}

func (r *Response) clone() *Response {
	out := *r
	out.Header = r.Header.Clone()
	out.Body = bytes.Clone(r.Body)
	return &out
}

// Result wraps a decoded payload together with the time it was produced.
type Result[T any] struct {
	Data       T
	StatusCode int
	Timestamp  time.Time
	Cached     bool
}

// Option represents a configuration option
type Option func(*Client)

// RequestOption adjusts a single call.
type RequestOption func(*RequestDescriptor)
