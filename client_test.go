package collectorpro

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON  = "application/json"
	portfolioPayload = `{"address":"0x0b2a3299cc857e29","moments":3,"value":412.5}`
)

type portfolio struct {
	Address string  `json:"address"`
	Moments int     `json:"moments"`
	Value   float64 `json:"value"`
}

// countingServer answers every request with status and body and counts hits.
func countingServer(t *testing.T, status int, body string) (*httptest.Server, *int64) {
	t.Helper()
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func newTestClient(server *httptest.Server, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(server.URL),
		WithRetryBaseDelay(time.Millisecond),
		WithMaxRetryDelay(10 * time.Millisecond),
		WithTimeout(time.Second),
	}
	return New(append(base, opts...)...)
}

func TestNew(t *testing.T) {
	client := New()

	require.True(t, client.IsValid(), "unexpected validation error: %v", client.ValidationError())
	assert.Equal(t, 3, client.maxRetries)
	assert.Equal(t, time.Second, client.retryBaseDelay)
	assert.Equal(t, 10*time.Second, client.maxRetryDelay)
	assert.Equal(t, 10*time.Second, client.timeout)
	assert.Equal(t, 5*time.Minute, client.cacheTTL)
	assert.IsType(t, &InMemoryCache{}, client.cache)
	assert.Equal(t, CacheStats{Entries: 0, Enabled: true}, client.CacheStats())
}

func TestNewReportsInvalidConfiguration(t *testing.T) {
	client := New(WithMaxRetries(-1), WithTimeout(0))

	assert.False(t, client.IsValid())
	assert.ErrorIs(t, client.ValidationError(), ErrInvalidConfig)
}

func TestGetJoinsBaseURLAndEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/portfolio/0x0b2a3299cc857e29", r.URL.Path)
		assert.Equal(t, contentTypeJSON, r.Header.Get("Accept"))
		assert.Equal(t, contentTypeJSON, r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(portfolioPayload))
	}))
	defer server.Close()

	client := New(WithBaseURL(server.URL + "/api"))
	resp, err := client.Get(context.Background(), "/portfolio/0x0b2a3299cc857e29")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, portfolioPayload, string(resp.Body))
	assert.False(t, resp.Cached)
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base     string
		endpoint string
		expected string
	}{
		{"https://api.example.com", "/offers", "https://api.example.com/offers"},
		{"https://api.example.com/", "/offers", "https://api.example.com/offers"},
		{"https://api.example.com/v1", "/offers?address=0x1", "https://api.example.com/v1/offers?address=0x1"},
		{"https://api.example.com", "https://other.example.com/x", "https://other.example.com/x"},
		{"", "http://localhost/x", "http://localhost/x"},
	}

	for _, tt := range tests {
		client := New(WithBaseURL(tt.base))
		assert.Equal(t, tt.expected, client.resolveURL(tt.endpoint))
	}
}

func TestPostSendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var got map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "moment-42", got["momentId"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"offer-1"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	resp, err := client.Post(context.Background(), "/offers", map[string]string{"momentId": "moment-42"})

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCacheHitAvoidsNetwork(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, portfolioPayload)
	client := newTestClient(server)

	first, err := client.Get(context.Background(), "/portfolio/0x1")
	require.NoError(t, err)
	second, err := client.Get(context.Background(), "/portfolio/0x1")
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(hits))
	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, first.Timestamp, second.Timestamp)
}

func TestCacheEntryExpires(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, portfolioPayload)
	mockClock := clock.NewMock()
	client := newTestClient(server, WithClock(mockClock), WithCache(time.Minute))

	_, err := client.Get(context.Background(), "/portfolio/0x1")
	require.NoError(t, err)

	mockClock.Add(59 * time.Second)
	resp, err := client.Get(context.Background(), "/portfolio/0x1")
	require.NoError(t, err)
	assert.True(t, resp.Cached)

	mockClock.Add(2 * time.Second)
	resp, err = client.Get(context.Background(), "/portfolio/0x1")
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.Equal(t, int64(2), atomic.LoadInt64(hits))
}

func TestMutatingMethodsBypassCache(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, `{"ok":true}`)
	client := newTestClient(server)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.Post(ctx, "/watchlist", map[string]string{"id": "1"})
		require.NoError(t, err)
		_, err = client.Put(ctx, "/watchlist/1", map[string]string{"id": "1"})
		require.NoError(t, err)
		_, err = client.Delete(ctx, "/watchlist/1")
		require.NoError(t, err)
	}

	assert.Equal(t, int64(6), atomic.LoadInt64(hits))
	assert.Equal(t, 0, client.CacheStats().Entries)
}

func TestCacheEnabledReadPost(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, `{"results":[]}`)
	client := newTestClient(server)
	ctx := context.Background()
	query := map[string]string{"q": "lebron"}

	_, err := client.Post(ctx, "/search", query, WithCacheEnabled())
	require.NoError(t, err)
	resp, err := client.Post(ctx, "/search", query, WithCacheEnabled())
	require.NoError(t, err)
	assert.True(t, resp.Cached)

	// a different body is a different key
	_, err = client.Post(ctx, "/search", map[string]string{"q": "curry"}, WithCacheEnabled())
	require.NoError(t, err)

	// PUT can never be flagged as a read
	_, err = client.Put(ctx, "/search", query, WithCacheEnabled())
	require.NoError(t, err)
	_, err = client.Put(ctx, "/search", query, WithCacheEnabled())
	require.NoError(t, err)

	assert.Equal(t, int64(4), atomic.LoadInt64(hits))
}

func TestCacheDisabledPerCall(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, portfolioPayload)
	client := newTestClient(server)

	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), "/portfolio/0x1", WithCacheDisabled())
		require.NoError(t, err)
	}

	assert.Equal(t, int64(3), atomic.LoadInt64(hits))
	assert.Equal(t, 0, client.CacheStats().Entries)
}

func TestWithoutCache(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, portfolioPayload)
	client := newTestClient(server, WithoutCache())

	_, err := client.Get(context.Background(), "/portfolio/0x1")
	require.NoError(t, err)
	_, err = client.Get(context.Background(), "/portfolio/0x1")
	require.NoError(t, err)

	assert.Equal(t, int64(2), atomic.LoadInt64(hits))
	assert.Equal(t, CacheStats{}, client.CacheStats())
	assert.Equal(t, 0, client.ClearExpiredCache())
	client.ClearCache()
}

func TestClientErrorStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
		kind     ErrorType
	}{
		{http.StatusUnauthorized, ErrUnauthorized, ErrorTypeUnauthorized},
		{http.StatusForbidden, ErrForbidden, ErrorTypeForbidden},
		{http.StatusNotFound, ErrNotFound, ErrorTypeNotFound},
		{http.StatusBadRequest, ErrBadRequest, ErrorTypeBadRequest},
		{http.StatusUnprocessableEntity, ErrBadRequest, ErrorTypeBadRequest},
		{http.StatusTooManyRequests, ErrBadRequest, ErrorTypeBadRequest},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server, hits := countingServer(t, tt.status, `{"error":"nope"}`)
			client := newTestClient(server, WithMaxRetries(3))

			resp, err := client.Get(context.Background(), "/portfolio/0x1")

			require.Error(t, err)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.False(t, IsTransient(err))
			assert.Equal(t, int64(1), atomic.LoadInt64(hits))
			assert.Equal(t, 0, client.CacheStats().Entries)

			var clientErr *ClientError
			require.True(t, errors.As(err, &clientErr))
			assert.Equal(t, tt.status, clientErr.StatusCode)
			assert.Equal(t, 1, clientErr.Attempt)
		})
	}
}

func TestRetriesTransientServerErrors(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&hits, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(portfolioPayload))
	}))
	defer server.Close()

	var (
		mu     sync.Mutex
		delays []time.Duration
	)
	client := New(
		WithBaseURL(server.URL),
		WithMaxRetries(3),
		WithRetryBaseDelay(2*time.Millisecond),
		WithMaxRetryDelay(50*time.Millisecond),
		WithRetryNotify(func(err error, attempt int, delay time.Duration) {
			assert.ErrorIs(t, err, ErrServerError)
			mu.Lock()
			delays = append(delays, delay)
			mu.Unlock()
		}),
	)

	resp, err := client.Get(context.Background(), "/portfolio/0x1")

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(3), atomic.LoadInt64(&hits))
	assert.Equal(t, []time.Duration{2 * time.Millisecond, 4 * time.Millisecond}, delays)
	assert.Equal(t, 1, client.CacheStats().Entries)
}

func TestRetryDelayIsCapped(t *testing.T) {
	client := New(WithRetryBaseDelay(time.Second), WithMaxRetryDelay(10*time.Second))

	expected := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second,
	}
	for attempt, want := range expected {
		assert.Equal(t, want, client.backoff.Delay(attempt), "attempt %d", attempt)
	}
}

func TestRetryExhaustion(t *testing.T) {
	server, hits := countingServer(t, http.StatusServiceUnavailable, `{"error":"down"}`)
	client := newTestClient(server, WithMaxRetries(2))

	_, err := client.Get(context.Background(), "/marketplace/stats")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerError)
	assert.Equal(t, int64(3), atomic.LoadInt64(hits))
	assert.Equal(t, 0, client.CacheStats().Entries)

	var clientErr *ClientError
	require.True(t, errors.As(err, &clientErr))
	assert.Equal(t, http.StatusServiceUnavailable, clientErr.StatusCode)
	assert.Equal(t, 3, clientErr.Attempt)
	assert.Equal(t, 2, clientErr.MaxRetries)
}

func slowServer(t *testing.T) (*httptest.Server, *int64) {
	t.Helper()
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestAttemptTimeout(t *testing.T) {
	server, hits := slowServer(t)
	client := newTestClient(server, WithTimeout(50*time.Millisecond), WithMaxRetries(0))

	start := time.Now()
	_, err := client.Get(context.Background(), "/portfolio/0x1")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.True(t, IsTransient(err))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int64(1), atomic.LoadInt64(hits))
	assert.Equal(t, 0, client.CacheStats().Entries)
}

func TestAttemptTimeoutIsRetried(t *testing.T) {
	server, hits := slowServer(t)
	client := newTestClient(server, WithTimeout(30*time.Millisecond), WithMaxRetries(1))

	_, err := client.Get(context.Background(), "/portfolio/0x1")

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, int64(2), atomic.LoadInt64(hits))
}

func TestCallerCancellationStopsRetries(t *testing.T) {
	server, hits := countingServer(t, http.StatusInternalServerError, `{}`)
	client := New(WithBaseURL(server.URL), WithMaxRetries(5), WithRetryBaseDelay(time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, "/portfolio/0x1")

	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(1), atomic.LoadInt64(hits))
}

func TestParseErrorIsNotRetriedOrCached(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, `<html>maintenance</html>`)
	client := newTestClient(server)

	_, err := client.Get(context.Background(), "/portfolio/0x1")

	assert.ErrorIs(t, err, ErrParse)
	assert.False(t, IsTransient(err))
	assert.Equal(t, int64(1), atomic.LoadInt64(hits))
	assert.Equal(t, 0, client.CacheStats().Entries)
}

func TestEmptyBodyIsAccepted(t *testing.T) {
	server, _ := countingServer(t, http.StatusNoContent, "")
	client := newTestClient(server)

	resp, err := client.Delete(context.Background(), "/offers/1")

	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, resp.Body)
}

func TestClearCacheIsIdempotent(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, portfolioPayload)
	client := newTestClient(server)
	ctx := context.Background()

	_, err := client.Get(ctx, "/portfolio/0x1")
	require.NoError(t, err)
	_, err = client.Get(ctx, "/portfolio/0x2")
	require.NoError(t, err)
	require.Equal(t, 2, client.CacheStats().Entries)

	client.ClearCache()
	assert.Equal(t, 0, client.CacheStats().Entries)
	client.ClearCache()
	assert.Equal(t, 0, client.CacheStats().Entries)

	_, err = client.Get(ctx, "/portfolio/0x1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), atomic.LoadInt64(hits))
}

func TestClearExpiredCacheKeepsFreshEntries(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, portfolioPayload)
	mockClock := clock.NewMock()
	client := newTestClient(server, WithClock(mockClock))
	ctx := context.Background()

	_, err := client.Get(ctx, "/portfolio/short", WithCacheTTL(time.Minute))
	require.NoError(t, err)
	_, err = client.Get(ctx, "/portfolio/long", WithCacheTTL(10*time.Minute))
	require.NoError(t, err)

	mockClock.Add(2 * time.Minute)

	assert.Equal(t, 1, client.ClearExpiredCache())
	assert.Equal(t, 1, client.CacheStats().Entries)

	resp, err := client.Get(ctx, "/portfolio/long")
	require.NoError(t, err)
	assert.True(t, resp.Cached)
	assert.Equal(t, int64(2), atomic.LoadInt64(hits))
}

func TestStartJanitor(t *testing.T) {
	server, _ := countingServer(t, http.StatusOK, portfolioPayload)
	mockClock := clock.NewMock()
	client := newTestClient(server, WithClock(mockClock), WithCache(time.Minute))

	_, err := client.Get(context.Background(), "/portfolio/0x1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client.StartJanitor(ctx, 30*time.Second)

	mockClock.Add(90 * time.Second)

	assert.Eventually(t, func() bool {
		return client.CacheStats().Entries == 0
	}, time.Second, 5*time.Millisecond)
}

func TestCoalescingSharesOneFetch(t *testing.T) {
	var hits int64
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		select {
		case arrived <- struct{}{}:
		default:
		}
		<-release
		_, _ = w.Write([]byte(portfolioPayload))
	}))
	defer server.Close()

	client := newTestClient(server, WithCoalescing())

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*Response, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = client.Get(context.Background(), "/marketplace/stats")
		}(i)
	}

	<-arrived
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.JSONEq(t, portfolioPayload, string(results[i].Body))
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&hits))
}

func TestCachedBodyIsIsolatedFromCallers(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, `{"id":42,"name":"A"}`)
	client := newTestClient(server)

	first, err := client.Get(context.Background(), "/moments/42")
	require.NoError(t, err)
	copy(first.Body, `{"id":99`)
	first.Header.Set("Content-Type", "text/plain")

	second, err := client.Get(context.Background(), "/moments/42")
	require.NoError(t, err)
	require.True(t, second.Cached)
	assert.JSONEq(t, `{"id":42,"name":"A"}`, string(second.Body))
	assert.Equal(t, contentTypeJSON, second.Header.Get("Content-Type"))

	copy(second.Body, `{"id":77`)
	third, err := client.Get(context.Background(), "/moments/42")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":42,"name":"A"}`, string(third.Body))
	assert.Equal(t, int64(1), atomic.LoadInt64(hits))
}

// blockingServer holds every request until release is closed.
func blockingServer(t *testing.T, body string) (*httptest.Server, chan struct{}, chan struct{}, *int64) {
	t.Helper()
	var hits int64
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		select {
		case arrived <- struct{}{}:
		default:
		}
		<-release
		w.Header().Set("Content-Type", contentTypeJSON)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, arrived, release, &hits
}

func TestCoalescedTypedParseErrorStaysWithTypedCaller(t *testing.T) {
	server, arrived, release, _ := blockingServer(t, `{"id":"not-a-number"}`)
	client := newTestClient(server, WithCoalescing(), WithMaxRetries(0))

	type moment struct {
		ID int `json:"id"`
	}

	var (
		wg       sync.WaitGroup
		typedErr error
		raw      *Response
		rawErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, typedErr = Get[moment](context.Background(), client, "/moments/1")
	}()
	<-arrived
	go func() {
		defer wg.Done()
		raw, rawErr = client.Get(context.Background(), "/moments/1")
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.ErrorIs(t, typedErr, ErrParse)
	require.NoError(t, rawErr)
	assert.JSONEq(t, `{"id":"not-a-number"}`, string(raw.Body))
}

func TestCoalescedCallersGetPrivateCopies(t *testing.T) {
	server, arrived, release, hits := blockingServer(t, portfolioPayload)
	client := newTestClient(server, WithCoalescing())

	var wg sync.WaitGroup
	results := make([]*Response, 2)
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = client.Get(context.Background(), "/marketplace/stats")
	}()
	<-arrived
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = client.Get(context.Background(), "/marketplace/stats")
	}()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	copy(results[0].Body, `{"address":"0xffffffffffffffff"`)
	results[0].Header.Set("Content-Type", "text/plain")

	assert.JSONEq(t, portfolioPayload, string(results[1].Body))
	assert.Equal(t, contentTypeJSON, results[1].Header.Get("Content-Type"))
	assert.Equal(t, int64(1), atomic.LoadInt64(hits))
}

func TestRateLimitWaitHonoursContext(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, portfolioPayload)
	client := newTestClient(server, WithRateLimit(0.001, 1), WithoutCache(), WithMaxRetries(0))

	_, err := client.Get(context.Background(), "/portfolio/0x1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Get(ctx, "/portfolio/0x1")

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, int64(1), atomic.LoadInt64(hits))
}

func TestExecuteMiddlewareOrder(t *testing.T) {
	server, _ := countingServer(t, http.StatusOK, `{}`)

	var order []string
	record := func(name string) Middleware {
		return func(req *http.Request, next RoundTripper) (*http.Response, error) {
			order = append(order, name+">")
			resp, err := next.RoundTrip(req)
			order = append(order, "<"+name)
			return resp, err
		}
	}

	client := newTestClient(server, WithMiddleware(record("outer"), record("inner")))
	_, err := client.Get(context.Background(), "/x")

	require.NoError(t, err)
	assert.Equal(t, []string{"outer>", "inner>", "<inner", "<outer"}, order)
}

func TestNetworkFailureIsServerError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := New(WithBaseURL(url), WithMaxRetries(1), WithRetryBaseDelay(time.Millisecond), WithMaxRetryDelay(time.Millisecond))
	_, err := client.Get(context.Background(), "/portfolio/0x1")

	assert.ErrorIs(t, err, ErrServerError)
	assert.True(t, IsTransient(err))
}
