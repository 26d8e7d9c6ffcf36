// Package collectorpro is the request layer of the CollectorPRO dashboard.
// It talks JSON to the CollectorPRO backend and adds:
//
//   - A TTL response cache for GET reads, pluggable across memory, bigcache and Redis
//   - Retries of transient failures with capped exponential backoff
//   - A per-attempt timeout
//   - Typed results via the generic Get / Post / Put / Delete helpers
//   - Optional coalescing of identical in-flight reads
//   - Middleware, rate limiting, Prometheus metrics and structured debug logging
//
// Every failure is a *ClientError whose Type is one of Timeout, Unauthorized,
// Forbidden, NotFound, BadRequest, ServerError or ParseError. 4xx responses
// and parse failures are returned after a single attempt; 5xx, network
// errors and timeouts are retried up to WithMaxRetries times. Only successful
// responses are ever cached.
//
// Typical usage:
//
//	client := collectorpro.New(
//	    collectorpro.WithBaseURL("https://api.collectorpro.example/v1"),
//	    collectorpro.WithMaxRetries(3),
//	    collectorpro.WithTimeout(10*time.Second),
//	    collectorpro.WithCache(5*time.Minute),
//	)
//	res, err := collectorpro.Get[Portfolio](ctx, client, "/portfolio/"+addr)
//	if errors.Is(err, collectorpro.ErrNotFound) {
//	    ...
//	}
//
// Clients are plain values; construct as many as needed.
package collectorpro
