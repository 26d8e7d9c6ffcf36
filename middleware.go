package collectorpro

import (
	"context"
	"fmt"
	"net/http"
)

// TokenSource supplies the session token attached to outgoing requests. The
// token is opaque to the client.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

// BearerTokenMiddleware sets "Authorization: Bearer <token>". An empty token
// sends the request unauthenticated; a source error aborts the attempt.
func BearerTokenMiddleware(source TokenSource) Middleware {
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		token, err := source.Token(req.Context())
		if err != nil {
			return nil, fmt.Errorf("obtain session token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return next.RoundTrip(req)
	}
}

// HeaderMiddleware sets a fixed header on every request.
func HeaderMiddleware(key, value string) Middleware {
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		req.Header.Set(key, value)
		return next.RoundTrip(req)
	}
}

// UserAgentMiddleware sets the User-Agent unless the request already has one.
func UserAgentMiddleware(userAgent string) Middleware {
	if userAgent == "" {
		userAgent = UserAgent()
	}
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", userAgent)
		}
		return next.RoundTrip(req)
	}
}
