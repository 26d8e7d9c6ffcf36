package collectorpro

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"reflect"
)

// Get fetches endpoint and decodes the JSON body into T. A body that does not
// decode fails with ParseError and is not cached.
func Get[T any](ctx context.Context, c *Client, endpoint string, opts ...RequestOption) (Result[T], error) {
	return doTyped[T](ctx, c, http.MethodGet, endpoint, nil, opts)
}

// Post sends body as JSON and decodes the response into T.
func Post[T any](ctx context.Context, c *Client, endpoint string, body interface{}, opts ...RequestOption) (Result[T], error) {
	return doTyped[T](ctx, c, http.MethodPost, endpoint, body, opts)
}

// Put sends body as JSON and decodes the response into T.
func Put[T any](ctx context.Context, c *Client, endpoint string, body interface{}, opts ...RequestOption) (Result[T], error) {
	return doTyped[T](ctx, c, http.MethodPut, endpoint, body, opts)
}

// Delete removes endpoint and decodes the response into T. Use
// json.RawMessage for T when the server answers with an empty body.
func Delete[T any](ctx context.Context, c *Client, endpoint string, opts ...RequestOption) (Result[T], error) {
	return doTyped[T](ctx, c, http.MethodDelete, endpoint, nil, opts)
}

func doTyped[T any](ctx context.Context, c *Client, method, endpoint string, body interface{}, opts []RequestOption) (Result[T], error) {
	desc, err := c.NewRequest(method, endpoint, body, opts...)
	if err != nil {
		return Result[T]{}, err
	}

	var (
		out     T
		decoded bool
	)
	desc.decode = func(b []byte) error {
		decoded = true
		return decodeJSON(b, &out)
	}
	desc.decodeType = typeKey[T]()

	start := c.clock.Now()
	resp, err := c.Do(ctx, desc)
	if err != nil {
		return Result[T]{}, err
	}

	// cache hits and shared fetches bypass the decode hook
	if !decoded || resp.Cached {
		out = *new(T)
		if err := decodeJSON(resp.Body, &out); err != nil {
			cerr := c.newError(ErrorTypeParse, "response body does not match the expected shape", err, "", desc, 0, resp.StatusCode, start)
			return Result[T]{}, cerr
		}
	}

	return Result[T]{
		Data:       out,
		StatusCode: resp.StatusCode,
		Timestamp:  resp.Timestamp,
		Cached:     resp.Cached,
	}, nil
}

func typeKey[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	return t.PkgPath() + "." + t.String()
}

func decodeJSON(body []byte, v interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}
