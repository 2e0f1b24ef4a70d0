package transport

import (
	"context"
	"encoding/json"
	"fmt"
)

// Result pairs a decoded response with the ETag the server returned for it.
type Result[T any] struct {
	Result T
	ETag   string
}

// GetJSON issues a GET and decodes the JSON response into T.
func GetJSON[T any](ctx context.Context, c *Client, path, token string) (Result[T], error) {
	resp, err := c.Get(ctx, path, token)
	if err != nil {
		return Result[T]{}, err
	}
	return decode[T](resp)
}

// PostJSON issues a POST with a JSON body and decodes the JSON response into T.
func PostJSON[T any](ctx context.Context, c *Client, path string, body any, token string) (Result[T], error) {
	resp, err := c.Post(ctx, path, body, token)
	if err != nil {
		return Result[T]{}, err
	}
	return decode[T](resp)
}

// PutJSON issues a PUT with a JSON body and extra headers, decoding the JSON
// response into T.
func PutJSON[T any](ctx context.Context, c *Client, path string, body any, token string, headers map[string]string) (Result[T], error) {
	resp, err := c.Put(ctx, path, body, token, headers)
	if err != nil {
		return Result[T]{}, err
	}
	return decode[T](resp)
}

// DeleteJSON issues a DELETE and decodes the JSON response into T. Servers
// that answer a delete with an empty body yield the zero value of T.
func DeleteJSON[T any](ctx context.Context, c *Client, path, token string) (Result[T], error) {
	resp, err := c.Delete(ctx, path, token)
	if err != nil {
		return Result[T]{}, err
	}
	if len(resp.Body) == 0 {
		return Result[T]{ETag: resp.ETag}, nil
	}
	return decode[T](resp)
}

func decode[T any](resp *Response) (Result[T], error) {
	var value T
	if err := json.Unmarshal(resp.Body, &value); err != nil {
		return Result[T]{}, fmt.Errorf("failed to decode response body: %w", err)
	}
	return Result[T]{Result: value, ETag: resp.ETag}, nil
}
