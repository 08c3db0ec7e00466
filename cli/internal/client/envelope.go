package client

import (
	"context"
	"fmt"
)

// Envelope is the backend's response wrapper. Code CodeSuccess means success.
type Envelope[T any] struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data T      `json:"data"`
}

// call performs a request and unwraps the envelope, turning a non-success
// code into an *APIError.
func call[T any](ctx context.Context, c *Client, path string, opts *RequestOptions) (T, string, error) {
	var env Envelope[T]
	if err := c.Do(ctx, path, opts, &env); err != nil {
		var zero T
		return zero, "", err
	}
	if env.Code != CodeSuccess {
		var zero T
		return zero, env.Msg, &APIError{Code: env.Code, Message: env.Msg}
	}
	return env.Data, env.Msg, nil
}

func public(method string, body any) *RequestOptions {
	return &RequestOptions{Method: method, Body: body, SkipAuth: true}
}

func authed(method string, body any) *RequestOptions {
	return &RequestOptions{Method: method, Body: body}
}

func missingToken(op string) error {
	return fmt.Errorf("%w: %s response has no access token", ErrMalformedResponse, op)
}
