// Package jsonrpc implements a minimal JSON-RPC 2.0 client over HTTP, enough
// to talk to a blockchain node: one call per request, UUID request ids, and
// server-side errors surfaced as wrapped Go errors.
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// ErrProviderReturnedError marks an error object returned by the remote
// JSON-RPC server, as opposed to a transport failure.
var ErrProviderReturnedError = errors.New("provider error")

// response is a JSON-RPC 2.0 response envelope.
type response struct {
	JsonRPC string `json:"jsonrpc"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Result json.RawMessage `json:"result"`
}

// Err converts the response's error object, if any, into a Go error wrapping
// ErrProviderReturnedError.
func (r response) Err() error {
	if r.Error == nil {
		return nil
	}

	return fmt.Errorf("%w: [%d] - %s", ErrProviderReturnedError, r.Error.Code, r.Error.Message)
}

// Client is the call surface the rest of the system depends on, kept to a
// single method so tests can swap in a mock.
type Client interface {
	// Fetch performs one JSON-RPC call and returns the raw result payload.
	// A transport failure, a malformed response, and a server error object
	// all come back as errors.
	Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// client sends requests to a single provider endpoint over the supplied HTTP
// client.
type client struct {
	providerEndpoint string
	httpClient       *http.Client
}

var _ Client = (*client)(nil)

// Fetch implements Client. Each request carries a fresh UUID id; responses
// are not matched by id because requests are never batched.
func (c *client) Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      uuid.NewString(),
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.providerEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var data response
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return nil, err
	}

	return data.Result, data.Err()
}

// NewClient creates a Client bound to the given provider endpoint.
func NewClient(httpClient *http.Client, providerEndpoint string) *client {
	return &client{
		providerEndpoint: providerEndpoint,
		httpClient:       httpClient,
	}
}
