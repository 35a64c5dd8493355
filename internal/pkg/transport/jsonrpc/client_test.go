package jsonrpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_Err(t *testing.T) {
	t.Run("no error object means no error", func(t *testing.T) {
		resp := response{JsonRPC: "2.0"}
		assert.NoError(t, resp.Err())
	})

	t.Run("error object wraps ErrProviderReturnedError", func(t *testing.T) {
		resp := response{
			JsonRPC: "2.0",
			Error: &struct {
				Code    int    `json:"code"`
				Message string `json:"message"`
			}{
				Code:    -32601,
				Message: "method not found",
			},
		}

		err := resp.Err()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProviderReturnedError)
		assert.Contains(t, err.Error(), "[-32601]")
		assert.Contains(t, err.Error(), "method not found")
	})
}

func TestClient_Fetch(t *testing.T) {
	t.Run("returns the raw result payload", func(t *testing.T) {
		var gotBody map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"id":      gotBody["id"],
				"result":  "0x10",
			})
		}))
		defer server.Close()

		c := NewClient(server.Client(), server.URL)

		result, err := c.Fetch(t.Context(), "eth_blockNumber")
		require.NoError(t, err)
		assert.Equal(t, `"0x10"`, string(result))

		assert.Equal(t, "2.0", gotBody["jsonrpc"])
		assert.Equal(t, "eth_blockNumber", gotBody["method"])
		assert.NotEmpty(t, gotBody["id"], "every request carries an id")
	})

	t.Run("marshals params as a positional array", func(t *testing.T) {
		var gotBody map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

			json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "result": nil})
		}))
		defer server.Close()

		c := NewClient(server.Client(), server.URL)

		_, err := c.Fetch(t.Context(), "eth_getBlockByHash", "0xhash", false)
		require.NoError(t, err)
		assert.Equal(t, []any{"0xhash", false}, gotBody["params"])
	})

	t.Run("surfaces a server error object", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"error":   map[string]any{"code": -32601, "message": "method not found"},
			})
		}))
		defer server.Close()

		c := NewClient(server.Client(), server.URL)

		result, err := c.Fetch(t.Context(), "eth_unknown")
		assert.ErrorIs(t, err, ErrProviderReturnedError)
		assert.Contains(t, err.Error(), "method not found")
		assert.Nil(t, result)
	})

	t.Run("rejects a malformed response body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("this is not json"))
		}))
		defer server.Close()

		c := NewClient(server.Client(), server.URL)

		result, err := c.Fetch(t.Context(), "eth_blockNumber")
		assert.Error(t, err)
		assert.Nil(t, result)
	})

	t.Run("propagates transport failures", func(t *testing.T) {
		server := httptest.NewServer(nil)
		endpoint := server.URL
		server.Close()

		c := NewClient(http.DefaultClient, endpoint)

		result, err := c.Fetch(t.Context(), "eth_blockNumber")
		assert.Error(t, err)
		assert.Nil(t, result)
	})
}
