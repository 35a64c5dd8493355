package ethereum

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/gabapcia/txwatch/internal/pkg/types"
	"github.com/gabapcia/txwatch/internal/txlifecycle"
	"github.com/gabapcia/txwatch/internal/txmanager"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestClient_SubmitRawTransaction(t *testing.T) {
	t.Run("returns the transaction hash", func(t *testing.T) {
		mockClient := new(rpcMock)
		mockClient.
			On("Fetch", mock.Anything, "eth_sendRawTransaction", "0xsignedpayload").
			Return(json.RawMessage(`"0xtxhash"`), nil)

		c := NewClient(mockClient)
		hash, err := c.SubmitRawTransaction(t.Context(), "0xsignedpayload")

		assert.NoError(t, err)
		assert.Equal(t, "0xtxhash", hash)

		mockClient.AssertExpectations(t)
	})

	t.Run("returns error when the node rejects the payload", func(t *testing.T) {
		mockClient := new(rpcMock)
		mockClient.
			On("Fetch", mock.Anything, "eth_sendRawTransaction", "0xbad").
			Return(nil, errors.New("invalid sender"))

		c := NewClient(mockClient)
		hash, err := c.SubmitRawTransaction(t.Context(), "0xbad")

		assert.Error(t, err)
		assert.Empty(t, hash)

		mockClient.AssertExpectations(t)
	})
}

func TestClient_SubmitTransaction(t *testing.T) {
	t.Run("sends the transaction fields for remote signing", func(t *testing.T) {
		tx := txmanager.Transaction{
			From:     "0xfrom",
			To:       "0xto",
			Value:    types.Hex("0xde0b6b3a7640000"),
			Gas:      types.Hex("0x5208"),
			GasPrice: types.Hex("0x3b9aca00"),
		}

		expectedReq := transactionRequest{
			From:     "0xfrom",
			To:       "0xto",
			Gas:      types.Hex("0x5208"),
			GasPrice: types.Hex("0x3b9aca00"),
			Value:    types.Hex("0xde0b6b3a7640000"),
		}

		mockClient := new(rpcMock)
		mockClient.
			On("Fetch", mock.Anything, "eth_sendTransaction", expectedReq).
			Return(json.RawMessage(`"0xtxhash"`), nil)

		c := NewClient(mockClient)
		hash, err := c.SubmitTransaction(t.Context(), tx)

		assert.NoError(t, err)
		assert.Equal(t, "0xtxhash", hash)

		mockClient.AssertExpectations(t)
	})

	t.Run("returns error when fetch fails", func(t *testing.T) {
		mockClient := new(rpcMock)
		mockClient.
			On("Fetch", mock.Anything, "eth_sendTransaction", mock.Anything).
			Return(nil, errors.New("fetch error"))

		c := NewClient(mockClient)
		hash, err := c.SubmitTransaction(t.Context(), txmanager.Transaction{From: "0xfrom"})

		assert.Error(t, err)
		assert.Empty(t, hash)

		mockClient.AssertExpectations(t)
	})
}

func TestClient_TransactionReceipt(t *testing.T) {
	t.Run("returns the parsed receipt", func(t *testing.T) {
		raw := json.RawMessage(`{
			"transactionHash": "0xtxhash",
			"blockHash": "0xblockhash",
			"blockNumber": "0x10",
			"status": "0x1",
			"gasUsed": "0x5208"
		}`)

		mockClient := new(rpcMock)
		mockClient.
			On("Fetch", mock.Anything, "eth_getTransactionReceipt", "0xtxhash").
			Return(raw, nil)

		c := NewClient(mockClient)
		receipt, err := c.TransactionReceipt(t.Context(), "0xtxhash")

		assert.NoError(t, err)
		assert.Equal(t, txlifecycle.Receipt{
			TxHash:      "0xtxhash",
			BlockHash:   "0xblockhash",
			BlockNumber: types.Hex("0x10"),
			Status:      types.Hex("0x1"),
			GasUsed:     types.Hex("0x5208"),
		}, receipt)

		mockClient.AssertExpectations(t)
	})

	t.Run("maps a null result to ErrReceiptNotAvailable", func(t *testing.T) {
		mockClient := new(rpcMock)
		mockClient.
			On("Fetch", mock.Anything, "eth_getTransactionReceipt", "0xpending").
			Return(json.RawMessage(`null`), nil)

		c := NewClient(mockClient)
		_, err := c.TransactionReceipt(t.Context(), "0xpending")

		assert.ErrorIs(t, err, txmanager.ErrReceiptNotAvailable)

		mockClient.AssertExpectations(t)
	})

	t.Run("returns error when fetch fails", func(t *testing.T) {
		mockClient := new(rpcMock)
		mockClient.
			On("Fetch", mock.Anything, "eth_getTransactionReceipt", "0xtxhash").
			Return(nil, errors.New("fetch error"))

		c := NewClient(mockClient)
		_, err := c.TransactionReceipt(t.Context(), "0xtxhash")

		assert.Error(t, err)

		mockClient.AssertExpectations(t)
	})
}
