package ethereum

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gabapcia/txwatch/internal/pkg/types"
	"github.com/gabapcia/txwatch/internal/txlifecycle"
	"github.com/gabapcia/txwatch/internal/txmanager"
)

// transactionRequest is the parameter object for eth_sendTransaction. Empty
// fields are omitted so the node fills in its own defaults (nonce, gas
// price).
type transactionRequest struct {
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	Gas      types.Hex `json:"gas,omitempty"`
	GasPrice types.Hex `json:"gasPrice,omitempty"`
	Value    types.Hex `json:"value,omitempty"`
	Data     string    `json:"data,omitempty"`
	Nonce    types.Hex `json:"nonce,omitempty"`
}

// receiptResponse represents the receipt object returned by
// eth_getTransactionReceipt.
type receiptResponse struct {
	TransactionHash string    `json:"transactionHash"`
	BlockHash       string    `json:"blockHash"`
	BlockNumber     types.Hex `json:"blockNumber"`
	Status          types.Hex `json:"status"`
	GasUsed         types.Hex `json:"gasUsed"`
}

// toLifecycleReceipt converts a receiptResponse to a txlifecycle.Receipt.
func (r receiptResponse) toLifecycleReceipt() txlifecycle.Receipt {
	return txlifecycle.Receipt{
		TxHash:      r.TransactionHash,
		BlockHash:   r.BlockHash,
		BlockNumber: r.BlockNumber,
		Status:      r.Status,
		GasUsed:     r.GasUsed,
	}
}

// SubmitRawTransaction implements txmanager.Node using eth_sendRawTransaction.
func (c *client) SubmitRawTransaction(ctx context.Context, raw string) (string, error) {
	data, err := c.conn.Fetch(ctx, "eth_sendRawTransaction", raw)
	if err != nil {
		return "", err
	}

	var txHash string
	return txHash, json.Unmarshal(data, &txHash)
}

// SubmitTransaction implements txmanager.Node using eth_sendTransaction,
// leaving the signing to the node.
func (c *client) SubmitTransaction(ctx context.Context, tx txmanager.Transaction) (string, error) {
	req := transactionRequest{
		From:     tx.From,
		To:       tx.To,
		Gas:      tx.Gas,
		GasPrice: tx.GasPrice,
		Value:    tx.Value,
		Data:     tx.Data,
		Nonce:    tx.Nonce,
	}

	data, err := c.conn.Fetch(ctx, "eth_sendTransaction", req)
	if err != nil {
		return "", err
	}

	var txHash string
	return txHash, json.Unmarshal(data, &txHash)
}

// TransactionReceipt implements txmanager.Node using
// eth_getTransactionReceipt. A null result maps to
// txmanager.ErrReceiptNotAvailable so the manager keeps polling.
func (c *client) TransactionReceipt(ctx context.Context, txHash string) (txlifecycle.Receipt, error) {
	data, err := c.conn.Fetch(ctx, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return txlifecycle.Receipt{}, err
	}

	if isNullResult(data) {
		return txlifecycle.Receipt{}, fmt.Errorf("%w: %s", txmanager.ErrReceiptNotAvailable, txHash)
	}

	var receipt receiptResponse
	if err := json.Unmarshal(data, &receipt); err != nil {
		return txlifecycle.Receipt{}, err
	}

	return receipt.toLifecycleReceipt(), nil
}
