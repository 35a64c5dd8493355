package ethereum

import (
	"context"
	"encoding/json"

	"github.com/gabapcia/txwatch/internal/pkg/logger"

	"github.com/stretchr/testify/mock"
)

func init() {
	_ = logger.Init(logger.WithLevel("error")) // Use error level to reduce test output
}

// rpcMock is a testify mock for the jsonrpc.Client boundary.
type rpcMock struct {
	mock.Mock
}

func (m *rpcMock) Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	callArgs := append([]any{ctx, method}, params...)
	args := m.Called(callArgs...)

	data, _ := args.Get(0).(json.RawMessage)
	return data, args.Error(1)
}
