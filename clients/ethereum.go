package clients

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

var _ EVMClient = (*EthereumClient)(nil)

// EthereumClient implements EVMClient over a JSON-RPC endpoint.
type EthereumClient struct {
	rpcURL string
	client *ethclient.Client
}

func NewEthereumClient(ctx context.Context, rpcURL string) (*EthereumClient, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum RPC: %w", err)
	}

	return &EthereumClient{
		rpcURL: rpcURL,
		client: client,
	}, nil
}

func (e *EthereumClient) Close() {
	e.client.Close()
}

// IsConnected probes the endpoint with a cheap chain id call.
func (e *EthereumClient) IsConnected(ctx context.Context) bool {
	_, err := e.client.ChainID(ctx)
	return err == nil
}

func (e *EthereumClient) ChainID(ctx context.Context) (*big.Int, error) {
	return e.client.ChainID(ctx)
}

func (e *EthereumClient) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return e.client.BalanceAt(ctx, account, nil)
}

func (e *EthereumClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return e.client.PendingNonceAt(ctx, account)
}

func (e *EthereumClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return e.client.SuggestGasPrice(ctx)
}

func (e *EthereumClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return e.client.EstimateGas(ctx, msg)
}

func (e *EthereumClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return e.client.SendTransaction(ctx, tx)
}

func (e *EthereumClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return e.client.TransactionReceipt(ctx, txHash)
}

func (e *EthereumClient) TransactionByHash(ctx context.Context, txHash common.Hash) (*types.Transaction, bool, error) {
	return e.client.TransactionByHash(ctx, txHash)
}

// TokenDecimals queries the token contract's decimals() at call time.
func (e *EthereumClient) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	data, err := PackDecimals()
	if err != nil {
		return 0, err
	}

	out, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("decimals call on %s: %w", token.Hex(), err)
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("decimals call on %s returned no data", token.Hex())
	}

	return UnpackDecimals(out)
}

// CallContract exposes read-only calls for collaborators such as the ENS resolver.
func (e *EthereumClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return e.client.CallContract(ctx, msg, blockNumber)
}
