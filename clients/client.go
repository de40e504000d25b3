package clients

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// EVMClient is the chain client collaborator for EVM-family networks.
type EVMClient interface {
	IsConnected(ctx context.Context) bool
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, txHash common.Hash) (*types.Transaction, bool, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
	Close()
}

// SolanaClient is the chain client collaborator for Solana-family networks.
type SolanaClient interface {
	IsConnected(ctx context.Context) bool
	GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	SignatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error)
	GetTransaction(ctx context.Context, sig solana.Signature) (*solana.Transaction, error)
	MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
	RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64) (solana.Signature, error)
	Close()
}
