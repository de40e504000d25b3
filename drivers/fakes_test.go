package drivers

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// fakeEVM is an in-memory EVM node. Its pending nonce is the number of
// accepted transactions plus external, which simulates other senders.
type fakeEVM struct {
	mu sync.Mutex

	chainID   *big.Int
	gasPrice  *big.Int
	balance   *big.Int
	decimals  map[common.Address]uint8
	connected bool

	external   uint64
	sent       []*ethtypes.Transaction
	sendErrs   []error
	receipts   map[common.Hash]*ethtypes.Receipt
	nonceCalls int
	gasCalls   int
	closed     bool
}

func newFakeEVM() *fakeEVM {
	return &fakeEVM{
		chainID:   big.NewInt(1337),
		gasPrice:  big.NewInt(1_000_000_000),
		balance:   big.NewInt(0),
		decimals:  map[common.Address]uint8{},
		connected: true,
		receipts:  map[common.Hash]*ethtypes.Receipt{},
	}
}

func (f *fakeEVM) IsConnected(ctx context.Context) bool { return f.connected }

func (f *fakeEVM) ChainID(ctx context.Context) (*big.Int, error) { return f.chainID, nil }

func (f *fakeEVM) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return f.balance, nil
}

func (f *fakeEVM) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonceCalls++
	return uint64(len(f.sent)) + f.external, nil
}

func (f *fakeEVM) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gasCalls++
	return f.gasPrice, nil
}

func (f *fakeEVM) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 0, errors.New("estimate unavailable")
}

func (f *fakeEVM) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeEVM) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeEVM) TransactionByHash(ctx context.Context, txHash common.Hash) (*ethtypes.Transaction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.sent {
		if tx.Hash() == txHash {
			return tx, false, nil
		}
	}
	return nil, false, ethereum.NotFound
}

func (f *fakeEVM) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	d, ok := f.decimals[token]
	if !ok {
		return 0, errors.New("execution reverted")
	}
	return d, nil
}

func (f *fakeEVM) Close() { f.closed = true }

func (f *fakeEVM) sentNonces() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint64, 0, len(f.sent))
	for _, tx := range f.sent {
		out = append(out, tx.Nonce())
	}
	return out
}

// fakeSolana is an in-memory Solana node.
type fakeSolana struct {
	mu sync.Mutex

	connected bool
	balance   uint64
	decimals  map[solana.PublicKey]uint8
	accounts  map[solana.PublicKey]bool
	statuses  map[solana.Signature]*rpc.SignatureStatusesResult
	sent      []*solana.Transaction
	airdrops  []uint64
	closed    bool
}

func newFakeSolana() *fakeSolana {
	return &fakeSolana{
		connected: true,
		decimals:  map[solana.PublicKey]uint8{},
		accounts:  map[solana.PublicKey]bool{},
		statuses:  map[solana.Signature]*rpc.SignatureStatusesResult{},
	}
}

func (f *fakeSolana) IsConnected(ctx context.Context) bool { return f.connected }

func (f *fakeSolana) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	return f.balance, nil
}

func (f *fakeSolana) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return solana.Hash{1, 2, 3}, nil
}

func (f *fakeSolana) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

func (f *fakeSolana) SignatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[sig], nil
}

func (f *fakeSolana) GetTransaction(ctx context.Context, sig solana.Signature) (*solana.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tx := range f.sent {
		if tx.Signatures[0] == sig {
			return tx, nil
		}
	}
	return nil, rpc.ErrNotFound
}

func (f *fakeSolana) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	d, ok := f.decimals[mint]
	if !ok {
		return 0, errors.New("mint not found")
	}
	return d, nil
}

func (f *fakeSolana) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	return f.accounts[account], nil
}

func (f *fakeSolana) RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64) (solana.Signature, error) {
	f.airdrops = append(f.airdrops, lamports)
	return solana.Signature{9}, nil
}

func (f *fakeSolana) Close() { f.closed = true }

type staticKeys struct {
	evm    *ecdsa.PrivateKey
	solana solana.PrivateKey
}

func (k staticKeys) EVMKey() (*ecdsa.PrivateKey, error) {
	if k.evm == nil {
		return nil, errors.New("no EVM key")
	}
	return k.evm, nil
}

func (k staticKeys) SolanaKey() (solana.PrivateKey, error) {
	if len(k.solana) == 0 {
		return nil, errors.New("no Solana key")
	}
	return k.solana, nil
}
