package iagentpay

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/tonatisp/iagent-pay/types"
	"github.com/tonatisp/iagent-pay/verification"
)

type transfer struct {
	to     string
	symbol string
	amount decimal.Decimal
}

// fakeDriver is an in-memory ChainDriver.
type fakeDriver struct {
	mu sync.Mutex

	profile types.ChainProfile
	address string
	balance decimal.Decimal

	sent      []transfer
	sendErr   error
	feeErr    error
	feeChecks int
	failTo    map[string]error
	waitErr   error
	verify    *verification.Result
	verifies  int
	lastProof string
	closed    bool
}

func newFakeDriver(profile types.ChainProfile) *fakeDriver {
	return &fakeDriver{
		profile: profile,
		address: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		failTo:  map[string]error{},
	}
}

func (f *fakeDriver) Profile() types.ChainProfile { return f.profile }
func (f *fakeDriver) Address() string             { return f.address }

func (f *fakeDriver) Balance(ctx context.Context) (decimal.Decimal, error) {
	return f.balance, nil
}

func (f *fakeDriver) send(to, symbol string, amount decimal.Decimal) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failTo[to]; ok {
		return "", err
	}
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, transfer{to: to, symbol: symbol, amount: amount})
	return fmt.Sprintf("0x%064x", len(f.sent)), nil
}

func (f *fakeDriver) SendNative(ctx context.Context, to string, amount decimal.Decimal, feeCeiling *decimal.Decimal) (string, error) {
	return f.send(to, "", amount)
}

func (f *fakeDriver) SendToken(ctx context.Context, to, symbol string, amount decimal.Decimal, feeCeiling *decimal.Decimal) (string, error) {
	return f.send(to, symbol, amount)
}

func (f *fakeDriver) CheckFee(ctx context.Context, feeCeiling *decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feeChecks++
	return f.feeErr
}

func (f *fakeDriver) WaitForConfirmation(ctx context.Context, txID string) error {
	return f.waitErr
}

func (f *fakeDriver) VerifyTransfer(ctx context.Context, txID, to string, minimum decimal.Decimal) (*verification.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifies++
	f.lastProof = txID
	if f.verify == nil {
		return &verification.Result{Valid: false, Reason: "transaction not found"}, nil
	}
	return f.verify, nil
}

func (f *fakeDriver) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeDriver) transfers() []transfer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transfer(nil), f.sent...)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingRecorder counts events by name.
type countingRecorder struct {
	mu        sync.Mutex
	counts    map[string]int
	latencies map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{counts: map[string]int{}, latencies: map[string]int{}}
}

func (r *countingRecorder) IncCounter(name string, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name]++
}

func (r *countingRecorder) ObserveLatency(name string, d time.Duration, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies[name]++
}

func (r *countingRecorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

// fakeNode is an in-memory EVM node for exercising a real drivers.EVMDriver.
// Its pending nonce is the number of accepted transactions.
type fakeNode struct {
	mu       sync.Mutex
	gasPrice *big.Int
	sent     []*ethtypes.Transaction
}

func newFakeNode() *fakeNode {
	return &fakeNode{gasPrice: big.NewInt(1_000_000_000)}
}

func (n *fakeNode) IsConnected(ctx context.Context) bool { return true }

func (n *fakeNode) ChainID(ctx context.Context) (*big.Int, error) { return big.NewInt(1337), nil }

func (n *fakeNode) SuggestGasPrice(ctx context.Context) (*big.Int, error) { return n.gasPrice, nil }

func (n *fakeNode) Close() {}

func (n *fakeNode) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (n *fakeNode) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return uint64(len(n.sent)), nil
}

func (n *fakeNode) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 0, errors.New("estimate unavailable")
}

func (n *fakeNode) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, tx)
	return nil
}

func (n *fakeNode) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	return nil, ethereum.NotFound
}

func (n *fakeNode) TransactionByHash(ctx context.Context, txHash common.Hash) (*ethtypes.Transaction, bool, error) {
	return nil, false, ethereum.NotFound
}

func (n *fakeNode) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	return 0, errors.New("execution reverted")
}

func (n *fakeNode) transactions() []*ethtypes.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*ethtypes.Transaction(nil), n.sent...)
}
