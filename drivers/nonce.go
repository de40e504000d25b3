package drivers

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// PendingNonceSource reports the network's pending transaction count.
type PendingNonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// NonceManager issues sequence numbers for one sending account. The cached
// value only advances after a successful submission.
type NonceManager struct {
	account common.Address
	source  PendingNonceSource

	mu     sync.Mutex
	next   uint64
	cached bool
}

func NewNonceManager(account common.Address, source PendingNonceSource) *NonceManager {
	return &NonceManager{account: account, source: source}
}

// Next returns the nonce for the next submission: the network's pending count
// when nothing is cached or when the network is ahead, otherwise the cached value.
func (m *NonceManager) Next(ctx context.Context) (uint64, error) {
	network, err := m.source.PendingNonceAt(ctx, m.account)
	if err != nil {
		return 0, fmt.Errorf("pending nonce for %s: %w", m.account.Hex(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cached || network > m.next {
		m.next = network
		m.cached = true
	}
	return m.next, nil
}

// Commit records that nonce was accepted by the network.
func (m *NonceManager) Commit(nonce uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cached || nonce+1 > m.next {
		m.next = nonce + 1
		m.cached = true
	}
}

// Refresh re-reads the network after rejected was refused as too low and
// returns a nonce strictly above it.
func (m *NonceManager) Refresh(ctx context.Context, rejected uint64) (uint64, error) {
	network, err := m.source.PendingNonceAt(ctx, m.account)
	if err != nil {
		return 0, fmt.Errorf("refresh nonce for %s: %w", m.account.Hex(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.next = network
	if m.next <= rejected {
		m.next = rejected + 1
	}
	m.cached = true
	return m.next, nil
}

// Peek returns the cached next nonce, if any.
func (m *NonceManager) Peek() (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.next, m.cached
}
