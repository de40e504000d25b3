package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/tonatisp/iagent-pay/types"
)

// Memory keeps records for the life of the process.
type Memory struct {
	mu      sync.RWMutex
	records []types.TransactionRecord
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, rec types.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *Memory) List(context.Context) ([]types.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.TransactionRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *Memory) Earliest(context.Context) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := earliestOf(m.records)
	return t, ok, nil
}

func (m *Memory) Close() error { return nil }
