// Package ledger persists the append-only audit log of payment lifecycle
// events. A successful transfer produces two rows: one when it is submitted
// and one when it is confirmed.
package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tonatisp/iagent-pay/types"
)

// Store is an append-only record log.
type Store interface {
	Append(ctx context.Context, rec types.TransactionRecord) error
	// List returns every record in append order.
	List(ctx context.Context) ([]types.TransactionRecord, error)
	// Earliest returns the timestamp of the oldest record.
	Earliest(ctx context.Context) (time.Time, bool, error)
	Close() error
}

// NativeSpend sums the native amounts submitted at or after since. Only bare
// Sent rows count; token-tagged rows are excluded.
func NativeSpend(records []types.TransactionRecord, since time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range records {
		if rec.Status.Base() != types.StatusSent || rec.Status.Ticker() != "" {
			continue
		}
		if rec.Time().Before(since) {
			continue
		}
		total = total.Add(rec.Amount)
	}
	return total
}

// earliestOf returns the smallest timestamp in records.
func earliestOf(records []types.TransactionRecord) (time.Time, bool) {
	if len(records) == 0 {
		return time.Time{}, false
	}
	ts := make([]float64, len(records))
	for i, rec := range records {
		ts[i] = rec.Timestamp
	}
	sort.Float64s(ts)
	return types.TransactionRecord{Timestamp: ts[0]}.Time(), true
}
