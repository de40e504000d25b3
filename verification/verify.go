// Package verification checks that an on-chain transaction paid a given
// recipient at least a minimum amount of the native coin. The license gate
// uses it to accept a standing subscription proof.
package verification

import (
	"context"

	"github.com/shopspring/decimal"
)

// Result describes a verified or rejected transfer.
type Result struct {
	Valid     bool            `json:"valid"`
	Amount    decimal.Decimal `json:"amount"`
	Sender    string          `json:"sender,omitempty"`
	Recipient string          `json:"recipient,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}

// Verifier checks a native transfer. A transfer that does not satisfy the
// requirements yields a Result with Valid false and a nil error; errors are
// reserved for lookup failures.
type Verifier interface {
	VerifyTransfer(ctx context.Context, txID, to string, minimum decimal.Decimal) (*Result, error)
}

func invalid(reason string) *Result {
	return &Result{Valid: false, Reason: reason}
}
