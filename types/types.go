package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Version is the current library version.
const Version = "1.0.0"

// Asset identifies what a payment moves. The zero value is the chain's native coin.
type Asset struct {
	Symbol string `json:"symbol,omitempty"`
}

// NativeAsset returns the native coin of whatever chain the payment is bound to.
func NativeAsset() Asset { return Asset{} }

// TokenAsset returns a fungible token identified by its ticker.
func TokenAsset(symbol string) Asset {
	return Asset{Symbol: strings.ToUpper(strings.TrimSpace(symbol))}
}

func (a Asset) IsNative() bool { return a.Symbol == "" }

func (a Asset) String() string {
	if a.IsNative() {
		return "native"
	}
	return a.Symbol
}

// PaymentRequest is the intent handed to the dispatcher. It is treated as a
// value and never modified after construction.
type PaymentRequest struct {
	Recipient           string           `json:"recipient"`
	Amount              decimal.Decimal  `json:"amount"`
	Asset               Asset            `json:"asset"`
	WaitForConfirmation bool             `json:"waitForConfirmation"`
	FeeCeiling          *decimal.Decimal `json:"feeCeiling,omitempty"` // gwei on EVM chains
}

// Validate checks the request before any network interaction.
func (r PaymentRequest) Validate() error {
	if strings.TrimSpace(r.Recipient) == "" {
		return NewError(ErrInvalidRecipient, "recipient is required")
	}
	if !r.Amount.IsPositive() {
		return NewError(ErrInvalidPayment, fmt.Sprintf("amount must be greater than 0, got %s", r.Amount))
	}
	if r.FeeCeiling != nil && !r.FeeCeiling.IsPositive() {
		return NewError(ErrInvalidPayment, "fee ceiling must be greater than 0 when set")
	}
	return nil
}

// Status is the lifecycle tag written to the ledger.
type Status string

const (
	StatusSent      Status = "Sent"
	StatusConfirmed Status = "Confirmed"
	StatusFailed    Status = "Failed"
)

// Tagged qualifies a status with an asset ticker, e.g. "Sent:USDC".
// Native payments keep the bare status.
func (s Status) Tagged(a Asset) Status {
	if a.IsNative() {
		return s
	}
	return Status(string(s) + ":" + a.Symbol)
}

// Base strips the asset qualifier.
func (s Status) Base() Status {
	base, _, _ := strings.Cut(string(s), ":")
	return Status(base)
}

// Ticker returns the asset qualifier, empty for native payments.
func (s Status) Ticker() string {
	_, ticker, _ := strings.Cut(string(s), ":")
	return ticker
}

// TransactionRecord is one append-only ledger row.
type TransactionRecord struct {
	Timestamp float64         `json:"timestamp"`
	TxID      string          `json:"tx_id"`
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Status    Status          `json:"status"`
}

// NewRecord stamps a record with t.
func NewRecord(t time.Time, txID, recipient string, amount decimal.Decimal, status Status) TransactionRecord {
	return TransactionRecord{
		Timestamp: float64(t.UnixNano()) / float64(time.Second),
		TxID:      txID,
		Recipient: recipient,
		Amount:    amount,
		Status:    status,
	}
}

func (r TransactionRecord) Time() time.Time {
	sec := int64(r.Timestamp)
	nsec := int64((r.Timestamp - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// TokenDescriptor is a resolved token on a given chain.
type TokenDescriptor struct {
	Family   ChainFamily `json:"family"`
	ChainKey string      `json:"chainKey"`
	Symbol   string      `json:"symbol"`
	AssetID  string      `json:"assetId"`
	Decimals int         `json:"decimals"`
}

// Receipt is returned by the dispatcher after a payment leaves the Submitted state.
type Receipt struct {
	TxID      string          `json:"txId"`
	Chain     string          `json:"chain"`
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Asset     Asset           `json:"asset"`
	Status    Status          `json:"status"`
	FeeTxID   string          `json:"feeTxId,omitempty"`
	Trace     []State         `json:"trace"`
}

// State is a step of the dispatch state machine.
type State string

const (
	StateIdle         State = "Idle"
	StateResolving    State = "Resolving"
	StateLicenseCheck State = "LicenseCheck"
	StateBuilding     State = "Building"
	StateSigning      State = "Signing"
	StateSubmitted    State = "Submitted"
	StateWaiting      State = "Waiting"
	StateConfirmed    State = "Confirmed"
	StateFailed       State = "Failed"
)

// PricingPolicy is the dynamic licensing configuration.
type PricingPolicy struct {
	TrialDays         int             `json:"trial_days"`
	SubscriptionPrice decimal.Decimal `json:"subscription_price_eth"`
	PayPerUsePrice    decimal.Decimal `json:"pay_per_use_price_eth"`
	TreasuryAddress   string          `json:"treasury_address,omitempty"`
	Active            bool            `json:"active"`
}

// DefaultPricingPolicy is used until a pricing source answers.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TrialDays:         14,
		SubscriptionPrice: decimal.RequireFromString("0.01"),
		PayPerUsePrice:    decimal.RequireFromString("0.0001"),
		Active:            true,
	}
}
