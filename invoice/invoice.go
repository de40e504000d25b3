// Package invoice creates and validates portable payment-request documents.
package invoice

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tonatisp/iagent-pay/types"
)

// Protocol is the version tag every document carries.
const Protocol = "iagent-pay/v1"

// DefaultExpiry applies when the caller does not choose one.
const DefaultExpiry = 24 * time.Hour

var requiredFields = []string{"protocol", "recipient", "amount", "currency", "chain", "expires_at"}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Invoice is an immutable payment request.
type Invoice struct {
	Protocol    string          `json:"protocol" validate:"required"`
	InvoiceID   string          `json:"invoice_id"`
	CreatedAt   int64           `json:"created_at"`
	ExpiresAt   int64           `json:"expires_at" validate:"gt=0"`
	Recipient   string          `json:"recipient" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" validate:"required"`
	Chain       string          `json:"chain" validate:"required"`
	Description string          `json:"description"`
	Memo        string          `json:"memo,omitempty"`
}

// Expired reports whether now is past the expiry instant.
func (inv *Invoice) Expired(now time.Time) bool {
	return now.After(time.Unix(inv.ExpiresAt, 0))
}

// Create builds an invoice payable to recipient. A zero expiry makes the
// invoice expire at its creation second.
func Create(recipient string, amount decimal.Decimal, currency, chain, description string, expiry time.Duration, now time.Time) (*Invoice, error) {
	if !amount.IsPositive() {
		return nil, types.NewError(types.ErrInvalidPayment, fmt.Sprintf("invoice amount must be greater than 0, got %s", amount))
	}
	if expiry < 0 {
		return nil, types.NewError(types.ErrInvalidPayment, "invoice expiry cannot be negative")
	}

	created := now.Unix()
	inv := &Invoice{
		Protocol:    Protocol,
		InvoiceID:   newID(),
		CreatedAt:   created,
		ExpiresAt:   created + int64(expiry/time.Second),
		Recipient:   strings.TrimSpace(recipient),
		Amount:      amount,
		Currency:    strings.ToUpper(strings.TrimSpace(currency)),
		Chain:       strings.ToUpper(strings.TrimSpace(chain)),
		Description: description,
		Memo:        "Payment for " + description,
	}
	if err := validate.Struct(inv); err != nil {
		return nil, types.NewError(types.ErrInvalidPayment, "invalid invoice", types.WithCause(err))
	}
	return inv, nil
}

func newID() string {
	return "inv_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Encode serialises inv with a plain JSON number for the amount.
func Encode(inv *Invoice) (string, error) {
	wire := struct {
		*Invoice
		Amount json.Number `json:"amount"`
	}{
		Invoice: inv,
		Amount:  json.Number(inv.Amount.String()),
	}
	raw, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode invoice: %w", err)
	}
	return string(raw), nil
}

// Parse validates document at now. Missing fields, an unknown protocol or a
// non-positive amount are MALFORMED_INVOICE; a document past its expiry is
// INVOICE_EXPIRED.
func Parse(document string, now time.Time) (*Invoice, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(document), &fields); err != nil {
		return nil, types.NewError(types.ErrMalformedInvoice, "invoice is not a JSON object", types.WithCause(err))
	}
	for _, name := range requiredFields {
		if v, ok := fields[name]; !ok || string(v) == "null" {
			return nil, types.NewError(types.ErrMalformedInvoice, "missing field: "+name, types.WithData("field", name))
		}
	}

	var inv Invoice
	if err := json.Unmarshal([]byte(document), &inv); err != nil {
		return nil, types.NewError(types.ErrMalformedInvoice, "invalid invoice field", types.WithCause(err))
	}
	if inv.Protocol != Protocol {
		return nil, types.NewError(types.ErrMalformedInvoice, fmt.Sprintf("unsupported protocol %q", inv.Protocol))
	}
	if err := validate.Struct(&inv); err != nil {
		return nil, types.NewError(types.ErrMalformedInvoice, "invalid invoice", types.WithCause(err))
	}
	if !inv.Amount.IsPositive() {
		return nil, types.NewError(types.ErrMalformedInvoice, fmt.Sprintf("invoice amount must be greater than 0, got %s", inv.Amount))
	}
	inv.Currency = strings.ToUpper(inv.Currency)
	inv.Chain = strings.ToUpper(inv.Chain)

	if inv.Expired(now) {
		return nil, types.NewError(types.ErrInvoiceExpired,
			fmt.Sprintf("invoice %s expired at %s", inv.InvoiceID, time.Unix(inv.ExpiresAt, 0).UTC().Format(time.RFC3339)),
			types.WithData("invoice_id", inv.InvoiceID))
	}
	return &inv, nil
}

// IsNative reports whether the invoice is denominated in the native coin of
// profile. Anything else is paid as a token. Testnet symbols such as
// SepoliaETH also accept the plain ETH ticker.
func IsNative(inv *Invoice, profile types.ChainProfile) bool {
	currency := strings.ToUpper(inv.Currency)
	native := strings.ToUpper(profile.NativeSymbol)
	if currency == native {
		return true
	}
	return profile.IsEVM() && currency == "ETH" && strings.HasSuffix(native, "ETH")
}
