// Package drivers binds a logical chain to a family-specific backend that can
// build, sign and submit native and token transfers.
package drivers

import (
	"context"
	"crypto/ecdsa"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/tonatisp/iagent-pay/logger"
	"github.com/tonatisp/iagent-pay/types"
	"github.com/tonatisp/iagent-pay/verification"
)

// ChainDriver is the capability the dispatcher holds. Exactly one is bound per
// dispatcher and callers never branch on its family.
type ChainDriver interface {
	Profile() types.ChainProfile
	Address() string
	Balance(ctx context.Context) (decimal.Decimal, error)
	// SendNative submits a native-coin transfer and returns its id. feeCeiling
	// is expressed in gwei on EVM chains.
	SendNative(ctx context.Context, to string, amount decimal.Decimal, feeCeiling *decimal.Decimal) (string, error)
	SendToken(ctx context.Context, to, symbol string, amount decimal.Decimal, feeCeiling *decimal.Decimal) (string, error)
	// CheckFee fails with FEE_CEILING_EXCEEDED when the current fee quote is
	// above feeCeiling. It takes no nonce and submits nothing.
	CheckFee(ctx context.Context, feeCeiling *decimal.Decimal) error
	WaitForConfirmation(ctx context.Context, txID string) error
	// VerifyTransfer checks that txID paid at least minimum native coin to to.
	VerifyTransfer(ctx context.Context, txID, to string, minimum decimal.Decimal) (*verification.Result, error)
	Close()
}

// KeySource supplies signing keys to the drivers.
type KeySource interface {
	EVMKey() (*ecdsa.PrivateKey, error)
	SolanaKey() (solana.PrivateKey, error)
}

const defaultPollInterval = 2 * time.Second

type driverConfig struct {
	logger       logger.Logger
	pollInterval time.Duration
}

// DriverOption configures a driver.
type DriverOption func(*driverConfig)

func WithDriverLogger(l logger.Logger) DriverOption {
	return func(c *driverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPollInterval sets the confirmation polling period.
func WithPollInterval(d time.Duration) DriverOption {
	return func(c *driverConfig) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

func newDriverConfig(opts []DriverOption) driverConfig {
	cfg := driverConfig{
		logger:       logger.NoopLogger{},
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
