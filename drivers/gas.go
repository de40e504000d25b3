package drivers

import (
	"context"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/tonatisp/iagent-pay/types"
)

// DefaultPremiumPercent is the reliability margin added to the suggested price.
const DefaultPremiumPercent = 10

// GasPriceSource reports the network's current suggested gas price in wei.
type GasPriceSource interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// GasPolicy computes a fee bid and enforces a caller-supplied ceiling.
type GasPolicy struct {
	source         GasPriceSource
	premiumPercent int64
}

func NewGasPolicy(source GasPriceSource) GasPolicy {
	return GasPolicy{source: source, premiumPercent: DefaultPremiumPercent}
}

// Quote returns suggested × (100+premium)/100 wei. A quote above ceilingGwei
// is a FEE_CEILING_EXCEEDED error; nothing is capped.
func (g GasPolicy) Quote(ctx context.Context, ceilingGwei *decimal.Decimal) (*big.Int, error) {
	suggested, err := g.source.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	price := new(big.Int).Mul(suggested, big.NewInt(100+g.premiumPercent))
	price.Div(price, big.NewInt(100))

	if ceilingGwei != nil {
		quoteGwei := decimal.NewFromBigInt(price, -9)
		if quoteGwei.GreaterThan(*ceilingGwei) {
			return nil, types.NewError(
				types.ErrFeeCeilingExceeded,
				fmt.Sprintf("gas price %s gwei exceeds ceiling %s gwei", quoteGwei, ceilingGwei),
				types.WithData("quoteGwei", quoteGwei.String()),
				types.WithData("ceilingGwei", ceilingGwei.String()),
			)
		}
	}

	return price, nil
}
