// Package tokens maps tickers to on-chain asset identifiers and converts
// decimal amounts to the integer encoding a token contract expects.
package tokens

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/tonatisp/iagent-pay/types"
)

// DecimalsSource queries the precision of an asset on the bound chain.
type DecimalsSource interface {
	Decimals(ctx context.Context, assetID string) (int, error)
}

// DecimalsFunc adapts a function to DecimalsSource.
type DecimalsFunc func(ctx context.Context, assetID string) (int, error)

func (f DecimalsFunc) Decimals(ctx context.Context, assetID string) (int, error) {
	return f(ctx, assetID)
}

// Resolver resolves tickers for one chain profile. Descriptors are cached
// per (chain, symbol) for the resolver's lifetime.
type Resolver struct {
	profile types.ChainProfile
	source  DecimalsSource

	mu    sync.Mutex
	cache map[string]types.TokenDescriptor
}

func NewResolver(profile types.ChainProfile, source DecimalsSource) *Resolver {
	return &Resolver{
		profile: profile,
		source:  source,
		cache:   make(map[string]types.TokenDescriptor),
	}
}

// Lookup returns the asset id for symbol without touching the network.
func Lookup(profile types.ChainProfile, symbol string) (string, bool) {
	table := evmTokens
	if profile.IsSolana() {
		table = solanaMints
	}
	assets, ok := table[profile.TokenKey()]
	if !ok {
		return "", false
	}
	id, ok := assets[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Symbols lists the tickers known for a profile, sorted.
func Symbols(profile types.ChainProfile) []string {
	table := evmTokens
	if profile.IsSolana() {
		table = solanaMints
	}
	out := make([]string, 0, len(table[profile.TokenKey()]))
	for sym, id := range table[profile.TokenKey()] {
		if id != "" {
			out = append(out, sym)
		}
	}
	sort.Strings(out)
	return out
}

// Resolve returns the descriptor for symbol, querying decimals on first use.
// An unknown ticker is an UNSUPPORTED_ASSET error, never a native fallback.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (types.TokenDescriptor, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	key := r.profile.TokenKey() + "/" + sym

	r.mu.Lock()
	desc, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return desc, nil
	}

	id, ok := Lookup(r.profile, sym)
	if !ok {
		return types.TokenDescriptor{}, types.NewError(
			types.ErrUnsupportedAsset,
			fmt.Sprintf("token %s is not supported on %s", sym, r.profile.Name),
			types.WithData("chain", r.profile.Name),
			types.WithData("symbol", sym),
			types.WithData("supported", Symbols(r.profile)),
		)
	}

	decimals, err := r.source.Decimals(ctx, id)
	if err != nil {
		return types.TokenDescriptor{}, fmt.Errorf("query decimals of %s (%s): %w", sym, id, err)
	}
	if decimals < 0 || decimals > 36 {
		return types.TokenDescriptor{}, fmt.Errorf("token %s reports implausible decimals %d", sym, decimals)
	}

	desc = types.TokenDescriptor{
		Family:   r.profile.Family,
		ChainKey: r.profile.TokenKey(),
		Symbol:   sym,
		AssetID:  id,
		Decimals: decimals,
	}

	r.mu.Lock()
	r.cache[key] = desc
	r.mu.Unlock()

	return desc, nil
}

// ToBaseUnits computes round(amount × 10^decimals).
func ToBaseUnits(amount decimal.Decimal, decimals int) *big.Int {
	return amount.Shift(int32(decimals)).Round(0).BigInt()
}

// FromBaseUnits is the inverse of ToBaseUnits.
func FromBaseUnits(value *big.Int, decimals int) decimal.Decimal {
	return decimal.NewFromBigInt(value, -int32(decimals))
}
