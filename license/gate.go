package license

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tonatisp/iagent-pay/logger"
	"github.com/tonatisp/iagent-pay/types"
	"github.com/tonatisp/iagent-pay/verification"
)

// SubscriptionProofRatio is the share of the subscription price a proof
// transaction must have paid.
var SubscriptionProofRatio = decimal.RequireFromString("0.95")

// HistorySource reports the earliest recorded payment of this installation.
type HistorySource interface {
	Earliest(ctx context.Context) (time.Time, bool, error)
}

// ProofVerifier checks a subscription payment on chain.
type ProofVerifier interface {
	VerifyTransfer(ctx context.Context, txID, to string, minimum decimal.Decimal) (*verification.Result, error)
}

// Decision is the outcome of a gate check.
type Decision struct {
	Phase          Phase           `json:"phase"`
	DaysActive     float64         `json:"daysActive"`
	TrialRemaining float64         `json:"trialRemaining"`
	Enforced       bool            `json:"enforced"`
	Subscribed     bool            `json:"subscribed"`
	FeeRequired    bool            `json:"feeRequired"`
	Fee            decimal.Decimal `json:"fee"`
	Treasury       string          `json:"treasury,omitempty"`
}

// Gate decides whether a payment may proceed and whether a fee is due first.
type Gate struct {
	cfg      types.LicenseConfig
	registry Registry
	pricing  PricingSource
	history  HistorySource
	verifier ProofVerifier
	logger   logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	verified string
}

type GateOption func(*Gate)

func WithGateLogger(l logger.Logger) GateOption {
	return func(g *Gate) { g.logger = logger.Or(l) }
}

// WithHistory lets the gate adopt the ledger's earliest record when the
// registry is empty.
func WithHistory(h HistorySource) GateOption {
	return func(g *Gate) { g.history = h }
}

func WithVerifier(v ProofVerifier) GateOption {
	return func(g *Gate) { g.verifier = v }
}

func WithGateClock(now func() time.Time) GateOption {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

func NewGate(cfg types.LicenseConfig, registry Registry, pricing PricingSource, opts ...GateOption) *Gate {
	if registry == nil {
		registry = &MemoryRegistry{}
	}
	if pricing == nil {
		pricing = StaticPricing(types.DefaultPricingPolicy())
	}
	g := &Gate{
		cfg:      cfg,
		registry: registry,
		pricing:  pricing,
		logger:   logger.NoopLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Applies reports whether payments of asset are subject to the gate.
func (g *Gate) Applies(asset types.Asset) bool {
	if g.cfg.Disabled {
		return false
	}
	return asset.IsNative() || g.cfg.EnforceOnTokens
}

// Check evaluates the gate for one payment of asset. It records the first-use
// timestamp when none exists anywhere.
func (g *Gate) Check(ctx context.Context, asset types.Asset) (Decision, error) {
	if !g.Applies(asset) {
		return Decision{}, nil
	}

	policy := g.pricing.Policy(ctx)
	if !policy.Active {
		return Decision{}, nil
	}
	now := g.now()

	first, found, err := g.firstUse(ctx, now)
	if err != nil {
		return Decision{}, err
	}
	if !found {
		return Decision{Phase: PhaseNew, Enforced: true, TrialRemaining: float64(policy.TrialDays)}, nil
	}

	d := Decision{
		Phase:          PhaseAt(first, now, policy.TrialDays),
		DaysActive:     DaysSince(first, now),
		TrialRemaining: TrialRemaining(first, now, policy.TrialDays),
		Enforced:       true,
	}

	switch d.Phase {
	case PhaseTrialWarning:
		g.logger.Warn("trial period ends soon", map[string]any{
			"days_active":     fmt.Sprintf("%.2f", d.DaysActive),
			"trial_remaining": fmt.Sprintf("%.2f", d.TrialRemaining),
		})

	case PhaseTrialExpired:
		d.Treasury = g.treasury(policy)
		if d.Treasury == "" {
			return d, types.NewError(types.ErrConfigError, "trial expired and no treasury address is configured")
		}
		if g.subscribed(ctx, d.Treasury, policy) {
			d.Subscribed = true
			return d, nil
		}
		if policy.PayPerUsePrice.IsPositive() {
			d.FeeRequired = true
			d.Fee = policy.PayPerUsePrice
		}
	}
	return d, nil
}

// firstUse loads the first-use timestamp. An empty registry adopts the
// earliest ledger record; when both are empty now is recorded and found is
// false.
func (g *Gate) firstUse(ctx context.Context, now time.Time) (time.Time, bool, error) {
	first, ok, err := g.registry.FirstUse()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read license registry: %w", err)
	}
	if ok {
		return first, true, nil
	}

	if g.history != nil {
		earliest, found, err := g.history.Earliest(ctx)
		if err != nil {
			g.logger.Warn("failed to read ledger history", map[string]any{"error": err.Error()})
		} else if found {
			stored, err := g.registry.RecordFirstUse(earliest)
			if err != nil {
				return time.Time{}, false, fmt.Errorf("record first use: %w", err)
			}
			return stored, true, nil
		}
	}

	if _, err := g.registry.RecordFirstUse(now); err != nil {
		return time.Time{}, false, fmt.Errorf("record first use: %w", err)
	}
	g.logger.Info("first use recorded", map[string]any{"timestamp": now.Unix()})
	return time.Time{}, false, nil
}

func (g *Gate) treasury(policy types.PricingPolicy) string {
	if g.cfg.TreasuryAddress != "" {
		return g.cfg.TreasuryAddress
	}
	return policy.TreasuryAddress
}

// subscribed verifies the configured proof once and remembers a success.
func (g *Gate) subscribed(ctx context.Context, treasury string, policy types.PricingPolicy) bool {
	hash := g.cfg.SubscriptionTxHash
	if hash == "" || g.verifier == nil {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.verified == hash {
		return true
	}

	minimum := policy.SubscriptionPrice.Mul(SubscriptionProofRatio)
	res, err := g.verifier.VerifyTransfer(ctx, hash, treasury, minimum)
	if err != nil {
		g.logger.Warn("subscription proof lookup failed", map[string]any{"tx": hash, "error": err.Error()})
		return false
	}
	if !res.Valid {
		g.logger.Warn("subscription proof rejected", map[string]any{"tx": hash, "reason": res.Reason})
		return false
	}
	g.verified = hash
	return true
}
