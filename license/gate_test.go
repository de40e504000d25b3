package license

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonatisp/iagent-pay/types"
	"github.com/tonatisp/iagent-pay/verification"
)

const treasury = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

type fakeHistory struct {
	earliest time.Time
	err      error
}

func (h fakeHistory) Earliest(context.Context) (time.Time, bool, error) {
	return h.earliest, !h.earliest.IsZero(), h.err
}

type fakeVerifier struct {
	valid   bool
	err     error
	calls   int
	minimum decimal.Decimal
}

func (v *fakeVerifier) VerifyTransfer(ctx context.Context, txID, to string, minimum decimal.Decimal) (*verification.Result, error) {
	v.calls++
	v.minimum = minimum
	if v.err != nil {
		return nil, v.err
	}
	return &verification.Result{Valid: v.valid, Reason: "test"}, nil
}

func gateAt(t *testing.T, cfg types.LicenseConfig, reg Registry, now time.Time, opts ...GateOption) *Gate {
	t.Helper()
	opts = append(opts, WithGateClock(func() time.Time { return now }))
	return NewGate(cfg, reg, nil, opts...)
}

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestGateFirstUseRecordsTimestamp(t *testing.T) {
	reg := &MemoryRegistry{}
	g := gateAt(t, types.LicenseConfig{TreasuryAddress: treasury}, reg, start)

	d, err := g.Check(context.Background(), types.NativeAsset())
	require.NoError(t, err)
	assert.Equal(t, PhaseNew, d.Phase)
	assert.False(t, d.FeeRequired)

	first, ok, _ := reg.FirstUse()
	assert.True(t, ok)
	assert.True(t, start.Equal(first))

	d, err = g.Check(context.Background(), types.NativeAsset())
	require.NoError(t, err)
	assert.Equal(t, PhaseTrialActive, d.Phase)
}

func TestGateAdoptsLedgerHistory(t *testing.T) {
	reg := &MemoryRegistry{}
	g := gateAt(t, types.LicenseConfig{TreasuryAddress: treasury}, reg, start,
		WithHistory(fakeHistory{earliest: start.Add(-12 * day)}))

	d, err := g.Check(context.Background(), types.NativeAsset())
	require.NoError(t, err)
	assert.Equal(t, PhaseTrialWarning, d.Phase)

	first, _, _ := reg.FirstUse()
	assert.True(t, start.Add(-12*day).Equal(first))
}

func TestGateHistoryErrorIsAbsorbed(t *testing.T) {
	g := gateAt(t, types.LicenseConfig{}, &MemoryRegistry{}, start,
		WithHistory(fakeHistory{err: errors.New("ledger offline")}))

	d, err := g.Check(context.Background(), types.NativeAsset())
	require.NoError(t, err)
	assert.Equal(t, PhaseNew, d.Phase)
}

func TestGateExpiredChargesFee(t *testing.T) {
	reg := &MemoryRegistry{first: start.Add(-15 * day)}
	g := gateAt(t, types.LicenseConfig{TreasuryAddress: treasury}, reg, start)

	d, err := g.Check(context.Background(), types.NativeAsset())
	require.NoError(t, err)
	assert.Equal(t, PhaseTrialExpired, d.Phase)
	assert.True(t, d.FeeRequired)
	assert.True(t, d.Fee.Equal(decimal.RequireFromString("0.0001")))
	assert.Equal(t, treasury, d.Treasury)
}

func TestGateZeroPerUsePriceChargesNothing(t *testing.T) {
	free := types.DefaultPricingPolicy()
	free.PayPerUsePrice = decimal.Zero
	reg := &MemoryRegistry{first: start.Add(-15 * day)}
	g := NewGate(types.LicenseConfig{TreasuryAddress: treasury}, reg, StaticPricing(free),
		WithGateClock(func() time.Time { return start }))

	d, err := g.Check(context.Background(), types.NativeAsset())
	require.NoError(t, err)
	assert.Equal(t, PhaseTrialExpired, d.Phase)
	assert.True(t, d.Enforced)
	assert.False(t, d.FeeRequired)
	assert.True(t, d.Fee.IsZero())
}

func TestGateExpiredWithoutTreasury(t *testing.T) {
	reg := &MemoryRegistry{first: start.Add(-15 * day)}
	g := gateAt(t, types.LicenseConfig{}, reg, start)

	_, err := g.Check(context.Background(), types.NativeAsset())
	assert.Equal(t, types.ErrConfigError, types.CodeOf(err))
}

func TestGateTreasuryFromPricing(t *testing.T) {
	policy := types.DefaultPricingPolicy()
	policy.TreasuryAddress = treasury
	reg := &MemoryRegistry{first: start.Add(-15 * day)}
	g := NewGate(types.LicenseConfig{}, reg, StaticPricing(policy), WithGateClock(func() time.Time { return start }))

	d, err := g.Check(context.Background(), types.NativeAsset())
	require.NoError(t, err)
	assert.Equal(t, treasury, d.Treasury)
}

func TestGateSubscriptionProof(t *testing.T) {
	reg := &MemoryRegistry{first: start.Add(-30 * day)}
	v := &fakeVerifier{valid: true}
	g := gateAt(t, types.LicenseConfig{TreasuryAddress: treasury, SubscriptionTxHash: "0xfeed"}, reg, start, WithVerifier(v))

	for i := 0; i < 3; i++ {
		d, err := g.Check(context.Background(), types.NativeAsset())
		require.NoError(t, err)
		assert.True(t, d.Subscribed)
		assert.False(t, d.FeeRequired)
	}
	assert.Equal(t, 1, v.calls)
	assert.True(t, v.minimum.Equal(decimal.RequireFromString("0.0095")))
}

func TestGateRejectedProofChargesFee(t *testing.T) {
	reg := &MemoryRegistry{first: start.Add(-30 * day)}
	tests := []struct {
		name     string
		verifier *fakeVerifier
	}{
		{"invalid proof", &fakeVerifier{valid: false}},
		{"lookup error", &fakeVerifier{err: errors.New("rpc down")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := gateAt(t, types.LicenseConfig{TreasuryAddress: treasury, SubscriptionTxHash: "0xfeed"}, reg, start, WithVerifier(tt.verifier))
			d, err := g.Check(context.Background(), types.NativeAsset())
			require.NoError(t, err)
			assert.True(t, d.FeeRequired)
			assert.False(t, d.Subscribed)
		})
	}
}

func TestGateTokenPolicy(t *testing.T) {
	reg := &MemoryRegistry{first: start.Add(-30 * day)}

	off := gateAt(t, types.LicenseConfig{TreasuryAddress: treasury}, reg, start)
	d, err := off.Check(context.Background(), types.TokenAsset("USDC"))
	require.NoError(t, err)
	assert.False(t, d.Enforced)
	assert.False(t, d.FeeRequired)

	on := gateAt(t, types.LicenseConfig{TreasuryAddress: treasury, EnforceOnTokens: true}, reg, start)
	d, err = on.Check(context.Background(), types.TokenAsset("USDC"))
	require.NoError(t, err)
	assert.True(t, d.FeeRequired)
}

func TestGateInactivePricingAndDisabled(t *testing.T) {
	reg := &MemoryRegistry{first: start.Add(-30 * day)}
	inactive := types.DefaultPricingPolicy()
	inactive.Active = false

	g := NewGate(types.LicenseConfig{TreasuryAddress: treasury}, reg, StaticPricing(inactive),
		WithGateClock(func() time.Time { return start }))
	d, err := g.Check(context.Background(), types.NativeAsset())
	require.NoError(t, err)
	assert.False(t, d.FeeRequired)

	disabled := gateAt(t, types.LicenseConfig{Disabled: true}, reg, start)
	d, err = disabled.Check(context.Background(), types.NativeAsset())
	require.NoError(t, err)
	assert.False(t, d.Enforced)
}
