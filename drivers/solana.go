package drivers

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/tonatisp/iagent-pay/clients"
	"github.com/tonatisp/iagent-pay/logger"
	"github.com/tonatisp/iagent-pay/tokens"
	"github.com/tonatisp/iagent-pay/types"
	"github.com/tonatisp/iagent-pay/verification"
)

const lamportDecimals = 9

var _ ChainDriver = (*SolanaDriver)(nil)

// SolanaDriver submits system and SPL token transfers.
type SolanaDriver struct {
	profile types.ChainProfile
	client  clients.SolanaClient
	key     solana.PrivateKey
	from    solana.PublicKey
	tokens  *tokens.Resolver
	lockKey string

	logger       logger.Logger
	pollInterval time.Duration
}

func NewSolanaDriver(profile types.ChainProfile, client clients.SolanaClient, key solana.PrivateKey, opts ...DriverOption) (*SolanaDriver, error) {
	if len(key) != 64 {
		return nil, types.NewError(types.ErrConfigError, "Solana driver requires a 64-byte private key")
	}
	cfg := newDriverConfig(opts)

	from := key.PublicKey()
	d := &SolanaDriver{
		profile:      profile,
		client:       client,
		key:          key,
		from:         from,
		lockKey:      accountKey(string(types.ChainSolana), profile.TokenKey(), from.String()),
		logger:       cfg.logger,
		pollInterval: cfg.pollInterval,
	}
	d.tokens = tokens.NewResolver(profile, tokens.DecimalsFunc(d.mintDecimals))
	return d, nil
}

func (d *SolanaDriver) Profile() types.ChainProfile { return d.profile }

func (d *SolanaDriver) Address() string { return d.from.String() }

func (d *SolanaDriver) Balance(ctx context.Context) (decimal.Decimal, error) {
	lamports, err := d.client.GetBalance(ctx, d.from)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance of %s: %w", d.from, err)
	}
	return tokens.FromBaseUnits(new(big.Int).SetUint64(lamports), lamportDecimals), nil
}

// CheckFee always passes: Solana fees are fixed per signature.
func (d *SolanaDriver) CheckFee(ctx context.Context, feeCeiling *decimal.Decimal) error {
	d.ignoreCeiling(feeCeiling)
	return nil
}

// SendNative ignores feeCeiling: Solana fees are fixed per signature.
func (d *SolanaDriver) SendNative(ctx context.Context, to string, amount decimal.Decimal, feeCeiling *decimal.Decimal) (string, error) {
	recipient, err := parseSolanaAddress(to)
	if err != nil {
		return "", err
	}
	d.ignoreCeiling(feeCeiling)

	raw := tokens.ToBaseUnits(amount, lamportDecimals)
	if raw.Sign() <= 0 || !raw.IsUint64() {
		return "", types.NewError(types.ErrInvalidPayment, fmt.Sprintf("amount %s is out of lamport range", amount))
	}

	ix := system.NewTransferInstruction(raw.Uint64(), d.from, recipient).Build()
	return d.send(ctx, []solana.Instruction{ix})
}

// SendToken transfers an SPL token, creating the recipient's associated token
// account first when it does not exist. The sender pays for the creation.
func (d *SolanaDriver) SendToken(ctx context.Context, to, symbol string, amount decimal.Decimal, feeCeiling *decimal.Decimal) (string, error) {
	recipient, err := parseSolanaAddress(to)
	if err != nil {
		return "", err
	}
	d.ignoreCeiling(feeCeiling)

	desc, err := d.tokens.Resolve(ctx, symbol)
	if err != nil {
		return "", err
	}

	raw := tokens.ToBaseUnits(amount, desc.Decimals)
	if raw.Sign() <= 0 || !raw.IsUint64() {
		return "", types.NewError(types.ErrInvalidPayment,
			fmt.Sprintf("amount %s is out of range for %s", amount, desc.Symbol))
	}

	mint, err := solana.PublicKeyFromBase58(desc.AssetID)
	if err != nil {
		return "", fmt.Errorf("mint %s: %w", desc.AssetID, err)
	}

	source, _, err := solana.FindAssociatedTokenAddress(d.from, mint)
	if err != nil {
		return "", fmt.Errorf("derive sender token account: %w", err)
	}
	dest, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return "", fmt.Errorf("derive recipient token account: %w", err)
	}

	exists, err := d.client.AccountExists(ctx, dest)
	if err != nil {
		return "", types.NewError(types.ErrDispatchFailed, "failed to look up recipient token account", types.WithCause(err))
	}

	instructions := make([]solana.Instruction, 0, 2)
	if !exists {
		d.logger.Info("creating recipient token account", map[string]any{
			"owner":   recipient.String(),
			"mint":    mint.String(),
			"account": dest.String(),
		})
		instructions = append(instructions,
			associatedtokenaccount.NewCreateInstruction(d.from, recipient, mint).Build())
	}
	instructions = append(instructions, token.NewTransferCheckedInstruction(
		raw.Uint64(),
		uint8(desc.Decimals),
		source,
		mint,
		dest,
		d.from,
		[]solana.PublicKey{},
	).Build())

	return d.send(ctx, instructions)
}

func (d *SolanaDriver) send(ctx context.Context, instructions []solana.Instruction) (string, error) {
	unlock := lockAccount(d.lockKey)
	defer unlock()

	blockhash, err := d.client.LatestBlockhash(ctx)
	if err != nil {
		return "", types.NewError(types.ErrDispatchFailed, "failed to fetch blockhash", types.WithCause(err))
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(d.from))
	if err != nil {
		return "", types.NewError(types.ErrDispatchFailed, "failed to build transaction", types.WithCause(err))
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(d.from) {
			return &d.key
		}
		return nil
	}); err != nil {
		return "", types.NewError(types.ErrDispatchFailed, "failed to sign transaction", types.WithCause(err))
	}

	sig, err := d.client.SendTransaction(ctx, tx)
	if err != nil {
		return "", types.NewError(types.ErrDispatchFailed, "transaction rejected", types.WithCause(err))
	}

	d.logger.Info("transaction submitted", map[string]any{
		"chain": d.profile.Name,
		"tx":    sig.String(),
	})
	return sig.String(), nil
}

// WaitForConfirmation polls signature status until it is finalized.
func (d *SolanaDriver) WaitForConfirmation(ctx context.Context, txID string) error {
	sig, err := solana.SignatureFromBase58(txID)
	if err != nil {
		return types.NewError(types.ErrConfirmationFailed, "invalid signature", types.WithCause(err))
	}

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		status, err := d.client.SignatureStatus(ctx, sig)
		switch {
		case err != nil:
			d.logger.Debug("signature status poll failed", map[string]any{"tx": txID, "error": err.Error()})
		case status != nil && status.Err != nil:
			return types.NewError(types.ErrConfirmationFailed, fmt.Sprintf("transaction failed: %v", status.Err),
				types.WithData("tx", txID))
		case status != nil && status.ConfirmationStatus == rpc.ConfirmationStatusFinalized:
			return nil
		}

		select {
		case <-ctx.Done():
			return types.NewError(types.ErrConfirmationFailed, "timed out waiting for finalization",
				types.WithCause(ctx.Err()), types.WithData("tx", txID))
		case <-ticker.C:
		}
	}
}

// Airdrop requests test SOL. Only devnet profiles accept it.
func (d *SolanaDriver) Airdrop(ctx context.Context, sol decimal.Decimal) (string, error) {
	if d.profile.Tier != types.TierDevnet {
		return "", types.NewError(types.ErrConfigError, "airdrop is only available on devnet")
	}
	raw := tokens.ToBaseUnits(sol, lamportDecimals)
	if raw.Sign() <= 0 || !raw.IsUint64() {
		return "", types.NewError(types.ErrInvalidPayment, fmt.Sprintf("airdrop amount %s is out of range", sol))
	}
	sig, err := d.client.RequestAirdrop(ctx, d.from, raw.Uint64())
	if err != nil {
		return "", types.NewError(types.ErrDispatchFailed, "airdrop request failed", types.WithCause(err))
	}
	return sig.String(), nil
}

func (d *SolanaDriver) VerifyTransfer(ctx context.Context, txID, to string, minimum decimal.Decimal) (*verification.Result, error) {
	return verification.NewSolanaVerifier(d.client).VerifyTransfer(ctx, txID, to, minimum)
}

func (d *SolanaDriver) Close() {
	d.client.Close()
}

func (d *SolanaDriver) ignoreCeiling(feeCeiling *decimal.Decimal) {
	if feeCeiling != nil {
		d.logger.Debug("fee ceiling ignored on Solana", map[string]any{"ceiling": feeCeiling.String()})
	}
}

func (d *SolanaDriver) mintDecimals(ctx context.Context, assetID string) (int, error) {
	mint, err := solana.PublicKeyFromBase58(assetID)
	if err != nil {
		return 0, err
	}
	dec, err := d.client.MintDecimals(ctx, mint)
	if err != nil {
		return 0, err
	}
	return int(dec), nil
}

func parseSolanaAddress(addr string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return solana.PublicKey{}, types.NewError(types.ErrInvalidRecipient,
			fmt.Sprintf("invalid Solana address %q", addr), types.WithCause(err))
	}
	return pk, nil
}
