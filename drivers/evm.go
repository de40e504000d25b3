package drivers

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/tonatisp/iagent-pay/clients"
	"github.com/tonatisp/iagent-pay/logger"
	"github.com/tonatisp/iagent-pay/tokens"
	"github.com/tonatisp/iagent-pay/types"
	"github.com/tonatisp/iagent-pay/verification"
)

const (
	nativeDecimals    = 18
	nativeTransferGas = uint64(21000)
	tokenTransferGas  = uint64(65000)
	maxNonceRefreshes = 1
)

var _ ChainDriver = (*EVMDriver)(nil)

// EVMDriver submits legacy transactions signed for the network's chain id.
type EVMDriver struct {
	profile types.ChainProfile
	client  clients.EVMClient
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
	signer  ethtypes.Signer
	nonces  *NonceManager
	gas     GasPolicy
	tokens  *tokens.Resolver
	lockKey string

	logger       logger.Logger
	pollInterval time.Duration
}

// NewEVMDriver binds client and key to profile. The chain id used for signing
// is the one the node reports.
func NewEVMDriver(ctx context.Context, profile types.ChainProfile, client clients.EVMClient, key *ecdsa.PrivateKey, opts ...DriverOption) (*EVMDriver, error) {
	if key == nil {
		return nil, types.NewError(types.ErrConfigError, "EVM driver requires a private key")
	}
	cfg := newDriverConfig(opts)

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, types.NewError(types.ErrConnectivityFailure, "failed to read chain id", types.WithCause(err))
	}
	if profile.ChainID != 0 && chainID.Uint64() != profile.ChainID {
		cfg.logger.Warn("node chain id differs from profile", map[string]any{
			"chain":       profile.Name,
			"profileId":   profile.ChainID,
			"nodeChainId": chainID.String(),
		})
	}

	from := crypto.PubkeyToAddress(key.PublicKey)
	d := &EVMDriver{
		profile:      profile,
		client:       client,
		key:          key,
		from:         from,
		chainID:      chainID,
		signer:       ethtypes.LatestSignerForChainID(chainID),
		nonces:       NewNonceManager(from, client),
		gas:          NewGasPolicy(client),
		lockKey:      accountKey(string(types.ChainEVM), chainID.String(), from.Hex()),
		logger:       cfg.logger,
		pollInterval: cfg.pollInterval,
	}
	d.tokens = tokens.NewResolver(profile, tokens.DecimalsFunc(d.tokenDecimals))
	return d, nil
}

func (d *EVMDriver) Profile() types.ChainProfile { return d.profile }

func (d *EVMDriver) Address() string { return d.from.Hex() }

// Nonces exposes the driver's nonce manager.
func (d *EVMDriver) Nonces() *NonceManager { return d.nonces }

func (d *EVMDriver) Balance(ctx context.Context) (decimal.Decimal, error) {
	wei, err := d.client.BalanceAt(ctx, d.from)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance of %s: %w", d.from.Hex(), err)
	}
	return tokens.FromBaseUnits(wei, nativeDecimals), nil
}

func (d *EVMDriver) SendNative(ctx context.Context, to string, amount decimal.Decimal, feeCeiling *decimal.Decimal) (string, error) {
	recipient, err := parseEVMAddress(to)
	if err != nil {
		return "", err
	}

	value := tokens.ToBaseUnits(amount, nativeDecimals)
	if value.Sign() <= 0 {
		return "", types.NewError(types.ErrInvalidPayment, fmt.Sprintf("amount %s is below one wei", amount))
	}

	return d.submit(ctx, recipient, value, nil, nativeTransferGas, feeCeiling)
}

func (d *EVMDriver) SendToken(ctx context.Context, to, symbol string, amount decimal.Decimal, feeCeiling *decimal.Decimal) (string, error) {
	recipient, err := parseEVMAddress(to)
	if err != nil {
		return "", err
	}

	desc, err := d.tokens.Resolve(ctx, symbol)
	if err != nil {
		return "", err
	}

	raw := tokens.ToBaseUnits(amount, desc.Decimals)
	if raw.Sign() <= 0 {
		return "", types.NewError(types.ErrInvalidPayment,
			fmt.Sprintf("amount %s is below the smallest unit of %s", amount, desc.Symbol))
	}

	data, err := clients.PackTransfer(recipient, raw)
	if err != nil {
		return "", fmt.Errorf("encode transfer: %w", err)
	}

	contract := common.HexToAddress(desc.AssetID)
	gasLimit, err := d.client.EstimateGas(ctx, ethereum.CallMsg{From: d.from, To: &contract, Data: data})
	if err != nil || gasLimit == 0 {
		gasLimit = tokenTransferGas
	}

	d.logger.Debug("token transfer encoded", map[string]any{
		"symbol":   desc.Symbol,
		"contract": desc.AssetID,
		"decimals": desc.Decimals,
		"raw":      raw.String(),
	})

	return d.submit(ctx, contract, big.NewInt(0), data, gasLimit, feeCeiling)
}

func (d *EVMDriver) CheckFee(ctx context.Context, feeCeiling *decimal.Decimal) error {
	_, err := d.gas.Quote(ctx, feeCeiling)
	return err
}

// submit quotes the fee, takes a nonce, signs and sends. The fee ceiling is
// checked before any nonce is taken. A stale nonce is refreshed once.
func (d *EVMDriver) submit(ctx context.Context, to common.Address, value *big.Int, data []byte, gasLimit uint64, feeCeiling *decimal.Decimal) (string, error) {
	unlock := lockAccount(d.lockKey)
	defer unlock()

	gasPrice, err := d.gas.Quote(ctx, feeCeiling)
	if err != nil {
		return "", err
	}

	nonce, err := d.nonces.Next(ctx)
	if err != nil {
		return "", types.NewError(types.ErrDispatchFailed, "failed to obtain nonce", types.WithCause(err))
	}

	for refreshes := 0; ; refreshes++ {
		tx := ethtypes.NewTx(&ethtypes.LegacyTx{
			Nonce:    nonce,
			To:       &to,
			Value:    value,
			Gas:      gasLimit,
			GasPrice: gasPrice,
			Data:     data,
		})

		signed, err := ethtypes.SignTx(tx, d.signer, d.key)
		if err != nil {
			return "", types.NewError(types.ErrDispatchFailed, "failed to sign transaction", types.WithCause(err))
		}

		err = d.client.SendTransaction(ctx, signed)
		if err == nil {
			d.nonces.Commit(nonce)
			d.logger.Info("transaction submitted", map[string]any{
				"chain":    d.profile.Name,
				"tx":       signed.Hash().Hex(),
				"nonce":    nonce,
				"gasPrice": gasPrice.String(),
			})
			return signed.Hash().Hex(), nil
		}

		if !clients.IsNonceTooLow(err) {
			return "", types.NewError(types.ErrDispatchFailed, "transaction rejected", types.WithCause(err))
		}
		if refreshes >= maxNonceRefreshes {
			return "", types.NewError(types.ErrNonceConflict,
				"nonce rejected after refresh", types.WithCause(err), types.WithData("nonce", nonce))
		}

		d.logger.Warn("nonce rejected, refreshing from network", map[string]any{
			"chain": d.profile.Name,
			"nonce": nonce,
			"error": err.Error(),
		})
		nonce, err = d.nonces.Refresh(ctx, nonce)
		if err != nil {
			return "", types.NewError(types.ErrNonceConflict, "failed to refresh nonce", types.WithCause(err))
		}
	}
}

// WaitForConfirmation polls for the receipt until ctx ends. A reverted
// transaction is a CONFIRMATION_FAILED error.
func (d *EVMDriver) WaitForConfirmation(ctx context.Context, txID string) error {
	hash := common.HexToHash(txID)
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := d.client.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				return types.NewError(types.ErrConfirmationFailed, "transaction reverted",
					types.WithData("tx", txID), types.WithData("block", receipt.BlockNumber.String()))
			}
			return nil
		case err != nil && !clients.IsNotFound(err):
			d.logger.Debug("receipt poll failed", map[string]any{"tx": txID, "error": err.Error()})
		}

		select {
		case <-ctx.Done():
			return types.NewError(types.ErrConfirmationFailed, "timed out waiting for receipt",
				types.WithCause(ctx.Err()), types.WithData("tx", txID))
		case <-ticker.C:
		}
	}
}

func (d *EVMDriver) VerifyTransfer(ctx context.Context, txID, to string, minimum decimal.Decimal) (*verification.Result, error) {
	return verification.NewEVMVerifier(d.client).VerifyTransfer(ctx, txID, to, minimum)
}

func (d *EVMDriver) Close() {
	d.client.Close()
}

func (d *EVMDriver) tokenDecimals(ctx context.Context, assetID string) (int, error) {
	dec, err := d.client.TokenDecimals(ctx, common.HexToAddress(assetID))
	if err != nil {
		return 0, err
	}
	return int(dec), nil
}

func parseEVMAddress(addr string) (common.Address, error) {
	if !common.IsHexAddress(addr) {
		return common.Address{}, types.NewError(types.ErrInvalidRecipient,
			"invalid EVM address: "+strconv.Quote(addr))
	}
	return common.HexToAddress(addr), nil
}
