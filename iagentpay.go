// Package iagentpay dispatches native-coin and token payments on EVM and
// Solana networks for autonomous agents. A Dispatcher is bound to exactly one
// chain for its lifetime and records every payment in an append-only ledger.
package iagentpay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/tonatisp/iagent-pay/chains"
	"github.com/tonatisp/iagent-pay/clients"
	"github.com/tonatisp/iagent-pay/config"
	"github.com/tonatisp/iagent-pay/drivers"
	"github.com/tonatisp/iagent-pay/invoice"
	"github.com/tonatisp/iagent-pay/keystore"
	"github.com/tonatisp/iagent-pay/ledger"
	"github.com/tonatisp/iagent-pay/license"
	"github.com/tonatisp/iagent-pay/logger"
	"github.com/tonatisp/iagent-pay/metrics"
	"github.com/tonatisp/iagent-pay/resolver"
	"github.com/tonatisp/iagent-pay/types"
)

// Version information
const (
	Version         = types.Version
	ProtocolVersion = invoice.Protocol
)

// Dispatcher is the payment orchestrator. It is safe for concurrent use;
// payments from one dispatcher are submitted one at a time.
type Dispatcher struct {
	cfg      types.Config
	chains   *chains.Registry
	router   *drivers.Router
	driver   drivers.ChainDriver
	gate     *license.Gate
	pricing  license.PricingSource
	registry license.Registry
	ledger   ledger.Store
	resolver resolver.Resolver
	keys     keystore.Keystore
	logger   logger.Logger
	metrics  metrics.Recorder
	now      func() time.Time

	closers []func() error

	// payMu spans the daily-limit check through submission.
	payMu      sync.Mutex
	limitMu    sync.RWMutex
	dailyLimit decimal.Decimal
}

// New builds a Dispatcher from cfg. Collaborators not supplied through opts
// are constructed from cfg: the chain driver through the router, the ledger
// through ledger.Open, and so on.
func New(ctx context.Context, cfg types.Config, opts ...Option) (*Dispatcher, error) {
	cfg = config.WithDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		cfg:        cfg,
		now:        time.Now,
		dailyLimit: cfg.DailyLimit,
	}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.init(ctx); err != nil {
		d.Close()
		return nil, err
	}

	d.logger.Info("dispatcher ready", map[string]any{
		"chain":    d.driver.Profile().Name,
		"address":  d.driver.Address(),
		"fallback": d.driver.Profile().Fallback,
		"ledger":   cfg.Ledger.Driver,
	})
	return d, nil
}

func (d *Dispatcher) init(ctx context.Context) error {
	cfg := d.cfg

	if d.logger == nil {
		d.logger = logger.NewZapLogger(cfg.LogLevel)
	}
	if d.metrics == nil {
		if cfg.EnableMetrics {
			rec, err := metrics.NewPrometheusRecorder(prometheus.DefaultRegisterer)
			if err != nil {
				return types.NewError(types.ErrConfigError, "register metrics", types.WithCause(err))
			}
			d.metrics = rec
		} else {
			d.metrics = metrics.NoopRecorder{}
		}
	}

	if d.chains == nil {
		d.chains = chains.Default()
		if cfg.ChainsFile != "" {
			reg, err := chains.LoadProfiles(cfg.ChainsFile)
			if err != nil {
				return types.NewError(types.ErrConfigError, "load chain profiles", types.WithCause(err))
			}
			d.chains = reg
		}
	}

	if d.driver == nil {
		if d.keys == nil {
			env, err := keystore.FromEnv("")
			if err != nil {
				return types.NewError(types.ErrConfigError, "load keys", types.WithCause(err))
			}
			d.keys = keystore.Chain{env, keystore.SolanaIDFile{Create: true}}
		}
		if d.router == nil {
			d.router = drivers.NewRouter(d.chains,
				drivers.WithRouterLogger(d.logger),
				drivers.WithRouterPollInterval(cfg.PollInterval))
		}
		dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		driver, err := d.router.Open(dialCtx, cfg.Chain, cfg.RPCOverride, d.keys)
		cancel()
		if err != nil {
			return err
		}
		d.driver = driver
	}
	d.closers = append(d.closers, func() error { d.driver.Close(); return nil })

	if d.ledger == nil {
		store, err := ledger.Open(ctx, cfg.Ledger, d.logger)
		if err != nil {
			return err
		}
		d.ledger = store
		d.closers = append(d.closers, store.Close)
	}

	if d.resolver == nil {
		multi := &resolver.Multi{SNS: resolver.NewSNSResolver(cfg.Resolver.SNSEndpoint, nil)}
		if cfg.Resolver.ENSRPC != "" {
			client, err := clients.NewEthereumClient(ctx, cfg.Resolver.ENSRPC)
			if err != nil {
				return types.NewError(types.ErrConnectivityFailure, "dial ENS endpoint", types.WithCause(err))
			}
			d.closers = append(d.closers, func() error { client.Close(); return nil })
			multi.ENS = resolver.NewENSResolver(client)
		}
		d.resolver = multi
	}

	if d.pricing == nil {
		d.pricing = license.NewPricingManager(cfg.Pricing, license.WithPricingLogger(d.logger))
	}
	if d.registry == nil && !cfg.License.Disabled {
		reg, err := license.NewFileRegistry(cfg.License.RegistryPath)
		if err != nil {
			return types.NewError(types.ErrConfigError, "open license registry", types.WithCause(err))
		}
		d.registry = reg
	}
	d.gate = license.NewGate(cfg.License, d.registry, d.pricing,
		license.WithGateLogger(d.logger),
		license.WithHistory(d.ledger),
		license.WithVerifier(d.driver),
		license.WithGateClock(d.now))
	return nil
}

// Pay runs one payment through the dispatch state machine. Once the transfer
// has been submitted the receipt is returned even when a later step fails.
func (d *Dispatcher) Pay(ctx context.Context, req types.PaymentRequest) (*types.Receipt, error) {
	start := d.now()
	labels := d.labels(req.Asset)
	rc := &types.Receipt{
		Chain:  d.driver.Profile().Name,
		Amount: req.Amount,
		Asset:  req.Asset,
		Trace:  []types.State{types.StateIdle},
	}

	if err := req.Validate(); err != nil {
		return nil, d.abort(rc, labels, err)
	}

	rc.Trace = append(rc.Trace, types.StateResolving)
	to, err := d.resolve(ctx, req.Recipient)
	if err != nil {
		return nil, d.abort(rc, labels, err)
	}
	rc.Recipient = to

	d.payMu.Lock()
	txID, feeTxID, err := d.submit(ctx, rc, req, to)
	d.payMu.Unlock()
	rc.FeeTxID = feeTxID
	if err != nil {
		if feeTxID != "" {
			err = withFeeTx(err, feeTxID)
		}
		return nil, d.abort(rc, labels, err)
	}

	rc.TxID = txID
	rc.Status = types.StatusSent.Tagged(req.Asset)
	rc.Trace = append(rc.Trace, types.StateSubmitted)
	d.metrics.IncCounter(metrics.PaymentSubmitted, labels)
	d.metrics.ObserveLatency(metrics.OpDispatch, d.now().Sub(start), labels)
	d.logger.Info("payment submitted", map[string]any{
		"tx":        txID,
		"recipient": to,
		"amount":    req.Amount.String(),
		"asset":     req.Asset.String(),
	})

	if !req.WaitForConfirmation {
		return rc, nil
	}

	rc.Trace = append(rc.Trace, types.StateWaiting)
	if err := d.confirm(ctx, txID); err != nil {
		rc.Status = types.StatusFailed.Tagged(req.Asset)
		d.record(ctx, txID, to, req.Amount, rc.Status)
		return rc, d.abort(rc, labels, err)
	}

	rc.Status = types.StatusConfirmed.Tagged(req.Asset)
	rc.Trace = append(rc.Trace, types.StateConfirmed)
	d.record(ctx, txID, to, req.Amount, rc.Status)
	d.metrics.IncCounter(metrics.PaymentConfirmed, labels)
	d.metrics.ObserveLatency(metrics.OpConfirmation, d.now().Sub(start), labels)
	return rc, nil
}

// submit covers LicenseCheck through Signing. It runs under payMu so the
// daily-limit check and the submission it guards cannot interleave with
// another payment.
func (d *Dispatcher) submit(ctx context.Context, rc *types.Receipt, req types.PaymentRequest, to string) (txID, feeTxID string, err error) {
	if req.Asset.IsNative() {
		if err := d.checkDailyLimit(ctx, req.Amount); err != nil {
			return "", "", err
		}
	}

	if req.FeeCeiling != nil {
		if err := d.driver.CheckFee(ctx, req.FeeCeiling); err != nil {
			return "", "", err
		}
	}

	rc.Trace = append(rc.Trace, types.StateLicenseCheck)
	feeTxID, err = d.enforceLicense(ctx, req.Asset, req.FeeCeiling)
	if err != nil {
		return "", feeTxID, err
	}

	rc.Trace = append(rc.Trace, types.StateBuilding, types.StateSigning)
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	if req.Asset.IsNative() {
		txID, err = d.driver.SendNative(sendCtx, to, req.Amount, req.FeeCeiling)
	} else {
		txID, err = d.driver.SendToken(sendCtx, to, req.Asset.Symbol, req.Amount, req.FeeCeiling)
	}
	if err != nil {
		return "", feeTxID, err
	}

	d.record(ctx, txID, to, req.Amount, types.StatusSent.Tagged(req.Asset))
	return txID, feeTxID, nil
}

func (d *Dispatcher) confirm(ctx context.Context, txID string) error {
	waitCtx, cancel := context.WithTimeout(ctx, d.cfg.ConfirmationTimeout)
	defer cancel()

	err := d.driver.WaitForConfirmation(waitCtx, txID)
	if err == nil {
		return nil
	}
	if types.CodeOf(err) != "" {
		return err
	}
	return types.NewError(types.ErrConfirmationFailed,
		fmt.Sprintf("transaction %s was not confirmed", txID),
		types.WithCause(err), types.WithData("tx", txID))
}

// withFeeTx attaches the id of an already submitted usage fee to err,
// keeping its failure kind.
func withFeeTx(err error, feeTxID string) error {
	code := types.CodeOf(err)
	if code == "" {
		code = types.ErrDispatchFailed
	}
	return types.NewError(code, "payment failed after the usage fee was paid",
		types.WithCause(err), types.WithData("fee_tx", feeTxID))
}

// abort marks the receipt failed and reports err.
func (d *Dispatcher) abort(rc *types.Receipt, labels map[string]string, err error) error {
	rc.Trace = append(rc.Trace, types.StateFailed)
	d.metrics.IncCounter(metrics.PaymentFailed, labels)
	d.logger.Error("payment failed", map[string]any{
		"recipient": rc.Recipient,
		"amount":    rc.Amount.String(),
		"asset":     rc.Asset.String(),
		"tx":        rc.TxID,
		"code":      types.CodeOf(err),
		"retryable": types.Retryable(types.CodeOf(err)),
		"error":     err.Error(),
	})
	return err
}

func (d *Dispatcher) resolve(ctx context.Context, identifier string) (string, error) {
	addr, err := d.resolver.Resolve(ctx, identifier)
	if err != nil {
		return "", types.NewError(types.ErrUnresolvedRecipient,
			fmt.Sprintf("failed to resolve %s", identifier), types.WithCause(err))
	}
	if strings.TrimSpace(addr) == "" {
		return "", types.NewError(types.ErrUnresolvedRecipient, fmt.Sprintf("no address found for %s", identifier))
	}
	if resolver.IsHandle(identifier) {
		d.logger.Debug("recipient resolved", map[string]any{"handle": identifier, "address": addr})
	}
	return addr, nil
}

func (d *Dispatcher) checkDailyLimit(ctx context.Context, amount decimal.Decimal) error {
	d.limitMu.RLock()
	limit := d.dailyLimit
	d.limitMu.RUnlock()
	if limit.IsZero() {
		return nil
	}

	records, err := d.ledger.List(ctx)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	spent := ledger.NativeSpend(records, d.now().Add(-24*time.Hour))
	if spent.Add(amount).GreaterThan(limit) {
		return types.NewError(types.ErrDailyLimitExceeded,
			fmt.Sprintf("payment of %s would exceed the daily limit of %s (spent %s)", amount, limit, spent),
			types.WithData("limit", limit.String()), types.WithData("spent", spent.String()))
	}
	return nil
}

// enforceLicense consults the gate and pays the usage fee when one is due.
func (d *Dispatcher) enforceLicense(ctx context.Context, asset types.Asset, feeCeiling *decimal.Decimal) (string, error) {
	decision, err := d.gate.Check(ctx, asset)
	if err != nil {
		return "", err
	}
	if decision.Phase == license.PhaseTrialWarning {
		d.metrics.IncCounter(metrics.LicenseWarning, d.labels(asset))
	}
	if !decision.FeeRequired {
		return "", nil
	}

	txID, err := d.transferUngated(ctx, decision.Treasury, decision.Fee, feeCeiling)
	if err != nil {
		return "", types.NewError(types.ErrLicenseFeePaymentFailed,
			fmt.Sprintf("failed to pay usage fee of %s to %s", decision.Fee, decision.Treasury),
			types.WithCause(err))
	}
	d.metrics.IncCounter(metrics.LicenseFeePaid, d.labels(types.NativeAsset()))
	d.logger.Info("usage fee paid", map[string]any{"tx": txID, "fee": decision.Fee.String()})
	return txID, nil
}

// transferUngated sends native coin without consulting the license gate. It
// makes one attempt and does not wait for confirmation.
func (d *Dispatcher) transferUngated(ctx context.Context, to string, amount decimal.Decimal, feeCeiling *decimal.Decimal) (string, error) {
	if to == "" || !amount.IsPositive() {
		return "", types.NewError(types.ErrInvalidPayment, "ungated transfer needs a recipient and a positive amount")
	}
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	txID, err := d.driver.SendNative(sendCtx, to, amount, feeCeiling)
	if err != nil {
		return "", err
	}
	d.record(ctx, txID, to, amount, types.StatusSent)
	return txID, nil
}

// record appends a ledger row. Ledger failures are logged; the transfer has
// already happened and must still be reported to the caller.
func (d *Dispatcher) record(ctx context.Context, txID, recipient string, amount decimal.Decimal, status types.Status) {
	rec := types.NewRecord(d.now(), txID, recipient, amount, status)
	if err := d.ledger.Append(ctx, rec); err != nil {
		d.logger.Error("failed to append ledger record", map[string]any{
			"tx":     txID,
			"status": string(status),
			"error":  err.Error(),
		})
	}
}

func (d *Dispatcher) labels(asset types.Asset) map[string]string {
	return map[string]string{
		metrics.LabelChain: d.driver.Profile().Name,
		metrics.LabelAsset: asset.String(),
	}
}

// PayNative sends amount of the bound chain's native coin.
func (d *Dispatcher) PayNative(ctx context.Context, recipient string, amount decimal.Decimal, wait bool) (*types.Receipt, error) {
	return d.Pay(ctx, types.PaymentRequest{
		Recipient:           recipient,
		Amount:              amount,
		Asset:               types.NativeAsset(),
		WaitForConfirmation: wait,
	})
}

// PayToken sends amount of the token with the given ticker.
func (d *Dispatcher) PayToken(ctx context.Context, recipient, symbol string, amount decimal.Decimal, wait bool) (*types.Receipt, error) {
	return d.Pay(ctx, types.PaymentRequest{
		Recipient:           recipient,
		Amount:              amount,
		Asset:               types.TokenAsset(symbol),
		WaitForConfirmation: wait,
	})
}

// CreateInvoice issues an invoice payable to this dispatcher's address on its
// bound chain. A negative expiry selects the configured default.
func (d *Dispatcher) CreateInvoice(amount decimal.Decimal, currency, description string, expiry time.Duration) (string, error) {
	if expiry < 0 {
		expiry = d.cfg.Invoice.DefaultExpiry
	}
	inv, err := invoice.Create(d.driver.Address(), amount, currency, d.driver.Profile().Name, description, expiry, d.now())
	if err != nil {
		return "", err
	}
	doc, err := invoice.Encode(inv)
	if err != nil {
		return "", err
	}
	d.logger.Info("invoice created", map[string]any{
		"invoice":  inv.InvoiceID,
		"amount":   inv.Amount.String(),
		"currency": inv.Currency,
	})
	return doc, nil
}

// PayInvoice parses document and pays it. An invoice for another chain is
// rejected unless Invoice.AllowChainMismatch is set.
func (d *Dispatcher) PayInvoice(ctx context.Context, document string, wait bool) (*types.Receipt, error) {
	inv, err := invoice.Parse(document, d.now())
	if err != nil {
		return nil, err
	}

	profile := d.driver.Profile()
	if !d.sameChain(inv.Chain, profile) {
		if !d.cfg.Invoice.AllowChainMismatch {
			return nil, types.NewError(types.ErrChainMismatch,
				fmt.Sprintf("invoice %s is for %s but this dispatcher is bound to %s", inv.InvoiceID, inv.Chain, profile.Name),
				types.WithData("invoice_chain", inv.Chain), types.WithData("bound_chain", profile.Name))
		}
		d.logger.Warn("paying invoice issued for another chain", map[string]any{
			"invoice":       inv.InvoiceID,
			"invoice_chain": inv.Chain,
			"bound_chain":   profile.Name,
		})
	}

	asset := types.TokenAsset(inv.Currency)
	if invoice.IsNative(inv, profile) {
		asset = types.NativeAsset()
	}
	return d.Pay(ctx, types.PaymentRequest{
		Recipient:           inv.Recipient,
		Amount:              inv.Amount,
		Asset:               asset,
		WaitForConfirmation: wait,
	})
}

func (d *Dispatcher) sameChain(name string, bound types.ChainProfile) bool {
	if p, ok := d.chains.Lookup(name); ok {
		return p.Name == bound.Name
	}
	return strings.EqualFold(strings.TrimSpace(name), bound.Name)
}

// Balance returns the native balance of the sending account.
func (d *Dispatcher) Balance(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	return d.driver.Balance(ctx)
}

// Address returns the sending account.
func (d *Dispatcher) Address() string { return d.driver.Address() }

// Profile returns the chain this dispatcher is bound to.
func (d *Dispatcher) Profile() types.ChainProfile { return d.driver.Profile() }

// History returns every ledger record in append order.
func (d *Dispatcher) History(ctx context.Context) ([]types.TransactionRecord, error) {
	return d.ledger.List(ctx)
}

// SetDailyLimit replaces the trailing-24h native spend limit. Zero disables it.
func (d *Dispatcher) SetDailyLimit(limit decimal.Decimal) error {
	if limit.IsNegative() {
		return types.NewError(types.ErrInvalidPayment, "daily limit cannot be negative")
	}
	d.limitMu.Lock()
	d.dailyLimit = limit
	d.limitMu.Unlock()
	return nil
}

// Close releases the driver and every collaborator the dispatcher opened.
func (d *Dispatcher) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}
