package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config is the immutable configuration of a dispatcher. It is passed by value
// at construction and never read from ambient state afterwards.
type Config struct {
	Chain               string          `json:"chain" yaml:"chain" validate:"required"`
	RPCOverride         string          `json:"rpcOverride,omitempty" yaml:"rpc_override" validate:"omitempty,url"`
	ChainsFile          string          `json:"chainsFile,omitempty" yaml:"chains_file"`
	Timeout             time.Duration   `json:"timeout,omitempty" yaml:"timeout" validate:"gte=0"`
	ConfirmationTimeout time.Duration   `json:"confirmationTimeout,omitempty" yaml:"confirmation_timeout" validate:"gte=0"`
	PollInterval        time.Duration   `json:"pollInterval,omitempty" yaml:"poll_interval" validate:"gte=0"`
	LogLevel            string          `json:"logLevel,omitempty" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	EnableMetrics       bool            `json:"enableMetrics,omitempty" yaml:"enable_metrics"`
	DailyLimit          decimal.Decimal `json:"dailyLimit" yaml:"-"`

	License  LicenseConfig  `json:"license" yaml:"license"`
	Pricing  PricingConfig  `json:"pricing" yaml:"pricing"`
	Invoice  InvoiceConfig  `json:"invoice" yaml:"invoice"`
	Ledger   LedgerConfig   `json:"ledger" yaml:"ledger"`
	Resolver ResolverConfig `json:"resolver" yaml:"resolver"`
}

// LicenseConfig controls the trial and fee gate.
type LicenseConfig struct {
	Disabled           bool   `json:"disabled,omitempty" yaml:"disabled"`
	TreasuryAddress    string `json:"treasuryAddress,omitempty" yaml:"treasury_address"`
	SubscriptionTxHash string `json:"subscriptionTxHash,omitempty" yaml:"subscription_tx_hash"`
	// EnforceOnTokens extends the gate to token payments. Off by default.
	EnforceOnTokens bool   `json:"enforceOnTokens,omitempty" yaml:"enforce_on_tokens"`
	RegistryPath    string `json:"registryPath,omitempty" yaml:"registry_path"`
}

type PricingConfig struct {
	URL               string        `json:"url,omitempty" yaml:"url" validate:"omitempty,url"`
	LocalOverridePath string        `json:"localOverridePath,omitempty" yaml:"local_override_path"`
	TTL               time.Duration `json:"ttl,omitempty" yaml:"ttl" validate:"gte=0"`
}

type InvoiceConfig struct {
	AllowChainMismatch bool          `json:"allowChainMismatch,omitempty" yaml:"allow_chain_mismatch"`
	DefaultExpiry      time.Duration `json:"defaultExpiry,omitempty" yaml:"default_expiry" validate:"gte=0"`
}

// LedgerConfig selects the audit ledger backend.
type LedgerConfig struct {
	Driver    string `json:"driver,omitempty" yaml:"driver" validate:"omitempty,oneof=memory file mysql postgres redis"`
	Path      string `json:"path,omitempty" yaml:"path"`
	DSN       string `json:"dsn,omitempty" yaml:"dsn"`
	RedisAddr string `json:"redisAddr,omitempty" yaml:"redis_addr"`
	RedisKey  string `json:"redisKey,omitempty" yaml:"redis_key"`
	AMQPURL   string `json:"amqpUrl,omitempty" yaml:"amqp_url"`
	AMQPQueue string `json:"amqpQueue,omitempty" yaml:"amqp_queue"`
}

type ResolverConfig struct {
	ENSRPC      string `json:"ensRpc,omitempty" yaml:"ens_rpc"`
	SNSEndpoint string `json:"snsEndpoint,omitempty" yaml:"sns_endpoint"`
}
