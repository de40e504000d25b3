// Package config builds a types.Config from YAML, a dotenv file and
// IAGENT_PAY_* environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/tonatisp/iagent-pay/chains"
	"github.com/tonatisp/iagent-pay/types"
	"gopkg.in/yaml.v3"
)

// Defaults applied to zero-valued fields.
const (
	DefaultTimeout             = 30 * time.Second
	DefaultConfirmationTimeout = 2 * time.Minute
	DefaultPollInterval        = 2 * time.Second
	DefaultPricingTTL          = 300 * time.Second
	DefaultInvoiceExpiry       = 24 * time.Hour
	DefaultLogLevel            = "info"
	DefaultLedgerDriver        = "memory"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// document is the on-disk shape. The daily limit is kept as a string so that
// values like "0.5" survive without float rounding.
type document struct {
	types.Config `yaml:",inline"`
	DailyLimit   string `yaml:"daily_limit"`
}

// Default returns a configuration holding defaults only.
func Default() types.Config {
	var cfg types.Config
	applyDefaults(&cfg)
	return cfg
}

// WithDefaults returns cfg with zero-valued fields set to their defaults.
func WithDefaults(cfg types.Config) types.Config {
	applyDefaults(&cfg)
	return cfg
}

// Load reads the YAML file at path, then applies the dotenv file next to it
// and the process environment, then defaults. An empty path skips the YAML
// step. The returned value is validated.
func Load(path string) (types.Config, error) {
	var doc document
	dotenvPath := ".env"

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return types.Config{}, configError("read config file", err)
		}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return types.Config{}, configError("parse config file", err)
		}
		dotenvPath = filepath.Join(filepath.Dir(path), ".env")
	}

	cfg := doc.Config
	if doc.DailyLimit != "" {
		limit, err := decimal.NewFromString(doc.DailyLimit)
		if err != nil {
			return types.Config{}, configError("parse daily_limit", err)
		}
		cfg.DailyLimit = limit
	}

	dotenv, err := godotenv.Read(dotenvPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return types.Config{}, configError("read "+dotenvPath, err)
	}
	if err := applyEnv(&cfg, envLookup(dotenv)); err != nil {
		return types.Config{}, err
	}

	applyDefaults(&cfg)

	if err := Validate(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// Validate checks struct tags and cross-field rules.
func Validate(cfg types.Config) error {
	if err := validate.Struct(cfg); err != nil {
		return configError("invalid configuration", err)
	}
	if cfg.DailyLimit.IsNegative() {
		return types.NewError(types.ErrConfigError, "daily limit cannot be negative")
	}
	switch cfg.Ledger.Driver {
	case "file":
		if cfg.Ledger.Path == "" {
			return types.NewError(types.ErrConfigError, "file ledger requires a path")
		}
	case "mysql", "postgres":
		if cfg.Ledger.DSN == "" {
			return types.NewError(types.ErrConfigError, cfg.Ledger.Driver+" ledger requires a dsn")
		}
	case "redis":
		if cfg.Ledger.RedisAddr == "" {
			return types.NewError(types.ErrConfigError, "redis ledger requires an address")
		}
	}
	return nil
}

func applyDefaults(cfg *types.Config) {
	if cfg.Chain == "" {
		cfg.Chain = chains.Local
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ConfirmationTimeout == 0 {
		cfg.ConfirmationTimeout = DefaultConfirmationTimeout
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.Pricing.TTL == 0 {
		cfg.Pricing.TTL = DefaultPricingTTL
	}
	if cfg.Invoice.DefaultExpiry == 0 {
		cfg.Invoice.DefaultExpiry = DefaultInvoiceExpiry
	}
	if cfg.Ledger.Driver == "" {
		cfg.Ledger.Driver = DefaultLedgerDriver
	}
}

func configError(msg string, err error) error {
	return types.NewError(types.ErrConfigError, msg, types.WithCause(err))
}

// envLookup reads the process environment first and the dotenv values second.
func envLookup(dotenv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok && v != ""
	}
}

func applyEnv(cfg *types.Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"IAGENT_PAY_CHAIN":            &cfg.Chain,
		"IAGENT_PAY_RPC_URL":          &cfg.RPCOverride,
		"IAGENT_PAY_CHAINS_FILE":      &cfg.ChainsFile,
		"IAGENT_PAY_LOG_LEVEL":        &cfg.LogLevel,
		"IAGENT_PAY_TREASURY_ADDRESS": &cfg.License.TreasuryAddress,
		"IAGENT_PAY_SUBSCRIPTION_TX":  &cfg.License.SubscriptionTxHash,
		"IAGENT_PAY_REGISTRY_PATH":    &cfg.License.RegistryPath,
		"IAGENT_PAY_PRICING_URL":      &cfg.Pricing.URL,
		"IAGENT_PAY_PRICING_OVERRIDE": &cfg.Pricing.LocalOverridePath,
		"IAGENT_PAY_LEDGER_DRIVER":    &cfg.Ledger.Driver,
		"IAGENT_PAY_LEDGER_PATH":      &cfg.Ledger.Path,
		"IAGENT_PAY_LEDGER_DSN":       &cfg.Ledger.DSN,
		"IAGENT_PAY_REDIS_ADDR":       &cfg.Ledger.RedisAddr,
		"IAGENT_PAY_AMQP_URL":         &cfg.Ledger.AMQPURL,
		"IAGENT_PAY_ENS_RPC":          &cfg.Resolver.ENSRPC,
		"IAGENT_PAY_SNS_ENDPOINT":     &cfg.Resolver.SNSEndpoint,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"IAGENT_PAY_TIMEOUT":              &cfg.Timeout,
		"IAGENT_PAY_CONFIRMATION_TIMEOUT": &cfg.ConfirmationTimeout,
		"IAGENT_PAY_POLL_INTERVAL":        &cfg.PollInterval,
	}
	for key, dst := range durations {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return configError(key, err)
		}
		*dst = d
	}

	bools := map[string]*bool{
		"IAGENT_PAY_ENABLE_METRICS":       &cfg.EnableMetrics,
		"IAGENT_PAY_ENFORCE_ON_TOKENS":    &cfg.License.EnforceOnTokens,
		"IAGENT_PAY_ALLOW_CHAIN_MISMATCH": &cfg.Invoice.AllowChainMismatch,
	}
	for key, dst := range bools {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return configError(key, err)
		}
		*dst = b
	}

	if v, ok := lookup("IAGENT_PAY_DAILY_LIMIT"); ok {
		limit, err := decimal.NewFromString(v)
		if err != nil {
			return configError("IAGENT_PAY_DAILY_LIMIT", err)
		}
		cfg.DailyLimit = limit
	}
	return nil
}

// Describe renders the effective configuration for startup logs. Secrets are
// not part of types.Config so nothing is masked.
func Describe(cfg types.Config) map[string]any {
	return map[string]any{
		"chain":             cfg.Chain,
		"rpc_override":      cfg.RPCOverride != "",
		"timeout":           cfg.Timeout.String(),
		"confirm_timeout":   cfg.ConfirmationTimeout.String(),
		"daily_limit":       cfg.DailyLimit.String(),
		"ledger":            cfg.Ledger.Driver,
		"enforce_on_tokens": cfg.License.EnforceOnTokens,
		"license_disabled":  cfg.License.Disabled,
		"pricing_url":       cfg.Pricing.URL,
	}
}
