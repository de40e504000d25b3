package drivers

import (
	"context"
	"fmt"
	"time"

	"github.com/tonatisp/iagent-pay/chains"
	"github.com/tonatisp/iagent-pay/clients"
	"github.com/tonatisp/iagent-pay/logger"
	"github.com/tonatisp/iagent-pay/types"
)

// EVMDialer opens an EVM chain client.
type EVMDialer func(ctx context.Context, rpcURL string) (clients.EVMClient, error)

// SolanaDialer opens a Solana chain client.
type SolanaDialer func(rpcURL string) clients.SolanaClient

// Router selects and constructs the driver for a logical chain name.
type Router struct {
	registry     *chains.Registry
	logger       logger.Logger
	dialEVM      EVMDialer
	dialSolana   SolanaDialer
	pollInterval time.Duration
}

// RouterOption configures a Router.
type RouterOption func(*Router)

func WithRouterLogger(l logger.Logger) RouterOption {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithEVMDialer(d EVMDialer) RouterOption {
	return func(r *Router) { r.dialEVM = d }
}

func WithSolanaDialer(d SolanaDialer) RouterOption {
	return func(r *Router) { r.dialSolana = d }
}

func WithRouterPollInterval(d time.Duration) RouterOption {
	return func(r *Router) { r.pollInterval = d }
}

func NewRouter(registry *chains.Registry, opts ...RouterOption) *Router {
	if registry == nil {
		registry = chains.Default()
	}
	r := &Router{
		registry: registry,
		logger:   logger.NoopLogger{},
		dialEVM: func(ctx context.Context, rpcURL string) (clients.EVMClient, error) {
			return clients.NewEthereumClient(ctx, rpcURL)
		},
		dialSolana: func(rpcURL string) clients.SolanaClient {
			return clients.NewSolanaClient(rpcURL)
		},
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the profile a chain name binds to. Names outside the Solana
// alias set are EVM; unknown EVM names fall back to LOCAL with Fallback set.
func (r *Router) Resolve(name string) types.ChainProfile {
	if p, ok := r.registry.Lookup(name); ok {
		return p
	}

	local, _ := r.registry.Lookup(chains.Local)
	local.Fallback = true
	r.logger.Warn("unknown chain, falling back to local network", map[string]any{
		"requested": name,
		"fallback":  local.Name,
	})
	return local
}

// Open connects to the backend for name and returns its driver. An
// unreachable backend is a CONNECTIVITY_FAILURE.
func (r *Router) Open(ctx context.Context, name, rpcOverride string, keys KeySource) (ChainDriver, error) {
	if keys == nil {
		return nil, types.NewError(types.ErrConfigError, "a key source is required")
	}

	profile := r.Resolve(name)
	rpcURL := rpcOverride
	if rpcURL == "" {
		rpcURL = profile.RPCEndpoint
	}

	opts := []DriverOption{WithDriverLogger(r.logger), WithPollInterval(r.pollInterval)}

	switch {
	case profile.IsSolana():
		client := r.dialSolana(rpcURL)
		if !client.IsConnected(ctx) {
			client.Close()
			return nil, types.NewError(types.ErrConnectivityFailure,
				fmt.Sprintf("Solana backend %s is unreachable", rpcURL), types.WithData("chain", profile.Name))
		}
		key, err := keys.SolanaKey()
		if err != nil {
			client.Close()
			return nil, types.NewError(types.ErrConfigError, "failed to load Solana key", types.WithCause(err))
		}
		driver, err := NewSolanaDriver(profile, client, key, opts...)
		if err != nil {
			client.Close()
			return nil, err
		}
		return driver, nil

	case profile.IsEVM():
		if rpcURL == "" {
			rpcURL = chains.LocalRPC
		}
		client, err := r.dialEVM(ctx, rpcURL)
		if err != nil {
			return nil, types.NewError(types.ErrConnectivityFailure,
				fmt.Sprintf("EVM backend %s is unreachable", rpcURL), types.WithCause(err), types.WithData("chain", profile.Name))
		}
		if !client.IsConnected(ctx) {
			client.Close()
			return nil, types.NewError(types.ErrConnectivityFailure,
				fmt.Sprintf("EVM backend %s is not connected", rpcURL), types.WithData("chain", profile.Name))
		}
		key, err := keys.EVMKey()
		if err != nil {
			client.Close()
			return nil, types.NewError(types.ErrConfigError, "failed to load EVM key", types.WithCause(err))
		}
		driver, err := NewEVMDriver(ctx, profile, client, key, opts...)
		if err != nil {
			client.Close()
			return nil, err
		}
		return driver, nil

	default:
		return nil, types.NewError(types.ErrConfigError, fmt.Sprintf("chain %s has unknown family %q", profile.Name, profile.Family))
	}
}
