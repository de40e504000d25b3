// Package chains holds the table of known logical networks and their
// connection parameters.
package chains

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tonatisp/iagent-pay/types"
	"gopkg.in/yaml.v3"
)

// Logical names of the built-in profiles.
const (
	Local      = "LOCAL"
	Ethereum   = "ETH"
	Sepolia    = "SEPOLIA"
	Base       = "BASE"
	Polygon    = "POLYGON"
	Arbitrum   = "ARBITRUM"
	BNB        = "BNB"
	SolMainnet = "SOL_MAINNET"
	SolDevnet  = "SOL_DEVNET"
)

// LocalRPC is dialled when the LOCAL profile has no endpoint of its own.
const LocalRPC = "http://127.0.0.1:8545"

var builtin = []types.ChainProfile{
	{Name: Local, Family: types.ChainEVM, ChainID: 1337, NativeSymbol: "ETH"},
	{Name: Ethereum, Family: types.ChainEVM, ChainID: 1, RPCEndpoint: "https://eth.llamarpc.com", NativeSymbol: "ETH"},
	{Name: Sepolia, Family: types.ChainEVM, ChainID: 11155111, RPCEndpoint: "https://1rpc.io/sepolia", NativeSymbol: "SepoliaETH"},
	{Name: Base, Family: types.ChainEVM, ChainID: 8453, RPCEndpoint: "https://mainnet.base.org", NativeSymbol: "ETH"},
	{Name: Polygon, Family: types.ChainEVM, ChainID: 137, RPCEndpoint: "https://polygon-rpc.com", NativeSymbol: "MATIC"},
	{Name: Arbitrum, Family: types.ChainEVM, ChainID: 42161, RPCEndpoint: "https://arb1.arbitrum.io/rpc", NativeSymbol: "ETH"},
	{Name: BNB, Family: types.ChainEVM, ChainID: 56, RPCEndpoint: "https://bsc-dataseed.binance.org", NativeSymbol: "BNB"},
	{Name: SolMainnet, Family: types.ChainSolana, RPCEndpoint: "https://api.mainnet-beta.solana.com", NativeSymbol: "SOL", Tier: types.TierMainnet},
	{Name: SolDevnet, Family: types.ChainSolana, RPCEndpoint: "https://api.devnet.solana.com", NativeSymbol: "SOL", Tier: types.TierDevnet},
}

// aliases maps alternative spellings onto profile names.
var aliases = map[string]string{
	"ETHEREUM":     Ethereum,
	"MAINNET":      Ethereum,
	"BASE_MAINNET": Base,
	"MATIC":        Polygon,
	"BSC":          BNB,
}

// solanaAliases is the fixed set of names routed to the Solana family.
var solanaAliases = map[string]string{
	"SOL":            SolMainnet,
	"SOLANA":         SolMainnet,
	"SOL_MAINNET":    SolMainnet,
	"SOLANA_MAINNET": SolMainnet,
	"SOL_DEVNET":     SolDevnet,
	"SOLANA_DEVNET":  SolDevnet,
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// IsSolana reports whether name belongs to the Solana alias set.
func IsSolana(name string) bool {
	_, ok := solanaAliases[normalize(name)]
	return ok
}

// Registry is an immutable, case-insensitive table of chain profiles.
type Registry struct {
	profiles map[string]types.ChainProfile
}

// NewRegistry builds a registry from the built-in profiles overlaid with extra.
// Later profiles replace earlier ones with the same name.
func NewRegistry(extra ...types.ChainProfile) *Registry {
	r := &Registry{profiles: make(map[string]types.ChainProfile, len(builtin)+len(extra))}
	for _, p := range builtin {
		r.profiles[p.Name] = p
	}
	for _, p := range extra {
		p.Name = normalize(p.Name)
		r.profiles[p.Name] = p
	}
	return r
}

// Default returns a registry holding only the built-in profiles.
func Default() *Registry {
	return NewRegistry()
}

// Lookup resolves a logical name, its aliases included.
func (r *Registry) Lookup(name string) (types.ChainProfile, bool) {
	key := normalize(name)
	if target, ok := solanaAliases[key]; ok {
		key = target
	} else if target, ok := aliases[key]; ok {
		key = target
	}
	p, ok := r.profiles[key]
	return p, ok
}

// Names lists the registered profile names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// profileFile models the YAML overlay file.
type profileFile struct {
	Chains []types.ChainProfile `yaml:"chains"`
}

// LoadProfiles reads a YAML overlay and returns a registry containing the
// built-ins plus the file's profiles.
func LoadProfiles(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chain profiles: %w", err)
	}

	var file profileFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse chain profiles: %w", err)
	}

	for i, p := range file.Chains {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("chain profile %d: name is required", i)
		}
		switch p.Family {
		case types.ChainEVM:
		case types.ChainSolana:
			if p.Tier == "" {
				file.Chains[i].Tier = types.TierMainnet
			}
		case "":
			file.Chains[i].Family = types.ChainEVM
		default:
			return nil, fmt.Errorf("chain profile %s: unknown family %q", p.Name, p.Family)
		}
	}

	return NewRegistry(file.Chains...), nil
}
