package types

// ChainFamily classifies a network into a blockchain family.
type ChainFamily string

const (
	ChainEVM    ChainFamily = "evm"
	ChainSolana ChainFamily = "solana"
)

// SolanaTier separates the Solana token tables.
type SolanaTier string

const (
	TierMainnet SolanaTier = "mainnet"
	TierDevnet  SolanaTier = "devnet"
)

// ChainProfile holds the connection parameters of a logical network.
type ChainProfile struct {
	Name         string      `json:"name" yaml:"name"`
	Family       ChainFamily `json:"family" yaml:"family"`
	ChainID      uint64      `json:"chainId,omitempty" yaml:"chain_id"`
	RPCEndpoint  string      `json:"rpcEndpoint,omitempty" yaml:"rpc"`
	NativeSymbol string      `json:"nativeSymbol" yaml:"native_symbol"`
	Tier         SolanaTier  `json:"tier,omitempty" yaml:"tier"`

	// Fallback is set when the router substituted LOCAL for an unknown name.
	Fallback bool `json:"fallback,omitempty" yaml:"-"`
}

func (p ChainProfile) IsEVM() bool    { return p.Family == ChainEVM }
func (p ChainProfile) IsSolana() bool { return p.Family == ChainSolana }

// TokenKey is the key under which the token tables index this chain.
func (p ChainProfile) TokenKey() string {
	if p.IsSolana() {
		if p.Tier == "" {
			return string(TierMainnet)
		}
		return string(p.Tier)
	}
	return p.Name
}

func (p ChainProfile) String() string {
	return p.Name
}
