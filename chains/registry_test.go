package chains

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonatisp/iagent-pay/types"
)

func TestLookupIsCaseInsensitive(t *testing.T) {
	r := Default()

	for _, name := range []string{"sepolia", "Sepolia", " SEPOLIA "} {
		p, ok := r.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, uint64(11155111), p.ChainID)
		assert.Equal(t, "SepoliaETH", p.NativeSymbol)
	}
}

func TestLookupAliases(t *testing.T) {
	r := Default()

	p, ok := r.Lookup("base_mainnet")
	require.True(t, ok)
	assert.Equal(t, Base, p.Name)

	p, ok = r.Lookup("solana_devnet")
	require.True(t, ok)
	assert.Equal(t, SolDevnet, p.Name)
	assert.Equal(t, types.TierDevnet, p.Tier)

	_, ok = r.Lookup("NOPE")
	assert.False(t, ok)
}

func TestIsSolana(t *testing.T) {
	for _, name := range []string{"sol", "SOLANA", "sol_devnet", "Solana_Mainnet"} {
		assert.True(t, IsSolana(name), name)
	}
	for _, name := range []string{"ETH", "LOCAL", "POLYGON", "SOLX"} {
		assert.False(t, IsSolana(name), name)
	}
}

func TestLocalHasNoEndpoint(t *testing.T) {
	p, ok := Default().Lookup(Local)
	require.True(t, ok)
	assert.Empty(t, p.RPCEndpoint)
	assert.Equal(t, uint64(1337), p.ChainID)
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chains.yaml")
	content := `
chains:
  - name: optimism
    chain_id: 10
    rpc: https://mainnet.optimism.io
    native_symbol: ETH
  - name: sepolia
    family: evm
    chain_id: 11155111
    rpc: https://sepolia.example.org
    native_symbol: SepoliaETH
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	r, err := LoadProfiles(path)
	require.NoError(t, err)

	p, ok := r.Lookup("OPTIMISM")
	require.True(t, ok)
	assert.Equal(t, types.ChainEVM, p.Family)
	assert.Equal(t, uint64(10), p.ChainID)

	p, ok = r.Lookup("sepolia")
	require.True(t, ok)
	assert.Equal(t, "https://sepolia.example.org", p.RPCEndpoint)

	_, ok = r.Lookup(Polygon)
	assert.True(t, ok)
}

func TestLoadProfilesRejectsUnknownFamily(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chains.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chains:\n  - name: atom\n    family: cosmos\n"), 0o600))

	_, err := LoadProfiles(path)
	assert.Error(t, err)
}

func TestLoadProfilesEmptyPath(t *testing.T) {
	r, err := LoadProfiles("")
	require.NoError(t, err)
	assert.Equal(t, Default().Names(), r.Names())
}
