package keystore

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	ethkeystore "github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// well-known hardhat account #0
const hardhatKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
const hardhatAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func TestParseEVMKey(t *testing.T) {
	for _, raw := range []string{hardhatKey, "0x" + hardhatKey, " 0x" + hardhatKey + "\n"} {
		key, err := ParseEVMKey(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, hardhatAddr, crypto.PubkeyToAddress(key.PublicKey).Hex())
	}

	_, err := ParseEVMKey("not-hex")
	assert.Error(t, err)
}

func TestParseSolanaKey(t *testing.T) {
	want, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	got, err := ParseSolanaKey(want.String())
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = ParseSolanaKey("0OIl")
	assert.Error(t, err)
}

func TestEnvPrefersProcessEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(envFile,
		[]byte("TESTNET_PRIVATE_KEY="+hex.EncodeToString(crypto.FromECDSA(other))+"\n"), 0o600))

	t.Setenv(EnvEVMKey, "0x"+hardhatKey)
	env, err := FromEnv(envFile)
	require.NoError(t, err)

	key, err := env.EVMKey()
	require.NoError(t, err)
	assert.Equal(t, hardhatAddr, crypto.PubkeyToAddress(key.PublicKey).Hex())
}

func TestEnvFallsBackToDotenv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	sol, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(envFile, []byte(
		"TESTNET_PRIVATE_KEY="+hardhatKey+"\nSOLANA_PRIVATE_KEY="+sol.String()+"\n"), 0o600))

	t.Setenv(EnvEVMKey, "")
	t.Setenv(EnvLegacyEVMKey, "")
	t.Setenv(EnvSolanaKey, "")
	env, err := FromEnv(envFile)
	require.NoError(t, err)

	key, err := env.EVMKey()
	require.NoError(t, err)
	assert.Equal(t, hardhatAddr, crypto.PubkeyToAddress(key.PublicKey).Hex())

	solKey, err := env.SolanaKey()
	require.NoError(t, err)
	assert.Equal(t, sol.PublicKey(), solKey.PublicKey())
}

func TestEnvMissingFileAndKeys(t *testing.T) {
	t.Setenv(EnvEVMKey, "")
	t.Setenv(EnvLegacyEVMKey, "")
	t.Setenv(EnvSolanaKey, "")

	env, err := FromEnv(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)

	_, err = env.EVMKey()
	assert.True(t, errors.Is(err, ErrNoKey))
	_, err = env.SolanaKey()
	assert.True(t, errors.Is(err, ErrNoKey))
}

func TestEncryptedJSON(t *testing.T) {
	priv, err := crypto.HexToECDSA(hardhatKey)
	require.NoError(t, err)
	key := &ethkeystore.Key{
		Id:         uuid.New(),
		Address:    crypto.PubkeyToAddress(priv.PublicKey),
		PrivateKey: priv,
	}
	blob, err := ethkeystore.EncryptKey(key, "hunter2", ethkeystore.LightScryptN, ethkeystore.LightScryptP)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "wallet.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err := EncryptedJSON{Path: path, Password: "hunter2"}.EVMKey()
	require.NoError(t, err)
	assert.Equal(t, hardhatAddr, crypto.PubkeyToAddress(got.PublicKey).Hex())

	_, err = EncryptedJSON{Path: path, Password: "wrong"}.EVMKey()
	assert.Error(t, err)

	_, err = EncryptedJSON{Path: path}.SolanaKey()
	assert.True(t, errors.Is(err, ErrNoKey))
}

func TestSolanaIDFileCreateThenReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "solana_id.json")

	_, err := SolanaIDFile{Path: path}.SolanaKey()
	assert.True(t, errors.Is(err, ErrNoKey))

	created, err := SolanaIDFile{Path: path, Create: true}.SolanaKey()
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := SolanaIDFile{Path: path}.SolanaKey()
	require.NoError(t, err)
	assert.Equal(t, created, loaded)
}

func TestSolanaIDFileRejectsShortKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solana_id.json")
	require.NoError(t, os.WriteFile(path, []byte("[1,2,3]"), 0o600))

	_, err := SolanaIDFile{Path: path}.SolanaKey()
	assert.Error(t, err)
}

func TestSolanaIDFileDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, err := SolanaIDFile{Create: true}.SolanaKey()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(home, ".iagent_pay_registry", "solana_id.json"))
}

func TestChainReturnsFirstAvailable(t *testing.T) {
	evm, err := crypto.HexToECDSA(hardhatKey)
	require.NoError(t, err)
	sol, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	ks := Chain{Static{EVM: evm}, Static{Solana: sol}}

	gotEVM, err := ks.EVMKey()
	require.NoError(t, err)
	assert.Same(t, evm, gotEVM)

	gotSol, err := ks.SolanaKey()
	require.NoError(t, err)
	assert.Equal(t, sol, gotSol)

	_, err = Chain{Static{}}.EVMKey()
	assert.True(t, errors.Is(err, ErrNoKey))
	_, err = Chain{}.SolanaKey()
	assert.True(t, errors.Is(err, ErrNoKey))
}
