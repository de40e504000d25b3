package keystore

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

// Environment variables read by Env, in priority order.
const (
	EnvEVMKey       = "IAGENT_PAY_EVM_KEY"
	EnvLegacyEVMKey = "TESTNET_PRIVATE_KEY"
	EnvSolanaKey    = "SOLANA_PRIVATE_KEY"
)

// Env reads keys from the process environment, falling back to a dotenv file.
// The file never overrides a variable that is already set.
type Env struct {
	vars map[string]string
}

// FromEnv loads envFile when it exists. An empty envFile means ".env".
func FromEnv(envFile string) (*Env, error) {
	if envFile == "" {
		envFile = ".env"
	}
	vars, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}
		vars = map[string]string{}
	}
	return &Env{vars: vars}, nil
}

func (e *Env) lookup(names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v, true
		}
		if v, ok := e.vars[name]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func (e *Env) EVMKey() (*ecdsa.PrivateKey, error) {
	raw, ok := e.lookup(EnvEVMKey, EnvLegacyEVMKey)
	if !ok {
		return nil, fmt.Errorf("%s: %w", EnvEVMKey, ErrNoKey)
	}
	return ParseEVMKey(raw)
}

func (e *Env) SolanaKey() (solana.PrivateKey, error) {
	raw, ok := e.lookup(EnvSolanaKey)
	if !ok {
		return nil, fmt.Errorf("%s: %w", EnvSolanaKey, ErrNoKey)
	}
	return ParseSolanaKey(raw)
}
