package keystore

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	ethkeystore "github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/gagliardetto/solana-go"
)

// EncryptedJSON decrypts a go-ethereum v3 keystore file. It holds no
// Solana key.
type EncryptedJSON struct {
	Path     string
	Password string
}

func (k EncryptedJSON) EVMKey() (*ecdsa.PrivateKey, error) {
	raw, err := os.ReadFile(k.Path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	key, err := ethkeystore.DecryptKey(raw, k.Password)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore %s: %w", k.Path, err)
	}
	return key.PrivateKey, nil
}

func (k EncryptedJSON) SolanaKey() (solana.PrivateKey, error) {
	return nil, fmt.Errorf("encrypted keystore: %w", ErrNoKey)
}

// DefaultSolanaIDPath returns ~/.iagent_pay_registry/solana_id.json.
func DefaultSolanaIDPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".iagent_pay_registry", "solana_id.json"), nil
}

// SolanaIDFile reads a solana-keygen style JSON byte array. With Create set a
// missing file is generated with a fresh key.
type SolanaIDFile struct {
	Path   string
	Create bool
}

func (f SolanaIDFile) EVMKey() (*ecdsa.PrivateKey, error) {
	return nil, fmt.Errorf("solana id file: %w", ErrNoKey)
}

func (f SolanaIDFile) SolanaKey() (solana.PrivateKey, error) {
	path := f.Path
	if path == "" {
		p, err := DefaultSolanaIDPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		return decodeKeygenJSON(raw)
	case errors.Is(err, fs.ErrNotExist) && f.Create:
		return createSolanaID(path)
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%s: %w", path, ErrNoKey)
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
}

func decodeKeygenJSON(raw []byte) (solana.PrivateKey, error) {
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return nil, fmt.Errorf("decode Solana key file: %w", err)
	}
	if len(ints) != 64 {
		return nil, fmt.Errorf("decode Solana key file: want 64 bytes, got %d", len(ints))
	}
	key := make(solana.PrivateKey, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("decode Solana key file: byte %d out of range", i)
		}
		key[i] = byte(v)
	}
	return key, nil
}

func createSolanaID(path string) (solana.PrivateKey, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, err
	}
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			// created concurrently; use the winner's key
			return SolanaIDFile{Path: path}.SolanaKey()
		}
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return key, nil
}
