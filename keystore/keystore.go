// Package keystore loads the signing keys the chain drivers need.
package keystore

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
)

// ErrNoKey is returned when a source holds no key for a family.
var ErrNoKey = errors.New("no key available")

// Keystore supplies one key per chain family.
type Keystore interface {
	EVMKey() (*ecdsa.PrivateKey, error)
	SolanaKey() (solana.PrivateKey, error)
}

// Static holds keys already in memory.
type Static struct {
	EVM    *ecdsa.PrivateKey
	Solana solana.PrivateKey
}

func (s Static) EVMKey() (*ecdsa.PrivateKey, error) {
	if s.EVM == nil {
		return nil, fmt.Errorf("static EVM key: %w", ErrNoKey)
	}
	return s.EVM, nil
}

func (s Static) SolanaKey() (solana.PrivateKey, error) {
	if len(s.Solana) == 0 {
		return nil, fmt.Errorf("static Solana key: %w", ErrNoKey)
	}
	return s.Solana, nil
}

// Chain tries each source in order and returns the first key found.
type Chain []Keystore

func (c Chain) EVMKey() (*ecdsa.PrivateKey, error) {
	var errs []error
	for _, ks := range c {
		key, err := ks.EVMKey()
		if err == nil {
			return key, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNoKey
	}
	return nil, errors.Join(errs...)
}

func (c Chain) SolanaKey() (solana.PrivateKey, error) {
	var errs []error
	for _, ks := range c {
		key, err := ks.SolanaKey()
		if err == nil {
			return key, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNoKey
	}
	return nil, errors.Join(errs...)
}

// ParseEVMKey accepts a hex private key with or without the 0x prefix.
func ParseEVMKey(raw string) (*ecdsa.PrivateKey, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("parse EVM key: %w", err)
	}
	return key, nil
}

// ParseSolanaKey accepts a base58 secret key or a JSON byte array as written
// by solana-keygen.
func ParseSolanaKey(raw string) (solana.PrivateKey, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		return decodeKeygenJSON([]byte(raw))
	}
	key, err := solana.PrivateKeyFromBase58(raw)
	if err != nil {
		return nil, fmt.Errorf("parse Solana key: %w", err)
	}
	if len(key) != 64 {
		return nil, fmt.Errorf("parse Solana key: want 64 bytes, got %d", len(key))
	}
	return key, nil
}
