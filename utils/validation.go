package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/tonatisp/iagent-pay/types"
)

var hexPattern = regexp.MustCompile("^[0-9a-fA-F]+$")

// ValidateTransactionHash validates a transaction id for the given chain family
func ValidateTransactionHash(hash string, family types.ChainFamily) error {
	if hash == "" {
		return fmt.Errorf("transaction hash cannot be empty")
	}

	switch family {
	case types.ChainEVM:
		// 0x + 64 hex
		if !strings.HasPrefix(hash, "0x") {
			return fmt.Errorf("EVM transaction hash must start with 0x")
		}
		if len(hash) != 66 {
			return fmt.Errorf("EVM transaction hash must be 66 characters long")
		}
		if !isHexString(hash[2:]) {
			return fmt.Errorf("EVM transaction hash must be valid hex")
		}

	case types.ChainSolana:
		// Solana signatures are 64 bytes, base58 encoded
		raw, err := base58.Decode(hash)
		if err != nil {
			return fmt.Errorf("Solana transaction signature must be valid base58: %w", err)
		}
		if len(raw) != 64 {
			return fmt.Errorf("Solana transaction signature must decode to 64 bytes, got %d", len(raw))
		}

	default:
		return fmt.Errorf("unsupported chain family for transaction hash validation: %s", family)
	}

	return nil
}

// ValidateAddressForChain validates a native address for the given chain family
func ValidateAddressForChain(address string, family types.ChainFamily) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	switch family {
	case types.ChainEVM:
		if !strings.HasPrefix(address, "0x") {
			return fmt.Errorf("Ethereum address must start with 0x")
		}
		if len(address) != 42 {
			return fmt.Errorf("Ethereum address must be 42 characters long")
		}
		if !isHexString(address[2:]) {
			return fmt.Errorf("Ethereum address must be valid hex")
		}

	case types.ChainSolana:
		raw, err := base58.Decode(address)
		if err != nil {
			return fmt.Errorf("Solana address must be valid base58: %w", err)
		}
		if len(raw) != 32 {
			return fmt.Errorf("Solana address must decode to 32 bytes, got %d", len(raw))
		}

	default:
		return fmt.Errorf("unsupported chain family for address validation: %s", family)
	}

	return nil
}

func isHexString(s string) bool {
	return hexPattern.MatchString(s)
}
