package clients

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/gagliardetto/solana-go/rpc"
)

// Node rejection messages that mean the submitted nonce is already used.
var nonceRejections = []string{
	"nonce too low",
	"replacement transaction underpriced",
}

// IsNonceTooLow reports whether a submission error means the nonce was stale.
func IsNonceTooLow(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range nonceRejections {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether a lookup error means the object does not exist yet.
func IsNotFound(err error) bool {
	return errors.Is(err, ethereum.NotFound) || errors.Is(err, rpc.ErrNotFound)
}
