package verification

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/tonatisp/iagent-pay/clients"
	"github.com/tonatisp/iagent-pay/tokens"
	"github.com/tonatisp/iagent-pay/types"
	"github.com/tonatisp/iagent-pay/utils"
)

const weiDecimals = 18

// EVMVerifier checks plain value transfers on EVM chains.
type EVMVerifier struct {
	client clients.EVMClient
}

func NewEVMVerifier(client clients.EVMClient) *EVMVerifier {
	return &EVMVerifier{client: client}
}

func (v *EVMVerifier) VerifyTransfer(ctx context.Context, txID, to string, minimum decimal.Decimal) (*Result, error) {
	if err := utils.ValidateTransactionHash(txID, types.ChainEVM); err != nil {
		return invalid(err.Error()), nil
	}
	if err := utils.ValidateAddressForChain(to, types.ChainEVM); err != nil {
		return invalid(err.Error()), nil
	}
	hash := common.HexToHash(txID)

	tx, pending, err := v.client.TransactionByHash(ctx, hash)
	if err != nil {
		if clients.IsNotFound(err) {
			return invalid("transaction not found"), nil
		}
		return nil, fmt.Errorf("lookup %s: %w", txID, err)
	}
	if pending {
		return invalid("transaction is still pending"), nil
	}

	receipt, err := v.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if clients.IsNotFound(err) {
			return invalid("receipt not found"), nil
		}
		return nil, fmt.Errorf("receipt %s: %w", txID, err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return invalid("transaction reverted"), nil
	}

	if tx.To() == nil || *tx.To() != common.HexToAddress(to) {
		return invalid("transaction was not sent to " + to), nil
	}

	amount := tokens.FromBaseUnits(tx.Value(), weiDecimals)
	result := &Result{
		Amount:    amount,
		Recipient: tx.To().Hex(),
	}
	if tx.ChainId() != nil && tx.ChainId().Sign() > 0 {
		if from, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
			result.Sender = from.Hex()
		}
	}

	if tx.Value().Cmp(minWei(minimum)) < 0 {
		result.Reason = fmt.Sprintf("paid %s, need at least %s", amount, minimum)
		return result, nil
	}
	result.Valid = true
	return result, nil
}

func minWei(minimum decimal.Decimal) *big.Int {
	return tokens.ToBaseUnits(minimum, weiDecimals)
}
