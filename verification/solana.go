package verification

import (
	"context"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/shopspring/decimal"
	"github.com/tonatisp/iagent-pay/clients"
	"github.com/tonatisp/iagent-pay/tokens"
	"github.com/tonatisp/iagent-pay/types"
	"github.com/tonatisp/iagent-pay/utils"
)

const lamportDecimals = 9

// SolanaVerifier looks for a system transfer to the recipient inside a
// confirmed transaction.
type SolanaVerifier struct {
	client clients.SolanaClient
}

func NewSolanaVerifier(client clients.SolanaClient) *SolanaVerifier {
	return &SolanaVerifier{client: client}
}

func (v *SolanaVerifier) VerifyTransfer(ctx context.Context, txID, to string, minimum decimal.Decimal) (*Result, error) {
	if err := utils.ValidateTransactionHash(txID, types.ChainSolana); err != nil {
		return invalid(err.Error()), nil
	}
	if err := utils.ValidateAddressForChain(to, types.ChainSolana); err != nil {
		return invalid(err.Error()), nil
	}
	sig := solana.MustSignatureFromBase58(txID)
	recipient := solana.MustPublicKeyFromBase58(to)

	tx, err := v.client.GetTransaction(ctx, sig)
	if err != nil {
		if clients.IsNotFound(err) {
			return invalid("transaction not found"), nil
		}
		return nil, fmt.Errorf("lookup %s: %w", txID, err)
	}

	need := tokens.ToBaseUnits(minimum, lamportDecimals)
	var best *Result

	for _, inst := range tx.Message.Instructions {
		prog := tx.Message.AccountKeys[inst.ProgramIDIndex]
		if !prog.Equals(solana.SystemProgramID) {
			continue
		}

		accountMetas := make([]*solana.AccountMeta, len(inst.Accounts))
		for i, accIdx := range inst.Accounts {
			pub := tx.Message.AccountKeys[accIdx]
			writable, err := tx.Message.IsWritable(pub)
			if err != nil {
				return invalid(fmt.Sprintf("failed to decode transaction: %v", err)), nil
			}
			accountMetas[i] = &solana.AccountMeta{
				PublicKey:  pub,
				IsSigner:   tx.Message.IsSigner(pub),
				IsWritable: writable,
			}
		}

		sysInst, err := system.DecodeInstruction(accountMetas, inst.Data)
		if err != nil {
			continue
		}
		transfer, ok := sysInst.Impl.(*system.Transfer)
		if !ok || transfer.Lamports == nil || len(accountMetas) < 2 {
			continue
		}
		if !accountMetas[1].PublicKey.Equals(recipient) {
			continue
		}

		lamports := new(big.Int).SetUint64(*transfer.Lamports)
		res := &Result{
			Amount:    tokens.FromBaseUnits(lamports, lamportDecimals),
			Sender:    accountMetas[0].PublicKey.String(),
			Recipient: recipient.String(),
		}
		if lamports.Cmp(need) >= 0 {
			res.Valid = true
			return res, nil
		}
		res.Reason = fmt.Sprintf("paid %s, need at least %s", res.Amount, minimum)
		best = res
	}

	if best != nil {
		return best, nil
	}
	return invalid("no SOL transfer to " + to + " found"), nil
}
