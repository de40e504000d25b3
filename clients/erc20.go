package clients

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

// ERC20Transfer is the decoded form of a transfer(address,uint256) call.
type ERC20Transfer struct {
	To    common.Address
	Value *big.Int
}

var erc20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid erc20 abi: %v", err))
	}
	return parsed
}

// PackTransfer encodes an ERC-20 transfer call.
func PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("transfer", to, amount)
}

// UnpackTransfer decodes calldata produced by PackTransfer.
func UnpackTransfer(data []byte) (*ERC20Transfer, error) {
	method, ok := erc20ABI.Methods["transfer"]
	if !ok || len(data) < 4 {
		return nil, fmt.Errorf("calldata too short")
	}
	if !strings.EqualFold(common.Bytes2Hex(data[:4]), common.Bytes2Hex(method.ID)) {
		return nil, fmt.Errorf("not an erc20 transfer call")
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack transfer: %w", err)
	}
	return &ERC20Transfer{
		To:    args[0].(common.Address),
		Value: args[1].(*big.Int),
	}, nil
}

// PackDecimals encodes a decimals() call.
func PackDecimals() ([]byte, error) {
	return erc20ABI.Pack("decimals")
}

// UnpackDecimals decodes the return value of decimals().
func UnpackDecimals(out []byte) (uint8, error) {
	vals, err := erc20ABI.Unpack("decimals", out)
	if err != nil {
		return 0, fmt.Errorf("unpack decimals: %w", err)
	}
	if len(vals) != 1 {
		return 0, fmt.Errorf("unexpected decimals output length %d", len(vals))
	}
	dec, ok := vals[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals type %T", vals[0])
	}
	return dec, nil
}
