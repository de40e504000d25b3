package clients

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recipientAddress = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"

func TestPackTransfer(t *testing.T) {
	to := common.HexToAddress(recipientAddress)
	amount := big.NewInt(10_000_000)

	data, err := PackTransfer(to, amount)
	require.NoError(t, err)
	require.Len(t, data, 4+32+32)
	assert.Equal(t, "a9059cbb", common.Bytes2Hex(data[:4]))

	decoded, err := UnpackTransfer(data)
	require.NoError(t, err)
	assert.Equal(t, to, decoded.To)
	assert.Equal(t, 0, amount.Cmp(decoded.Value))
}

func TestUnpackTransferRejectsOtherCalls(t *testing.T) {
	data, err := PackDecimals()
	require.NoError(t, err)

	_, err = UnpackTransfer(data)
	assert.Error(t, err)

	_, err = UnpackTransfer([]byte{0x01})
	assert.Error(t, err)
}

func TestUnpackDecimals(t *testing.T) {
	out := math.U256Bytes(big.NewInt(6))

	dec, err := UnpackDecimals(out)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), dec)

	_, err = UnpackDecimals(nil)
	assert.Error(t, err)
}

func TestIsNonceTooLow(t *testing.T) {
	assert.True(t, IsNonceTooLow(errors.New("nonce too low: next nonce 5, tx nonce 4")))
	assert.True(t, IsNonceTooLow(fmt.Errorf("send: %w", errors.New("Replacement transaction underpriced"))))
	assert.False(t, IsNonceTooLow(errors.New("insufficient funds for gas * price + value")))
	assert.False(t, IsNonceTooLow(nil))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ethereum.NotFound))
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", rpc.ErrNotFound)))
	assert.False(t, IsNotFound(errors.New("boom")))
}
