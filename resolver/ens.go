package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ENSRegistry is the mainnet ENS registry.
var ENSRegistry = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

const ensABI = `[
	{"constant":true,"inputs":[{"name":"node","type":"bytes32"}],"name":"resolver","outputs":[{"name":"","type":"address"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"node","type":"bytes32"}],"name":"addr","outputs":[{"name":"","type":"address"}],"type":"function"}
]`

var ensContract = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(ensABI))
	if err != nil {
		panic(fmt.Sprintf("parse ENS ABI: %v", err))
	}
	return parsed
}()

// ENSResolver resolves .eth names through the registry's resolver contract.
type ENSResolver struct {
	caller   ethereum.ContractCaller
	registry common.Address
}

func NewENSResolver(caller ethereum.ContractCaller) *ENSResolver {
	return &ENSResolver{caller: caller, registry: ENSRegistry}
}

func (r *ENSResolver) Resolve(ctx context.Context, name string) (string, error) {
	node := Namehash(name)

	resolverAddr, err := r.callAddress(ctx, r.registry, "resolver", node)
	if err != nil {
		return "", fmt.Errorf("ens resolver lookup for %s: %w", name, err)
	}
	if resolverAddr == (common.Address{}) {
		return "", nil
	}

	addr, err := r.callAddress(ctx, resolverAddr, "addr", node)
	if err != nil {
		return "", fmt.Errorf("ens addr lookup for %s: %w", name, err)
	}
	if addr == (common.Address{}) {
		return "", nil
	}
	return addr.Hex(), nil
}

func (r *ENSResolver) callAddress(ctx context.Context, contract common.Address, method string, node [32]byte) (common.Address, error) {
	data, err := ensContract.Pack(method, node)
	if err != nil {
		return common.Address{}, err
	}
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) == 0 {
		return common.Address{}, nil
	}
	values, err := ensContract.Unpack(method, out)
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected %s output %T", method, values[0])
	}
	return addr, nil
}

// Namehash implements the ENS name hashing scheme over a lower-cased name.
func Namehash(name string) [32]byte {
	var node [32]byte
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		label := crypto.Keccak256([]byte(labels[i]))
		copy(node[:], crypto.Keccak256(node[:], label))
	}
	return node
}
