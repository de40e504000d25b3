package clients

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var _ SolanaClient = (*SolanaRPCClient)(nil)

// SolanaRPCClient implements SolanaClient over the Solana JSON-RPC API.
type SolanaRPCClient struct {
	rpcURL     string
	client     *rpc.Client
	commitment rpc.CommitmentType
}

func NewSolanaClient(rpcURL string) *SolanaRPCClient {
	return &SolanaRPCClient{
		rpcURL:     rpcURL,
		client:     rpc.New(rpcURL),
		commitment: rpc.CommitmentConfirmed,
	}
}

func (s *SolanaRPCClient) IsConnected(ctx context.Context) bool {
	_, err := s.client.GetHealth(ctx)
	return err == nil
}

func (s *SolanaRPCClient) GetBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	res, err := s.client.GetBalance(ctx, account, s.commitment)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

func (s *SolanaRPCClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := s.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, err
	}
	return res.Value.Blockhash, nil
}

func (s *SolanaRPCClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return s.client.SendTransaction(ctx, tx)
}

// SignatureStatus returns nil without error while the signature is unknown to the node.
func (s *SolanaRPCClient) SignatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	res, err := s.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return nil, err
	}
	if len(res.Value) == 0 {
		return nil, nil
	}
	return res.Value[0], nil
}

func (s *SolanaRPCClient) GetTransaction(ctx context.Context, sig solana.Signature) (*solana.Transaction, error) {
	maxVersion := uint64(0)
	res, err := s.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentFinalized,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.Transaction == nil {
		return nil, rpc.ErrNotFound
	}
	if res.Meta != nil && res.Meta.Err != nil {
		return nil, fmt.Errorf("transaction %s failed on chain: %v", sig, res.Meta.Err)
	}
	return res.Transaction.GetTransaction()
}

// MintDecimals reads the mint's own precision from the token supply endpoint.
func (s *SolanaRPCClient) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	res, err := s.client.GetTokenSupply(ctx, mint, s.commitment)
	if err != nil {
		return 0, fmt.Errorf("token supply for mint %s: %w", mint, err)
	}
	if res == nil || res.Value == nil {
		return 0, fmt.Errorf("token supply for mint %s: empty response", mint)
	}
	return res.Value.Decimals, nil
}

func (s *SolanaRPCClient) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	res, err := s.client.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{Commitment: s.commitment})
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return res != nil && res.Value != nil, nil
}

func (s *SolanaRPCClient) RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64) (solana.Signature, error) {
	return s.client.RequestAirdrop(ctx, account, lamports, s.commitment)
}

func (s *SolanaRPCClient) Close() {
	_ = s.client.Close()
}
