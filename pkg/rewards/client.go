package rewards

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/cloutmarket/settlement/pkg/metrics"
)

// ChainReader is the narrow RPC surface the composer needs: raw account
// bytes and a recent blockhash. Tests substitute a local fake.
type ChainReader interface {
	GetAccountInfo(ctx context.Context, address solana.PublicKey) ([]byte, error)
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// RPCReader implements ChainReader on a solana-go RPC client.
type RPCReader struct {
	client *rpc.Client
}

func NewRPCReader(endpoint string) *RPCReader {
	return &RPCReader{client: rpc.New(endpoint)}
}

// GetAccountInfo fetches raw account data at confirmed commitment. A missing
// account is ErrAccountNotFound; transport failures are ErrNetwork.
func (r *RPCReader) GetAccountInfo(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	out, err := r.client.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			metrics.RPCRequests.WithLabelValues("getAccountInfo", "not_found").Inc()
			return nil, fmt.Errorf("account %s: %w", address, ErrAccountNotFound)
		}
		metrics.RPCRequests.WithLabelValues("getAccountInfo", "error").Inc()
		return nil, fmt.Errorf("%w: get account info for %s: %v", ErrNetwork, address, err)
	}
	if out == nil || out.Value == nil {
		metrics.RPCRequests.WithLabelValues("getAccountInfo", "not_found").Inc()
		return nil, fmt.Errorf("account %s: %w", address, ErrAccountNotFound)
	}
	metrics.RPCRequests.WithLabelValues("getAccountInfo", "ok").Inc()
	return out.Value.Data.GetBinary(), nil
}

// GetLatestBlockhash fetches a recent blockhash at confirmed commitment.
func (r *RPCReader) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	out, err := r.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		metrics.RPCRequests.WithLabelValues("getLatestBlockhash", "error").Inc()
		return solana.Hash{}, fmt.Errorf("%w: get latest blockhash: %v", ErrNetwork, err)
	}
	if out == nil || out.Value == nil {
		metrics.RPCRequests.WithLabelValues("getLatestBlockhash", "error").Inc()
		return solana.Hash{}, fmt.Errorf("%w: get latest blockhash: empty response", ErrNetwork)
	}
	metrics.RPCRequests.WithLabelValues("getLatestBlockhash", "ok").Inc()
	return out.Value.Blockhash, nil
}
