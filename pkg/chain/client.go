package chain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"strings"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/hashicorp/go-retryablehttp"
)

// RPC is the subset of the Solana JSON-RPC client used by the adapters in this
// package. *client.Client satisfies it.
type RPC interface {
	GetAccountInfoWithConfig(ctx context.Context, base58Addr string, cfg client.GetAccountInfoConfig) (client.AccountInfo, error)
	GetBalanceWithConfig(ctx context.Context, base58Addr string, cfg client.GetBalanceConfig) (uint64, error)
	GetTokenAccountBalanceWithConfig(ctx context.Context, base58Addr string, cfg client.GetTokenAccountBalanceConfig) (client.TokenAmount, error)
	GetSignatureStatus(ctx context.Context, signature string) (*rpc.SignatureStatus, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error)
	GetLatestBlockhash(ctx context.Context) (rpc.GetLatestBlockhashValue, error)
	SendTransaction(ctx context.Context, tx types.Transaction) (string, error)
}

var _ RPC = (*client.Client)(nil)

// ErrConnectivity marks failures to reach the RPC node at all, as opposed to
// the node answering with an error.
var ErrConnectivity = errors.New("rpc unreachable")

// NewClient returns a Solana RPC client whose HTTP transport retries
// transient failures up to retries times.
func NewClient(endpoint string, retries int) *client.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = retries

	return client.New(
		rpc.WithEndpoint(endpoint),
		rpc.WithHTTPClient(retryClient.StandardClient()),
	)
}

// ParseCommitment maps a configured commitment level to the RPC type.
func ParseCommitment(s string) (rpc.Commitment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "processed":
		return rpc.CommitmentProcessed, nil
	case "", "confirmed":
		return rpc.CommitmentConfirmed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	}
	return "", fmt.Errorf("unknown commitment %q", s)
}

// wrapRPCError tags transport level failures with ErrConnectivity. The SDK
// flattens transport errors into strings, so the message is checked as well.
func wrapRPCError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isConnectivity(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrConnectivity, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConnectivity(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"failed to do request", "giving up after", "connection refused", "no such host", "get status code"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
