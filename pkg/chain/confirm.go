package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/rpc"

	"github.com/sw33tLie/mintwatch/pkg/candymachine"
)

var ErrConfirmationTimeout = errors.New("timed out waiting for confirmation")

const defaultPollInterval = 500 * time.Millisecond

// TransactionError is a transaction that landed but failed on chain.
type TransactionError struct {
	Signature string
	Err       any
}

func (e *TransactionError) Error() string {
	if pe, ok := candymachine.ProgramErrorFrom(e.Err); ok {
		return fmt.Sprintf("transaction %s failed: %s", e.Signature, pe)
	}
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

// Unwrap exposes the program error code, when there is one, to errors.As.
func (e *TransactionError) Unwrap() error {
	if pe, ok := candymachine.ProgramErrorFrom(e.Err); ok {
		return pe
	}
	return nil
}

// Confirmer polls signature statuses until a transaction is confirmed.
type Confirmer struct {
	rpc      RPC
	interval time.Duration
}

func NewConfirmer(r RPC) *Confirmer {
	return &Confirmer{rpc: r, interval: defaultPollInterval}
}

// AwaitConfirmation blocks until sig reaches confirmed or finalized, fails on
// chain, or timeout passes. A landed failure is returned as a
// *TransactionError, a timeout as ErrConfirmationTimeout.
func (c *Confirmer) AwaitConfirmation(ctx context.Context, sig string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		status, err := c.rpc.GetSignatureStatus(ctx, sig)
		if err == nil && status != nil {
			if status.Err != nil {
				return &TransactionError{Signature: sig, Err: status.Err}
			}
			if status.ConfirmationStatus != nil {
				switch *status.ConfirmationStatus {
				case rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
					return nil
				}
			}
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s", ErrConfirmationTimeout, sig)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
