package chain

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"

	"github.com/sw33tLie/mintwatch/pkg/candymachine"
)

// StateReader loads and decodes candy machine accounts.
type StateReader struct {
	rpc RPC
}

func NewStateReader(r RPC) *StateReader {
	return &StateReader{rpc: r}
}

// FetchState returns the decoded candy machine at the given commitment. A
// missing account yields candymachine.ErrAccountNotFound.
func (r *StateReader) FetchState(ctx context.Context, id common.PublicKey, commitment rpc.Commitment) (*candymachine.State, error) {
	info, err := r.rpc.GetAccountInfoWithConfig(ctx, id.ToBase58(), client.GetAccountInfoConfig{Commitment: commitment})
	if err != nil {
		return nil, wrapRPCError("fetch candy machine", err)
	}
	return candymachine.DecodeState(id, info.Data)
}

// Balances answers the wallet balance questions eligibility depends on.
type Balances struct {
	rpc RPC
}

func NewBalances(r RPC) *Balances {
	return &Balances{rpc: r}
}

// TokenBalance returns the owner's balance of mint held in its associated
// token account. A missing token account is reported as an error by the node.
func (b *Balances) TokenBalance(ctx context.Context, mint, owner common.PublicKey, commitment rpc.Commitment) (uint64, error) {
	ata, _, err := common.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, fmt.Errorf("derive token account: %w", err)
	}
	amount, err := b.rpc.GetTokenAccountBalanceWithConfig(ctx, ata.ToBase58(), client.GetTokenAccountBalanceConfig{Commitment: commitment})
	if err != nil {
		return 0, wrapRPCError("token balance", err)
	}
	return amount.Amount, nil
}

// NativeBalance returns the owner's balance in lamports.
func (b *Balances) NativeBalance(ctx context.Context, owner common.PublicKey, commitment rpc.Commitment) (uint64, error) {
	lamports, err := b.rpc.GetBalanceWithConfig(ctx, owner.ToBase58(), client.GetBalanceConfig{Commitment: commitment})
	if err != nil {
		return 0, wrapRPCError("native balance", err)
	}
	return lamports, nil
}

func (b *Balances) AccountExists(ctx context.Context, addr common.PublicKey, commitment rpc.Commitment) (bool, error) {
	info, err := b.rpc.GetAccountInfoWithConfig(ctx, addr.ToBase58(), client.GetAccountInfoConfig{Commitment: commitment})
	if err != nil {
		return false, wrapRPCError("account info", err)
	}
	return len(info.Data) > 0 || info.Lamports > 0, nil
}

// CollectionMint returns the collection attached to the candy machine, or
// nil when no collection PDA exists.
func (b *Balances) CollectionMint(ctx context.Context, program, candyMachine common.PublicKey, commitment rpc.Commitment) (*candymachine.CollectionPDA, error) {
	addr, err := candymachine.CollectionPDAAddress(program, candyMachine)
	if err != nil {
		return nil, err
	}
	info, err := b.rpc.GetAccountInfoWithConfig(ctx, addr.ToBase58(), client.GetAccountInfoConfig{Commitment: commitment})
	if err != nil {
		return nil, wrapRPCError("collection pda", err)
	}
	if len(info.Data) == 0 {
		return nil, nil
	}
	return candymachine.DecodeCollectionPDA(info.Data)
}
