package chain

import (
	"context"
	"errors"
	"fmt"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/sw33tLie/mintwatch/pkg/candymachine"
)

// SetupState is a confirmed setup transaction: the NFT mint account exists and
// holds the single token, only the mint instruction is left.
type SetupState struct {
	Mint             types.Account
	UserTokenAccount common.PublicKey
	Signature        string
}

type MintResult struct {
	Signature   string
	Mint        common.PublicKey
	MetadataKey common.PublicKey
}

// Minter builds, signs and sends candy machine transactions for one wallet.
type Minter struct {
	rpc     RPC
	program common.PublicKey
	wallet  Wallet
}

func NewMinter(r RPC, program common.PublicKey, wallet Wallet) *Minter {
	return &Minter{rpc: r, program: program, wallet: wallet}
}

func (m *Minter) signer() (types.Account, error) {
	if m.wallet == nil {
		return types.Account{}, ErrWatchOnly
	}
	return m.wallet.Account()
}

// CreateSetup sends the setup transaction on its own. Used when the combined
// transaction would exceed the size limit. The caller confirms the returned
// signature before minting with the returned state.
func (m *Minter) CreateSetup(ctx context.Context) (*SetupState, error) {
	payer, err := m.signer()
	if err != nil {
		return nil, err
	}
	mint := types.NewAccount()
	ins, ata, err := m.setupInstructions(ctx, payer.PublicKey, mint.PublicKey)
	if err != nil {
		return nil, err
	}
	sig, err := m.send(ctx, payer.PublicKey, ins, payer, mint)
	if err != nil {
		return nil, fmt.Errorf("setup transaction: %w", err)
	}
	return &SetupState{Mint: mint, UserTokenAccount: ata, Signature: sig}, nil
}

// MintOne sends the mint transaction. Without a setup state the setup
// instructions are prepended. The collection instruction is appended when the
// candy machine has a collection and retains its authority. Prefix and
// suffix transactions are sent before and after it.
func (m *Minter) MintOne(ctx context.Context, st *candymachine.State, setup *SetupState, prefix, suffix [][]types.Instruction) (*MintResult, error) {
	payer, err := m.signer()
	if err != nil {
		return nil, err
	}

	if _, err := m.SendTransactions(ctx, prefix); err != nil {
		return nil, err
	}

	signers := []types.Account{payer}
	var ins []types.Instruction
	var mint common.PublicKey
	if setup != nil {
		mint = setup.Mint.PublicKey
	} else {
		acct := types.NewAccount()
		mint = acct.PublicKey
		setupIns, _, err := m.setupInstructions(ctx, payer.PublicKey, mint)
		if err != nil {
			return nil, err
		}
		ins = append(ins, setupIns...)
		signers = append(signers, acct)
	}

	mintIns, err := candymachine.MintNFTInstruction(m.program, st, payer.PublicKey, mint)
	if err != nil {
		return nil, err
	}
	ins = append(ins, mintIns)

	if st.RetainAuthority {
		collection, err := m.collection(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		if collection != nil {
			colIns, err := candymachine.SetCollectionDuringMint(m.program, st, payer.PublicKey, mint, collection)
			if err != nil {
				return nil, err
			}
			ins = append(ins, colIns)
		}
	}

	metadata, err := candymachine.MetadataAddress(mint)
	if err != nil {
		return nil, err
	}

	sig, err := m.send(ctx, payer.PublicKey, ins, signers...)
	if err != nil {
		return nil, fmt.Errorf("mint transaction: %w", err)
	}

	if _, err := m.SendTransactions(ctx, suffix); err != nil {
		return &MintResult{Signature: sig, Mint: mint, MetadataKey: metadata}, err
	}
	return &MintResult{Signature: sig, Mint: mint, MetadataKey: metadata}, nil
}

// SendTransactions signs each instruction group with the wallet and sends
// them in order, stopping at the first failure.
func (m *Minter) SendTransactions(ctx context.Context, txs [][]types.Instruction) ([]string, error) {
	if len(txs) == 0 {
		return nil, nil
	}
	payer, err := m.signer()
	if err != nil {
		return nil, err
	}
	sigs := make([]string, 0, len(txs))
	for i, ins := range txs {
		sig, err := m.send(ctx, payer.PublicKey, ins, payer)
		if err != nil {
			return sigs, fmt.Errorf("transaction %d of %d: %w", i+1, len(txs), err)
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

func (m *Minter) setupInstructions(ctx context.Context, payer, mint common.PublicKey) ([]types.Instruction, common.PublicKey, error) {
	rent, err := m.rpc.GetMinimumBalanceForRentExemption(ctx, token.MintAccountSize)
	if err != nil {
		return nil, common.PublicKey{}, wrapRPCError("rent exemption", err)
	}
	return candymachine.SetupInstructions(payer, mint, rent)
}

func (m *Minter) collection(ctx context.Context, cm common.PublicKey) (*candymachine.CollectionPDA, error) {
	addr, err := candymachine.CollectionPDAAddress(m.program, cm)
	if err != nil {
		return nil, err
	}
	info, err := m.rpc.GetAccountInfoWithConfig(ctx, addr.ToBase58(), client.GetAccountInfoConfig{Commitment: rpc.CommitmentProcessed})
	if err != nil {
		return nil, wrapRPCError("collection pda", err)
	}
	if len(info.Data) == 0 {
		return nil, nil
	}
	return candymachine.DecodeCollectionPDA(info.Data)
}

func (m *Minter) send(ctx context.Context, feePayer common.PublicKey, ins []types.Instruction, signers ...types.Account) (string, error) {
	recent, err := m.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", wrapRPCError("latest blockhash", err)
	}
	tx, err := types.NewTransaction(types.NewTransactionParam{
		Signers: signers,
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        feePayer,
			RecentBlockhash: recent.Blockhash,
			Instructions:    ins,
		}),
	})
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}
	sig, err := m.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return "", wrapSendError(err)
	}
	return sig, nil
}

// wrapSendError surfaces the program error of a failed preflight simulation.
func wrapSendError(err error) error {
	var jerr *rpc.JsonRpcError
	if errors.As(err, &jerr) {
		if pe, ok := candymachine.ProgramErrorFrom(jerr.Data); ok {
			return fmt.Errorf("%s: %w", jerr.Message, pe)
		}
	}
	return wrapRPCError("send transaction", err)
}
