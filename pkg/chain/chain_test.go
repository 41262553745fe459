package chain

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/mintwatch/pkg/candymachine"
)

type fakeRPC struct {
	mu        sync.Mutex
	accounts  map[string][]byte
	tokens    map[string]uint64
	lamports  map[string]uint64
	statuses  []*rpc.SignatureStatus
	sent      []types.Transaction
	accErr    error
	sendErr   error
	blockhash string
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{
		accounts:  map[string][]byte{},
		tokens:    map[string]uint64{},
		lamports:  map[string]uint64{},
		blockhash: types.NewAccount().PublicKey.ToBase58(),
	}
}

func (f *fakeRPC) GetAccountInfoWithConfig(_ context.Context, addr string, _ client.GetAccountInfoConfig) (client.AccountInfo, error) {
	if f.accErr != nil {
		return client.AccountInfo{}, f.accErr
	}
	data, ok := f.accounts[addr]
	if !ok {
		return client.AccountInfo{}, nil
	}
	return client.AccountInfo{Lamports: 1, Data: data}, nil
}

func (f *fakeRPC) GetBalanceWithConfig(_ context.Context, addr string, _ client.GetBalanceConfig) (uint64, error) {
	return f.lamports[addr], nil
}

func (f *fakeRPC) GetTokenAccountBalanceWithConfig(_ context.Context, addr string, _ client.GetTokenAccountBalanceConfig) (client.TokenAmount, error) {
	amount, ok := f.tokens[addr]
	if !ok {
		return client.TokenAmount{}, &rpc.JsonRpcError{Code: -32602, Message: "Invalid param: could not find account"}
	}
	return client.TokenAmount{Amount: amount}, nil
}

func (f *fakeRPC) GetSignatureStatus(context.Context, string) (*rpc.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statuses) == 0 {
		return nil, nil
	}
	s := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return s, nil
}

func (f *fakeRPC) GetMinimumBalanceForRentExemption(context.Context, uint64) (uint64, error) {
	return 1461600, nil
}

func (f *fakeRPC) GetLatestBlockhash(context.Context) (rpc.GetLatestBlockhashValue, error) {
	return rpc.GetLatestBlockhashValue{Blockhash: f.blockhash}, nil
}

func (f *fakeRPC) SendTransaction(_ context.Context, tx types.Transaction) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, tx)
	return types.NewAccount().PublicKey.ToBase58(), nil
}

func testState(t *testing.T, f *fakeRPC) *candymachine.State {
	t.Helper()
	st := &candymachine.State{
		ID:             types.NewAccount().PublicKey,
		Authority:      types.NewAccount().PublicKey,
		Wallet:         types.NewAccount().PublicKey,
		Price:          1_000_000_000,
		ItemsAvailable: 250,
		ItemsRedeemed:  10,
	}
	data, err := candymachine.EncodeState(st)
	require.NoError(t, err)
	f.accounts[st.ID.ToBase58()] = data
	return st
}

func TestStateReader(t *testing.T) {
	f := newFakeRPC()
	want := testState(t, f)
	r := NewStateReader(f)

	got, err := r.FetchState(context.Background(), want.ID, rpc.CommitmentConfirmed)
	require.NoError(t, err)
	require.Equal(t, uint64(240), got.ItemsRemaining())

	_, err = r.FetchState(context.Background(), types.NewAccount().PublicKey, rpc.CommitmentConfirmed)
	require.ErrorIs(t, err, candymachine.ErrAccountNotFound)

	f.accErr = &url.Error{Op: "Post", URL: "http://127.0.0.1:1", Err: errors.New("connection refused")}
	_, err = r.FetchState(context.Background(), want.ID, rpc.CommitmentConfirmed)
	require.ErrorIs(t, err, ErrConnectivity)

	f.accErr = errors.New("failed to do request, err: dial tcp: lookup nope: no such host")
	_, err = r.FetchState(context.Background(), want.ID, rpc.CommitmentConfirmed)
	require.ErrorIs(t, err, ErrConnectivity)

	f.accErr = &rpc.JsonRpcError{Code: -32602, Message: "Invalid param"}
	_, err = r.FetchState(context.Background(), want.ID, rpc.CommitmentConfirmed)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrConnectivity)
}

func TestBalances(t *testing.T) {
	f := newFakeRPC()
	owner := types.NewAccount().PublicKey
	mint := types.NewAccount().PublicKey
	ata, _, err := common.FindAssociatedTokenAddress(owner, mint)
	require.NoError(t, err)
	f.tokens[ata.ToBase58()] = 3
	f.lamports[owner.ToBase58()] = 42

	b := NewBalances(f)
	ctx := context.Background()

	n, err := b.TokenBalance(ctx, mint, owner, rpc.CommitmentConfirmed)
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)

	_, err = b.TokenBalance(ctx, types.NewAccount().PublicKey, owner, rpc.CommitmentConfirmed)
	require.Error(t, err)

	lamports, err := b.NativeBalance(ctx, owner, rpc.CommitmentConfirmed)
	require.NoError(t, err)
	require.Equal(t, uint64(42), lamports)
}

func TestCollectionMint(t *testing.T) {
	f := newFakeRPC()
	b := NewBalances(f)
	cm := types.NewAccount().PublicKey

	col, err := b.CollectionMint(context.Background(), candymachine.ProgramID, cm, rpc.CommitmentConfirmed)
	require.NoError(t, err)
	require.Nil(t, col)

	addr, err := candymachine.CollectionPDAAddress(candymachine.ProgramID, cm)
	require.NoError(t, err)
	want := &candymachine.CollectionPDA{Mint: types.NewAccount().PublicKey, CandyMachine: cm}
	data, err := candymachine.EncodeCollectionPDA(want)
	require.NoError(t, err)
	f.accounts[addr.ToBase58()] = data

	col, err = b.CollectionMint(context.Background(), candymachine.ProgramID, cm, rpc.CommitmentConfirmed)
	require.NoError(t, err)
	require.Equal(t, want, col)

	ok, err := b.AccountExists(context.Background(), addr, rpc.CommitmentProcessed)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestConfirmer(t *testing.T) {
	confirmed := rpc.CommitmentConfirmed
	processed := rpc.CommitmentProcessed

	t.Run("confirmed", func(t *testing.T) {
		f := newFakeRPC()
		f.statuses = []*rpc.SignatureStatus{nil, {ConfirmationStatus: &processed}, {ConfirmationStatus: &confirmed}}
		c := NewConfirmer(f)
		c.interval = time.Millisecond
		require.NoError(t, c.AwaitConfirmation(context.Background(), "sig", time.Second))
	})

	t.Run("failed on chain", func(t *testing.T) {
		f := newFakeRPC()
		f.statuses = []*rpc.SignatureStatus{{
			ConfirmationStatus: &confirmed,
			Err:                map[string]any{"InstructionError": []any{0, map[string]any{"Custom": 311}}},
		}}
		c := NewConfirmer(f)
		c.interval = time.Millisecond

		err := c.AwaitConfirmation(context.Background(), "sig", time.Second)
		var txErr *TransactionError
		require.ErrorAs(t, err, &txErr)
		var pe *candymachine.ProgramError
		require.ErrorAs(t, err, &pe)
		require.Equal(t, candymachine.CodeCandyMachineEmpty, pe.Code)
	})

	t.Run("timeout", func(t *testing.T) {
		f := newFakeRPC()
		f.statuses = []*rpc.SignatureStatus{{ConfirmationStatus: &processed}}
		c := NewConfirmer(f)
		c.interval = time.Millisecond

		err := c.AwaitConfirmation(context.Background(), "sig", 20*time.Millisecond)
		require.ErrorIs(t, err, ErrConfirmationTimeout)
	})
}

func TestMinter(t *testing.T) {
	f := newFakeRPC()
	st := testState(t, f)
	ctx := context.Background()

	watch := NewMinter(f, candymachine.ProgramID, WatchOnly(types.NewAccount().PublicKey))
	_, err := watch.MintOne(ctx, st, nil, nil, nil)
	require.ErrorIs(t, err, ErrWatchOnly)
	_, err = watch.CreateSetup(ctx)
	require.ErrorIs(t, err, ErrWatchOnly)

	m := NewMinter(f, candymachine.ProgramID, NewKeypair(types.NewAccount()))

	setup, err := m.CreateSetup(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Signature)
	require.Len(t, f.sent, 1)

	res, err := m.MintOne(ctx, st, setup, [][]types.Instruction{nil}, nil)
	require.NoError(t, err)
	require.Equal(t, setup.Mint.PublicKey, res.Mint)
	require.Len(t, f.sent, 3)

	metadata, err := candymachine.MetadataAddress(res.Mint)
	require.NoError(t, err)
	require.Equal(t, metadata, res.MetadataKey)
}

func TestMinterSurfacesPreflightProgramError(t *testing.T) {
	f := newFakeRPC()
	st := testState(t, f)
	f.sendErr = &rpc.JsonRpcError{
		Code:    -32002,
		Message: "Transaction simulation failed: Error processing Instruction 4: custom program error: 0x138",
		Data:    map[string]any{"err": map[string]any{"InstructionError": []any{4, map[string]any{"Custom": 312}}}},
	}
	m := NewMinter(f, candymachine.ProgramID, NewKeypair(types.NewAccount()))

	_, err := m.MintOne(context.Background(), st, nil, nil, nil)
	var pe *candymachine.ProgramError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, candymachine.CodeCandyMachineNotLive, pe.Code)
}

func TestLoadKeypair(t *testing.T) {
	acct := types.NewAccount()
	ints := make([]int, len(acct.PrivateKey))
	for i, b := range acct.PrivateKey {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	kp, err := LoadKeypair(path)
	require.NoError(t, err)
	require.Equal(t, acct.PublicKey, kp.PublicKey())

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[1,2,3]`), 0o600))
	_, err = LoadKeypair(bad)
	require.Error(t, err)
}

func TestParseCommitment(t *testing.T) {
	c, err := ParseCommitment("Finalized")
	require.NoError(t, err)
	require.Equal(t, rpc.CommitmentFinalized, c)

	c, err = ParseCommitment("")
	require.NoError(t, err)
	require.Equal(t, rpc.CommitmentConfirmed, c)

	_, err = ParseCommitment("max")
	require.Error(t, err)
}
