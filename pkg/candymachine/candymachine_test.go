package candymachine

import (
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/require"
)

func u64(v uint64) *uint64 { return &v }

func fullState(t *testing.T) *State {
	t.Helper()
	goLive := time.Date(2022, 8, 4, 20, 0, 0, 0, time.UTC)
	tokenMint := types.NewAccount().PublicKey
	return &State{
		ID:              types.NewAccount().PublicKey,
		Authority:       types.NewAccount().PublicKey,
		Wallet:          types.NewAccount().PublicKey,
		TokenMint:       &tokenMint,
		Symbol:          "MW",
		RetainAuthority: true,
		Creators:        []Creator{{Address: types.NewAccount().PublicKey, Verified: true, Share: 100}},
		Price:           1_000_000_000,
		ItemsAvailable:  250,
		ItemsRedeemed:   10,
		GoLiveDate:      &goLive,
		EndSettings:     &EndSettings{Type: EndByAmount, Number: 200},
		Whitelist: &WhitelistSettings{
			Mode:          BurnEveryTime,
			Mint:          types.NewAccount().PublicKey,
			Presale:       true,
			DiscountPrice: u64(500_000_000),
		},
		Gatekeeper: &Gatekeeper{Network: types.NewAccount().PublicKey, ExpireOnUse: true},
	}
}

func TestDecodeState(t *testing.T) {
	want := fullState(t)
	data, err := EncodeState(want)
	require.NoError(t, err)

	got, err := DecodeState(want.ID, data)
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, uint64(240), got.ItemsRemaining())
	require.False(t, got.IsSoldOut())
}

func TestDecodeStateMinimal(t *testing.T) {
	want := &State{ID: types.NewAccount().PublicKey, Price: 5, ItemsAvailable: 3, ItemsRedeemed: 3}
	data, err := EncodeState(want)
	require.NoError(t, err)

	got, err := DecodeState(want.ID, data)
	require.NoError(t, err)
	require.Nil(t, got.GoLiveDate)
	require.Nil(t, got.Whitelist)
	require.Nil(t, got.EndSettings)
	require.Nil(t, got.Gatekeeper)
	require.Nil(t, got.TokenMint)
	require.True(t, got.IsSoldOut())
}

func TestDecodeStateRejectsBadData(t *testing.T) {
	id := types.NewAccount().PublicKey

	_, err := DecodeState(id, nil)
	require.ErrorIs(t, err, ErrAccountNotFound)

	_, err = DecodeState(id, []byte{1, 2, 3})
	require.ErrorIs(t, err, ErrAccountDataTooShort)

	_, err = DecodeState(id, make([]byte, 64))
	require.ErrorIs(t, err, ErrWrongDiscriminator)
}

func TestParseAddress(t *testing.T) {
	pk, err := ParseAddress(" cndy3Z4yapfJBmL3ShUp5exZKqR3z33thTzeNMm2gRZ ")
	require.NoError(t, err)
	require.Equal(t, ProgramID, pk)

	for _, bad := range []string{"", "not-base58!", "abc"} {
		_, err := ParseAddress(bad)
		require.Error(t, err, bad)
	}
}

func TestProgramErrorFromJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		code ErrorCode
		ok   bool
	}{
		{"status error", `{"InstructionError":[2,{"Custom":311}]}`, CodeCandyMachineEmpty, true},
		{"preflight data", `{"err":{"InstructionError":[0,{"Custom":312}]},"logs":[]}`, CodeCandyMachineNotLive, true},
		{"log line", `{"err":"x","logs":["Program log: Custom program error: 0x135"]}`, CodeNotEnoughSOL, true},
		{"no code", `{"InstructionError":[0,"InvalidAccountData"]}`, 0, false},
		{"not json", `boom`, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pe, ok := ProgramErrorFromJSON(tc.raw)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.code, pe.Code)
			}
		})
	}
}

func TestProgramErrorFromStatus(t *testing.T) {
	status := map[string]any{"InstructionError": []any{1, map[string]any{"Custom": 311}}}
	pe, ok := ProgramErrorFrom(status)
	require.True(t, ok)
	require.Equal(t, "custom program error: 0x137", pe.Error())

	_, ok = ProgramErrorFrom(nil)
	require.False(t, ok)
}

func TestMintNFTInstructionRemainingAccounts(t *testing.T) {
	payer := types.NewAccount().PublicKey
	mint := types.NewAccount().PublicKey

	base := &State{ID: types.NewAccount().PublicKey, Wallet: types.NewAccount().PublicKey}
	ins, err := MintNFTInstruction(ProgramID, base, payer, mint)
	require.NoError(t, err)
	require.Len(t, ins.Accounts, 16)
	require.Len(t, ins.Data, 9)
	require.Equal(t, mintNFTDiscr, ins.Data[:8])

	// gatekeeper(1) + expire(2) + whitelist(1) + burn(2) + token(2)
	full := fullState(t)
	ins, err = MintNFTInstruction(ProgramID, full, payer, mint)
	require.NoError(t, err)
	require.Len(t, ins.Accounts, 16+8)
	require.Equal(t, ProgramID, ins.ProgramID)
}

func TestSetupInstructions(t *testing.T) {
	payer := types.NewAccount().PublicKey
	mint := types.NewAccount().PublicKey
	ins, ata, err := SetupInstructions(payer, mint, 1461600)
	require.NoError(t, err)
	require.Len(t, ins, 4)

	want, _, err := common.FindAssociatedTokenAddress(payer, mint)
	require.NoError(t, err)
	require.Equal(t, want, ata)
}

func TestPDAsAreDeterministic(t *testing.T) {
	cm := types.NewAccount().PublicKey
	a, err := CollectionPDAAddress(ProgramID, cm)
	require.NoError(t, err)
	b, err := CollectionPDAAddress(ProgramID, cm)
	require.NoError(t, err)
	require.Equal(t, a, b)

	c1, _, err := CreatorPDA(ProgramID, cm)
	require.NoError(t, err)
	require.NotEqual(t, a, c1)
}
