package candymachine

import (
	"crypto/sha256"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/associated_token_account"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"
)

var (
	mintNFTDiscr                 = instructionDiscriminator("mint_nft")
	setCollectionDuringMintDiscr = instructionDiscriminator("set_collection_during_mint")
)

func instructionDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:discriminatorLen]
}

// SetupInstructions creates and funds the NFT mint account, the payer's
// associated token account, and mints the single token into it. These either
// prefix the mint instruction or travel alone as the setup transaction when
// the combined transaction would be too large.
func SetupInstructions(payer, mint common.PublicKey, rentLamports uint64) ([]types.Instruction, common.PublicKey, error) {
	ata, _, err := common.FindAssociatedTokenAddress(payer, mint)
	if err != nil {
		return nil, common.PublicKey{}, fmt.Errorf("derive user token account: %w", err)
	}
	ins := []types.Instruction{
		system.CreateAccount(system.CreateAccountParam{
			From:     payer,
			New:      mint,
			Owner:    common.TokenProgramID,
			Lamports: rentLamports,
			Space:    token.MintAccountSize,
		}),
		token.InitializeMint(token.InitializeMintParam{
			Decimals:   0,
			Mint:       mint,
			MintAuth:   payer,
			FreezeAuth: &payer,
		}),
		associated_token_account.CreateAssociatedTokenAccount(associated_token_account.CreateAssociatedTokenAccountParam{
			Funder:                 payer,
			Owner:                  payer,
			Mint:                   mint,
			AssociatedTokenAccount: ata,
		}),
		token.MintTo(token.MintToParam{
			Mint:   mint,
			To:     ata,
			Auth:   payer,
			Amount: 1,
		}),
	}
	return ins, ata, nil
}

// MintNFTInstruction builds the candy machine mint_nft instruction, including
// the remaining accounts required by gatekeeper, whitelist and payment token
// settings of st.
func MintNFTInstruction(program common.PublicKey, st *State, payer, mint common.PublicKey) (types.Instruction, error) {
	creator, creatorBump, err := CreatorPDA(program, st.ID)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("derive creator pda: %w", err)
	}
	metadata, err := MetadataAddress(mint)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("derive metadata: %w", err)
	}
	edition, err := MasterEditionAddress(mint)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("derive master edition: %w", err)
	}

	accounts := []types.AccountMeta{
		{PubKey: st.ID, IsWritable: true},
		{PubKey: creator},
		{PubKey: payer, IsSigner: true, IsWritable: true},
		{PubKey: st.Wallet, IsWritable: true},
		{PubKey: metadata, IsWritable: true},
		{PubKey: mint, IsWritable: true},
		{PubKey: payer, IsSigner: true},
		{PubKey: payer, IsSigner: true},
		{PubKey: edition, IsWritable: true},
		{PubKey: TokenMetadataID},
		{PubKey: common.TokenProgramID},
		{PubKey: common.SystemProgramID},
		{PubKey: sysvarRent},
		{PubKey: sysvarClock},
		{PubKey: sysvarSlotHashes},
		{PubKey: sysvarInstructions},
	}

	if gk := st.Gatekeeper; gk != nil {
		gatewayToken, err := GatewayTokenAddress(payer, gk.Network)
		if err != nil {
			return types.Instruction{}, err
		}
		accounts = append(accounts, types.AccountMeta{PubKey: gatewayToken, IsWritable: true})
		if gk.ExpireOnUse {
			expire, err := NetworkExpireFeature(gk.Network)
			if err != nil {
				return types.Instruction{}, err
			}
			accounts = append(accounts,
				types.AccountMeta{PubKey: GatewayProgramID},
				types.AccountMeta{PubKey: expire},
			)
		}
	}

	if wl := st.Whitelist; wl != nil {
		wlToken, _, err := common.FindAssociatedTokenAddress(payer, wl.Mint)
		if err != nil {
			return types.Instruction{}, fmt.Errorf("derive whitelist token account: %w", err)
		}
		accounts = append(accounts, types.AccountMeta{PubKey: wlToken, IsWritable: true})
		if wl.Mode == BurnEveryTime {
			accounts = append(accounts,
				types.AccountMeta{PubKey: wl.Mint, IsWritable: true},
				types.AccountMeta{PubKey: payer, IsSigner: true},
			)
		}
	}

	if st.TokenMint != nil {
		paying, _, err := common.FindAssociatedTokenAddress(payer, *st.TokenMint)
		if err != nil {
			return types.Instruction{}, fmt.Errorf("derive payment token account: %w", err)
		}
		accounts = append(accounts,
			types.AccountMeta{PubKey: paying, IsWritable: true},
			types.AccountMeta{PubKey: payer, IsSigner: true},
		)
	}

	data := append(append([]byte{}, mintNFTDiscr...), creatorBump)
	return types.Instruction{ProgramID: program, Accounts: accounts, Data: data}, nil
}

// SetCollectionDuringMint verifies the freshly minted NFT as part of the
// candy machine's collection. It must directly follow mint_nft in the same
// transaction.
func SetCollectionDuringMint(program common.PublicKey, st *State, payer, mint common.PublicKey, collection *CollectionPDA) (types.Instruction, error) {
	collectionPDA, err := CollectionPDAAddress(program, st.ID)
	if err != nil {
		return types.Instruction{}, err
	}
	metadata, err := MetadataAddress(mint)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("derive metadata: %w", err)
	}
	collectionMetadata, err := MetadataAddress(collection.Mint)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("derive collection metadata: %w", err)
	}
	collectionEdition, err := MasterEditionAddress(collection.Mint)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("derive collection master edition: %w", err)
	}
	record, err := CollectionAuthorityRecord(collection.Mint, collectionPDA)
	if err != nil {
		return types.Instruction{}, err
	}

	return types.Instruction{
		ProgramID: program,
		Accounts: []types.AccountMeta{
			{PubKey: st.ID},
			{PubKey: metadata},
			{PubKey: payer, IsSigner: true},
			{PubKey: collectionPDA, IsWritable: true},
			{PubKey: TokenMetadataID},
			{PubKey: sysvarInstructions},
			{PubKey: collection.Mint},
			{PubKey: collectionMetadata},
			{PubKey: collectionEdition},
			{PubKey: st.Authority},
			{PubKey: record},
		},
		Data: append([]byte{}, setCollectionDuringMintDiscr...),
	}, nil
}
