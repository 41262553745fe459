package candymachine

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/metaplex/token_metadata"
)

// CreatorPDA is the program-derived signer that verifies the candy machine
// as creator on every minted metadata account.
func CreatorPDA(program, candyMachine common.PublicKey) (common.PublicKey, uint8, error) {
	return common.FindProgramAddress([][]byte{[]byte("candy_machine"), candyMachine.Bytes()}, program)
}

// CollectionPDAAddress exists on-chain only when a collection has been set
// for the candy machine.
func CollectionPDAAddress(program, candyMachine common.PublicKey) (common.PublicKey, error) {
	addr, _, err := common.FindProgramAddress([][]byte{[]byte("collection"), candyMachine.Bytes()}, program)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("derive collection pda: %w", err)
	}
	return addr, nil
}

func CollectionAuthorityRecord(collectionMint, authority common.PublicKey) (common.PublicKey, error) {
	addr, _, err := common.FindProgramAddress([][]byte{
		[]byte("metadata"),
		TokenMetadataID.Bytes(),
		collectionMint.Bytes(),
		[]byte("collection_authority"),
		authority.Bytes(),
	}, TokenMetadataID)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("derive collection authority record: %w", err)
	}
	return addr, nil
}

// GatewayTokenAddress derives the gateway token a gatekeeper network issues
// to owner (seed index zero).
func GatewayTokenAddress(owner, network common.PublicKey) (common.PublicKey, error) {
	addr, _, err := common.FindProgramAddress([][]byte{
		owner.Bytes(),
		[]byte("gateway"),
		make([]byte, 8),
		network.Bytes(),
	}, GatewayProgramID)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("derive gateway token: %w", err)
	}
	return addr, nil
}

func NetworkExpireFeature(network common.PublicKey) (common.PublicKey, error) {
	addr, _, err := common.FindProgramAddress([][]byte{network.Bytes(), []byte("expire")}, GatewayProgramID)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("derive network expire feature: %w", err)
	}
	return addr, nil
}

func MetadataAddress(mint common.PublicKey) (common.PublicKey, error) {
	return token_metadata.GetTokenMetaPubkey(mint)
}

func MasterEditionAddress(mint common.PublicKey) (common.PublicKey, error) {
	return token_metadata.GetMasterEdition(mint)
}
