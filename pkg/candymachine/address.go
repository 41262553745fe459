package candymachine

import (
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
)

// Well-known program ids used when building candy machine instructions.
var (
	ProgramID          = common.PublicKeyFromString("cndy3Z4yapfJBmL3ShUp5exZKqR3z33thTzeNMm2gRZ")
	TokenMetadataID    = common.PublicKeyFromString("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
	GatewayProgramID   = common.PublicKeyFromString("gatem74V238djXdzWnJf94Wo1DcnuGkfijbf3AuBhfs")
	sysvarRent         = common.PublicKeyFromString("SysvarRent111111111111111111111111111111111")
	sysvarClock        = common.PublicKeyFromString("SysvarC1ock11111111111111111111111111111111")
	sysvarSlotHashes   = common.PublicKeyFromString("SysvarS1otHashes111111111111111111111111111")
	sysvarInstructions = common.PublicKeyFromString("Sysvar1nstructions1111111111111111111111111")
)

// ParseAddress decodes a base58 account address, rejecting anything that is
// not exactly 32 bytes. common.PublicKeyFromString silently pads bad input.
func ParseAddress(s string) (common.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.PublicKey{}, fmt.Errorf("empty address")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("address %q is not base58: %w", s, err)
	}
	if len(raw) != common.PublicKeyLength {
		return common.PublicKey{}, fmt.Errorf("address %q decodes to %d bytes, want %d", s, len(raw), common.PublicKeyLength)
	}
	return common.PublicKeyFromBytes(raw), nil
}
