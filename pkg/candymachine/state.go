package candymachine

import (
	"time"

	"github.com/blocto/solana-go-sdk/common"
)

// EndSettingType selects how a candy machine stops minting.
type EndSettingType uint8

const (
	EndByDate EndSettingType = iota
	EndByAmount
)

func (t EndSettingType) String() string {
	switch t {
	case EndByDate:
		return "date"
	case EndByAmount:
		return "amount"
	}
	return "unknown"
}

// WhitelistMode controls whether the whitelist token is burned on each mint.
type WhitelistMode uint8

const (
	BurnEveryTime WhitelistMode = iota
	NeverBurn
)

// EndSettings is either an absolute unix timestamp or a redemption limit,
// depending on Type.
type EndSettings struct {
	Type   EndSettingType
	Number uint64
}

// Date returns the end timestamp. Only meaningful when Type is EndByDate.
func (e EndSettings) Date() time.Time {
	return time.Unix(int64(e.Number), 0).UTC()
}

type WhitelistSettings struct {
	Mode          WhitelistMode
	Mint          common.PublicKey
	Presale       bool
	DiscountPrice *uint64
}

// WhitelistOnly reports whether only whitelist holders may mint at all:
// no discount and no presale phase.
func (w WhitelistSettings) WhitelistOnly() bool {
	return w.DiscountPrice == nil && !w.Presale
}

type Gatekeeper struct {
	Network     common.PublicKey
	ExpireOnUse bool
}

type Creator struct {
	Address  common.PublicKey
	Verified bool
	Share    uint8
}

// State is the decoded on-chain configuration of a candy machine. A State is
// never modified after decoding; every refresh yields a new value.
type State struct {
	ID        common.PublicKey
	Authority common.PublicKey
	Wallet    common.PublicKey
	TokenMint *common.PublicKey

	Symbol               string
	SellerFeeBasisPoints uint16
	MaxSupply            uint64
	IsMutable            bool
	RetainAuthority      bool
	Creators             []Creator

	Price          uint64
	ItemsAvailable uint64
	ItemsRedeemed  uint64
	GoLiveDate     *time.Time

	EndSettings *EndSettings
	Whitelist   *WhitelistSettings
	Gatekeeper  *Gatekeeper
}

// ItemsRemaining is available minus redeemed, never negative.
func (s *State) ItemsRemaining() uint64 {
	if s.ItemsRedeemed >= s.ItemsAvailable {
		return 0
	}
	return s.ItemsAvailable - s.ItemsRedeemed
}

func (s *State) IsSoldOut() bool {
	return s.ItemsRemaining() == 0
}
