package candymachine

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/near/borsh-go"
)

const discriminatorLen = 8

var (
	ErrAccountNotFound     = errors.New("account does not exist")
	ErrWrongDiscriminator  = errors.New("account discriminator mismatch")
	ErrAccountDataTooShort = errors.New("account data too short")

	candyMachineDiscr  = accountDiscriminator("CandyMachine")
	collectionPDADiscr = accountDiscriminator("CollectionPDA")
)

func accountDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("account:" + name))
	return sum[:discriminatorLen]
}

// Borsh layouts of the candy machine v2 accounts. Field order matters.

type rawCandyMachine struct {
	Authority     [32]byte
	Wallet        [32]byte
	TokenMint     *[32]byte
	ItemsRedeemed uint64
	Data          rawCandyMachineData
}

type rawCandyMachineData struct {
	UUID                 string
	Price                uint64
	Symbol               string
	SellerFeeBasisPoints uint16
	MaxSupply            uint64
	IsMutable            bool
	RetainAuthority      bool
	GoLiveDate           *int64
	EndSettings          *rawEndSettings
	Creators             []rawCreator
	HiddenSettings       *rawHiddenSettings
	Whitelist            *rawWhitelist
	ItemsAvailable       uint64
	Gatekeeper           *rawGatekeeper
}

type rawEndSettings struct {
	Type   borsh.Enum
	Number uint64
}

type rawCreator struct {
	Address  [32]byte
	Verified bool
	Share    uint8
}

type rawHiddenSettings struct {
	Name string
	URI  string
	Hash [32]byte
}

type rawWhitelist struct {
	Mode          borsh.Enum
	Mint          [32]byte
	Presale       bool
	DiscountPrice *uint64
}

type rawGatekeeper struct {
	Network     [32]byte
	ExpireOnUse bool
}

type rawCollectionPDA struct {
	Mint         [32]byte
	CandyMachine [32]byte
}

// CollectionPDA is the account linking a candy machine to its collection mint.
type CollectionPDA struct {
	Mint         common.PublicKey
	CandyMachine common.PublicKey
}

func stripDiscriminator(data, want []byte) ([]byte, error) {
	if len(data) < discriminatorLen {
		return nil, ErrAccountDataTooShort
	}
	if !bytes.Equal(data[:discriminatorLen], want) {
		return nil, ErrWrongDiscriminator
	}
	return data[discriminatorLen:], nil
}

// DecodeState decodes raw candy machine account data. Trailing config lines
// after the fixed layout are ignored.
func DecodeState(id common.PublicKey, data []byte) (*State, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w %s", ErrAccountNotFound, id.ToBase58())
	}
	body, err := stripDiscriminator(data, candyMachineDiscr)
	if err != nil {
		return nil, err
	}

	var raw rawCandyMachine
	if err := borsh.Deserialize(&raw, body); err != nil {
		return nil, fmt.Errorf("decode candy machine %s: %w", id.ToBase58(), err)
	}

	st := &State{
		ID:                   id,
		Authority:            common.PublicKey(raw.Authority),
		Wallet:               common.PublicKey(raw.Wallet),
		Symbol:               raw.Data.Symbol,
		SellerFeeBasisPoints: raw.Data.SellerFeeBasisPoints,
		MaxSupply:            raw.Data.MaxSupply,
		IsMutable:            raw.Data.IsMutable,
		RetainAuthority:      raw.Data.RetainAuthority,
		Price:                raw.Data.Price,
		ItemsAvailable:       raw.Data.ItemsAvailable,
		ItemsRedeemed:        raw.ItemsRedeemed,
	}
	if raw.TokenMint != nil {
		mint := common.PublicKey(*raw.TokenMint)
		st.TokenMint = &mint
	}
	if raw.Data.GoLiveDate != nil {
		t := time.Unix(*raw.Data.GoLiveDate, 0).UTC()
		st.GoLiveDate = &t
	}
	if es := raw.Data.EndSettings; es != nil {
		st.EndSettings = &EndSettings{Type: EndSettingType(es.Type), Number: es.Number}
	}
	for _, c := range raw.Data.Creators {
		st.Creators = append(st.Creators, Creator{Address: common.PublicKey(c.Address), Verified: c.Verified, Share: c.Share})
	}
	if wl := raw.Data.Whitelist; wl != nil {
		st.Whitelist = &WhitelistSettings{
			Mode:          WhitelistMode(wl.Mode),
			Mint:          common.PublicKey(wl.Mint),
			Presale:       wl.Presale,
			DiscountPrice: wl.DiscountPrice,
		}
	}
	if gk := raw.Data.Gatekeeper; gk != nil {
		st.Gatekeeper = &Gatekeeper{Network: common.PublicKey(gk.Network), ExpireOnUse: gk.ExpireOnUse}
	}
	return st, nil
}

// EncodeState is the inverse of DecodeState. It is used to build fixtures
// for local validators and tests.
func EncodeState(st *State) ([]byte, error) {
	raw := rawCandyMachine{
		Authority:     st.Authority,
		Wallet:        st.Wallet,
		ItemsRedeemed: st.ItemsRedeemed,
		Data: rawCandyMachineData{
			UUID:                 "000000",
			Price:                st.Price,
			Symbol:               st.Symbol,
			SellerFeeBasisPoints: st.SellerFeeBasisPoints,
			MaxSupply:            st.MaxSupply,
			IsMutable:            st.IsMutable,
			RetainAuthority:      st.RetainAuthority,
			Creators:             []rawCreator{},
			ItemsAvailable:       st.ItemsAvailable,
		},
	}
	if st.TokenMint != nil {
		m := [32]byte(*st.TokenMint)
		raw.TokenMint = &m
	}
	if st.GoLiveDate != nil {
		ts := st.GoLiveDate.Unix()
		raw.Data.GoLiveDate = &ts
	}
	if es := st.EndSettings; es != nil {
		raw.Data.EndSettings = &rawEndSettings{Type: borsh.Enum(es.Type), Number: es.Number}
	}
	for _, c := range st.Creators {
		raw.Data.Creators = append(raw.Data.Creators, rawCreator{Address: c.Address, Verified: c.Verified, Share: c.Share})
	}
	if wl := st.Whitelist; wl != nil {
		raw.Data.Whitelist = &rawWhitelist{Mode: borsh.Enum(wl.Mode), Mint: wl.Mint, Presale: wl.Presale, DiscountPrice: wl.DiscountPrice}
	}
	if gk := st.Gatekeeper; gk != nil {
		raw.Data.Gatekeeper = &rawGatekeeper{Network: gk.Network, ExpireOnUse: gk.ExpireOnUse}
	}

	body, err := borsh.Serialize(raw)
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, candyMachineDiscr...), body...), nil
}

func DecodeCollectionPDA(data []byte) (*CollectionPDA, error) {
	body, err := stripDiscriminator(data, collectionPDADiscr)
	if err != nil {
		return nil, err
	}
	var raw rawCollectionPDA
	if err := borsh.Deserialize(&raw, body); err != nil {
		return nil, fmt.Errorf("decode collection pda: %w", err)
	}
	return &CollectionPDA{Mint: common.PublicKey(raw.Mint), CandyMachine: common.PublicKey(raw.CandyMachine)}, nil
}

func EncodeCollectionPDA(c *CollectionPDA) ([]byte, error) {
	body, err := borsh.Serialize(rawCollectionPDA{Mint: c.Mint, CandyMachine: c.CandyMachine})
	if err != nil {
		return nil, err
	}
	return append(append([]byte{}, collectionPDADiscr...), body...), nil
}
