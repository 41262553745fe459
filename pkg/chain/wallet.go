package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mitchellh/go-homedir"
)

var ErrWatchOnly = errors.New("wallet is watch-only and cannot sign")

// Wallet is the authenticated identity the reconciler acts for.
type Wallet interface {
	PublicKey() common.PublicKey
	// Account returns the signing account, or ErrWatchOnly.
	Account() (types.Account, error)
}

type Keypair struct {
	account types.Account
}

func NewKeypair(account types.Account) *Keypair {
	return &Keypair{account: account}
}

// LoadKeypair reads a keypair file in the Solana CLI format: a JSON array of
// the 64 secret key bytes.
func LoadKeypair(path string) (*Keypair, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair: %w", err)
	}
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return nil, fmt.Errorf("keypair %s is not a json byte array: %w", path, err)
	}
	if len(ints) != 64 {
		return nil, fmt.Errorf("keypair %s: want 64 bytes, got %d", path, len(ints))
	}
	b := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("keypair %s: byte %d out of range: %d", path, i, v)
		}
		b[i] = byte(v)
	}
	account, err := types.AccountFromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("keypair %s: %w", path, err)
	}
	return &Keypair{account: account}, nil
}

func (k *Keypair) PublicKey() common.PublicKey { return k.account.PublicKey }

func (k *Keypair) Account() (types.Account, error) { return k.account, nil }

type watchOnly struct {
	pub common.PublicKey
}

// WatchOnly is a wallet that can be refreshed against but never mints.
func WatchOnly(pub common.PublicKey) Wallet {
	return watchOnly{pub: pub}
}

func (w watchOnly) PublicKey() common.PublicKey { return w.pub }

func (w watchOnly) Account() (types.Account, error) {
	return types.Account{}, ErrWatchOnly
}
