package eligibility

import "github.com/sw33tLie/mintwatch/pkg/candymachine"

// Transaction size accounting for a combined setup and mint transaction.
const (
	BaseTxSize = 892
	MaxTxSize  = 1230

	collectionTxBytes  = 182
	tokenMintTxBytes   = 66
	whitelistTxBytes   = 34
	burnTxBytes        = 34
	gatekeeperTxBytes  = 33
	expireOnUseTxBytes = 66
)

// TxFactors are the candy machine features that add accounts to a mint
// transaction.
type TxFactors struct {
	Collection  bool
	TokenMint   bool
	Whitelist   bool
	Burn        bool
	Gatekeeper  bool
	ExpireOnUse bool
}

// FactorsFor reads the size factors off a candy machine. The collection
// instruction is only added when the collection PDA exists and the update
// authority is retained.
func FactorsFor(st *candymachine.State, collectionExists bool) TxFactors {
	f := TxFactors{
		Collection: collectionExists && st.RetainAuthority,
		TokenMint:  st.TokenMint != nil,
	}
	if st.Whitelist != nil {
		f.Whitelist = true
		f.Burn = st.Whitelist.Mode == candymachine.BurnEveryTime
	}
	if st.Gatekeeper != nil {
		f.Gatekeeper = true
		f.ExpireOnUse = st.Gatekeeper.ExpireOnUse
	}
	return f
}

// EstimateTxSize returns the estimated serialized size in bytes of a
// transaction carrying the setup and mint instructions together.
func EstimateTxSize(f TxFactors) int {
	size := BaseTxSize
	if f.Collection {
		size += collectionTxBytes
	}
	if f.TokenMint {
		size += tokenMintTxBytes
	}
	if f.Whitelist {
		size += whitelistTxBytes
		if f.Burn {
			size += burnTxBytes
		}
	}
	if f.Gatekeeper {
		size += gatekeeperTxBytes
		if f.ExpireOnUse {
			size += expireOnUseTxBytes
		}
	}
	return size
}
