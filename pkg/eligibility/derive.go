package eligibility

import (
	"time"

	"github.com/sw33tLie/mintwatch/pkg/candymachine"
)

// Lookup is the outcome of one remote balance read. A failed read is kept as
// Err so the derivation can degrade the dependent flag instead of aborting.
type Lookup struct {
	Amount uint64
	Err    error
}

// Inputs is everything a snapshot depends on.
type Inputs struct {
	State *candymachine.State
	Now   time.Time

	// Whitelist is the wallet's whitelist token balance. Ignored when the
	// candy machine has no whitelist settings.
	Whitelist Lookup
	// Payment is the wallet's balance in the payment token, or lamports
	// when the candy machine is priced in SOL.
	Payment Lookup

	// CollectionExists reports whether the collection PDA account exists.
	CollectionExists bool
}

// Derive computes the eligibility snapshot. It is a pure function of its
// inputs.
func Derive(in Inputs) Snapshot {
	st := in.State
	now := in.Now

	s := Snapshot{
		ItemsAvailable: st.ItemsAvailable,
		ItemsRedeemed:  st.ItemsRedeemed,
		Price:          st.Price,
	}
	if st.GoLiveDate != nil {
		t := *st.GoLiveDate
		s.GoLiveDate = &t
	}

	active := st.GoLiveDate != nil && !st.GoLiveDate.After(now)

	if wl := st.Whitelist; wl != nil {
		s.HasWhitelist = true
		if wl.Presale && (st.GoLiveDate == nil || st.GoLiveDate.After(now)) {
			s.IsPresale = true
		}
		if wl.DiscountPrice != nil {
			d := *wl.DiscountPrice
			s.DiscountPrice = &d
		} else if !wl.Presale {
			s.IsWhitelistOnly = true
		}

		s.IsWhitelistUser = in.Whitelist.Err == nil && in.Whitelist.Amount > 0
		if s.IsWhitelistOnly {
			active = s.IsWhitelistUser && (s.IsPresale || active)
		}
	}

	s.EffectivePrice = st.Price
	if s.IsWhitelistUser && s.DiscountPrice != nil {
		s.EffectivePrice = *s.DiscountPrice
	}

	s.IsValidBalance = in.Payment.Err == nil && in.Payment.Amount >= s.EffectivePrice
	active = active && s.IsValidBalance

	s.ItemsRemaining = st.ItemsRemaining()
	s.IsSoldOut = st.IsSoldOut()
	if es := st.EndSettings; es != nil {
		switch es.Type {
		case candymachine.EndByDate:
			end := es.Date()
			s.EndDate = &end
			if end.Before(now) {
				active = false
			}
		case candymachine.EndByAmount:
			limit := min(es.Number, st.ItemsAvailable)
			if st.ItemsRedeemed < limit {
				s.ItemsRemaining = limit - st.ItemsRedeemed
			} else {
				s.ItemsRemaining = 0
				s.IsSoldOut = true
			}
		}
	}
	if s.IsSoldOut {
		active = false
	}

	s.EstimatedTxSize = EstimateTxSize(FactorsFor(st, in.CollectionExists))
	s.NeedsTransactionSplit = s.EstimatedTxSize > MaxTxSize
	s.IsActive = active
	return s
}
