package eligibility

import (
	"strconv"
	"time"
)

// Snapshot is the derived mint eligibility of one wallet against one candy
// machine. It is a plain value: publishers replace it as a whole.
type Snapshot struct {
	IsActive        bool `json:"isActive"`
	IsPresale       bool `json:"isPresale"`
	IsWhitelistUser bool `json:"isWhitelistUser"`
	IsValidBalance  bool `json:"isValidBalance"`
	IsWhitelistOnly bool `json:"isWhitelistOnly"`
	IsSoldOut       bool `json:"isSoldOut"`
	HasWhitelist    bool `json:"hasWhitelist"`

	ItemsAvailable uint64 `json:"itemsAvailable"`
	ItemsRedeemed  uint64 `json:"itemsRedeemed"`
	ItemsRemaining uint64 `json:"itemsRemaining"`

	Price          uint64  `json:"price"`
	EffectivePrice uint64  `json:"effectivePrice"`
	DiscountPrice  *uint64 `json:"discountPrice,omitempty"`

	GoLiveDate *time.Time `json:"goLiveDate,omitempty"`
	EndDate    *time.Time `json:"endDate,omitempty"`

	EstimatedTxSize       int  `json:"estimatedTxSize"`
	NeedsTransactionSplit bool `json:"needsTransactionSplit"`
}

// CanMint is what a mint button should reflect: an active sale, or a
// presale the wallet is whitelisted and funded for.
func (s Snapshot) CanMint() bool {
	return s.IsActive || (s.IsPresale && s.IsWhitelistUser && s.IsValidBalance)
}

// Fields flattens the snapshot into stable string values keyed by field
// name, for change tracking.
func (s Snapshot) Fields() map[string]string {
	f := map[string]string{
		"isActive":              strconv.FormatBool(s.IsActive),
		"isPresale":             strconv.FormatBool(s.IsPresale),
		"isWhitelistUser":       strconv.FormatBool(s.IsWhitelistUser),
		"isValidBalance":        strconv.FormatBool(s.IsValidBalance),
		"isWhitelistOnly":       strconv.FormatBool(s.IsWhitelistOnly),
		"isSoldOut":             strconv.FormatBool(s.IsSoldOut),
		"itemsRemaining":        strconv.FormatUint(s.ItemsRemaining, 10),
		"effectivePrice":        strconv.FormatUint(s.EffectivePrice, 10),
		"needsTransactionSplit": strconv.FormatBool(s.NeedsTransactionSplit),
		"discountPrice":         "",
		"goLiveDate":            "",
		"endDate":               "",
	}
	if s.DiscountPrice != nil {
		f["discountPrice"] = strconv.FormatUint(*s.DiscountPrice, 10)
	}
	if s.GoLiveDate != nil {
		f["goLiveDate"] = s.GoLiveDate.UTC().Format(time.RFC3339)
	}
	if s.EndDate != nil {
		f["endDate"] = s.EndDate.UTC().Format(time.RFC3339)
	}
	return f
}

// AfterMint applies the optimistic update for a mint observed locally. The
// next refresh replaces it with chain truth.
func AfterMint(s Snapshot) Snapshot {
	if s.ItemsRemaining > 0 {
		s.ItemsRemaining--
	}
	if s.ItemsRemaining == 0 {
		s.IsActive = false
		s.IsSoldOut = true
	}
	return s
}

// Toggle re-evaluates the phase flags when a countdown reaches zero, instead
// of trusting the stale snapshot: a pending sale opens, a presale turns into
// the public sale, and an open sale closes at its end date.
func Toggle(s Snapshot, now time.Time) Snapshot {
	active := !s.IsActive || s.IsPresale
	if active {
		if s.IsWhitelistOnly && !s.IsWhitelistUser {
			active = false
		}
		if s.EndDate != nil && !now.Before(*s.EndDate) {
			active = false
		}
		if s.IsSoldOut {
			active = false
		}
	}
	if s.IsPresale && s.GoLiveDate != nil && !s.GoLiveDate.After(now) {
		s.IsPresale = false
	}
	s.IsActive = active
	return s
}
