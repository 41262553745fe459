package eligibility

import "time"

// Phase names the boundary a countdown runs towards.
type Phase string

const (
	PhaseNone           Phase = "none"
	PhaseWhitelistStart Phase = "whitelist_start"
	PhasePublicStart    Phase = "public_start"
	PhaseSaleEnd        Phase = "sale_end"
)

// Status is the label shown once a countdown has nothing left to count.
type Status string

const (
	StatusLive      Status = "LIVE"
	StatusCompleted Status = "COMPLETED"
)

// DefaultWhitelistWindow is how long before public go-live whitelisted
// wallets may mint.
const DefaultWhitelistWindow = time.Hour

type Countdown struct {
	Phase     Phase         `json:"phase"`
	At        time.Time     `json:"at"`
	Remaining time.Duration `json:"remaining"`
	Status    Status        `json:"status"`
}

// Expired reports whether the countdown has reached its target.
func (c Countdown) Expired() bool {
	return c.Phase != PhaseNone && c.Remaining <= 0
}

func countdownTo(p Phase, at, now time.Time, status Status) Countdown {
	rem := at.Sub(now)
	if rem < 0 {
		rem = 0
	}
	return Countdown{Phase: p, At: at, Remaining: rem, Status: status}
}

// Next picks the date a connected wallet should count down to. An open sale
// with an end date counts to its end; otherwise the count runs to the
// whitelist window and then to public go-live.
func Next(s Snapshot, now time.Time, window time.Duration) Countdown {
	status := StatusLive
	if s.IsSoldOut || (s.EndDate != nil && now.After(*s.EndDate)) {
		status = StatusCompleted
	}

	if s.IsActive && s.EndDate != nil {
		return countdownTo(PhaseSaleEnd, *s.EndDate, now, status)
	}

	if s.GoLiveDate == nil {
		if s.IsPresale {
			// presale without a go-live date is live until told otherwise
			return countdownTo(PhasePublicStart, now, now, status)
		}
		return Countdown{Phase: PhaseNone, Status: status}
	}

	goLive := *s.GoLiveDate
	if s.HasWhitelist && window > 0 {
		if wlStart := goLive.Add(-window); now.Before(wlStart) {
			return countdownTo(PhaseWhitelistStart, wlStart, now, status)
		}
	}
	if now.Before(goLive) {
		return countdownTo(PhasePublicStart, goLive, now, status)
	}
	if s.EndDate != nil && now.Before(*s.EndDate) {
		return countdownTo(PhaseSaleEnd, *s.EndDate, now, status)
	}
	return Countdown{Phase: PhaseNone, At: goLive, Status: status}
}

// Preview is the countdown shown before any wallet is connected, driven only
// by the configured go-live date. It is LIVE inside the whitelist window.
func Preview(goLive, now time.Time, window time.Duration) Countdown {
	wlStart := goLive.Add(-window)
	status := StatusCompleted
	if !now.Before(wlStart) && !now.After(goLive) {
		status = StatusLive
	}
	switch {
	case now.Before(wlStart):
		return countdownTo(PhaseWhitelistStart, wlStart, now, status)
	case now.Before(goLive):
		return countdownTo(PhasePublicStart, goLive, now, status)
	}
	return Countdown{Phase: PhaseNone, At: goLive, Status: status}
}
