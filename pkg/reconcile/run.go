package reconcile

import (
	"context"
	"time"

	"github.com/blocto/solana-go-sdk/rpc"
)

// Run refreshes immediately, then every Interval, and re-evaluates the
// phase flags whenever the current countdown expires. It returns when ctx is
// done. A refresh in flight at that point is allowed to finish within the
// configured timeout.
func (r *Reconciler) Run(ctx context.Context) error {
	r.tick(ctx, r.cfg.Commitment)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		countdown := r.armCountdown()

		select {
		case <-ctx.Done():
			countdown.Stop()
			return ctx.Err()
		case <-ticker.C:
			countdown.Stop()
			r.tick(ctx, r.cfg.Commitment)
		case <-countdown.C:
			r.log.Infof("countdown reached %s", r.Countdown().At.Format(time.RFC3339))
			r.background(ctx, r.OnCountdownComplete)
		}
	}
}

func (r *Reconciler) tick(ctx context.Context, commitment rpc.Commitment) {
	r.background(ctx, func(ctx context.Context) error {
		return r.Refresh(ctx, commitment)
	})
}

func (r *Reconciler) background(ctx context.Context, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.Timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		r.log.Warnf("refresh: %v", err)
	}
}

// countdownTimer wraps a timer that may never fire.
type countdownTimer struct {
	C     <-chan time.Time
	timer *time.Timer
}

func (c countdownTimer) Stop() {
	if c.timer != nil {
		c.timer.Stop()
	}
}

func (r *Reconciler) armCountdown() countdownTimer {
	if r.Snapshot() == nil {
		return countdownTimer{}
	}
	c := r.Countdown()
	if c.Remaining <= 0 {
		return countdownTimer{}
	}
	t := time.NewTimer(c.Remaining)
	return countdownTimer{C: t.C, timer: t}
}
