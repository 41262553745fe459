package storage

import (
	"context"
	"time"

	"github.com/sw33tLie/mintwatch/pkg/eligibility"
	"github.com/sw33tLie/mintwatch/pkg/reconcile"
)

const recordTimeout = 5 * time.Second

// Recorder writes reconciler outcomes to the database. It implements
// reconcile.Observer.
type Recorder struct {
	DB           *DB
	CandyMachine string
	Wallet       string
	Log          reconcile.Logger

	// OnChanges is called after a snapshot produced changes. Nil = no callback.
	OnChanges func(changes []Change)
}

func (r *Recorder) ObserveRefresh(outcome reconcile.RefreshOutcome, _ time.Duration, snap *eligibility.Snapshot) {
	if outcome != reconcile.RefreshOK || snap == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	changes, err := r.DB.RecordSnapshot(ctx, r.CandyMachine, r.Wallet, *snap)
	if err != nil {
		r.warnf("Could not record snapshot: %v", err)
		return
	}
	if len(changes) > 0 && r.OnChanges != nil {
		r.OnChanges(changes)
	}
}

func (r *Recorder) ObserveMint(a reconcile.MintAttempt) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	_, err := r.DB.RecordMintAttempt(ctx, MintAttempt{
		CandyMachine: a.CandyMachine.ToBase58(),
		Wallet:       a.Wallet.ToBase58(),
		Outcome:      string(a.Outcome),
		Signature:    a.Signature,
		Mint:         a.Mint,
		Message:      a.Message,
		StartedAt:    a.StartedAt,
		Duration:     a.Took,
	})
	if err != nil {
		r.warnf("Could not record mint attempt: %v", err)
	}
}

func (r *Recorder) warnf(format string, args ...interface{}) {
	if r.Log != nil {
		r.Log.Warnf(format, args...)
	}
}

var _ reconcile.Observer = (*Recorder)(nil)
