package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
	"golang.org/x/sync/errgroup"

	"github.com/sw33tLie/mintwatch/pkg/alert"
	"github.com/sw33tLie/mintwatch/pkg/candymachine"
	"github.com/sw33tLie/mintwatch/pkg/chain"
	"github.com/sw33tLie/mintwatch/pkg/eligibility"
)

var (
	ErrMintInProgress = errors.New("a mint is already in progress")
	ErrNotReady       = errors.New("wallet or candy machine state not available")
	ErrConfig         = errors.New("configuration error")
)

const (
	defaultInterval = 20 * time.Second
	defaultTimeout  = 60 * time.Second
)

// Config holds everything a Reconciler needs besides its collaborators.
type Config struct {
	ProgramID      common.PublicKey
	CandyMachineID common.PublicKey
	RPCHost        string
	Commitment     rpc.Commitment
	// Timeout bounds transaction confirmation and each background refresh.
	Timeout  time.Duration
	Interval time.Duration

	WhitelistWindow time.Duration
	// GoLive is the configured launch date used for the countdown before any
	// state was fetched.
	GoLive *time.Time

	// ConfigError is a configuration problem detected before the reconciler
	// was built. When set, every refresh raises it as a persistent alert.
	ConfigError string

	Log Logger
}

// Deps are the collaborators of a Reconciler. Wallet, Minter, Confirmer and
// Gateway may be nil.
type Deps struct {
	Wallet    Identity
	State     StateReader
	Balances  BalanceReader
	Minter    Minter
	Confirmer Confirmer
	Gateway   Gateway
	Alerts    Notifier
	Observers []Observer
}

// Reconciler keeps a mint eligibility snapshot in sync with the chain for one
// wallet and submits mints on its behalf.
type Reconciler struct {
	cfg  Config
	deps Deps
	log  Logger
	now  func() time.Time

	snapshot atomic.Pointer[eligibility.Snapshot]
	state    atomic.Pointer[candymachine.State]
	minting  atomic.Bool

	setupMu sync.Mutex
	setup   *chain.SetupState

	subsMu sync.Mutex
	subs   map[chan eligibility.Snapshot]struct{}
}

func New(cfg Config, deps Deps) *Reconciler {
	if cfg.Log == nil {
		cfg.Log = nopLogger{}
	}
	if cfg.Commitment == "" {
		cfg.Commitment = rpc.CommitmentConfirmed
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ProgramID == (common.PublicKey{}) {
		cfg.ProgramID = candymachine.ProgramID
	}
	return &Reconciler{
		cfg:  cfg,
		deps: deps,
		log:  cfg.Log,
		now:  time.Now,
		subs: make(map[chan eligibility.Snapshot]struct{}),
	}
}

// Snapshot returns the last published snapshot, or nil before the first
// successful refresh.
func (r *Reconciler) Snapshot() *eligibility.Snapshot {
	return r.snapshot.Load()
}

// State returns the candy machine state the snapshot was derived from.
func (r *Reconciler) State() *candymachine.State {
	return r.state.Load()
}

func (r *Reconciler) IsMinting() bool {
	return r.minting.Load()
}

// Countdown evaluates the countdown against the current snapshot, falling
// back to the configured go-live date while nothing has been fetched.
func (r *Reconciler) Countdown() eligibility.Countdown {
	now := r.now()
	if s := r.Snapshot(); s != nil {
		return eligibility.Next(*s, now, r.cfg.WhitelistWindow)
	}
	if r.cfg.GoLive != nil {
		return eligibility.Preview(*r.cfg.GoLive, now, r.cfg.WhitelistWindow)
	}
	return eligibility.Countdown{Phase: eligibility.PhaseNone, Status: eligibility.StatusLive}
}

func (r *Reconciler) alert(a alert.Alert) {
	if r.deps.Alerts != nil {
		r.deps.Alerts.Publish(a)
	}
}

// Refresh fetches the candy machine and the wallet balances and publishes a
// new snapshot. Without a wallet it does nothing.
func (r *Reconciler) Refresh(ctx context.Context, commitment rpc.Commitment) error {
	start := r.now()
	snap, outcome, err := r.refresh(ctx, commitment)
	for _, o := range r.deps.Observers {
		o.ObserveRefresh(outcome, r.now().Sub(start), snap)
	}
	return err
}

func (r *Reconciler) refresh(ctx context.Context, commitment rpc.Commitment) (*eligibility.Snapshot, RefreshOutcome, error) {
	if r.deps.Wallet == nil {
		return nil, RefreshSkipped, nil
	}
	if r.cfg.ConfigError != "" {
		r.alert(alert.Fatal(r.cfg.ConfigError))
		return nil, RefreshConfigError, fmt.Errorf("%w: %s", ErrConfig, r.cfg.ConfigError)
	}
	if commitment == "" {
		commitment = r.cfg.Commitment
	}

	st, err := r.deps.State.FetchState(ctx, r.cfg.CandyMachineID, commitment)
	if err != nil {
		switch {
		case errors.Is(err, candymachine.ErrAccountNotFound):
			r.alert(alert.NotFound(r.cfg.CandyMachineID.ToBase58(), r.cfg.RPCHost))
			return nil, RefreshNotFound, err
		case errors.Is(err, chain.ErrConnectivity):
			r.alert(alert.RPCMisconfigured(r.cfg.RPCHost))
			return nil, RefreshUnreachable, err
		case errors.Is(err, context.Canceled):
			return nil, RefreshError, err
		}
		r.alert(alert.Error(err.Error()))
		return nil, RefreshError, err
	}

	in := r.lookups(ctx, st, commitment)
	in.Now = r.now()
	snap := eligibility.Derive(in)

	r.state.Store(st)
	r.publish(&snap)
	r.log.Debugf("refreshed %s: active=%t presale=%t remaining=%d", st.ID.ToBase58(), snap.IsActive, snap.IsPresale, snap.ItemsRemaining)
	return &snap, RefreshOK, nil
}

// lookups runs the balance reads a derivation needs concurrently. Failures
// are kept on the Lookup and degrade the matching flag only.
func (r *Reconciler) lookups(ctx context.Context, st *candymachine.State, commitment rpc.Commitment) eligibility.Inputs {
	owner := r.deps.Wallet.PublicKey()
	in := eligibility.Inputs{State: st}

	var g errgroup.Group
	if wl := st.Whitelist; wl != nil {
		g.Go(func() error {
			amount, err := r.deps.Balances.TokenBalance(ctx, wl.Mint, owner, commitment)
			in.Whitelist = eligibility.Lookup{Amount: amount, Err: err}
			if err != nil {
				r.log.Debugf("whitelist token lookup: %v", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		var amount uint64
		var err error
		if st.TokenMint != nil {
			amount, err = r.deps.Balances.TokenBalance(ctx, *st.TokenMint, owner, commitment)
		} else {
			amount, err = r.deps.Balances.NativeBalance(ctx, owner, commitment)
		}
		in.Payment = eligibility.Lookup{Amount: amount, Err: err}
		if err != nil {
			r.log.Warnf("payment balance lookup: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		addr, err := candymachine.CollectionPDAAddress(r.cfg.ProgramID, st.ID)
		if err != nil {
			return nil
		}
		exists, err := r.deps.Balances.AccountExists(ctx, addr, commitment)
		if err != nil {
			r.log.Debugf("collection pda lookup: %v", err)
		}
		in.CollectionExists = exists
		return nil
	})
	_ = g.Wait()
	return in
}

func (r *Reconciler) publish(s *eligibility.Snapshot) {
	r.snapshot.Store(s)

	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	for ch := range r.subs {
		select {
		case ch <- *s:
		default:
		}
	}
}

// Subscribe returns a channel receiving every published snapshot. Slow
// readers miss updates. Call the returned func to unsubscribe.
func (r *Reconciler) Subscribe(buffer int) (<-chan eligibility.Snapshot, func()) {
	ch := make(chan eligibility.Snapshot, buffer)
	r.subsMu.Lock()
	r.subs[ch] = struct{}{}
	r.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.subsMu.Lock()
			delete(r.subs, ch)
			r.subsMu.Unlock()
			close(ch)
		})
	}
}

// OnCountdownComplete flips the phase flags of the current snapshot when a
// countdown reaches zero, then reconciles against the chain.
func (r *Reconciler) OnCountdownComplete(ctx context.Context) error {
	if s := r.Snapshot(); s != nil {
		toggled := eligibility.Toggle(*s, r.now())
		r.publish(&toggled)
	}
	return r.Refresh(ctx, r.cfg.Commitment)
}

// reset drops every cached piece of state, as if the process had just started.
func (r *Reconciler) reset() {
	r.snapshot.Store(nil)
	r.state.Store(nil)
	r.setupMu.Lock()
	r.setup = nil
	r.setupMu.Unlock()
}

func (r *Reconciler) setupState() *chain.SetupState {
	r.setupMu.Lock()
	defer r.setupMu.Unlock()
	return r.setup
}

func (r *Reconciler) setSetupState(s *chain.SetupState) {
	r.setupMu.Lock()
	r.setup = s
	r.setupMu.Unlock()
}
