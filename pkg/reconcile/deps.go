package reconcile

import (
	"context"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/sw33tLie/mintwatch/pkg/alert"
	"github.com/sw33tLie/mintwatch/pkg/candymachine"
	"github.com/sw33tLie/mintwatch/pkg/chain"
	"github.com/sw33tLie/mintwatch/pkg/eligibility"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Identity is the connected wallet. Only its address is needed to reconcile;
// signing happens inside the Minter.
type Identity interface {
	PublicKey() common.PublicKey
}

type StateReader interface {
	FetchState(ctx context.Context, id common.PublicKey, commitment rpc.Commitment) (*candymachine.State, error)
}

type BalanceReader interface {
	TokenBalance(ctx context.Context, mint, owner common.PublicKey, commitment rpc.Commitment) (uint64, error)
	NativeBalance(ctx context.Context, owner common.PublicKey, commitment rpc.Commitment) (uint64, error)
	AccountExists(ctx context.Context, addr common.PublicKey, commitment rpc.Commitment) (bool, error)
}

type Minter interface {
	CreateSetup(ctx context.Context) (*chain.SetupState, error)
	MintOne(ctx context.Context, st *candymachine.State, setup *chain.SetupState, prefix, suffix [][]types.Instruction) (*chain.MintResult, error)
}

type Confirmer interface {
	AwaitConfirmation(ctx context.Context, sig string, timeout time.Duration) error
}

// GatewayStatus is a step of the gated-access token flow worth telling the
// user about.
type GatewayStatus int

const (
	GatewayIssuing GatewayStatus = iota
	GatewayRefreshing
	GatewayCancelled
	GatewayDropped
)

// Gateway obtains or refreshes the wallet's gateway token for a gatekeeper
// network before a mint. report is called for every user-visible step.
type Gateway interface {
	Ensure(ctx context.Context, network common.PublicKey, report func(GatewayStatus)) error
}

type Notifier interface {
	Publish(alert.Alert)
}

// Observer receives the outcome of every refresh and mint attempt. Metrics
// and history recording hang off it.
type Observer interface {
	ObserveRefresh(outcome RefreshOutcome, took time.Duration, snap *eligibility.Snapshot)
	ObserveMint(attempt MintAttempt)
}

type RefreshOutcome string

const (
	RefreshOK          RefreshOutcome = "ok"
	RefreshSkipped     RefreshOutcome = "skipped"
	RefreshConfigError RefreshOutcome = "config_error"
	RefreshNotFound    RefreshOutcome = "not_found"
	RefreshUnreachable RefreshOutcome = "unreachable"
	RefreshError       RefreshOutcome = "error"
)

type MintOutcome string

const (
	MintSucceeded   MintOutcome = "success"
	MintNoMetadata  MintOutcome = "no_metadata"
	MintUnconfirmed MintOutcome = "unconfirmed"
	MintSetupFailed MintOutcome = "setup_failed"
	MintErrored     MintOutcome = "error"
)

// MintAttempt describes one finished SubmitMint call.
type MintAttempt struct {
	CandyMachine common.PublicKey
	Wallet       common.PublicKey
	Outcome      MintOutcome
	Signature    string
	Mint         string
	Message      string
	StartedAt    time.Time
	Took         time.Duration
}
