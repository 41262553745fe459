package alert

import (
	"fmt"
	"time"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// DefaultHideAfter is how long an alert stays open when no explicit duration
// is given.
const DefaultHideAfter = 6 * time.Second

// Alert is the user-facing message state. A Persistent alert stays open
// until dismissed.
type Alert struct {
	ID         uint64        `json:"id"`
	Message    string        `json:"message"`
	Severity   Severity      `json:"severity"`
	Open       bool          `json:"open"`
	HideAfter  time.Duration `json:"hideAfter,omitempty"`
	Persistent bool          `json:"persistent"`
	CreatedAt  time.Time     `json:"createdAt"`
}

func (a Alert) String() string {
	return fmt.Sprintf("[%s] %s", a.Severity, a.Message)
}

func newAlert(sev Severity, msg string) Alert {
	return Alert{Message: msg, Severity: sev, Open: true, HideAfter: DefaultHideAfter}
}

func Info(msg string) Alert    { return newAlert(SeverityInfo, msg) }
func Success(msg string) Alert { return newAlert(SeveritySuccess, msg) }
func Warning(msg string) Alert { return newAlert(SeverityWarning, msg) }
func Error(msg string) Alert   { return newAlert(SeverityError, msg) }

// Fatal is an error alert that never hides on its own, used for
// configuration problems the user has to fix.
func Fatal(msg string) Alert {
	a := newAlert(SeverityError, msg)
	a.HideAfter = 0
	a.Persistent = true
	return a
}

// For returns a copy of a that hides after d.
func (a Alert) For(d time.Duration) Alert {
	a.HideAfter = d
	a.Persistent = false
	return a
}

// Messages shown during minting.
const (
	MsgSignSetup           = "Please sign account setup transaction"
	MsgSetupSucceeded      = "Setup transaction succeeded! Please sign minting transaction"
	MsgSignMint            = "Please sign minting transaction"
	MsgMintFailed          = "Mint failed! Please try again!"
	MsgMintSucceeded       = "Congratulations! Mint succeeded!"
	MsgMintingFailed       = "Minting failed! Please try again!"
	MsgSoldOut             = "SOLD OUT!"
	MsgInsufficientFunds   = "Insufficient funds to mint. Please fund your wallet."
	MsgNotStarted          = "Minting period hasn't started yet."
	MsgTimeout             = "Transaction timeout! Please try again."
	MsgAntiBotFee          = "Mint likely failed! Anti-bot SOL 0.01 fee potentially charged! Check the explorer to confirm the mint failed and if so, make sure you are eligible to mint before trying again."
	MsgGatewayIssue        = "Please sign one-time Civic Pass issuance"
	MsgGatewayRefresh      = "Refreshing Civic Pass"
	MsgUserCancelled       = "User cancelled signing"
	MsgTransactionDropped  = "Solana dropped the transaction, please try again"
	MsgMissingCandyMachine = "Missing candy machine id. Set candymachine.id in the config file or MINTWATCH_CANDYMACHINE_ID."
)

// Lifetimes that differ from DefaultHideAfter.
const (
	SuccessHideAfter = 7 * time.Second
	AntiBotHideAfter = 8 * time.Second
)

// NotFound is raised when the configured candy machine account does not exist
// on the cluster the RPC host serves.
func NotFound(id, rpcHost string) Alert {
	return Fatal(fmt.Sprintf("Couldn't fetch candy machine state from candy machine with address: %s, using rpc: %s! You probably typed the candymachine.id value wrong, or you are using the wrong rpc!", id, rpcHost))
}

// RPCMisconfigured is raised when the RPC host cannot serve the request at
// all.
func RPCMisconfigured(rpcHost string) Alert {
	return Fatal(fmt.Sprintf("Couldn't fetch candy machine state with rpc: %s! Check the rpc.host setting, or use a dedicated rpc node.", rpcHost))
}
