package reconcile

import (
	"context"
	"errors"
	"strings"

	"github.com/sw33tLie/mintwatch/pkg/alert"
	"github.com/sw33tLie/mintwatch/pkg/candymachine"
	"github.com/sw33tLie/mintwatch/pkg/chain"
)

// Kind is the class of a failed submission.
type Kind int

const (
	KindOther Kind = iota
	KindSoldOut
	KindNotLive
	KindInsufficientFunds
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindSoldOut:
		return "sold_out"
	case KindNotLive:
		return "not_live"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindTimeout:
		return "timeout"
	}
	return "other"
}

var codeKinds = map[candymachine.ErrorCode]Kind{
	candymachine.CodeCandyMachineEmpty:   KindSoldOut,
	candymachine.CodeCandyMachineNotLive: KindNotLive,
	candymachine.CodeNotEnoughSOL:        KindInsufficientFunds,
}

var markerOrder = []candymachine.ErrorCode{
	candymachine.CodeCandyMachineEmpty,
	candymachine.CodeNotEnoughSOL,
	candymachine.CodeCandyMachineNotLive,
}

var kindMessages = map[Kind]string{
	KindSoldOut:           alert.MsgSoldOut,
	KindNotLive:           alert.MsgNotStarted,
	KindInsufficientFunds: alert.MsgInsufficientFunds,
	KindTimeout:           alert.MsgTimeout,
}

// Classify turns a submission error into the message shown to the user.
// A program error code wins. Hex markers in the message are only consulted
// when no code could be extracted.
func Classify(err error) (string, Kind) {
	if err == nil {
		return "", KindOther
	}

	var pe *candymachine.ProgramError
	if errors.As(err, &pe) {
		if k, ok := codeKinds[pe.Code]; ok {
			return kindMessages[k], k
		}
	}

	if errors.Is(err, chain.ErrConfirmationTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return alert.MsgTimeout, KindTimeout
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, code := range markerOrder {
		if strings.Contains(lower, code.Hex()) {
			k := codeKinds[code]
			return kindMessages[k], k
		}
	}

	if strings.TrimSpace(msg) == "" {
		return alert.MsgTimeout, KindTimeout
	}
	return msg, KindOther
}

// forcesReset reports whether err is the structured sold-out code, after which
// every cached piece of state is dropped.
func forcesReset(err error) bool {
	var pe *candymachine.ProgramError
	return errors.As(err, &pe) && pe.Code == candymachine.CodeCandyMachineEmpty
}

func gatewayAlert(s GatewayStatus) alert.Alert {
	switch s {
	case GatewayIssuing:
		return alert.Info(alert.MsgGatewayIssue)
	case GatewayRefreshing:
		return alert.Info(alert.MsgGatewayRefresh)
	case GatewayCancelled:
		return alert.Error(alert.MsgUserCancelled)
	}
	return alert.Warning(alert.MsgTransactionDropped)
}
