package reconcile

import (
	"context"
	"errors"

	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"

	"github.com/sw33tLie/mintwatch/pkg/alert"
	"github.com/sw33tLie/mintwatch/pkg/candymachine"
	"github.com/sw33tLie/mintwatch/pkg/eligibility"
)

// SubmitMint mints one NFT for the connected wallet. prefix and suffix are
// extra transactions sent before and after the mint. Only one mint runs at a
// time; a concurrent call fails with ErrMintInProgress.
//
// Outcomes are reported through alerts. The returned error is nil only when
// the mint landed and its metadata account exists.
func (r *Reconciler) SubmitMint(ctx context.Context, prefix, suffix [][]types.Instruction) error {
	st := r.State()
	snap := r.Snapshot()
	if !r.canSubmit(st, snap) {
		return ErrNotReady
	}
	if !r.minting.CompareAndSwap(false, true) {
		return ErrMintInProgress
	}
	defer r.minting.Store(false)

	attempt := MintAttempt{
		CandyMachine: st.ID,
		Wallet:       r.deps.Wallet.PublicKey(),
		StartedAt:    r.now(),
	}
	defer func() {
		attempt.Took = r.now().Sub(attempt.StartedAt)
		for _, o := range r.deps.Observers {
			o.ObserveMint(attempt)
		}
	}()

	err := r.submit(ctx, st, snap, prefix, suffix, &attempt)
	if err == nil || attempt.Outcome != "" {
		return err
	}

	msg, kind := Classify(err)
	attempt.Outcome = MintErrored
	attempt.Message = msg
	r.log.Warnf("mint failed (%s): %v", kind, err)
	r.alert(alert.Error(msg))

	if forcesReset(err) {
		r.reset()
	}
	r.refreshAfterMint(ctx, r.cfg.Commitment)
	return err
}

// submit runs the mint flow. It returns with attempt.Outcome set for the
// outcomes it already announced; a bare error is left for the caller to
// classify.
// Ready reports whether SubmitMint has what it needs to start: a wallet, a
// minter and a fetched state.
func (r *Reconciler) Ready() bool {
	return r.canSubmit(r.State(), r.Snapshot())
}

func (r *Reconciler) canSubmit(st *candymachine.State, snap *eligibility.Snapshot) bool {
	return r.deps.Wallet != nil && r.deps.Minter != nil && st != nil && snap != nil
}

func (r *Reconciler) submit(ctx context.Context, st *candymachine.State, snap *eligibility.Snapshot, prefix, suffix [][]types.Instruction, attempt *MintAttempt) error {
	setup := r.setupState()
	if snap.NeedsTransactionSplit && setup == nil {
		r.alert(alert.Info(alert.MsgSignSetup))
		created, err := r.deps.Minter.CreateSetup(ctx)
		if err != nil {
			return err
		}
		if err := r.confirm(ctx, created.Signature); err != nil {
			r.log.Warnf("setup transaction %s not confirmed: %v", created.Signature, err)
			attempt.Outcome = MintSetupFailed
			attempt.Signature = created.Signature
			attempt.Message = alert.MsgMintFailed
			r.alert(alert.Error(alert.MsgMintFailed))
			return err
		}
		setup = created
		r.setSetupState(created)
		r.alert(alert.Info(alert.MsgSetupSucceeded))
	} else {
		r.alert(alert.Info(alert.MsgSignMint))
	}

	if gk := st.Gatekeeper; gk != nil && r.deps.Gateway != nil {
		report := func(s GatewayStatus) { r.alert(gatewayAlert(s)) }
		if err := r.deps.Gateway.Ensure(ctx, gk.Network, report); err != nil {
			return err
		}
	}

	res, err := r.deps.Minter.MintOne(ctx, st, setup, prefix, suffix)
	if err != nil {
		return err
	}
	attempt.Signature = res.Signature
	attempt.Mint = res.Mint.ToBase58()

	if err := r.confirm(ctx, res.Signature); err != nil {
		var pe *candymachine.ProgramError
		if errors.As(err, &pe) || r.isTimeout(err) {
			return err
		}
		attempt.Outcome = MintUnconfirmed
		attempt.Message = alert.MsgMintFailed
		r.alert(alert.Error(alert.MsgMintFailed))
		r.refreshAfterMint(ctx, r.cfg.Commitment)
		return err
	}

	hasMetadata, err := r.deps.Balances.AccountExists(ctx, res.MetadataKey, rpc.CommitmentProcessed)
	if err != nil {
		r.log.Debugf("metadata lookup for %s: %v", res.MetadataKey.ToBase58(), err)
	}

	if !hasMetadata {
		attempt.Outcome = MintNoMetadata
		attempt.Message = alert.MsgAntiBotFee
		r.alert(alert.Warning(alert.MsgAntiBotFee).For(alert.AntiBotHideAfter))
		r.refreshAfterMint(ctx, r.cfg.Commitment)
		return errors.New("mint confirmed without metadata account")
	}

	if s := r.Snapshot(); s != nil {
		after := eligibility.AfterMint(*s)
		r.publish(&after)
	}
	r.setSetupState(nil)
	attempt.Outcome = MintSucceeded
	attempt.Message = alert.MsgMintSucceeded
	r.alert(alert.Success(alert.MsgMintSucceeded).For(alert.SuccessHideAfter))
	r.refreshAfterMint(ctx, rpc.CommitmentProcessed)
	return nil
}

func (r *Reconciler) confirm(ctx context.Context, sig string) error {
	if r.deps.Confirmer == nil {
		return nil
	}
	return r.deps.Confirmer.AwaitConfirmation(ctx, sig, r.cfg.Timeout)
}

func (r *Reconciler) isTimeout(err error) bool {
	_, kind := Classify(err)
	return kind == KindTimeout
}

// refreshAfterMint reconciles after a mint without failing the mint itself.
func (r *Reconciler) refreshAfterMint(ctx context.Context, commitment rpc.Commitment) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.Timeout)
	defer cancel()
	if err := r.Refresh(ctx, commitment); err != nil {
		r.log.Warnf("refresh after mint: %v", err)
	}
}
