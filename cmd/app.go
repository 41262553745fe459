package cmd

import (
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/sw33tLie/mintwatch/internal/config"
	"github.com/sw33tLie/mintwatch/internal/utils"
	"github.com/sw33tLie/mintwatch/pkg/alert"
	"github.com/sw33tLie/mintwatch/pkg/chain"
	"github.com/sw33tLie/mintwatch/pkg/eligibility"
	"github.com/sw33tLie/mintwatch/pkg/reconcile"
)

const lamportsPerSOL = 1_000_000_000

// app bundles the reconciler with what the commands need around it.
type app struct {
	cfg    *config.Config
	wallet chain.Wallet
	alerts *alert.Notifier
	rec    *reconcile.Reconciler
}

func newApp(observers ...reconcile.Observer) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	wallet, err := cfg.Wallet()
	if err != nil {
		return nil, fmt.Errorf("could not open wallet: %w", err)
	}

	rpcClient := chain.NewClient(cfg.RPCHost, cfg.Retries)
	alerts := alert.NewNotifier()
	deps := reconcile.Deps{
		State:     chain.NewStateReader(rpcClient),
		Balances:  chain.NewBalances(rpcClient),
		Confirmer: chain.NewConfirmer(rpcClient),
		Alerts:    alerts,
		Observers: observers,
	}
	if wallet != nil {
		deps.Wallet = wallet
		deps.Minter = chain.NewMinter(rpcClient, cfg.Program, wallet)
	} else {
		utils.Log.Warn("No wallet configured: set wallet.keypair or wallet.pubkey to check eligibility.")
	}

	return &app{
		cfg:    cfg,
		wallet: wallet,
		alerts: alerts,
		rec:    reconcile.New(cfg.Reconcile(utils.Log), deps),
	}, nil
}

func (a *app) walletAddress() string {
	if a.wallet == nil {
		return ""
	}
	return a.wallet.PublicKey().ToBase58()
}

func (a *app) candyMachine() string {
	if a.cfg.CandyMachine == (common.PublicKey{}) {
		return ""
	}
	return a.cfg.CandyMachine.ToBase58()
}

// formatPrice prints SOL prices in SOL and SPL token prices in raw token
// units.
func (a *app) formatPrice(amount uint64) string {
	if st := a.rec.State(); st != nil && st.TokenMint != nil {
		return humanize.Comma(int64(amount)) + " " + utils.Truncate(st.TokenMint.ToBase58(), 4)
	}
	return formatSOL(amount)
}

func formatSOL(lamports uint64) string {
	return humanize.FtoaWithDigits(float64(lamports)/lamportsPerSOL, 9) + " SOL"
}

func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return d.Round(time.Second).String()
}

func formatCountdown(c eligibility.Countdown, now time.Time) string {
	if c.Phase == eligibility.PhaseNone || c.Remaining <= 0 {
		if c.Status == "" {
			return "-"
		}
		return string(c.Status)
	}
	return fmt.Sprintf("%s in %s (%s, %s)", c.Phase, formatRemaining(c.Remaining), c.At.Local().Format(time.RFC1123), humanize.RelTime(c.At, now, "ago", "from now"))
}
