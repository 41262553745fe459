package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sw33tLie/mintwatch/pkg/alert"
	"github.com/sw33tLie/mintwatch/pkg/metrics"
	"github.com/sw33tLie/mintwatch/pkg/reconcile"
)

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint one NFT from the candy machine with the configured keypair",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		a, err := newApp(metrics.Default())
		if err != nil {
			return err
		}
		if a.wallet == nil {
			return errors.New("minting needs wallet.keypair")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 3*a.cfg.MintTimeout)
		defer cancel()

		alerts, unsubscribe := a.alerts.Subscribe(16)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for al := range alerts {
				if al.Open {
					fmt.Fprintln(os.Stderr, al)
				}
			}
		}()
		defer func() {
			unsubscribe()
			<-done
		}()

		if err := a.rec.Refresh(ctx, a.cfg.Commitment); err != nil {
			return err
		}
		snap := a.rec.Snapshot()
		if snap == nil {
			return reconcile.ErrNotReady
		}
		if !snap.CanMint() && !force {
			if snap.IsSoldOut {
				return errors.New(alert.MsgSoldOut)
			}
			return fmt.Errorf("this wallet cannot mint right now (active=%t presale=%t whitelisted=%t enough funds=%t), use --force to try anyway",
				snap.IsActive, snap.IsPresale, snap.IsWhitelistUser, snap.IsValidBalance)
		}

		if err := a.rec.SubmitMint(ctx, nil, nil); err != nil {
			return err
		}
		if after := a.rec.Snapshot(); after != nil {
			fmt.Printf("%d of %d left\n", after.ItemsRemaining, after.ItemsAvailable)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mintCmd)
	mintCmd.Flags().Bool("force", false, "Submit even if the snapshot says the wallet cannot mint")
}
