package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sw33tLie/mintwatch/pkg/eligibility"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Fetch the candy machine once and print whether your wallet can mint",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.MintTimeout)
		defer cancel()

		refreshErr := a.rec.Refresh(ctx, a.cfg.Commitment)
		if current := a.alerts.Current(); current.Open {
			fmt.Fprintln(os.Stderr, current)
		}
		if refreshErr != nil {
			return refreshErr
		}

		snap := a.rec.Snapshot()
		if snap == nil {
			return nil
		}
		printSnapshot(os.Stdout, a, snap)
		fmt.Printf("\nNext: %s\n", formatCountdown(a.rec.Countdown(), time.Now()))
		return nil
	},
}

func printSnapshot(out io.Writer, a *app, s *eligibility.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "Candy machine\t%s\n", a.candyMachine())
	fmt.Fprintf(w, "Wallet\t%s\n", a.walletAddress())
	fmt.Fprintf(w, "Can mint\t%t\n", s.CanMint())
	fmt.Fprintf(w, "Active\t%t\n", s.IsActive)
	fmt.Fprintf(w, "Presale\t%t\n", s.IsPresale)
	fmt.Fprintf(w, "Whitelisted\t%t\n", s.IsWhitelistUser)
	fmt.Fprintf(w, "Enough funds\t%t\n", s.IsValidBalance)
	fmt.Fprintf(w, "Sold out\t%t\n", s.IsSoldOut)
	fmt.Fprintf(w, "Items\t%s of %s left (%s redeemed)\n", humanize.Comma(int64(s.ItemsRemaining)), humanize.Comma(int64(s.ItemsAvailable)), humanize.Comma(int64(s.ItemsRedeemed)))
	fmt.Fprintf(w, "Price\t%s\n", a.formatPrice(s.EffectivePrice))
	if s.DiscountPrice != nil {
		fmt.Fprintf(w, "Whitelist price\t%s\n", a.formatPrice(*s.DiscountPrice))
	}
	if s.GoLiveDate != nil {
		fmt.Fprintf(w, "Go live\t%s\n", s.GoLiveDate.Local().Format(time.RFC1123))
	}
	if s.EndDate != nil {
		fmt.Fprintf(w, "Ends\t%s\n", s.EndDate.Local().Format(time.RFC1123))
	}
	split := ""
	if s.NeedsTransactionSplit {
		split = " (setup sent separately)"
	}
	fmt.Fprintf(w, "Mint tx size\t%d bytes%s\n", s.EstimatedTxSize, split)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
