package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sw33tLie/mintwatch/internal/utils"
)

var countdownCmd = &cobra.Command{
	Use:   "countdown",
	Short: "Print the time left until the next mint phase",
	Long: `Print the time left until the next mint phase.

Without a reachable candy machine the countdown runs to schedule.go_live.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")

		a, err := newApp()
		if err != nil {
			return err
		}
		if a.cfg.Problem == "" {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.MintTimeout)
			err := a.rec.Refresh(ctx, a.cfg.Commitment)
			cancel()
			if err != nil {
				utils.Log.Warnf("Using the configured schedule: %v", err)
			}
		}

		c := a.rec.Countdown()
		fmt.Println(formatCountdown(c, time.Now()))
		if !follow {
			return nil
		}

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for !c.Expired() && c.Remaining > 0 {
			select {
			case <-cmd.Context().Done():
				return nil
			case <-ticker.C:
			}
			c = a.rec.Countdown()
			fmt.Printf("\r%s   ", formatCountdown(c, time.Now()))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(countdownCmd)
	countdownCmd.Flags().BoolP("follow", "f", false, "Keep printing until the countdown completes")
}
