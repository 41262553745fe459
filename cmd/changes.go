package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/mintwatch/internal/utils"
	"github.com/sw33tLie/mintwatch/pkg/storage"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show recent snapshot changes (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		attempts, _ := cmd.Flags().GetBool("attempts")

		db, err := openExistingDB(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		if attempts {
			list, err := db.ListMintAttempts(context.Background(), limit)
			if err != nil {
				return err
			}
			for _, a := range list {
				ts := a.StartedAt.Local().Format("2006-01-02 15:04:05")
				fmt.Printf("%s  %-12s  %6s  %s  %s\n", ts, a.Outcome, a.Duration.Round(100*time.Millisecond), utils.Truncate(a.Signature, 8), a.Message)
			}
			return nil
		}

		changes, err := db.ListRecentChanges(context.Background(), limit)
		if err != nil {
			return err
		}
		for _, c := range changes {
			ts := c.OccurredAt.Local().Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %-7s  %s  %s  %-16s  %s -> %s\n", ts, c.ChangeType, utils.Truncate(c.CandyMachine, 4), utils.Truncate(c.Wallet, 4), c.Field, c.OldValue, c.NewValue)
		}
		return nil
	},
}

// openExistingDB opens the database named by --dbpath or db.path without
// creating it.
func openExistingDB(cmd *cobra.Command) (*storage.DB, error) {
	dbPath, _ := cmd.Flags().GetString("dbpath")
	if dbPath == "" {
		dbPath = viperDBPath()
	}
	absPath, err := utils.GetAbsDBPath(dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, fmt.Errorf("database not found: %s", absPath)
	}
	return storage.Open(absPath)
}

func init() {
	rootCmd.AddCommand(changesCmd)
	changesCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: db.path)")
	changesCmd.Flags().Int("limit", 50, "Number of recent changes to show")
	changesCmd.Flags().Bool("attempts", false, "Show recorded mint attempts instead of snapshot changes")
}
