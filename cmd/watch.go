package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sw33tLie/mintwatch/internal/server"
	"github.com/sw33tLie/mintwatch/internal/utils"
	"github.com/sw33tLie/mintwatch/pkg/alert"
	"github.com/sw33tLie/mintwatch/pkg/metrics"
	"github.com/sw33tLie/mintwatch/pkg/reconcile"
	"github.com/sw33tLie/mintwatch/pkg/storage"
)

// watchCmd implements: mintwatch watch
//
//	--serve           Serve the HTTP API
//	--listen string   Listen address for --serve (overrides server.listen)
//	--db              Record snapshots and mint attempts to the database
//	--dbpath string   Path to SQLite DB file
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the eligibility snapshot up to date until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		useDB, _ := cmd.Flags().GetBool("db")
		dbPath, _ := cmd.Flags().GetString("dbpath")
		if dbPath == "" {
			dbPath = viperDBPath()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		observers := []reconcile.Observer{metrics.Default()}

		var db *storage.DB
		recorder := &storage.Recorder{Log: utils.Log, OnChanges: printChanges}
		if useDB {
			lock, err := utils.NewDBLock(dbPath)
			if err != nil {
				return err
			}
			if err := lock.Lock(); err != nil {
				return err
			}
			defer lock.Unlock()

			absPath, err := utils.GetAbsDBPath(dbPath)
			if err != nil {
				return err
			}
			db, err = storage.Open(absPath)
			if err != nil {
				return err
			}
			defer db.Close()
			recorder.DB = db
			observers = append(observers, recorder)
		}

		a, err := newApp(observers...)
		if err != nil {
			return err
		}
		recorder.CandyMachine = a.candyMachine()
		recorder.Wallet = a.walletAddress()

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			printAlerts(ctx, a.alerts)
			return nil
		})
		g.Go(func() error {
			printSnapshots(ctx, a)
			return nil
		})
		g.Go(func() error {
			return a.rec.Run(ctx)
		})

		if serve, _ := cmd.Flags().GetBool("serve"); serve {
			listen, _ := cmd.Flags().GetString("listen")
			if listen == "" {
				listen = a.cfg.Listen
			}
			srv := server.New(server.Options{
				Reconciler:    a.rec,
				Alerts:        a.alerts,
				DB:            db,
				Username:      a.cfg.Username,
				Password:      a.cfg.Password,
				MintPerMinute: a.cfg.MintPerMinute,
				MintTimeout:   2 * a.cfg.MintTimeout,
			})
			g.Go(func() error {
				return srv.Start(ctx, listen)
			})
		}

		err = g.Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func printAlerts(ctx context.Context, n *alert.Notifier) {
	alerts, unsubscribe := n.Subscribe(16)
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-alerts:
			if !a.Open {
				continue
			}
			switch a.Severity {
			case alert.SeverityError:
				utils.Log.Error(a.Message)
			case alert.SeverityWarning:
				utils.Log.Warn(a.Message)
			default:
				utils.Log.Info(a.Message)
			}
		}
	}
}

func printSnapshots(ctx context.Context, a *app) {
	snapshots, unsubscribe := a.rec.Subscribe(4)
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-snapshots:
			utils.Log.Infof("can mint: %t, active: %t, presale: %t, %d/%d left, price %s",
				s.CanMint(), s.IsActive, s.IsPresale, s.ItemsRemaining, s.ItemsAvailable, a.formatPrice(s.EffectivePrice))
		}
	}
}

func printChanges(changes []storage.Change) {
	for _, c := range changes {
		if c.ChangeType == "added" {
			continue
		}
		fmt.Printf("%s  %-7s  %-16s  %s -> %s\n", c.OccurredAt.Local().Format("2006-01-02 15:04:05"), c.ChangeType, c.Field, c.OldValue, c.NewValue)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Bool("serve", false, "Serve the HTTP API, websocket stream and /metrics")
	watchCmd.Flags().String("listen", "", "HTTP listen address (default: server.listen)")
	watchCmd.Flags().Bool("db", false, "Record snapshots and mint attempts to the database and print changes")
	watchCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: db.path, or ~/.config/mintwatch/mintwatch.sqlite)")
}
