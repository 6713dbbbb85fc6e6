package cli

import (
	"context"
	"fmt"
	"log"

	"fintrack-server/src/backend"
	"fintrack-server/src/finance"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const recomputeWorkers = 4

func recomputeCmd() *cobra.Command {
	var (
		userID string
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild financial summaries from the ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (userID == "") == !all {
				return fmt.Errorf("pass exactly one of --user or --all")
			}
			ctx := cmd.Context()

			store, err := backend.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			engine := finance.NewEngine(store, store)
			if userID != "" {
				summary, err := engine.Recompute(ctx, userID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s income=%s expense=%s balance=%s\n",
					userID, summary.TotalIncome, summary.TotalExpense, summary.Balance)
				return nil
			}

			ids, err := store.ListUserIDs(ctx)
			if err != nil {
				return err
			}
			bar := progressbar.NewOptions(len(ids),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionShowCount(),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Recomputing summaries"),
			)
			if err := recomputeAll(ctx, engine, ids, func() { _ = bar.Add(1) }); err != nil {
				return err
			}
			_ = bar.Finish()
			log.Printf("INFO: Recomputed %d summaries", len(ids))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id to recompute")
	cmd.Flags().BoolVar(&all, "all", false, "recompute every user")
	return cmd
}

// recomputeAll runs the engine for every id with a bounded number of
// workers. The first failure cancels the rest.
func recomputeAll(ctx context.Context, engine *finance.Engine, ids []string, done func()) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recomputeWorkers)
	for _, id := range ids {
		g.Go(func() error {
			if _, err := engine.Recompute(gctx, id); err != nil {
				return fmt.Errorf("recompute %s: %w", id, err)
			}
			done()
			return nil
		})
	}
	return g.Wait()
}
