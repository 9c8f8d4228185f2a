package main

import (
	"context"
	"fmt"

	goalstore "github.com/dalemusser/fiiportal/internal/app/store/goals"
	"github.com/dalemusser/fiiportal/internal/app/system/indexes"
	"github.com/dalemusser/fiiportal/internal/app/system/validators"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
)

func newIndexesCmd() *cobra.Command {
	var skipValidators bool
	cmd := &cobra.Command{
		Use:   "indexes",
		Short: "Inspect and reconcile collection indexes",
	}
	ensure := &cobra.Command{
		Use:   "ensure",
		Short: "Apply collection validators and create or fix indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, db *mongo.Database) error {
				logger := newLogger()
				if !skipValidators {
					if err := validators.EnsureAll(ctx, db, logger); err != nil {
						return fmt.Errorf("validators: %w", err)
					}
				}
				if err := indexes.EnsureAll(ctx, db, logger); err != nil {
					return fmt.Errorf("indexes: %w", err)
				}
				n := 0
				for _, set := range indexes.Desired() {
					n += len(set.Models)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "indexes ensured on %d collections (%d indexes)\n", len(indexes.Desired()), n)
				return nil
			})
		},
	}
	ensure.Flags().BoolVar(&skipValidators, "skip-validators", false, "Only reconcile indexes")
	cmd.AddCommand(ensure)
	return cmd
}

func newGoalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Goal maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "recalc",
		Short: "Recompute the current value of every active goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, db *mongo.Database) error {
				goals, err := goalstore.New(db).RecalculateActive(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, g := range goals {
					fmt.Fprintf(out, "%-40s %d/%d (%.0f%%)\n", g.Title, g.Current, g.Target, g.Progress()*100)
				}
				fmt.Fprintf(out, "%d active goals recalculated\n", len(goals))
				return nil
			})
		},
	})
	return cmd
}
