package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/LivingInDrm/sudanlike/internal/game"
	"github.com/LivingInDrm/sudanlike/internal/savestore"
	"github.com/spf13/cobra"
)

func newSavesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saves",
		Short: "List, inspect and delete saved games",
	}
	cmd.AddCommand(
		newSavesListCmd(a),
		newSavesShowCmd(a),
		newSavesDeleteCmd(a),
	)
	return cmd
}

// withStore opens the configured store for one command.
func withStore(ctx context.Context, a *app, fn func(context.Context, savestore.Store) error) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Storage.Timeout)
	defer cancel()

	store, err := savestore.Open(ctx, a.cfg.Storage, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}

func newSavesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saves, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), a, func(ctx context.Context, store savestore.Store) error {
				saves, err := store.List(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "SAVE ID\tSAVED AT\tDAY\tDIFFICULTY\tCHECKSUM")
				for _, s := range saves {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
						s.SaveID, s.SavedAt.Format(time.RFC3339), s.Day, s.Difficulty, shortChecksum(s.Checksum))
				}
				return w.Flush()
			})
		},
	}
}

func newSavesShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <save-id>",
		Short: "Print a save as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), a, func(ctx context.Context, store savestore.Store) error {
				snap, err := store.Load(ctx, args[0])
				if err != nil {
					return err
				}
				data, err := game.MarshalSnapshot(snap)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			})
		},
	}
}

func newSavesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <save-id>",
		Short: "Delete a save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), a, func(ctx context.Context, store savestore.Store) error {
				if err := store.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func shortChecksum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
