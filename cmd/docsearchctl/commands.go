package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docsearch/internal/usecase/lifecycle"
	"github.com/kailas-cloud/docsearch/internal/version"
)

func newBootstrapCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create missing catalog collections",
		Long: `Create every catalog collection that does not exist yet as <name>_v1
behind an alias named <name>. Existing collections are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			op, closeFn, err := open(cmd.Context(), 0)
			if err != nil {
				return err
			}
			defer closeFn()

			created, err := op.Bootstrap(cmd.Context())
			if err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(created) == 0 {
				fmt.Fprintln(out, "all collections exist")
				return nil
			}
			for _, name := range created {
				fmt.Fprintf(out, "created %s\n", name)
			}
			return nil
		},
	}
}

func newRebuildCmd(open opener) *cobra.Command {
	var (
		deleteOld bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "rebuild <collection> <new-index>",
		Short: "Copy a collection into a new index and swap its alias",
		Long: `Create <new-index> from the catalog mapping, reindex the current backing
index into it, then atomically point <collection> at it. A bare legacy index
named <collection> is promoted to an alias first. The command blocks until
the swap, so prefer it over the HTTP endpoint for long reindexes.

Examples:
  docsearchctl rebuild articles articles_v2
  docsearchctl rebuild recipes recipes_v3 --delete-old --timeout 2h`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if timeout < 0 {
				return fmt.Errorf("--timeout must not be negative")
			}
			op, closeFn, err := open(cmd.Context(), timeout)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := op.Rebuild(cmd.Context(), lifecycle.RebuildRequest{
				Alias:     args[0],
				NewIndex:  args[1],
				DeleteOld: deleteOld,
			})
			if err != nil {
				return fmt.Errorf("rebuild %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if res.Promoted {
				fmt.Fprintf(out, "promoted legacy index %s to %s\n", res.Alias, res.OldIndex)
			}
			fmt.Fprintf(out, "%s -> %s (copied %d documents in %s)\n",
				res.Alias, res.NewIndex, res.Copied, res.Took.Round(time.Millisecond))
			if res.DeletedOld {
				fmt.Fprintf(out, "deleted %s\n", res.OldIndex)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&deleteOld, "delete-old", false, "delete the previous backing index after the swap")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "reindex ceiling, overrides lifecycle.reindex_timeout_sec")
	return cmd
}

func newAliasesCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "aliases <collection>",
		Short: "Show what a collection name resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, closeFn, err := open(cmd.Context(), 0)
			if err != nil {
				return err
			}
			defer closeFn()

			target, err := op.Resolve(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("resolve %s: %w", args[0], err)
			}
			if target.Index == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", args[0], target.State)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", args[0], target.State, target.Index)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
