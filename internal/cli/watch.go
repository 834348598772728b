package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/stride/internal/query"
	"github.com/roach88/stride/internal/store"
)

// NewWatchCommand creates the watch command: a live view over a query
// that reprints whenever a mutation changes its result set. Mostly
// useful with a second stride process mutating the same data dir.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live query results until interrupted",
	}

	cmd.AddCommand(newWatchProjectsCommand(rootOpts))
	cmd.AddCommand(newWatchItemsCommand(rootOpts))

	return cmd
}

func newWatchProjectsCommand(rootOpts *RootOptions) *cobra.Command {
	var closed bool

	cmd := &cobra.Command{
		Use:           "projects",
		Short:         "Watch the open or closed project view",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withApp(rootOpts, func(app *App) error {
				initial, sub, err := app.Loop.SubscribeProjects(ctx, store.ProjectQuery{
					Where: query.Eq{Field: store.ProjectClosed, Value: closed},
					Sort:  store.ProjectCreationSort(),
				})
				if err != nil {
					return err
				}
				defer sub.Cancel()

				fmt.Fprintln(cmd.OutOrStdout(), renderProjects(initial))
				for {
					select {
					case <-ctx.Done():
						return nil
					case ps, ok := <-sub.Updates():
						if !ok {
							return nil
						}
						fmt.Fprintln(cmd.OutOrStdout(), "---")
						fmt.Fprintln(cmd.OutOrStdout(), renderProjects(ps))
					}
				}
			})
		},
	}

	cmd.Flags().BoolVar(&closed, "closed", false, "watch the closed view instead of the open view")

	return cmd
}

func newWatchItemsCommand(rootOpts *RootOptions) *cobra.Command {
	var sortName string

	cmd := &cobra.Command{
		Use:           "items <project-id>",
		Short:         "Watch a project's items",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			order, err := parseSortOrder(sortName)
			if err != nil {
				out.Error(CodeInvalidArgument, err.Error(), nil)
				return NewExitError(ExitCommandError, "invalid sort")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return withApp(rootOpts, func(app *App) error {
				initial, sub, err := app.Loop.SubscribeItems(ctx, store.ItemQuery{
					Where: query.Eq{Field: store.ItemProject, Value: args[0]},
					Sort:  store.ItemSortKeys(order),
				})
				if err != nil {
					return err
				}
				defer sub.Cancel()

				fmt.Fprintln(cmd.OutOrStdout(), renderItems(initial))
				for {
					select {
					case <-ctx.Done():
						return nil
					case items, ok := <-sub.Updates():
						if !ok {
							return nil
						}
						fmt.Fprintln(cmd.OutOrStdout(), "---")
						fmt.Fprintln(cmd.OutOrStdout(), renderItems(items))
					}
				}
			})
		},
	}

	cmd.Flags().StringVar(&sortName, "sort", "optimized", "item order (optimized|creation|title)")

	return cmd
}
