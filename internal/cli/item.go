package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/stride/internal/model"
	"github.com/roach88/stride/internal/store"
)

// itemView is the JSON projection of an item.
type itemView struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	Detail    string `json:"detail,omitempty"`
	Priority  int    `json:"priority"`
	Completed bool   `json:"completed"`
	Created   string `json:"created"`
}

func viewItem(it model.Item) itemView {
	return itemView{
		ID:        it.ID,
		ProjectID: it.ProjectID,
		Title:     it.Title,
		Detail:    it.Detail,
		Priority:  it.Priority,
		Completed: it.Completed,
		Created:   it.Created.UTC().Format(time.RFC3339),
	}
}

func viewItems(items []model.Item) []itemView {
	out := make([]itemView, len(items))
	for i, it := range items {
		out[i] = viewItem(it)
	}
	return out
}

func renderItems(items []model.Item) string {
	if len(items) == 0 {
		return "no items"
	}
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		mark := " "
		if it.Completed {
			mark = "x"
		}
		fmt.Fprintf(&b, "%s  [%s] p%d %s", it.ID, mark, it.Priority, it.Title)
	}
	return b.String()
}

// parseSortOrder maps a flag value onto the named item orderings.
func parseSortOrder(name string) (model.SortOrder, error) {
	switch name {
	case "optimized", "":
		return model.SortOptimized, nil
	case "creation":
		return model.SortCreation, nil
	case "title":
		return model.SortTitle, nil
	default:
		return 0, fmt.Errorf("invalid sort %q: must be optimized, creation, or title", name)
	}
}

func parsePriority(name string) (int, error) {
	switch name {
	case "low":
		return model.PriorityLow, nil
	case "medium", "":
		return model.PriorityMedium, nil
	case "high":
		return model.PriorityHigh, nil
	default:
		return 0, fmt.Errorf("invalid priority %q: must be low, medium, or high", name)
	}
}

// NewItemCommand creates the item command group.
func NewItemCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Manage items within a project",
	}

	cmd.AddCommand(newItemAddCommand(rootOpts))
	cmd.AddCommand(newItemListCommand(rootOpts))
	cmd.AddCommand(newItemEditCommand(rootOpts))
	cmd.AddCommand(newItemCompleteCommand(rootOpts))
	cmd.AddCommand(newItemDeleteCommand(rootOpts))

	return cmd
}

func newItemAddCommand(rootOpts *RootOptions) *cobra.Command {
	var title, detail, priority string

	cmd := &cobra.Command{
		Use:           "add <project-id>",
		Short:         "Add an item to a project",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			prio, err := parsePriority(priority)
			if err != nil {
				out.Error(CodeInvalidArgument, err.Error(), nil)
				return NewExitError(ExitCommandError, "invalid priority")
			}

			return withApp(rootOpts, func(app *App) error {
				it, err := app.Tracker.AddItem(cmd.Context(), store.ItemDraft{
					ProjectID: args[0], Title: title, Detail: detail, Priority: prio,
				})
				if err != nil {
					return notFoundOrInternal(out, err)
				}
				if rootOpts.Format == "json" {
					return out.Success(viewItem(it))
				}
				return out.Success("created " + renderItems([]model.Item{it}))
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "New Item", "item title")
	cmd.Flags().StringVar(&detail, "detail", "", "item detail")
	cmd.Flags().StringVar(&priority, "priority", "medium", "priority (low|medium|high)")

	return cmd
}

func newItemListCommand(rootOpts *RootOptions) *cobra.Command {
	var sortName string

	cmd := &cobra.Command{
		Use:           "list <project-id>",
		Short:         "List a project's items",
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

			return withApp(rootOpts, func(app *App) error {
				items, err := app.Tracker.Items(cmd.Context(), args[0], order)
				if err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return out.Success(viewItems(items))
				}
				return out.Success(renderItems(items))
			})
		},
	}

	cmd.Flags().StringVar(&sortName, "sort", "optimized", "item order (optimized|creation|title)")

	return cmd
}

func newItemEditCommand(rootOpts *RootOptions) *cobra.Command {
	var title, detail, priority string

	cmd := &cobra.Command{
		Use:           "edit <item-id>",
		Short:         "Update item fields",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			changes := store.ItemChanges{}
			if cmd.Flags().Changed("title") {
				changes.Title = &title
			}
			if cmd.Flags().Changed("detail") {
				changes.Detail = &detail
			}
			if cmd.Flags().Changed("priority") {
				prio, err := parsePriority(priority)
				if err != nil {
					out.Error(CodeInvalidArgument, err.Error(), nil)
					return NewExitError(ExitCommandError, "invalid priority")
				}
				changes.Priority = &prio
			}

			return withApp(rootOpts, func(app *App) error {
				if err := app.Tracker.UpdateItem(cmd.Context(), args[0], changes); err != nil {
					return notFoundOrInternal(out, err)
				}
				return out.Success("updated " + args[0])
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&detail, "detail", "", "new detail")
	cmd.Flags().StringVar(&priority, "priority", "", "new priority (low|medium|high)")

	return cmd
}

func newItemCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:           "complete <item-id>",
		Short:         "Mark an item complete",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			return withApp(rootOpts, func(app *App) error {
				if err := app.Tracker.SetCompleted(cmd.Context(), args[0], !undo); err != nil {
					return notFoundOrInternal(out, err)
				}
				if undo {
					return out.Success(args[0] + " marked incomplete")
				}
				return out.Success(args[0] + " completed")
			})
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "mark incomplete instead")

	return cmd
}

func newItemDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "delete <item-id>",
		Short:         "Delete an item",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			return withApp(rootOpts, func(app *App) error {
				if err := app.Tracker.DeleteItem(cmd.Context(), args[0]); err != nil {
					return notFoundOrInternal(out, err)
				}
				return out.Success("deleted " + args[0])
			})
		},
	}

	return cmd
}
