package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/stride/internal/model"
	"github.com/roach88/stride/internal/store"
	"github.com/roach88/stride/internal/tracker"
)

// projectView is the JSON projection of a project.
type projectView struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Detail   string `json:"detail,omitempty"`
	Color    string `json:"color"`
	Closed   bool   `json:"closed"`
	Created  string `json:"created"`
	Reminder string `json:"reminder,omitempty"`
}

func viewProject(p model.Project) projectView {
	v := projectView{
		ID:      p.ID,
		Title:   p.Title,
		Detail:  p.Detail,
		Color:   p.Color,
		Closed:  p.Closed,
		Created: p.Created.UTC().Format(time.RFC3339),
	}
	if p.Reminder != nil {
		v.Reminder = p.Reminder.String()
	}
	return v
}

func viewProjects(ps []model.Project) []projectView {
	out := make([]projectView, len(ps))
	for i, p := range ps {
		out[i] = viewProject(p)
	}
	return out
}

func renderProjects(ps []model.Project) string {
	if len(ps) == 0 {
		return "no projects"
	}
	var b strings.Builder
	for i, p := range ps {
		if i > 0 {
			b.WriteByte('\n')
		}
		state := "open"
		if p.Closed {
			state = "closed"
		}
		fmt.Fprintf(&b, "%s  [%s] %s (%s)", p.ID, state, p.Title, p.Color)
		if p.Reminder != nil {
			fmt.Fprintf(&b, " reminder %s", p.Reminder)
		}
	}
	return b.String()
}

// NewProjectCommand creates the project command group.
func NewProjectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	cmd.AddCommand(newProjectAddCommand(rootOpts))
	cmd.AddCommand(newProjectListCommand(rootOpts))
	cmd.AddCommand(newProjectShowCommand(rootOpts))
	cmd.AddCommand(newProjectEditCommand(rootOpts))
	cmd.AddCommand(newProjectToggleCommand(rootOpts))
	cmd.AddCommand(newProjectDeleteCommand(rootOpts))

	return cmd
}

func newProjectAddCommand(rootOpts *RootOptions) *cobra.Command {
	var title, detail, color string

	cmd := &cobra.Command{
		Use:           "add",
		Short:         "Create a project",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: rootOpts.Verbose}

			if color != "" && !model.ValidColor(color) {
				out.Error(CodeInvalidArgument, fmt.Sprintf("unknown color %q", color), model.Colors)
				return NewExitError(ExitCommandError, "unknown color")
			}

			return withApp(rootOpts, func(app *App) error {
				p, err := app.Tracker.AddProject(cmd.Context(), store.ProjectDraft{
					Title: title, Detail: detail, Color: color,
				})
				if tracker.IsLimitReached(err) {
					out.Error(CodeLimitReached, err.Error(), nil)
					return NewExitError(ExitFailure, "limit reached")
				}
				if err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return out.Success(viewProject(p))
				}
				return out.Success("created " + renderProjects([]model.Project{p}))
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "New Project", "project title")
	cmd.Flags().StringVar(&detail, "detail", "", "project detail")
	cmd.Flags().StringVar(&color, "color", "", "color tag (default "+model.DefaultColor+")")

	return cmd
}

func newProjectListCommand(rootOpts *RootOptions) *cobra.Command {
	var closed bool

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List open or closed projects, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			return withApp(rootOpts, func(app *App) error {
				ps, err := app.Tracker.Projects(cmd.Context(), closed)
				if err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return out.Success(viewProjects(ps))
				}
				return out.Success(renderProjects(ps))
			})
		},
	}

	cmd.Flags().BoolVar(&closed, "closed", false, "list the closed view instead of the open view")

	return cmd
}

func newProjectShowCommand(rootOpts *RootOptions) *cobra.Command {
	var sortName string

	cmd := &cobra.Command{
		Use:           "show <project-id>",
		Short:         "Show a project and its items",
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
				var p model.Project
				err := app.Loop.View(cmd.Context(), func(ctx context.Context) error {
					var err error
					p, err = app.Store.GetProject(ctx, args[0])
					return err
				})
				if err != nil {
					return notFoundOrInternal(out, err)
				}

				items, err := app.Tracker.Items(cmd.Context(), p.ID, order)
				if err != nil {
					return err
				}

				if rootOpts.Format == "json" {
					return out.Success(map[string]interface{}{
						"project": viewProject(p),
						"items":   viewItems(items),
					})
				}
				return out.Success(renderProjects([]model.Project{p}) + "\n" + renderItems(items))
			})
		},
	}

	cmd.Flags().StringVar(&sortName, "sort", "optimized", "item order (optimized|creation|title)")

	return cmd
}

func newProjectEditCommand(rootOpts *RootOptions) *cobra.Command {
	var title, detail, color string

	cmd := &cobra.Command{
		Use:           "edit <project-id>",
		Short:         "Update project fields",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			changes := store.ProjectChanges{}
			if cmd.Flags().Changed("title") {
				changes.Title = &title
			}
			if cmd.Flags().Changed("detail") {
				changes.Detail = &detail
			}
			if cmd.Flags().Changed("color") {
				if !model.ValidColor(color) {
					out.Error(CodeInvalidArgument, fmt.Sprintf("unknown color %q", color), model.Colors)
					return NewExitError(ExitCommandError, "unknown color")
				}
				changes.Color = &color
			}

			return withApp(rootOpts, func(app *App) error {
				if err := app.Tracker.UpdateProject(cmd.Context(), args[0], changes); err != nil {
					return notFoundOrInternal(out, err)
				}
				return out.Success("updated " + args[0])
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&detail, "detail", "", "new detail")
	cmd.Flags().StringVar(&color, "color", "", "new color tag")

	return cmd
}

func newProjectToggleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "toggle <project-id>",
		Short:         "Move a project between the open and closed views",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			return withApp(rootOpts, func(app *App) error {
				closed, err := app.Tracker.ToggleClosed(cmd.Context(), args[0])
				if err != nil {
					return notFoundOrInternal(out, err)
				}
				state := "open"
				if closed {
					state = "closed"
				}
				if rootOpts.Format == "json" {
					return out.Success(map[string]interface{}{"id": args[0], "closed": closed})
				}
				return out.Success(args[0] + " is now " + state)
			})
		},
	}

	return cmd
}

func newProjectDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "delete <project-id>",
		Short:         "Delete a project and all of its items",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			return withApp(rootOpts, func(app *App) error {
				if err := app.Tracker.DeleteProject(cmd.Context(), args[0]); err != nil {
					return notFoundOrInternal(out, err)
				}
				return out.Success("deleted " + args[0])
			})
		},
	}

	return cmd
}

// notFoundOrInternal reports a NotFound as a domain failure and passes
// everything else through as a command error.
func notFoundOrInternal(out *OutputFormatter, err error) error {
	if store.IsNotFound(err) {
		out.Error(CodeNotFound, err.Error(), nil)
		return NewExitError(ExitFailure, "not found")
	}
	return err
}
