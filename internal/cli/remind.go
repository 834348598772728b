package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stride/internal/model"
	"github.com/roach88/stride/internal/remind"
)

// NewRemindCommand creates the remind command group.
func NewRemindCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Manage daily project reminders",
	}

	cmd.AddCommand(newRemindSetCommand(rootOpts))
	cmd.AddCommand(newRemindClearCommand(rootOpts))
	cmd.AddCommand(newRemindListCommand(rootOpts))

	return cmd
}

func newRemindSetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "set <project-id> <HH:MM>",
		Short:         "Schedule a daily reminder for a project",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			t, err := model.ParseTimeOfDay(args[1])
			if err != nil {
				out.Error(CodeInvalidArgument, err.Error(), nil)
				return NewExitError(ExitCommandError, "invalid time")
			}

			return withApp(rootOpts, func(app *App) error {
				done := make(chan error, 1)
				app.Reminders.SetReminder(args[0], t, func(err error) {
					done <- err
				})

				if err := <-done; err != nil {
					if errors.Is(err, remind.ErrPermissionDenied) {
						out.Error(CodePermissionDenied, "notification permission denied: enable notifications in settings", nil)
						return NewExitError(ExitFailure, "permission denied")
					}
					return notFoundOrInternal(out, err)
				}
				return out.Success(fmt.Sprintf("reminder for %s set to %s", args[0], t))
			})
		},
	}

	return cmd
}

func newRemindClearCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "clear <project-id>",
		Short:         "Remove a project's reminder",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			return withApp(rootOpts, func(app *App) error {
				if err := app.Reminders.ClearReminder(cmd.Context(), args[0]); err != nil {
					return err
				}
				return out.Success("reminder cleared for " + args[0])
			})
		},
	}

	return cmd
}

func newRemindListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List active reminder registrations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			return withApp(rootOpts, func(app *App) error {
				regs, err := app.Center.Registrations()
				if err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return out.Success(regs)
				}
				return out.Success(renderRegistrations(regs))
			})
		},
	}

	return cmd
}

func renderRegistrations(regs map[string]remind.Registration) string {
	if len(regs) == 0 {
		return "no reminders"
	}
	keys := make([]string, 0, len(regs))
	for k := range regs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		r := regs[k]
		fmt.Fprintf(&b, "%s  %02d:%02d  %s", r.Key, r.Hour, r.Minute, r.Title)
	}
	return b.String()
}
