package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/stride/internal/unlock"
)

// unlockView is the JSON projection of the unlock state.
type unlockView struct {
	Unlocked bool   `json:"unlocked"`
	State    string `json:"state"`
	Product  string `json:"product,omitempty"`
	Price    string `json:"price,omitempty"`
	Error    string `json:"error,omitempty"`
}

func viewUnlock(m *unlock.Manager) unlockView {
	v := unlockView{
		Unlocked: m.Unlocked(),
		State:    m.State().String(),
	}
	if p := m.Product(); p != nil {
		v.Product = p.Title
		v.Price = p.Price
	}
	if err := m.Err(); err != nil {
		v.Error = err.Error()
	}
	return v
}

func renderUnlock(v unlockView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "unlocked: %t\nstate:    %s", v.Unlocked, v.State)
	if v.Product != "" {
		fmt.Fprintf(&b, "\nproduct:  %s (%s)", v.Product, v.Price)
	}
	if v.Error != "" {
		fmt.Fprintf(&b, "\nerror:    %s", v.Error)
	}
	return b.String()
}

func respondUnlock(out *OutputFormatter, format string, m *unlock.Manager) error {
	v := viewUnlock(m)
	if format == "json" {
		return out.Success(v)
	}
	return out.Success(renderUnlock(v))
}

// NewUnlockCommand creates the unlock command group.
func NewUnlockCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Manage the full-version unlock",
	}

	cmd.AddCommand(newUnlockStatusCommand(rootOpts))
	cmd.AddCommand(newUnlockBuyCommand(rootOpts))
	cmd.AddCommand(newUnlockRestoreCommand(rootOpts))

	return cmd
}

func newUnlockStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show the entitlement and purchase request state",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			return withApp(rootOpts, func(app *App) error {
				// Give in-flight discovery a moment to settle so status
				// reports loaded/failed rather than a transient loading.
				waitWhile(cmd.Context(), app.Unlock, unlock.StateLoading)
				return respondUnlock(out, rootOpts.Format, app.Unlock)
			})
		},
	}

	return cmd
}

func newUnlockBuyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "buy",
		Short:         "Purchase the full-version unlock",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			return withApp(rootOpts, func(app *App) error {
				if app.Unlock.Unlocked() {
					return respondUnlock(out, rootOpts.Format, app.Unlock)
				}

				waitWhile(cmd.Context(), app.Unlock, unlock.StateLoading)
				if err := app.Unlock.Buy(); err != nil {
					out.Error(CodeNotReady, err.Error(), viewUnlock(app.Unlock))
					return NewExitError(ExitFailure, "purchase not available")
				}

				// The outcome arrives through the transaction stream.
				waitWhile(cmd.Context(), app.Unlock, unlock.StateLoaded)
				return respondUnlock(out, rootOpts.Format, app.Unlock)
			})
		},
	}

	return cmd
}

func newUnlockRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "restore",
		Short:         "Restore a prior purchase",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			return withApp(rootOpts, func(app *App) error {
				app.Unlock.Restore()

				deadline := time.Now().Add(3 * time.Second)
				for !app.Unlock.Unlocked() && time.Now().Before(deadline) && cmd.Context().Err() == nil {
					time.Sleep(10 * time.Millisecond)
				}
				return respondUnlock(out, rootOpts.Format, app.Unlock)
			})
		},
	}

	return cmd
}

// waitWhile polls until the manager leaves the given state, with a
// short deadline so a stuck provider can't hang the command.
func waitWhile(ctx context.Context, m *unlock.Manager, s unlock.State) {
	deadline := time.Now().Add(3 * time.Second)
	for m.State() == s && time.Now().Before(deadline) && ctx.Err() == nil {
		time.Sleep(10 * time.Millisecond)
	}
}
