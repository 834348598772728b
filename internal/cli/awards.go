package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/stride/internal/awards"
)

// awardView is the JSON projection of one award's status.
type awardView struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Criterion   string `json:"criterion"`
	Value       int    `json:"value"`
	Earned      bool   `json:"earned"`
}

// NewAwardsCommand creates the awards command.
func NewAwardsCommand(rootOpts *RootOptions) *cobra.Command {
	var earnedOnly bool

	cmd := &cobra.Command{
		Use:           "awards",
		Short:         "Show awards and which are earned",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

			return withApp(rootOpts, func(app *App) error {
				statuses, err := app.Tracker.EarnedAwards(cmd.Context())
				if err != nil {
					return err
				}

				views := make([]awardView, 0, len(statuses))
				for _, s := range statuses {
					if earnedOnly && !s.Earned {
						continue
					}
					views = append(views, awardView{
						Name:        s.Award.Name,
						Description: s.Award.Description,
						Criterion:   s.Award.Criterion,
						Value:       s.Award.Value,
						Earned:      s.Earned,
					})
				}

				if rootOpts.Format == "json" {
					return out.Success(views)
				}
				return out.Success(renderAwards(views))
			})
		},
	}

	cmd.Flags().BoolVar(&earnedOnly, "earned", false, "show only earned awards")

	return cmd
}

func renderAwards(views []awardView) string {
	if len(views) == 0 {
		return "no awards"
	}
	var b strings.Builder
	for i, v := range views {
		if i > 0 {
			b.WriteByte('\n')
		}
		mark := " "
		if v.Earned {
			mark = "x"
		}
		fmt.Fprintf(&b, "[%s] %-18s %s (%s >= %d)", mark, v.Name, v.Description, criterionNoun(v.Criterion), v.Value)
	}
	return b.String()
}

func criterionNoun(criterion string) string {
	if criterion == awards.CriterionComplete {
		return "completed items"
	}
	return "items added"
}
