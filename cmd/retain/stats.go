package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hrygo/retain/internal/version"
	"github.com/hrygo/retain/service/review"
	"github.com/hrygo/retain/store"
)

func newStatsCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show review progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := review.NewService(a.store).Stats(cmd.Context(), a.today())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(stats)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Items\t%d\n", stats.TotalItems)
			for _, kind := range store.Kinds {
				fmt.Fprintf(tw, "  %s\t%d\n", kind, stats.ByKind[kind])
			}
			fmt.Fprintf(tw, "Due today\t%d\n", stats.DueToday)
			fmt.Fprintf(tw, "  overdue\t%d\n", stats.Overdue)
			fmt.Fprintf(tw, "New\t%d\n", stats.NewItems)
			fmt.Fprintf(tw, "Mastered (>%dd)\t%d\n", review.MasteredInterval, stats.Mastered)
			fmt.Fprintf(tw, "Reviewed today\t%d\n", stats.ReviewedToday)
			fmt.Fprintf(tw, "Streak\t%d days\n", stats.StreakDays)
			fmt.Fprintf(tw, "Reviews\t%d\n", stats.TotalReviews)
			if stats.TotalReviews > 0 {
				fmt.Fprintf(tw, "Average rating\t%.2f\n", stats.AverageRating)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the statistics as JSON")
	return cmd
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoStore: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			mode := a.config.GetString("mode")
			fmt.Fprintf(cmd.OutOrStdout(), "retain %s (%s)\n", version.GetCurrentVersion(mode), mode)
		},
	}
}
