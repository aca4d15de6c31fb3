package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/yukikurage/consultant-worklog/internal/timesheet"
)

func newSummaryCommand(a *app) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the timesheet of a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			day := time.Now()
			if date != "" {
				d, err := parseDate(date)
				if err != nil {
					return err
				}
				day = *d
			}
			coord, err := a.coordinator(cmd.Context())
			if err != nil {
				return err
			}

			s := coord.DailySummary(day)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Timesheet for %s\n\n", s.Day.Format(dateLayout))

			if s.ActivityCount() == 0 {
				fmt.Fprintln(out, "No activity recorded.")
			} else {
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "KIND\tREQUIREMENT\tTASK\tTIME\tTRAINING")
				for _, act := range s.Activities {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						act.Kind, act.RequirementLabel, act.TaskDescription,
						timesheet.FormatDuration(act.Hours), timesheet.FormatDuration(act.TrainingShare))
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}

			fmt.Fprintln(out)
			fmt.Fprintf(out, "Work:      %s\n", timesheet.FormatDuration(s.WorkHours))
			if s.TrainingHours > 0 {
				fmt.Fprintf(out, "Training:  %s\n", timesheet.FormatDuration(s.TrainingHours))
			}
			fmt.Fprintf(out, "Remaining: %s\n", timesheet.FormatDuration(s.RemainingHours))
			if s.TrainingDescription != "" {
				fmt.Fprintf(out, "\n%s\n", s.TrainingDescription)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to summarize (YYYY-MM-DD), defaults to today")
	return cmd
}
