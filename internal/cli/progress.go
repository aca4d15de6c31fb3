package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yukikurage/consultant-worklog/internal/models"
	"github.com/yukikurage/consultant-worklog/internal/services"
	"github.com/yukikurage/consultant-worklog/internal/timesheet"
)

var errEntryRequired = errors.New("give either an ENTRY_ID or --index")

func newProgressCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Log partial work on a task",
	}
	cmd.AddCommand(
		newProgressListCommand(a),
		newProgressAddCommand(a),
		newProgressEditCommand(a),
		newProgressDeleteCommand(a),
	)
	return cmd
}

func newProgressListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list TASK_ID",
		Short: "List the progress entries of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := a.coordinator(cmd.Context())
			if err != nil {
				return err
			}
			task, ok := coord.Task(args[0])
			if !ok {
				return services.ErrTaskNotFound
			}
			if len(task.Progress) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No progress entries.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tID\tDATE\tTIME\tDESCRIPTION")
			for i, e := range task.Progress {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i, e.ID, e.Date.Local().Format(dateLayout),
					timesheet.FormatDuration(timesheet.ParseHours(e.TimeSpent)), e.Description)
			}
			return w.Flush()
		},
	}
}

func newProgressAddCommand(a *app) *cobra.Command {
	var (
		timeSpent string
		date      string
	)

	cmd := &cobra.Command{
		Use:   "add TASK_ID DESCRIPTION",
		Short: "Add a progress entry to a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			customDate, err := parseDate(date)
			if err != nil {
				return err
			}
			coord, err := a.coordinator(cmd.Context())
			if err != nil {
				return err
			}
			in := models.ProgressInput{Description: args[1], TimeSpent: timeSpent}
			if err := coord.AddProgress(cmd.Context(), args[0], in, customDate); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged progress on task %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&timeSpent, "time", "t", "", "Hours spent")
	cmd.Flags().StringVar(&date, "date", "", "Date of the work (YYYY-MM-DD), defaults to now")
	return cmd
}

func newProgressEditCommand(a *app) *cobra.Command {
	var (
		index       int
		description string
		timeSpent   string
	)

	cmd := &cobra.Command{
		Use:   "edit TASK_ID [ENTRY_ID]",
		Short: "Edit a progress entry, chosen by id or by --index",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := a.coordinator(cmd.Context())
			if err != nil {
				return err
			}
			task, ok := coord.Task(args[0])
			if !ok {
				return services.ErrTaskNotFound
			}
			pos, err := entryPosition(cmd, task, args, index)
			if err != nil {
				return err
			}

			in := models.ProgressInput{
				Description: task.Progress[pos].Description,
				TimeSpent:   task.Progress[pos].TimeSpent,
			}
			if cmd.Flags().Changed("description") {
				in.Description = description
			}
			if cmd.Flags().Changed("time") {
				in.TimeSpent = timeSpent
			}

			if len(args) == 2 {
				err = coord.EditProgress(cmd.Context(), args[0], args[1], in)
			} else {
				err = coord.EditProgressAt(cmd.Context(), args[0], pos, in)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated progress entry %s\n", task.Progress[pos].ID)
			return nil
		},
	}
	cmd.Flags().IntVar(&index, "index", -1, "Position of the entry")
	cmd.Flags().StringVarP(&description, "description", "m", "", "New description")
	cmd.Flags().StringVarP(&timeSpent, "time", "t", "", "New hours spent")
	return cmd
}

func newProgressDeleteCommand(a *app) *cobra.Command {
	var index int

	cmd := &cobra.Command{
		Use:   "delete TASK_ID [ENTRY_ID]",
		Short: "Delete a progress entry, chosen by id or by --index",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := a.coordinator(cmd.Context())
			if err != nil {
				return err
			}
			task, ok := coord.Task(args[0])
			if !ok {
				return services.ErrTaskNotFound
			}
			pos, err := entryPosition(cmd, task, args, index)
			if err != nil {
				return err
			}

			if len(args) == 2 {
				err = coord.DeleteProgress(cmd.Context(), args[0], args[1])
			} else {
				err = coord.DeleteProgressAt(cmd.Context(), args[0], pos)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted progress entry %s\n", task.Progress[pos].ID)
			return nil
		},
	}
	cmd.Flags().IntVar(&index, "index", -1, "Position of the entry")
	return cmd
}

// entryPosition resolves the entry named by ENTRY_ID or --index.
func entryPosition(cmd *cobra.Command, task models.Task, args []string, index int) (int, error) {
	byIndex := cmd.Flags().Changed("index")
	switch {
	case len(args) == 2 && byIndex, len(args) == 1 && !byIndex:
		return 0, errEntryRequired
	case len(args) == 2:
		pos := task.ProgressIndex(args[1])
		if pos < 0 {
			return 0, models.ErrProgressNotFound
		}
		return pos, nil
	default:
		if index < 0 || index >= len(task.Progress) {
			return 0, models.ErrProgressIndexOutOfRange
		}
		return index, nil
	}
}
