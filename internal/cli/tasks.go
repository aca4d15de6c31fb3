package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/consultant-worklog/internal/models"
)

func newTasksCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage the tasks of a requirement",
	}
	cmd.AddCommand(
		newTaskListCommand(a),
		newTaskAddCommand(a),
		newTaskUpdateCommand(a),
		newTaskStatusCommand(a),
		newTaskCompleteCommand(a),
		newTaskDeleteCommand(a),
	)
	return cmd
}

func newTaskListCommand(a *app) *cobra.Command {
	var (
		requirementID string
		all           bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tasks of a requirement (the first one by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			coord, err := a.coordinator(cmd.Context())
			if err != nil {
				return err
			}
			if all {
				return printTasks(cmd.OutOrStdout(), coord.AllTasks())
			}
			if requirementID != "" {
				if err := coord.SelectRequirement(requirementID); err != nil {
					return err
				}
			}
			return printTasks(cmd.OutOrStdout(), coord.TasksForSelected())
		},
	}
	cmd.Flags().StringVarP(&requirementID, "requirement", "r", "", "Requirement id")
	cmd.Flags().BoolVar(&all, "all", false, "List the tasks of every requirement")
	return cmd
}

type taskFlags struct {
	taskType string
	priority string
	feedback string
}

func (f *taskFlags) register(cmd *cobra.Command, defaults bool) {
	typeDefault, priorityDefault := "", ""
	if defaults {
		typeDefault, priorityDefault = string(models.TaskTypeFunctionality), string(models.TaskPriorityMedium)
	}
	cmd.Flags().StringVar(&f.taskType, "type", typeDefault, "Task type (UI, validación, funcionalidad)")
	cmd.Flags().StringVar(&f.priority, "priority", priorityDefault, "Priority (alta, media, baja)")
	cmd.Flags().StringVar(&f.feedback, "feedback", "", "Reviewer feedback")
}

func newTaskAddCommand(a *app) *cobra.Command {
	var (
		flags taskFlags
		date  string
	)

	cmd := &cobra.Command{
		Use:   "add REQUIREMENT_ID DESCRIPTION",
		Short: "Create a task under a requirement",
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
			task, err := coord.CreateTask(cmd.Context(), models.TaskInput{
				RequirementID: args[0],
				Description:   args[1],
				Type:          models.TaskType(flags.taskType),
				Priority:      models.TaskPriority(flags.priority),
				Feedback:      optional(cmd, "feedback", flags.feedback),
			}, customDate)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %s\n", task.ID)
			return nil
		},
	}
	flags.register(cmd, true)
	cmd.Flags().StringVar(&date, "date", "", "Creation date (YYYY-MM-DD), defaults to now")
	return cmd
}

func newTaskUpdateCommand(a *app) *cobra.Command {
	var (
		flags       taskFlags
		description string
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change the description, type, priority or feedback of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := a.coordinator(cmd.Context())
			if err != nil {
				return err
			}
			patch := models.TaskPatch{
				Description: optional(cmd, "description", description),
				Feedback:    optional(cmd, "feedback", flags.feedback),
			}
			if cmd.Flags().Changed("type") {
				t := models.TaskType(flags.taskType)
				patch.Type = &t
			}
			if cmd.Flags().Changed("priority") {
				p := models.TaskPriority(flags.priority)
				patch.Priority = &p
			}
			if err := coord.UpdateTask(cmd.Context(), args[0], patch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", args[0])
			return nil
		},
	}
	flags.register(cmd, false)
	cmd.Flags().StringVar(&description, "description", "", "New description")
	return cmd
}

func newTaskStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status ID STATUS",
		Short: "Move a task to pending or in-progress",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := a.coordinator(cmd.Context())
			if err != nil {
				return err
			}
			if err := coord.UpdateTaskStatus(cmd.Context(), args[0], models.TaskStatus(args[1])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s is now %s\n", args[0], args[1])
			return nil
		},
	}
}

func newTaskCompleteCommand(a *app) *cobra.Command {
	var (
		completion models.TaskCompletion
		date       string
	)

	cmd := &cobra.Command{
		Use:   "complete ID",
		Short: "Complete a task, recording what was done and the time spent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			customDate, err := parseDate(date)
			if err != nil {
				return err
			}
			coord, err := a.coordinator(cmd.Context())
			if err != nil {
				return err
			}
			if err := coord.CompleteTask(cmd.Context(), args[0], completion, customDate); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed task %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&completion.Description, "description", "m", "", "What was done")
	cmd.Flags().StringVarP(&completion.TimeSpent, "time", "t", "", "Hours spent")
	cmd.Flags().BoolVar(&completion.SentToQA, "qa", false, "Sent to QA")
	cmd.Flags().BoolVar(&completion.DeployedToProduction, "prod", false, "Deployed to production")
	cmd.Flags().StringSliceVar(&completion.Tools, "tool", nil, "Tool used (repeatable)")
	cmd.Flags().StringVar(&date, "date", "", "Completion date (YYYY-MM-DD), defaults to now")
	return cmd
}

func newTaskDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := a.coordinator(cmd.Context())
			if err != nil {
				return err
			}
			if err := coord.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
			return nil
		},
	}
}
