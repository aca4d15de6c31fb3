package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yukikurage/consultant-worklog/internal/models"
)

func newRequirementsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "requirements",
		Aliases: []string{"reqs"},
		Short:   "Manage requirements",
	}
	cmd.AddCommand(
		newRequirementListCommand(a),
		newRequirementAddCommand(a),
		newRequirementUpdateCommand(a),
		newRequirementCompleteCommand(a),
		newRequirementDeleteCommand(a),
	)
	return cmd
}

func newRequirementListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List requirements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			coord, err := a.coordinator(cmd.Context())
			if err != nil {
				return err
			}
			reqs := coord.Requirements()
			if len(reqs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No requirements.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tNAME\tSTATUS\tTASKS\tESTIMATE")
			for _, r := range reqs {
				estimate := "-"
				if r.EstimatedTime != nil {
					estimate = *r.EstimatedTime
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					r.ID, r.DisplayType(), r.Name, r.Status, len(coord.TasksFor(r.ID)), estimate)
			}
			return w.Flush()
		},
	}
}

type requirementFlags struct {
	name     string
	reqType  string
	estimate string
}

func (f *requirementFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.reqType, "type", "", "Requirement type (AJU, INC, PRC, PRO, REN, REQ)")
	cmd.Flags().StringVar(&f.estimate, "estimate", "", "Estimated time")
}

func (f *requirementFlags) typ(cmd *cobra.Command) *models.RequirementType {
	if !cmd.Flags().Changed("type") {
		return nil
	}
	t := models.RequirementType(f.reqType)
	return &t
}

// estimate returns HasEstimate and EstimatedTime for a set --estimate flag.
func (f *requirementFlags) estimateFields(cmd *cobra.Command) (*bool, *string) {
	if !cmd.Flags().Changed("estimate") {
		return nil, nil
	}
	has := f.estimate != ""
	return &has, &f.estimate
}

func newRequirementAddCommand(a *app) *cobra.Command {
	var (
		flags requirementFlags
		date  string
	)

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a requirement",
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
			hasEstimate, estimate := flags.estimateFields(cmd)
			req, err := coord.CreateRequirement(cmd.Context(), models.RequirementInput{
				Name:          args[0],
				Type:          flags.typ(cmd),
				HasEstimate:   hasEstimate,
				EstimatedTime: estimate,
			}, customDate)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created requirement %s\n", req.ID)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&date, "date", "", "Creation date (YYYY-MM-DD), defaults to now")
	return cmd
}

func newRequirementUpdateCommand(a *app) *cobra.Command {
	var flags requirementFlags

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change the name, type or estimate of a requirement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := a.coordinator(cmd.Context())
			if err != nil {
				return err
			}
			hasEstimate, estimate := flags.estimateFields(cmd)
			patch := models.RequirementPatch{
				Name:          optional(cmd, "name", flags.name),
				Type:          flags.typ(cmd),
				HasEstimate:   hasEstimate,
				EstimatedTime: estimate,
			}
			if err := coord.UpdateRequirement(cmd.Context(), args[0], patch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated requirement %s\n", args[0])
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&flags.name, "name", "", "New name")
	return cmd
}

func newRequirementCompleteCommand(a *app) *cobra.Command {
	var completion models.RequirementCompletion

	cmd := &cobra.Command{
		Use:   "complete ID",
		Short: "Mark a requirement as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := a.coordinator(cmd.Context())
			if err != nil {
				return err
			}
			if err := coord.CompleteRequirement(cmd.Context(), args[0], completion); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed requirement %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&completion.SentToQA, "qa", false, "Sent to QA")
	cmd.Flags().BoolVar(&completion.DeployedToProduction, "prod", false, "Deployed to production")
	cmd.Flags().StringSliceVar(&completion.Tools, "tool", nil, "Tool used (repeatable)")
	return cmd
}

func newRequirementDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a requirement and all of its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, err := a.coordinator(cmd.Context())
			if err != nil {
				return err
			}
			if err := coord.DeleteRequirement(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted requirement %s\n", args[0])
			return nil
		},
	}
}

func printTasks(out io.Writer, tasks []models.Task) error {
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tTYPE\tPRIORITY\tPROGRESS\tDESCRIPTION")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			t.ID, t.Status, t.Type, t.Priority, len(t.Progress), t.Description)
	}
	return w.Flush()
}
