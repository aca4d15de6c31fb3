package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/yukikurage/consultant-worklog/internal/dto"
	"github.com/yukikurage/consultant-worklog/internal/models"
	"github.com/yukikurage/consultant-worklog/internal/timesheet"
)

type profileFlags struct {
	displayName   string
	level         string
	company       string
	area          string
	training      bool
	trainingHours float64
}

func (f *profileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.displayName, "name", "", "Display name")
	cmd.Flags().StringVar(&f.level, "level", "", "Developer level (trainee, junior, senior)")
	cmd.Flags().StringVar(&f.company, "company", "", "Client company")
	cmd.Flags().StringVar(&f.area, "area", "", "Area within the company")
	cmd.Flags().BoolVar(&f.training, "training", false, "Enrolled in the training program")
	cmd.Flags().Float64Var(&f.trainingHours, "training-hours", 0, "Daily training hours")
}

// profile returns the fields whose flags were set.
func (f *profileFlags) profile(cmd *cobra.Command) (*string, dto.ProfileDTO) {
	var level *models.DeveloperLevel
	if cmd.Flags().Changed("level") {
		l := models.DeveloperLevel(f.level)
		level = &l
	}
	return optional(cmd, "name", f.displayName), dto.ProfileDTO{
		DeveloperLevel:     level,
		Company:            optional(cmd, "company", f.company),
		Area:               optional(cmd, "area", f.area),
		TrainingEnrolled:   optional(cmd, "training", f.training),
		TrainingDailyHours: optional(cmd, "training-hours", f.trainingHours),
	}
}

func newSignupCommand(a *app) *cobra.Command {
	var flags profileFlags

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account with --email and --password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.email == "" || a.password == "" {
				return errMissingCredentials
			}
			client, err := a.newClient()
			if err != nil {
				return err
			}
			displayName, profile := flags.profile(cmd)
			user, err := client.Signup(cmd.Context(), dto.SignupRequest{
				Email:       a.email,
				Password:    a.password,
				DisplayName: displayName,
				Profile:     profile,
			})
			if err != nil {
				return fmt.Errorf("signup failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created account %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.signIn(cmd.Context())
			if err != nil {
				return err
			}
			user, err := client.Me(cmd.Context())
			if err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), user)
			return nil
		},
	}
}

func newProfileCommand(a *app) *cobra.Command {
	var flags profileFlags

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update the profile of the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.signIn(cmd.Context())
			if err != nil {
				return err
			}
			displayName, profile := flags.profile(cmd)
			user, err := client.UpdateProfile(cmd.Context(), dto.UpdateProfileRequest{
				DisplayName: displayName,
				ProfileDTO:  profile,
			})
			if err != nil {
				return fmt.Errorf("profile update failed: %w", err)
			}
			printUser(cmd.OutOrStdout(), user)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func printUser(w io.Writer, user *dto.UserDTO) {
	fmt.Fprintf(w, "%s <%s>\n", user.DisplayName, user.Email)
	fmt.Fprintf(w, "  id:      %s\n", user.ID)
	fmt.Fprintf(w, "  level:   %s\n", user.DeveloperLevel)
	if user.Company != "" || user.Area != "" {
		fmt.Fprintf(w, "  company: %s / %s\n", user.Company, user.Area)
	}
	if training := user.Training(); training.IsEnrolled {
		fmt.Fprintf(w, "  training: %s per day\n", timesheet.FormatDuration(training.DailyHours))
	}
}
