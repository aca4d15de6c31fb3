// Package cli provides the worklog command-line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/yukikurage/consultant-worklog/internal/config"
	"github.com/yukikurage/consultant-worklog/internal/dto"
	"github.com/yukikurage/consultant-worklog/internal/models"
	"github.com/yukikurage/consultant-worklog/internal/retry"
	"github.com/yukikurage/consultant-worklog/internal/services"
	"github.com/yukikurage/consultant-worklog/internal/store"
	"github.com/yukikurage/consultant-worklog/internal/store/httpstore"
)

// dateLayout is the format of every --date flag.
const dateLayout = "2006-01-02"

var errMissingCredentials = errors.New("email and password are required (--email/--password or WORKLOG_EMAIL/WORKLOG_PASSWORD)")

// app holds the connection settings and, once connected, the signed in client.
type app struct {
	server         string
	email          string
	password       string
	retryAttempts  int
	retryBaseDelay time.Duration
	timeout        time.Duration

	logger zerolog.Logger
	sleep  retry.SleepFunc

	client *httpstore.Client
	user   *dto.UserDTO
	coord  *services.Coordinator
}

// NewRootCommand creates the worklog command tree. cfg supplies the flag defaults.
func NewRootCommand(cfg *config.ClientConfig, logger zerolog.Logger, version string) *cobra.Command {
	a := &app{logger: logger}

	root := &cobra.Command{
		Use:   "worklog",
		Short: "Track requirements, tasks and daily hours",
		Long: `worklog records the requirements a consultant works on, the tasks under
them and the progress logged against each task, and derives the daily
timesheet from that log.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.server, "server", cfg.Server, "Base URL of the worklog API")
	flags.StringVar(&a.email, "email", cfg.Email, "Account email")
	flags.StringVar(&a.password, "password", cfg.Password, "Account password")
	flags.IntVar(&a.retryAttempts, "retry-attempts", cfg.RetryAttempts, "Attempts per remote write")
	flags.DurationVar(&a.retryBaseDelay, "retry-base-delay", cfg.RetryBaseDelay, "Delay before the first retry, doubled on every attempt")
	flags.DurationVar(&a.timeout, "timeout", cfg.HTTPTimeout, "Timeout of a single HTTP request")

	root.AddCommand(
		newSignupCommand(a),
		newWhoamiCommand(a),
		newProfileCommand(a),
		newRequirementsCommand(a),
		newTasksCommand(a),
		newProgressCommand(a),
		newSummaryCommand(a),
	)
	return root
}

// newClient builds an HTTP client without signing in.
func (a *app) newClient() (*httpstore.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	client, err := httpstore.NewClient(a.server, a.timeout, a.logger.With().Str("component", "http").Logger())
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

// signIn logs in with the configured credentials.
func (a *app) signIn(ctx context.Context) (*httpstore.Client, error) {
	if a.user != nil {
		return a.client, nil
	}
	if a.email == "" || a.password == "" {
		return nil, errMissingCredentials
	}
	client, err := a.newClient()
	if err != nil {
		return nil, err
	}
	user, err := client.Login(ctx, a.email, a.password)
	if err != nil {
		return nil, fmt.Errorf("sign in failed: %w", err)
	}
	a.user = user
	return client, nil
}

// coordinator signs in and loads the user's requirements and tasks.
func (a *app) coordinator(ctx context.Context) (*services.Coordinator, error) {
	if a.coord != nil {
		return a.coord, nil
	}
	client, err := a.signIn(ctx)
	if err != nil {
		return nil, err
	}

	opts := []retry.Option{
		retry.WithMaxAttempts(a.retryAttempts),
		retry.WithBaseDelay(a.retryBaseDelay),
	}
	if a.sleep != nil {
		opts = append(opts, retry.WithSleep(a.sleep))
	}
	logger := a.logger.With().Str("component", "coordinator").Logger()

	coord := services.NewCoordinator(services.CoordinatorDeps{
		Requirements: httpstore.NewCollection[models.Requirement](client, store.Requirements),
		Tasks:        httpstore.NewCollection[models.Task](client, store.Tasks),
		Retry:        retry.New(logger, opts...),
		Logger:       logger,
		OnSessionRevoked: func() {
			logger.Warn().Msg("session revoked, sign in again")
		},
	})
	coord.SetSession(httpstore.SessionFor(a.user))
	if err := coord.Load(ctx); err != nil {
		return nil, err
	}
	a.coord = coord
	return coord, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return &d, nil
}

func optional[T any](cmd *cobra.Command, flag string, v T) *T {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &v
}
