package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/deployfin/internal/deployment"
)

// StartOptions holds flags for the start command.
type StartOptions struct {
	*RootOptions
	Type           string
	Departure      string
	ExpectedReturn string
	Country        string
	Region         string
	Hazardous      bool
	Connectivity   string
}

// NewStartCommand creates the start command.
func NewStartCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StartOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a deployment",
		Long: `Create the active deployment. Only one deployment can be active.

Example:
  deployfin start --type combat --departure 2024-01-01 --return 2024-10-01 --country Kuwait`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", fmt.Sprintf("deployment type %v", deployment.Types))
	cmd.Flags().StringVar(&opts.Departure, "departure", "", "departure date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.ExpectedReturn, "return", "", "expected return date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Country, "country", "", "country")
	cmd.Flags().StringVar(&opts.Region, "region", "", "region or base")
	cmd.Flags().BoolVar(&opts.Hazardous, "hazardous", false, "hazardous duty location")
	cmd.Flags().StringVar(&opts.Connectivity, "connectivity", "full", "connectivity (full|limited|intermittent|none)")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("departure")
	_ = cmd.MarkFlagRequired("return")

	return cmd
}

func runStart(opts *StartOptions, cmd *cobra.Command) error {
	return opts.withSession(cmd, "failed to start deployment", func(s *session, f *OutputFormatter) error {
		departure, err := parseDate("departure", opts.Departure)
		if err != nil {
			return err
		}
		ret, err := parseDate("return", opts.ExpectedReturn)
		if err != nil {
			return err
		}

		id, err := s.mgr.StartDeployment(cmd.Context(), deployment.Type(opts.Type), departure, ret, deployment.Location{
			Country:      opts.Country,
			Region:       opts.Region,
			IsHazardous:  opts.Hazardous,
			Connectivity: deployment.Connectivity(opts.Connectivity),
		})
		if err != nil {
			return err
		}

		info := s.mgr.ActiveDeployment()
		return f.Success(info, fmt.Sprintf("Started deployment %s (%s, %d days).", id, info.Phase, info.DurationDays()))
	})
}

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	Type           string
	Departure      string
	ExpectedReturn string
	Country        string
	Region         string
	Hazardous      bool
	Connectivity   string
	FamilyBudget   bool
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change the active deployment",
		Long: `Apply a partial change to the active deployment. Only flags given on the
command line are changed. Budget projections follow date changes.

Example:
  deployfin update --return 2024-11-01
  deployfin update --region "Camp Arifjan" --connectivity limited`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", "", "deployment type")
	cmd.Flags().StringVar(&opts.Departure, "departure", "", "departure date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.ExpectedReturn, "return", "", "expected return date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Country, "country", "", "country")
	cmd.Flags().StringVar(&opts.Region, "region", "", "region or base")
	cmd.Flags().BoolVar(&opts.Hazardous, "hazardous", false, "hazardous duty location")
	cmd.Flags().StringVar(&opts.Connectivity, "connectivity", "", "connectivity (full|limited|intermittent|none)")
	cmd.Flags().BoolVar(&opts.FamilyBudget, "family-budget", false, "enable the family budget")

	return cmd
}

func runUpdate(opts *UpdateOptions, cmd *cobra.Command) error {
	return opts.withSession(cmd, "failed to update deployment", func(s *session, f *OutputFormatter) error {
		var (
			u   deployment.Update
			err error
		)
		if cmd.Flags().Changed("type") {
			typ := deployment.Type(opts.Type)
			u.Type = &typ
		}
		if u.DepartureDate, err = changedDate(cmd, "departure", opts.Departure); err != nil {
			return err
		}
		if u.ExpectedReturnDate, err = changedDate(cmd, "return", opts.ExpectedReturn); err != nil {
			return err
		}
		u.FamilyBudgetEnabled = changedBool(cmd, "family-budget", opts.FamilyBudget)

		flags := cmd.Flags()
		if flags.Changed("country") || flags.Changed("region") || flags.Changed("hazardous") || flags.Changed("connectivity") {
			active := s.mgr.ActiveDeployment()
			if active == nil {
				return deployment.ErrNoActiveDeployment
			}
			loc := active.Location
			if flags.Changed("country") {
				loc.Country = opts.Country
			}
			if flags.Changed("region") {
				loc.Region = opts.Region
			}
			if flags.Changed("hazardous") {
				loc.IsHazardous = opts.Hazardous
			}
			if flags.Changed("connectivity") {
				loc.Connectivity = deployment.Connectivity(opts.Connectivity)
			}
			u.Location = &loc
		}

		if err := s.mgr.UpdateDeployment(cmd.Context(), u); err != nil {
			return err
		}
		info := s.mgr.ActiveDeployment()
		return f.Success(info, renderDeployment(info))
	})
}

// NewEndCommand creates the end command.
func NewEndCommand(rootOpts *RootOptions) *cobra.Command {
	var actualReturn string

	cmd := &cobra.Command{
		Use:   "end",
		Short: "End the active deployment",
		Long: `Record the actual return date and move the deployment to history.
The budget and savings tracker are discarded.

Example:
  deployfin end --actual-return 2024-09-28`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to end deployment", func(s *session, f *OutputFormatter) error {
				var ret time.Time
				if actualReturn != "" {
					t, err := parseDate("actual-return", actualReturn)
					if err != nil {
						return err
					}
					ret = t
				}

				active := s.mgr.ActiveDeployment()
				if err := s.mgr.EndDeployment(cmd.Context(), ret); err != nil {
					return err
				}
				ended, _ := s.mgr.DeploymentByID(active.ID)
				return f.Success(ended, fmt.Sprintf("Ended deployment %s.", active.ID))
			})
		},
	}

	cmd.Flags().StringVar(&actualReturn, "actual-return", "", "actual return date (YYYY-MM-DD, default today)")
	return cmd
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Discard the active deployment without recording it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to cancel deployment", func(s *session, f *OutputFormatter) error {
				if err := s.mgr.CancelDeployment(cmd.Context()); err != nil {
					return err
				}
				return f.Success(map[string]bool{"cancelled": true}, "Deployment cancelled.")
			})
		},
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active deployment summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to read status", func(s *session, f *OutputFormatter) error {
				summary := s.mgr.Summary()
				if summary == nil {
					return deployment.ErrNoActiveDeployment
				}
				return f.Success(summary, renderSummary(summary))
			})
		},
	}
}

// NewCountdownCommand creates the countdown command.
func NewCountdownCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "countdown",
		Short: "Show days complete and remaining",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to read countdown", func(s *session, f *OutputFormatter) error {
				c := s.mgr.Countdown()
				if c == nil {
					return deployment.ErrNoActiveDeployment
				}
				return f.Success(c, renderCountdown(*c))
			})
		},
	}
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List completed deployments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to read history", func(s *session, f *OutputFormatter) error {
				history := s.mgr.DeploymentHistory()
				if len(history) == 0 {
					return f.Success(history, "No completed deployments.")
				}
				return f.Success(history, renderHistory(history))
			})
		},
	}
}
