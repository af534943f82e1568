package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/deployfin/internal/datemath"
	"github.com/roach88/deployfin/internal/deployment"
)

// NewSavingsCommand creates the savings command group.
func NewSavingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "savings",
		Short: "Savings goal, monthly snapshots and milestones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to read savings", func(s *session, f *OutputFormatter) error {
				t := s.mgr.SavingsTracker()
				if t == nil {
					return deployment.ErrNoSavingsTracker
				}
				return f.Success(t, renderSavings(t))
			})
		},
	}

	cmd.AddCommand(newSavingsGoalCommand(rootOpts, "init", "Create the savings tracker"))
	cmd.AddCommand(newSavingsGoalCommand(rootOpts, "goal", "Change the savings goal"))
	cmd.AddCommand(newSavingsSnapshotCommand(rootOpts))
	cmd.AddCommand(newSavingsMilestoneCommand(rootOpts))

	return cmd
}

func newSavingsGoalCommand(rootOpts *RootOptions, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <goal>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to set savings goal", func(s *session, f *OutputFormatter) error {
				goal, err := parseMoney("goal", args[0])
				if err != nil {
					return err
				}
				if use == "init" {
					err = s.mgr.InitializeSavingsTracker(cmd.Context(), goal)
				} else {
					err = s.mgr.UpdateSavingsGoal(cmd.Context(), goal)
				}
				if err != nil {
					return err
				}
				t := s.mgr.SavingsTracker()
				return f.Success(t, fmt.Sprintf("Savings goal %s.", money(t.SavingsGoal)))
			})
		},
	}
}

func newSavingsSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	var month, income, expenses, net, notes string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Record a monthly savings snapshot",
		Long: `Record income and expenses for a month. Net savings default to income
minus expenses. One snapshot per month.

Example:
  deployfin savings snapshot --month 2024-02 --income 6000 --expenses 2500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to record snapshot", func(s *session, f *OutputFormatter) error {
				in := deployment.SnapshotInput{Notes: notes}
				if month != "" {
					m, err := datemath.ParseMonth(month)
					if err != nil {
						return usageError("--month: expected YYYY-MM, got %q", month)
					}
					in.Month = m
				}
				var err error
				if in.Income, err = parseMoney("--income", income); err != nil {
					return err
				}
				if in.Expenses, err = parseMoney("--expenses", expenses); err != nil {
					return err
				}
				if in.NetSavings, err = changedMoney(cmd, "net", net); err != nil {
					return err
				}

				if err := s.mgr.RecordSavingsSnapshot(cmd.Context(), in); err != nil {
					return err
				}
				t := s.mgr.SavingsTracker()
				return f.Success(t, renderSavings(t))
			})
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month (YYYY-MM, default current month)")
	cmd.Flags().StringVar(&income, "income", "0", "income for the month")
	cmd.Flags().StringVar(&expenses, "expenses", "0", "expenses for the month")
	cmd.Flags().StringVar(&net, "net", "", "net savings (default income minus expenses)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	return cmd
}

func newSavingsMilestoneCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "milestone <name> <target>",
		Short: "Add a savings milestone",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to add milestone", func(s *session, f *OutputFormatter) error {
				target, err := parseMoney("target", args[1])
				if err != nil {
					return err
				}
				id, err := s.mgr.AddSavingsMilestone(cmd.Context(), args[0], target)
				if err != nil {
					return err
				}
				ms, _ := s.mgr.SavingsTracker().Milestone(id)
				text := fmt.Sprintf("Added milestone %s (%s).", id, money(ms.TargetAmount))
				if ms.IsAchieved {
					text += " Already achieved."
				}
				return f.Success(ms, text)
			})
		},
	}
}
