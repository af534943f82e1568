package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/deployfin/internal/deployment"
)

// NewBudgetCommand creates the budget command group.
func NewBudgetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Deployment budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to read budget", func(s *session, f *OutputFormatter) error {
				b := s.mgr.Budget()
				if b == nil {
					return deployment.ErrNoBudget
				}
				return f.Success(b, renderBudget(b))
			})
		},
	}

	cmd.AddCommand(newBudgetCreateCommand(rootOpts))
	cmd.AddCommand(newBudgetAdjustCommand(rootOpts))
	cmd.AddCommand(newBudgetFamilyCommand(rootOpts))

	return cmd
}

func newBudgetCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var expenses, savings string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Seed the budget from the expense template",
		Long: `Create the deployment budget from normal monthly expenses and savings.
Each template category gets its share of the expenses; an existing budget
is replaced.

Example:
  deployfin budget create --expenses 4000 --savings 500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to create budget", func(s *session, f *OutputFormatter) error {
				exp, err := parseMoney("--expenses", expenses)
				if err != nil {
					return err
				}
				sav, err := parseMoney("--savings", savings)
				if err != nil {
					return err
				}
				if err := s.mgr.CreateDeploymentBudget(cmd.Context(), exp, sav); err != nil {
					return err
				}
				b := s.mgr.Budget()
				return f.Success(b, renderBudget(b))
			})
		},
	}

	cmd.Flags().StringVar(&expenses, "expenses", "", "normal monthly expenses")
	cmd.Flags().StringVar(&savings, "savings", "0", "normal monthly savings")
	_ = cmd.MarkFlagRequired("expenses")
	return cmd
}

func newBudgetAdjustCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "adjust <category> <amount>",
		Short: "Set one category's deployment budget",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to adjust budget", func(s *session, f *OutputFormatter) error {
				amount, err := parseMoney("amount", args[1])
				if err != nil {
					return err
				}
				if err := s.mgr.UpdateExpenseAdjustment(cmd.Context(), args[0], amount); err != nil {
					return err
				}
				b := s.mgr.Budget()
				return f.Success(b, fmt.Sprintf("Deployment expenses now %s; projected total savings %s.",
					money(b.DeploymentMonthlyExpenses), money(b.ProjectedTotalSavings)))
			})
		},
	}
}

func newBudgetFamilyCommand(rootOpts *RootOptions) *cobra.Command {
	var allowance, target string

	cmd := &cobra.Command{
		Use:   "family",
		Short: "Set the family allowance and emergency fund target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to set family budget", func(s *session, f *OutputFormatter) error {
				a, err := parseMoney("--allowance", allowance)
				if err != nil {
					return err
				}
				t, err := parseMoney("--emergency-target", target)
				if err != nil {
					return err
				}
				if err := s.mgr.SetFamilyBudget(cmd.Context(), a, t); err != nil {
					return err
				}
				b := s.mgr.Budget()
				return f.Success(b.FamilyBudget, "Family budget set.")
			})
		},
	}

	cmd.Flags().StringVar(&allowance, "allowance", "", "monthly family allowance")
	cmd.Flags().StringVar(&target, "emergency-target", "0", "emergency fund target")
	_ = cmd.MarkFlagRequired("allowance")
	return cmd
}
