package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/deployfin/internal/deployment"
)

// NewPayCommand creates the pay command group.
func NewPayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Special pays, tax exclusion and savings deposit program",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to read pay", func(s *session, f *OutputFormatter) error {
				active := s.mgr.ActiveDeployment()
				if active == nil {
					return deployment.ErrNoActiveDeployment
				}
				return f.Success(active.PayAdjustments, renderPay(active.PayAdjustments))
			})
		},
	}

	cmd.AddCommand(newPaySetCommand(rootOpts))
	cmd.AddCommand(newCombatZoneCommand(rootOpts, "enable"))
	cmd.AddCommand(newCombatZoneCommand(rootOpts, "disable"))
	cmd.AddCommand(newTaxSavingsCommand(rootOpts))

	return cmd
}

// PaySetOptions holds flags for pay set.
type PaySetOptions struct {
	*RootOptions
	HostileFire   bool
	ImminentDgr   bool
	Hardship      bool
	HardshipRate  string
	FamilySep     bool
	CZTE          string
	Officer       bool
	SDP           bool
	SDPAmount     string
	TaxableIncome string
}

func newPaySetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PaySetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change pay adjustments",
		Long: `Change individual pay adjustments. Only flags given on the command line
are changed; totals and budget projections are recomputed.

Example:
  deployfin pay set --hfp --fsa
  deployfin pay set --sdp --sdp-amount 5000 --taxable-income 4000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to update pay", func(s *session, f *OutputFormatter) error {
				u, err := opts.update(cmd)
				if err != nil {
					return err
				}
				if err := s.mgr.UpdatePayAdjustments(cmd.Context(), u); err != nil {
					return err
				}
				adj := s.mgr.ActiveDeployment().PayAdjustments
				return f.Success(adj, renderPay(adj))
			})
		},
	}

	cmd.Flags().BoolVar(&opts.HostileFire, "hfp", false, "hostile fire pay")
	cmd.Flags().BoolVar(&opts.ImminentDgr, "idp", false, "imminent danger pay")
	cmd.Flags().BoolVar(&opts.Hardship, "hardship", false, "hardship duty pay")
	cmd.Flags().StringVar(&opts.HardshipRate, "hardship-rate", "", "hardship duty pay monthly rate")
	cmd.Flags().BoolVar(&opts.FamilySep, "fsa", false, "family separation allowance")
	cmd.Flags().StringVar(&opts.CZTE, "czte", "", "combat zone tax exclusion (none|full|capped)")
	cmd.Flags().BoolVar(&opts.Officer, "officer", false, "commissioned officer")
	cmd.Flags().BoolVar(&opts.SDP, "sdp", false, "savings deposit program")
	cmd.Flags().StringVar(&opts.SDPAmount, "sdp-amount", "", "savings deposit program balance")
	cmd.Flags().StringVar(&opts.TaxableIncome, "taxable-income", "", "monthly taxable income")

	return cmd
}

func (o *PaySetOptions) update(cmd *cobra.Command) (deployment.PayAdjustmentsUpdate, error) {
	u := deployment.PayAdjustmentsUpdate{
		HostileFirePay:            changedBool(cmd, "hfp", o.HostileFire),
		ImminentDangerPay:         changedBool(cmd, "idp", o.ImminentDgr),
		HardshipDutyPay:           changedBool(cmd, "hardship", o.Hardship),
		FamilySeparationAllowance: changedBool(cmd, "fsa", o.FamilySep),
		CommissionedOfficer:       changedBool(cmd, "officer", o.Officer),
		SavingsDepositProgram:     changedBool(cmd, "sdp", o.SDP),
	}
	var err error
	if u.HardshipDutyRate, err = changedMoney(cmd, "hardship-rate", o.HardshipRate); err != nil {
		return u, err
	}
	if u.SavingsDepositAmount, err = changedMoney(cmd, "sdp-amount", o.SDPAmount); err != nil {
		return u, err
	}
	if u.MonthlyTaxableIncome, err = changedMoney(cmd, "taxable-income", o.TaxableIncome); err != nil {
		return u, err
	}
	if cmd.Flags().Changed("czte") {
		status := deployment.CZTEStatus(o.CZTE)
		u.CombatZoneTaxExclusion = &status
	}
	return u, nil
}

func newCombatZoneCommand(rootOpts *RootOptions, verb string) *cobra.Command {
	return &cobra.Command{
		Use:   "combat-zone-" + verb,
		Short: fmt.Sprintf("%s combat zone benefits in one step", verb),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to "+verb+" combat zone benefits", func(s *session, f *OutputFormatter) error {
				var err error
				if verb == "enable" {
					err = s.mgr.EnableCombatZoneBenefits(cmd.Context())
				} else {
					err = s.mgr.DisableCombatZoneBenefits(cmd.Context())
				}
				if err != nil {
					return err
				}
				adj := s.mgr.ActiveDeployment().PayAdjustments
				return f.Success(adj, renderPay(adj))
			})
		},
	}
}

func newTaxSavingsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tax-savings <monthly-taxable-income>",
		Short: "Estimate monthly tax savings for an income",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to estimate tax savings", func(s *session, f *OutputFormatter) error {
				income, err := parseMoney("monthly-taxable-income", args[0])
				if err != nil {
					return err
				}
				if s.mgr.ActiveDeployment() == nil {
					return deployment.ErrNoActiveDeployment
				}
				savings := s.mgr.EstimatedTaxSavings(income)
				return f.Success(map[string]any{"estimated_tax_savings": savings},
					fmt.Sprintf("Estimated monthly tax savings: %s", money(savings)))
			})
		},
	}
}
