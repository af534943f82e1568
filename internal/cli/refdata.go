package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/deployfin/internal/refdata"
)

// NewRefdataCommand creates the refdata command group.
func NewRefdataCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refdata",
		Short: "Pay rates and the expense template",
	}
	cmd.AddCommand(newRefdataValidateCommand(rootOpts))
	cmd.AddCommand(newRefdataShowCommand(rootOpts))
	return cmd
}

func newRefdataValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Check CUE reference overrides",
		Long: `Unify the CUE files in dir (default general.reference_dir) with the
built-in tables and report the first problem.

Exit codes:
  0 - Reference data is valid
  1 - Validation failed
  2 - Command error`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			dir := rootOpts.cfg.General.ReferenceDir
			if len(args) == 1 {
				dir = args[0]
			}

			tables, err := refdata.Load(dir)
			if err != nil {
				var le *refdata.LoadError
				if errors.As(err, &le) {
					_ = f.Error(le.Code, le.Message, le.Error())
					return WrapExitError(ExitFailure, "reference data invalid", err)
				}
				return f.Fail("failed to load reference data", err)
			}

			source := dir
			if source == "" {
				source = "built-in defaults"
			}
			return f.Success(map[string]any{
				"dir":        dir,
				"categories": len(tables.ExpenseTemplate),
			}, fmt.Sprintf("%s Reference data valid (%s, %d categories)", markPass, source, len(tables.ExpenseTemplate)))
		},
	}
}

func newRefdataShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective reference tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			tables, err := refdata.Load(rootOpts.cfg.General.ReferenceDir)
			if err != nil {
				return f.Fail("failed to load reference data", err)
			}
			return f.Success(tables, renderTables(tables))
		},
	}
}
