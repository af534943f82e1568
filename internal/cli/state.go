package cli

import (
	"github.com/spf13/cobra"
)

// NewStateCommand creates the state command group.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect persisted engine state",
	}
	cmd.AddCommand(newStateLogCommand(rootOpts))
	return cmd
}

func newStateLogCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List saved state revisions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to read revisions", func(s *session, f *OutputFormatter) error {
				revs, err := s.store.Revisions(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return f.Success(revs, renderRevisions(revs))
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum revisions to show (0 for all)")
	return cmd
}
