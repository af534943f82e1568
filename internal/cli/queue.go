package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/deployfin/internal/syncqueue"
)

// NewQueueCommand creates the offline queue command group.
func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Offline mutation queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to read queue", func(s *session, f *OutputFormatter) error {
				stats, items := s.mgr.QueueStats(), s.mgr.QueueItems()
				return f.Success(map[string]any{"stats": stats, "items": items}, renderQueue(stats, items))
			})
		},
	}

	cmd.AddCommand(newQueueAddCommand(rootOpts))
	cmd.AddCommand(newQueueDrainCommand(rootOpts, "process", "Sync pending items now"))
	cmd.AddCommand(newQueueDrainCommand(rootOpts, "online", "Mark the device online and drain the queue"))
	cmd.AddCommand(newQueueDrainCommand(rootOpts, "offline", "Mark the device offline"))
	cmd.AddCommand(newQueueCountCommand(rootOpts, "clear", "Remove synced items"))
	cmd.AddCommand(newQueueCountCommand(rootOpts, "retry", "Move failed items back to pending"))

	return cmd
}

func newQueueAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <transaction|budget_update|goal_update> [payload-json]",
		Short: "Queue a mutation for later sync",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to queue item", func(s *session, f *OutputFormatter) error {
				var raw string
				if len(args) == 2 {
					raw = args[1]
				}
				payload, err := parsePayload(raw)
				if err != nil {
					return err
				}
				if !syncqueue.ItemType(args[0]).Valid() {
					return usageError("unknown item type %q", args[0])
				}

				item, err := s.mgr.AddToOfflineQueue(cmd.Context(), syncqueue.ItemType(args[0]), payload)
				if err != nil {
					return err
				}
				return f.Success(item, fmt.Sprintf("Queued %s %s.", item.Type, item.ID))
			})
		},
	}
}

func newQueueDrainCommand(rootOpts *RootOptions, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to "+use+" queue", func(s *session, f *OutputFormatter) error {
				var (
					res syncqueue.Result
					err error
				)
				switch use {
				case "process":
					res, err = s.mgr.ProcessOfflineQueue(cmd.Context())
				case "online":
					res, err = s.mgr.SetOnlineStatus(cmd.Context(), true)
				default:
					res, err = s.mgr.SetOnlineStatus(cmd.Context(), false)
				}
				if err != nil {
					return err
				}
				if use == "offline" {
					return f.Success(res, "Marked offline.")
				}
				return f.Success(res, renderDrain(res))
			})
		},
	}
}

func newQueueCountCommand(rootOpts *RootOptions, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withSession(cmd, "failed to "+use+" queue", func(s *session, f *OutputFormatter) error {
				var (
					n   int
					err error
				)
				if use == "clear" {
					n, err = s.mgr.ClearSyncedItems(cmd.Context())
				} else {
					n, err = s.mgr.RetryFailedItems(cmd.Context())
				}
				if err != nil {
					return err
				}
				return f.Success(map[string]int{"count": n}, fmt.Sprintf("%d item(s).", n))
			})
		},
	}
}
