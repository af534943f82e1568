package cli

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/roach88/deployfin/internal/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCommand(rootOpts))
	cmd.AddCommand(newConfigShowCommand(rootOpts))
	return cmd
}

func configPath(o *RootOptions) string {
	if o.ConfigPath != "" {
		return o.ConfigPath
	}
	return config.ConfigPath()
}

func newConfigInitCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			path := configPath(rootOpts)
			if config.Exists(path) && !force {
				return f.Fail("failed to write config",
					NewExitError(ExitCommandError, fmt.Sprintf("config already exists at %s (use --force to overwrite)", path)))
			}
			if err := config.Save(path, config.DefaultConfig()); err != nil {
				return f.Fail("failed to write config", err)
			}
			return f.Success(map[string]string{"path": path}, fmt.Sprintf("Wrote %s", path))
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			var buf bytes.Buffer
			if err := toml.NewEncoder(&buf).Encode(rootOpts.cfg); err != nil {
				return f.Fail("failed to encode config", err)
			}
			return f.Success(map[string]any{
				"path":          configPath(rootOpts),
				"exists":        config.Exists(configPath(rootOpts)),
				"database_path": rootOpts.databasePath(),
				"sync_endpoint": config.SyncEndpoint(rootOpts.cfg),
				"log_level":     rootOpts.cfg.General.LogLevel,
			}, buf.String())
		},
	}
}
