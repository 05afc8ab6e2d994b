package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/waqiti-dev/deeplink/internal/config"
	"github.com/waqiti-dev/deeplink/internal/errors"
)

func configCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create deeplink.json",
	}

	cmd.AddCommand(configInitCmd(opts), configShowCmd(opts))
	return cmd
}

func configInitCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a deeplink.json with the defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if path == "" {
				dir := "."
				if len(args) == 1 {
					dir = args[0]
				}
				path = filepath.Join(dir, config.ConfigFileName)
			}

			if _, err := os.Stat(path); err == nil && !force {
				return errors.New(errors.ConfigWriteFailed).
					WithDetail(path + " already exists").
					WithSuggestion("Pass --force to overwrite it")
			}

			if err := config.New().SaveTo(path); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

func configShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after defaults and DEEPLINK_* environment
overrides are applied. The JWT secret is redacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			shown := *cfg
			if shown.Auth.JWTSecret != "" {
				shown.Auth.JWTSecret = "<redacted>"
			}
			return writeJSON(cmd.OutOrStdout(), &shown)
		},
	}
}
