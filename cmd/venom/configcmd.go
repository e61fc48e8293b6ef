package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"venom/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file holding the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFile()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			cfg, err := config.Defaults()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("api-base") {
				cfg.APIBase = apiBase
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

// configFile resolves the file config init writes to.
func configFile() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	if p := os.Getenv(config.EnvPrefix + "_CONFIG"); p != "" {
		return p, nil
	}
	return config.DefaultPath()
}
