package main

import (
	"fmt"
	"os"

	"github.com/rohankatakam/feedbackd/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (file, .env and environment applied)",
	RunE:  runConfigShow,
}

var (
	configInitPath  string
	configInitForce bool
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default settings",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().StringVar(&configInitPath, "path", "feedbackd.yaml", "where to write the file")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	shown := *cfg
	if shown.Forward.Redis.Password != "" {
		shown.Forward.Redis.Password = "********"
	}

	out, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))

	result := cfg.Validate(config.ValidationContextAll)
	for _, w := range result.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", e)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configInitPath); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configInitPath)
	}

	if err := config.Default().Save(configInitPath); err != nil {
		return err
	}
	logger.Infof("Wrote default configuration to %s", configInitPath)
	return nil
}
