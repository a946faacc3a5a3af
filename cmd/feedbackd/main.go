package main

import (
	"fmt"
	"os"

	"github.com/rohankatakam/feedbackd/internal/config"
	"github.com/rohankatakam/feedbackd/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "feedbackd",
	Short: "feedbackd - a faithful recorder for user feedback",
	Long: `feedbackd exposes an add_feedback MCP tool that records what users say,
verbatim and in order, to a durable log and relays each entry to a push sink.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// stdout may carry the MCP stdio protocol; operator output goes to stderr
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			if cfgFile != "" {
				return err
			}
			logger.WithError(err).Warn("Failed to load config, using defaults")
			cfg = config.Default()
		}

		level := logging.ParseLevel(cfg.Log.Level)
		if verbose {
			level = logging.DEBUG
		}
		return logging.Initialize(logging.Config{
			Level:      level,
			OutputFile: cfg.Log.File,
			JSONFormat: cfg.Log.JSON,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./feedbackd.yaml or ~/.feedbackd/feedbackd.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`feedbackd {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(configCmd)
}

// validate fails on configuration errors and logs warnings
func validate(ctx config.ValidationContext) error {
	result := cfg.Validate(ctx)
	for _, w := range result.Warnings {
		logger.Warn(w)
	}
	return result.Err()
}
