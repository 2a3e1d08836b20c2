// Package cli implements the digestd command line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	logging "github.com/KonishchevDmitry/go-easy-logging"
	"github.com/spf13/cobra"

	"github.com/sysjosh/digestd/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

type globalFlags struct {
	configPath string
	verbose    bool
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "digestd",
		Short: "Weekly tech digest curation and delivery",
		Long: "digestd collects articles from RSS/Atom feeds into a curation store and e-mails the curated " +
			"selection to newsletter subscribers.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config file")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newIngestCommand(&flags),
		newSendCommand(&flags),
		newPreviewCommand(&flags),
		newServeCommand(&flags),
		newVersionCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s.\n", err)
		return 1
	}
	return 0
}

func SetVersionInfo(v string, c string) {
	version = v
	commit = c
}

// setup loads the configuration and attaches the logger configured by it to the command context.
func setup(cmd *cobra.Command, flags *globalFlags) (context.Context, *config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.Log, flags.verbose)
	if err != nil {
		return nil, nil, err
	}
	cobra.OnFinalize(func() {
		_ = logger.Sync()
	})

	ctx := logging.WithLogger(cmd.Context(), logger.Sugar())

	if err := cfg.ValidateStore(); err != nil {
		return nil, nil, err
	}

	return ctx, cfg, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("digestd %s (commit: %s)\n", version, commit)
		},
	}
}
