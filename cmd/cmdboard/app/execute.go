package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/cmdboard/cmd/cmdboard/cmd/serve"
)

// Execute runs the cmdboard CLI application with the given arguments.
// This is the main entry point called from main.go.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
// Given a single configuration file and no subcommand, the root command
// serves it.
func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "cmdboard [config.yaml]",
		Short:   "Serve shell commands as a web dashboard",
		Version: a.version,
		Long: `cmdboard reads a YAML file listing commands and static directories and
serves them over HTTP. The index page links to every command; opening a
command's page runs it and shows its output with the time it ran.

Running cmdboard with just a configuration file is the same as
"cmdboard serve <config.yaml>".`,
		Example: `  cmdboard dashboard.yaml
  cmdboard serve dashboard.yaml --listen :8080
  cmdboard validate dashboard.yaml
  cmdboard routes dashboard.yaml -o json`,
		Args:              cobra.MaximumNArgs(1),
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return serve.Run(cmd.Context(), a, args[0], cmd.OutOrStdout(), a.ServerConfig())
		},
	}

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "Core Commands:",
	})

	// Add global flags
	rootCmd.PersistentFlags().BoolVarP(&a.config.Verbose, "verbose", "v", a.config.Verbose, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolVarP(&a.config.Quiet, "quiet", "q", a.config.Quiet, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().BoolVar(&a.config.NoColor, "no-color", a.config.NoColor, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&a.config.Output, "output", "o", a.config.Output, "output format: table, json, yaml, wide, markdown")
	rootCmd.PersistentFlags().StringVar(&a.config.LogLevel, "log-level", a.config.LogLevel, "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("cmdboard {{.Version}}\n")

	a.registerCommands(rootCmd)

	return rootCmd
}

// setupCommand is called before any command runs. Flags are bound directly
// to the config, so only the logger needs rebuilding.
func (a *App) setupCommand(_ *cobra.Command, _ []string) error {
	logger := NewLogger(a.config)
	a.logger = &logger

	a.logger.Debug().
		Str("settings_file", a.config.SettingsFile).
		Msg("Settings loaded")

	return nil
}

// ExitOnError is a helper that prints an error and exits with status 1.
// This is meant to be used in main.go for top-level error handling.
func ExitOnError(err error) {
	if err != nil {
		//nolint:errcheck // Ignoring write error since we're exiting anyway
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
