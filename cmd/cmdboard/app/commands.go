package app

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/agentstation/cmdboard/cmd/cmdboard/cmd/routes"
	"github.com/agentstation/cmdboard/cmd/cmdboard/cmd/serve"
	"github.com/agentstation/cmdboard/cmd/cmdboard/cmd/validate"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	for _, cmd := range []*cobra.Command{
		serve.NewCommand(a),
		validate.NewCommand(a),
		routes.NewCommand(a),
	} {
		cmd.GroupID = "core"
		rootCmd.AddCommand(cmd)
	}

	rootCmd.AddCommand(a.CreateVersionCommand())
}

// CreateVersionCommand creates the version command.
func (a *App) CreateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "cmdboard %s\n", a.version)
			if a.config.Verbose {
				_, _ = fmt.Fprintf(w, "  commit:     %s\n", a.commit)
				_, _ = fmt.Fprintf(w, "  built:      %s\n", a.date)
				_, _ = fmt.Fprintf(w, "  built by:   %s\n", a.builtBy)
				_, _ = fmt.Fprintf(w, "  go version: %s\n", runtime.Version())
				_, _ = fmt.Fprintf(w, "  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
			}
		},
	}
}
