// Package routes implements the routes command, which prints the route table
// serve would register for a configuration.
package routes

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/cmdboard/cmd/application"
	"github.com/agentstation/cmdboard/internal/cmd/output"
	"github.com/agentstation/cmdboard/internal/server"
	"github.com/agentstation/cmdboard/pkg/config"
)

// NewCommand creates the routes command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "routes <config.yaml>",
		Short: "Print the route table of a dashboard configuration",
		Long: `Print the routes serve would register for a configuration, in
registration order: the index page, then commands, then static paths.
Nothing is executed and no address is bound.`,
		Example: `  cmdboard routes dashboard.yaml
  cmdboard routes dashboard.yaml -o wide
  cmdboard routes dashboard.yaml -o yaml
  cmdboard routes dashboard.yaml -o markdown > ROUTES.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.ParseFormat(app.OutputFormat())
			if err != nil {
				return err
			}
			return Run(app, args[0], cmd.OutOrStdout(), format)
		},
	}
}

// Run builds the route table for the configuration at path and writes it
// to w.
func Run(app application.Application, path string, w io.Writer, format output.Format) error {
	dash, err := config.Load(path)
	if err != nil {
		return err
	}

	srv, err := server.New(app.ServerConfig(), dash, app.Logger())
	if err != nil {
		return err
	}
	defer srv.Shutdown()

	return output.FormatRoutes(w, srv.Routes(), format)
}
