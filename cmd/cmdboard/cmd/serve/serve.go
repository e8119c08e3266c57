// Package serve implements the serve command: load a dashboard
// configuration, build its routes and serve them until interrupted.
package serve

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/cmdboard/cmd/application"
	"github.com/agentstation/cmdboard/internal/server"
	"github.com/agentstation/cmdboard/pkg/config"
)

// NewCommand creates the serve command.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <config.yaml>",
		Short: "Serve a command dashboard",
		Long: `Serve the dashboard described by a YAML configuration file.

The index page at / lists every command and the static paths marked with
include_in_main_page. Each command route runs its program when requested
and shows what it printed. Static paths serve a local directory.

Configuration errors and an unusable listen address stop the command
before anything is served. SIGINT or SIGTERM shut the server down
gracefully.`,
		Example: `  # Serve on the address from the configuration
  cmdboard serve dashboard.yaml

  # Override the listen address
  cmdboard serve dashboard.yaml --listen 0.0.0.0:8080

  # Limit each client to 60 requests per minute
  cmdboard serve dashboard.yaml --rate-limit 60

  # Behind a local reverse proxy, count clients by X-Forwarded-For
  cmdboard serve dashboard.yaml --rate-limit 60 --trusted-proxy 127.0.0.1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.ServerConfig()
			applyFlags(cmd, &cfg)
			return Run(cmd.Context(), app, args[0], cmd.OutOrStdout(), cfg)
		},
	}

	defaults := server.DefaultConfig()
	cmd.Flags().String("listen", "", "Listen address (overrides listen_address in the configuration)")
	cmd.Flags().Int("rate-limit", defaults.RateLimit, "Requests per minute per client (0 to disable)")
	cmd.Flags().StringSlice("trusted-proxy", nil, "Proxy IP or CIDR whose X-Forwarded-For is trusted for rate limiting (repeatable)")
	cmd.Flags().Duration("read-header-timeout", defaults.ReadHeaderTimeout, "HTTP read header timeout")
	cmd.Flags().Duration("idle-timeout", defaults.IdleTimeout, "HTTP idle timeout")
	cmd.Flags().Duration("shutdown-timeout", defaults.ShutdownTimeout, "Graceful shutdown timeout")

	return cmd
}

// applyFlags copies explicitly set flags over settings-derived values.
func applyFlags(cmd *cobra.Command, cfg *server.Config) {
	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.ListenAddress, _ = flags.GetString("listen")
	}
	if flags.Changed("rate-limit") {
		cfg.RateLimit, _ = flags.GetInt("rate-limit")
	}
	if flags.Changed("trusted-proxy") {
		cfg.TrustedProxies, _ = flags.GetStringSlice("trusted-proxy")
	}
	if flags.Changed("read-header-timeout") {
		cfg.ReadHeaderTimeout, _ = flags.GetDuration("read-header-timeout")
	}
	if flags.Changed("idle-timeout") {
		cfg.IdleTimeout, _ = flags.GetDuration("idle-timeout")
	}
	if flags.Changed("shutdown-timeout") {
		cfg.ShutdownTimeout, _ = flags.GetDuration("shutdown-timeout")
	}
}

// Run loads the configuration at path and serves it until ctx is cancelled.
// Loading, building and binding all happen before Run reports the address
// on out, so any of them failing returns an error without serving.
func Run(ctx context.Context, app application.Application, path string, out io.Writer, cfg server.Config) error {
	logger := app.Logger()

	dash, err := config.Load(path)
	if err != nil {
		return err
	}

	logger.Info().
		Str("config", path).
		Str("title", dash.MainPageTitle).
		Str("listen_address", dash.ListenAddress).
		Int("commands", len(dash.Commands)).
		Int("static_paths", len(dash.StaticPaths)).
		Msg("Configuration loaded")

	srv, err := server.New(cfg, dash, logger)
	if err != nil {
		return err
	}

	ln, err := srv.Listen()
	if err != nil {
		srv.Shutdown()
		return err
	}

	_, _ = fmt.Fprintf(out, "Serving %q on http://%s\n", dash.MainPageTitle, ln.Addr())

	return srv.Serve(ctx, ln)
}
