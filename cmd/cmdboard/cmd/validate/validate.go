// Package validate implements the validate command, which loads a dashboard
// configuration and reports what it declares without serving it.
package validate

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/cmdboard/cmd/application"
	"github.com/agentstation/cmdboard/internal/cmd/output"
	"github.com/agentstation/cmdboard/pkg/config"
	"github.com/agentstation/cmdboard/pkg/errors"
)

// Summary describes a valid configuration.
type Summary struct {
	Source        string `json:"source" yaml:"source"`
	Title         string `json:"main_page_title" yaml:"main_page_title"`
	ListenAddress string `json:"listen_address" yaml:"listen_address"`
	Commands      int    `json:"commands" yaml:"commands"`
	StaticPaths   int    `json:"static_paths" yaml:"static_paths"`
	Listed        int    `json:"listed_static_paths" yaml:"listed_static_paths"`
}

// NewCommand creates the validate command.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Check a dashboard configuration",
		Long: `Load a dashboard configuration and check it the same way serve does:
required fields, well-formed http_path values, known output formats and
no http_path used twice. Prints a summary on success.`,
		Example: `  cmdboard validate dashboard.yaml
  cmdboard validate dashboard.yaml -o json`,
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

// Run validates the configuration at path and writes its summary to w.
func Run(app application.Application, path string, w io.Writer, format output.Format) error {
	dash, err := config.Load(path)
	if err != nil {
		app.Logger().Debug().
			Err(err).
			Str("config", path).
			Str("reason", rejectReason(err)).
			Msg("Configuration rejected")
		return err
	}

	summary := Summary{
		Source:        path,
		Title:         dash.MainPageTitle,
		ListenAddress: dash.ListenAddress,
		Commands:      len(dash.Commands),
		StaticPaths:   len(dash.StaticPaths),
		Listed:        len(dash.IndexedStaticPaths()),
	}

	return output.NewFormatter(format).Format(w, summary)
}

// rejectReason classifies a load failure for the log. Duplicates are also
// validation errors, so they are checked first.
func rejectReason(err error) string {
	var parseErr *errors.ParseError
	switch {
	case errors.IsAlreadyExists(err):
		return "duplicate_path"
	case errors.IsValidationError(err):
		return "invalid"
	case errors.As(err, &parseErr):
		return "malformed"
	default:
		return "unreadable"
	}
}
