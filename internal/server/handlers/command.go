package handlers

import (
	"net/http"
	"time"

	"github.com/agentstation/cmdboard/internal/server/response"
	"github.com/agentstation/cmdboard/pkg/config"
	"github.com/agentstation/cmdboard/pkg/logging"
)

// Command runs one configured command per request and renders its output.
// Start failures are part of the page, so the status is always 200.
type Command struct {
	info     config.CommandInfo
	executor Executor
	renderer Renderer
}

// NewCommand returns a handler owning its own copy of info.
func NewCommand(info config.CommandInfo, executor Executor, renderer Renderer) *Command {
	return &Command{
		info:     info.Clone(),
		executor: executor,
		renderer: renderer,
	}
}

// Info returns a copy of the command this handler runs.
func (h *Command) Info() config.CommandInfo {
	return h.info.Clone()
}

// ServeHTTP handles GET <http_path>. It blocks until the process exits.
func (h *Command) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithCommand(logging.WithRoute(r.Context(), h.info.HTTPPath), h.info.Command)
	logger := logging.FromContext(ctx)

	start := time.Now()
	logger.Debug().Strs("args", h.info.Args).Msg("Running command")

	output := h.executor.Execute(h.info.Command, h.info.Args)
	page := h.renderer.RenderCommandResult(h.info.Description, h.info.Command, h.info.Args, output, h.info.OutputFormat)

	logger.Debug().
		Dur("duration_ms", time.Since(start)).
		Int("page_bytes", len(page)).
		Msg("Command page rendered")

	response.OK(w, []byte(page))
}
