// Package handlers provides the HTTP handlers a cmdboard route table is made
// of: the precomputed index page, command result pages and static mounts.
package handlers

import (
	"github.com/agentstation/cmdboard/pkg/config"
)

// Executor runs a command to completion and returns what it printed, or a
// displayable error message when it could not be started.
type Executor interface {
	Execute(command string, args []string) string
}

// Renderer turns a finished command into a result page.
type Renderer interface {
	RenderCommandResult(description, command string, args []string, output string, format config.OutputFormat) string
}
