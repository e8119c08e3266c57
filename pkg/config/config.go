// Package config defines the declarative route table cmdboard serves: the
// listen address, the index page title, the commands exposed as routes and
// the directories mounted as static paths.
//
// A Configuration is loaded once at startup and is read-only afterwards.
package config

import (
	"fmt"
	"strings"

	"github.com/agentstation/cmdboard/pkg/errors"
)

// OutputFormat selects how a command's output is placed on its result page.
type OutputFormat string

const (
	// OutputText shows output as preformatted text. This is the default.
	OutputText OutputFormat = "text"
	// OutputHTML treats output as an HTML fragment, sanitized before display.
	OutputHTML OutputFormat = "html"
	// OutputMarkdown converts output from Markdown, sanitized before display.
	OutputMarkdown OutputFormat = "markdown"
)

// Valid reports whether f is a known format. The empty format means text.
func (f OutputFormat) Valid() bool {
	switch f {
	case "", OutputText, OutputHTML, OutputMarkdown:
		return true
	}
	return false
}

// OrDefault returns f, or OutputText when f is empty.
func (f OutputFormat) OrDefault() OutputFormat {
	if f == "" {
		return OutputText
	}
	return f
}

// CommandInfo describes one command route.
type CommandInfo struct {
	HTTPPath     string       `yaml:"http_path" json:"http_path"`
	Description  string       `yaml:"description" json:"description"`
	Command      string       `yaml:"command" json:"command"`
	Args         []string     `yaml:"args" json:"args"`
	OutputFormat OutputFormat `yaml:"output_format,omitempty" json:"output_format,omitempty"`
}

// Clone returns a deep copy of the command.
func (c CommandInfo) Clone() CommandInfo {
	clone := c
	if c.Args != nil {
		clone.Args = append([]string(nil), c.Args...)
	}
	return clone
}

// Invocation renders the command line as it is echoed on result pages:
// the program followed by its space-joined arguments.
func (c CommandInfo) Invocation() string {
	if len(c.Args) == 0 {
		return c.Command
	}
	return c.Command + " " + strings.Join(c.Args, " ")
}

// StaticPathInfo describes a directory served under an HTTP path prefix.
type StaticPathInfo struct {
	HTTPPath          string `yaml:"http_path" json:"http_path"`
	FSPath            string `yaml:"fs_path" json:"fs_path"`
	IncludeInMainPage bool   `yaml:"include_in_main_page" json:"include_in_main_page"`
}

// Configuration is the complete route table.
type Configuration struct {
	ListenAddress string           `yaml:"listen_address" json:"listen_address"`
	MainPageTitle string           `yaml:"main_page_title" json:"main_page_title"`
	Commands      []CommandInfo    `yaml:"commands" json:"commands"`
	StaticPaths   []StaticPathInfo `yaml:"static_paths" json:"static_paths"`
}

// IndexedStaticPaths returns the static mounts listed on the index page,
// in configuration order.
func (c *Configuration) IndexedStaticPaths() []StaticPathInfo {
	var out []StaticPathInfo
	for _, s := range c.StaticPaths {
		if s.IncludeInMainPage {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a deep copy of the configuration.
func (c *Configuration) Clone() *Configuration {
	clone := *c
	if c.Commands != nil {
		clone.Commands = make([]CommandInfo, len(c.Commands))
		for i, cmd := range c.Commands {
			clone.Commands[i] = cmd.Clone()
		}
	}
	if c.StaticPaths != nil {
		clone.StaticPaths = append([]StaticPathInfo(nil), c.StaticPaths...)
	}
	return &clone
}

// Validate checks required fields and route invariants. Every http_path must
// be unique across commands and static mounts; duplicates are rejected here
// rather than silently resolved at registration time.
func (c *Configuration) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return errors.NewValidationError("listen_address", c.ListenAddress, "is required")
	}
	if strings.TrimSpace(c.MainPageTitle) == "" {
		return errors.NewValidationError("main_page_title", c.MainPageTitle, "is required")
	}

	owners := make(map[string]string, len(c.Commands)+len(c.StaticPaths))
	claim := func(path, owner string) error {
		key := NormalizePath(path)
		if first, ok := owners[key]; ok {
			return errors.NewDuplicateError(key, first, owner)
		}
		owners[key] = owner
		return nil
	}

	for i, cmd := range c.Commands {
		owner := fmt.Sprintf("commands[%d]", i)
		if err := validatePath(owner, cmd.HTTPPath); err != nil {
			return err
		}
		if cmd.Description == "" {
			return errors.NewValidationError(owner+".description", cmd.Description, "is required")
		}
		if cmd.Command == "" {
			return errors.NewValidationError(owner+".command", cmd.Command, "is required")
		}
		if !cmd.OutputFormat.Valid() {
			return errors.NewValidationError(owner+".output_format", cmd.OutputFormat,
				"must be one of: text, html, markdown")
		}
		if err := claim(cmd.HTTPPath, owner); err != nil {
			return err
		}
	}

	for i, sp := range c.StaticPaths {
		owner := fmt.Sprintf("static_paths[%d]", i)
		if err := validatePath(owner, sp.HTTPPath); err != nil {
			return err
		}
		if sp.FSPath == "" {
			return errors.NewValidationError(owner+".fs_path", sp.FSPath, "is required")
		}
		if err := claim(sp.HTTPPath, owner); err != nil {
			return err
		}
	}

	return nil
}

// validatePath checks that an http_path can be registered as its own route.
func validatePath(owner, path string) error {
	field := owner + ".http_path"
	switch {
	case path == "":
		return errors.NewValidationError(field, path, "is required")
	case !strings.HasPrefix(path, "/"):
		return errors.NewValidationError(field, path, "must start with /")
	case NormalizePath(path) == "/":
		return errors.NewValidationError(field, path, "/ is reserved for the index page")
	case strings.ContainsAny(path, " \t\r\n{}"):
		return errors.NewValidationError(field, path, "must not contain whitespace or braces")
	}
	return nil
}

// NormalizePath strips trailing slashes so "/files" and "/files/" name the
// same route. The root path stays "/".
func NormalizePath(path string) string {
	trimmed := strings.TrimRight(path, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}
