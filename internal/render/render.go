// Package render turns dashboard data into HTML documents. Rendering is pure
// apart from the timestamp on command result pages, which comes from an
// injectable clock.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/agentstation/cmdboard/pkg/config"
	"github.com/agentstation/cmdboard/pkg/constants"
	"github.com/agentstation/cmdboard/pkg/errors"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Link is one entry in an index page list.
type Link struct {
	Path  string
	Label string
}

// Renderer holds the parsed templates and the sanitizing pipeline for
// HTML and Markdown command output. It is immutable after New and safe for
// concurrent use.
type Renderer struct {
	templates *template.Template
	policy    *bluemonday.Policy
	markdown  goldmark.Markdown
	now       func() time.Time
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock replaces time.Now as the source of result page timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) {
		r.now = now
	}
}

// New parses the embedded templates.
func New(opts ...Option) (*Renderer, error) {
	tmpl, err := template.New("").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, errors.WrapResource("parse", "templates", "", err)
	}

	r := &Renderer{
		templates: tmpl,
		policy:    bluemonday.UGCPolicy(),
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

type indexData struct {
	Title       string
	Commands    []Link
	StaticPaths []Link
}

// RenderIndex renders the index page: a heading, the command links in order,
// and a static path section only when static is non-empty.
func (r *Renderer) RenderIndex(title string, commands, static []Link) string {
	return r.execute("index", indexData{
		Title:       title,
		Commands:    commands,
		StaticPaths: static,
	})
}

// commandData carries pre-escaped content. Pre is escaped with
// html.EscapeString so characters such as '+' in the timestamp offset stay
// literal in the document source.
type commandData struct {
	Title    string
	Pre      template.HTML
	Fragment template.HTML
}

// RenderCommandResult renders a command result page titled description. The
// preformatted block holds the current time, the echoed invocation and, for
// the text format, the output exactly as produced. HTML and Markdown output is
// sanitized and placed after the block.
func (r *Renderer) RenderCommandResult(description, command string, args []string, output string, format config.OutputFormat) string {
	invocation := config.CommandInfo{Command: command, Args: args}.Invocation()
	header := "Now: " + Timestamp(r.now()) + "\n\n$ " + invocation + "\n\n"

	pre := header + output
	var fragment string
	switch format.OrDefault() {
	case config.OutputHTML:
		pre = header
		fragment = r.policy.Sanitize(output)
	case config.OutputMarkdown:
		var buf bytes.Buffer
		if err := r.markdown.Convert([]byte(output), &buf); err == nil {
			pre = header
			fragment = string(r.policy.SanitizeBytes(buf.Bytes()))
		}
	}

	data := commandData{
		Title:    description,
		Pre:      template.HTML(html.EscapeString(pre)), //nolint:gosec // escaped above
		Fragment: template.HTML(fragment),                 //nolint:gosec // sanitized by bluemonday
	}

	return r.execute("command", data)
}

// execute runs a named template. Failures are rendered as an apology string
// instead of a page.
func (r *Renderer) execute(name string, data any) string {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Sprintf("error executing template: %v", err)
	}
	return buf.String()
}

// Timestamp formats t in its own location as shown on result pages, e.g.
// "2024-05-01 13:04:05.123456789 +0200".
func Timestamp(t time.Time) string {
	return t.Format(constants.TimeFormatPage)
}
