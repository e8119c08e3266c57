package server

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/cmdboard/internal/render"
	"github.com/agentstation/cmdboard/internal/server/handlers"
	"github.com/agentstation/cmdboard/pkg/config"
	"github.com/agentstation/cmdboard/pkg/constants"
	"github.com/agentstation/cmdboard/pkg/errors"
)

// RouteKind is the kind of handler a route resolves to.
type RouteKind int

const (
	// RouteIndex is the precomputed index page at /.
	RouteIndex RouteKind = iota
	// RouteCommand runs a configured command per request.
	RouteCommand
	// RouteStaticMount serves a directory under a path prefix.
	RouteStaticMount
)

// String returns the kind name.
func (k RouteKind) String() string {
	switch k {
	case RouteIndex:
		return "index"
	case RouteCommand:
		return "command"
	case RouteStaticMount:
		return "static"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k RouteKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Route is one entry of the route table, already specialized to its
// handler.
type Route struct {
	Kind    RouteKind `json:"kind" yaml:"kind"`
	Path    string    `json:"path" yaml:"path"`
	Pattern string    `json:"pattern" yaml:"pattern"`
	Label   string    `json:"label" yaml:"label"`
	Target  string    `json:"target" yaml:"target"`
	Listed  bool      `json:"listed" yaml:"listed"`

	Handler http.Handler `json:"-" yaml:"-"`
}

// IndexRenderer renders the index page.
type IndexRenderer interface {
	RenderIndex(title string, commands, static []render.Link) string
}

// PageRenderer renders both page kinds.
type PageRenderer interface {
	IndexRenderer
	handlers.Renderer
}

// BuildRoutes turns a configuration into the route table: the index first,
// then commands and static mounts in configuration order. The index page is
// rendered here, once.
//
// When two entries share an http_path (ignoring trailing slashes) the later
// one replaces the earlier one at the earlier one's position.
func BuildRoutes(dash *config.Configuration, renderer PageRenderer, executor handlers.Executor, logger *zerolog.Logger) []Route {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	commands := make([]render.Link, 0, len(dash.Commands))
	for _, c := range dash.Commands {
		commands = append(commands, render.Link{Path: c.HTTPPath, Label: c.Description})
	}
	indexed := dash.IndexedStaticPaths()
	static := make([]render.Link, 0, len(indexed))
	for _, s := range indexed {
		static = append(static, render.Link{Path: s.HTTPPath, Label: s.FSPath})
	}

	table := &routeTable{logger: logger, positions: make(map[string]int)}

	table.add(Route{
		Kind:    RouteIndex,
		Path:    constants.IndexPath,
		Pattern: commandPattern(constants.IndexPath),
		Label:   dash.MainPageTitle,
		Listed:  false,
		Handler: handlers.NewIndex(renderer.RenderIndex(dash.MainPageTitle, commands, static)),
	})

	for _, c := range dash.Commands {
		table.add(Route{
			Kind:    RouteCommand,
			Path:    c.HTTPPath,
			Pattern: commandPattern(c.HTTPPath),
			Label:   c.Description,
			Target:  c.Invocation(),
			Listed:  true,
			Handler: handlers.NewCommand(c, executor, renderer),
		})
	}

	for _, s := range dash.StaticPaths {
		prefix := config.NormalizePath(s.HTTPPath)
		table.add(Route{
			Kind:    RouteStaticMount,
			Path:    s.HTTPPath,
			Pattern: staticPattern(prefix),
			Label:   s.FSPath,
			Target:  s.FSPath,
			Listed:  s.IncludeInMainPage,
			Handler: handlers.Static(strings.TrimSuffix(prefix, "/"), s.FSPath),
		})
	}

	return table.routes
}

// routeTable accumulates routes keyed by normalized path.
type routeTable struct {
	routes    []Route
	positions map[string]int
	logger    *zerolog.Logger
}

func (t *routeTable) add(r Route) {
	key := config.NormalizePath(r.Path)
	if i, ok := t.positions[key]; ok {
		t.logger.Warn().
			Str("path", r.Path).
			Str("replaced", t.routes[i].Kind.String()).
			Str("by", r.Kind.String()).
			Msg("Duplicate http_path, later entry wins")
		t.routes[i] = r
		return
	}
	t.positions[key] = len(t.routes)
	t.routes = append(t.routes, r)
}

// commandPattern matches exactly path. A trailing slash would otherwise make
// the pattern match the whole subtree.
func commandPattern(path string) string {
	if strings.HasSuffix(path, "/") {
		return http.MethodGet + " " + path + "{$}"
	}
	return http.MethodGet + " " + path
}

// staticPattern matches prefix and everything under it. ServeMux redirects
// the bare prefix to prefix + "/".
func staticPattern(prefix string) string {
	if prefix == "/" {
		return http.MethodGet + " /"
	}
	return http.MethodGet + " " + prefix + "/"
}

// register adds every route to mux. ServeMux panics on invalid or
// conflicting patterns; that is reported as an error naming the route.
func register(mux *http.ServeMux, routes []Route) (err error) {
	var current Route
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewResourceError("register", "route", current.Path, errors.New(panicMessage(r)))
		}
	}()

	for _, r := range routes {
		current = r
		mux.Handle(r.Pattern, r.Handler)
	}
	return nil
}

func panicMessage(r any) string {
	switch v := r.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return "invalid pattern"
	}
}
