package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cmdboard/internal/render"
	"github.com/agentstation/cmdboard/internal/server/response"
	"github.com/agentstation/cmdboard/pkg/config"
	"github.com/agentstation/cmdboard/pkg/constants"
	"github.com/agentstation/cmdboard/pkg/errors"
	"github.com/agentstation/cmdboard/pkg/logging"
)

// recordingExecutor returns a fixed output and remembers what it ran.
type recordingExecutor struct {
	mu    sync.Mutex
	out   string
	calls []string
}

func (e *recordingExecutor) Execute(command string, args []string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, strings.TrimSpace(command+" "+strings.Join(args, " ")))
	return e.out
}

func (e *recordingExecutor) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// tickingClock returns a clock advancing one millisecond per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 5, 1, 13, 4, 5, 0, time.FixedZone("", 2*60*60))
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	}
}

func newTestServer(t *testing.T, dash *config.Configuration, opts ...Option) *Server {
	t.Helper()
	srv, err := New(DefaultConfig(), dash, logging.NewNopLogger(), opts...)
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)
	return srv
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func dashboard(commands []config.CommandInfo, static []config.StaticPathInfo) *config.Configuration {
	return &config.Configuration{
		ListenAddress: "127.0.0.1:0",
		MainPageTitle: "Ops Board",
		Commands:      commands,
		StaticPaths:   static,
	}
}

func TestIndexLinks(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		commands int
		static   []bool // include_in_main_page per mount
	}{
		{name: "commands only", commands: 3},
		{name: "no commands", commands: 0, static: []bool{true}},
		{name: "all static listed", commands: 2, static: []bool{true, true}},
		{name: "some static listed", commands: 1, static: []bool{true, false, true}},
		{name: "no static listed", commands: 2, static: []bool{false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var commands []config.CommandInfo
			for i := 0; i < tt.commands; i++ {
				commands = append(commands, config.CommandInfo{
					HTTPPath:    fmt.Sprintf("/cmd%d", i),
					Description: fmt.Sprintf("Command %d", i),
					Command:     "true",
				})
			}
			var static []config.StaticPathInfo
			listed := 0
			for i, include := range tt.static {
				static = append(static, config.StaticPathInfo{
					HTTPPath:          fmt.Sprintf("/files%d", i),
					FSPath:            dir,
					IncludeInMainPage: include,
				})
				if include {
					listed++
				}
			}

			srv := newTestServer(t, dashboard(commands, static), WithExecutor(&recordingExecutor{}))
			w := get(t, srv.Handler(), "/")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, response.ContentTypeHTML, w.Header().Get("Content-Type"))

			body := w.Body.String()
			assert.Contains(t, body, "<h2>Ops Board</h2>")

			commandSection, staticSection, hasStatic := strings.Cut(body, "<h3>Static Paths:</h3>")
			assert.Equal(t, tt.commands, strings.Count(commandSection, "<li><a href="))
			for _, c := range commands {
				assert.Contains(t, commandSection, fmt.Sprintf(`<li><a href="%s">%s</a></li>`, c.HTTPPath, c.Description))
			}

			if listed == 0 {
				assert.False(t, hasStatic, "static section must be omitted")
				return
			}
			require.True(t, hasStatic)
			assert.Equal(t, listed, strings.Count(staticSection, "<li><a href="))
			for _, s := range static {
				link := fmt.Sprintf(`<li><a href="%s">%s</a></li>`, s.HTTPPath, s.FSPath)
				if s.IncludeInMainPage {
					assert.Contains(t, staticSection, link)
				} else {
					assert.NotContains(t, staticSection, link)
				}
			}
		})
	}
}

func TestIndexIsPrecomputed(t *testing.T) {
	exec := &recordingExecutor{out: "x"}
	srv := newTestServer(t, dashboard([]config.CommandInfo{
		{HTTPPath: "/a", Description: "A", Command: "echo"},
	}, nil), WithExecutor(exec))

	first := get(t, srv.Handler(), "/").Body.Bytes()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, get(t, srv.Handler(), "/").Body.Bytes())
	}
	assert.Empty(t, exec.Calls(), "index requests must not run commands")
}

func TestCommandRouteEcho(t *testing.T) {
	srv := newTestServer(t, dashboard([]config.CommandInfo{
		{HTTPPath: "/hello", Description: "Say hello", Command: "echo", Args: []string{"hello"}},
	}, nil))

	w := get(t, srv.Handler(), "/hello")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.ContentTypeHTML, w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "<title>Say hello</title>")
	assert.Contains(t, body, "$ echo hello\n\nhello\n")
}

func TestCommandRouteMissingBinary(t *testing.T) {
	srv := newTestServer(t, dashboard([]config.CommandInfo{
		{HTTPPath: "/broken", Description: "Broken", Command: "definitely-not-a-real-binary-xyz"},
	}, nil))

	w := get(t, srv.Handler(), "/broken")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "command error: ")
}

func TestCommandRouteFreshPerRequest(t *testing.T) {
	renderer, err := render.New(render.WithClock(tickingClock()))
	require.NoError(t, err)

	exec := &recordingExecutor{out: "same output\n"}
	srv := newTestServer(t, dashboard([]config.CommandInfo{
		{HTTPPath: "/date", Description: "Date", Command: "date"},
	}, nil), WithRenderer(renderer), WithExecutor(exec))

	first := get(t, srv.Handler(), "/date").Body.String()
	second := get(t, srv.Handler(), "/date").Body.String()

	assert.Len(t, exec.Calls(), 2)
	assert.NotEqual(t, first, second)

	stamp := func(page string) (string, string) {
		i := strings.Index(page, "Now: ")
		require.GreaterOrEqual(t, i, 0)
		line, rest, _ := strings.Cut(page[i:], "\n")
		return line, page[:i] + rest
	}
	firstStamp, firstRest := stamp(first)
	secondStamp, secondRest := stamp(second)
	assert.Less(t, firstStamp, secondStamp)
	assert.Equal(t, firstRest, secondRest)
}

func TestStaticMount(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.txt"), []byte("all good"), constants.FilePermissions))

	srv := newTestServer(t, dashboard(nil, []config.StaticPathInfo{
		{HTTPPath: "/files", FSPath: dir, IncludeInMainPage: true},
	}))
	h := srv.Handler()

	w := get(t, h, "/files/report.txt")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "all good", w.Body.String())

	w = get(t, h, "/files/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "report.txt")

	w = get(t, h, "/files")
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "/files/", w.Header().Get("Location"))

	assert.Contains(t, get(t, h, "/").Body.String(), `<a href="/files">`)
}

func TestDuplicatePathLastWins(t *testing.T) {
	exec := &recordingExecutor{}
	dash := dashboard([]config.CommandInfo{
		{HTTPPath: "/status", Description: "First", Command: "first"},
		{HTTPPath: "/other", Description: "Other", Command: "other"},
		{HTTPPath: "/status/", Description: "Second", Command: "second"},
	}, nil)

	srv := newTestServer(t, dash, WithExecutor(exec))

	routes := srv.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, RouteIndex, routes[0].Kind)
	assert.Equal(t, "Second", routes[1].Label, "later entry replaces the earlier one in place")
	assert.Equal(t, "Other", routes[2].Label)

	w := get(t, srv.Handler(), "/status/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"second"}, exec.Calls())

	get(t, srv.Handler(), "/status")
	assert.Equal(t, []string{"second"}, exec.Calls(), "first entry must not be reachable")
}

func TestDuplicateAcrossKinds(t *testing.T) {
	dir := t.TempDir()
	exec := &recordingExecutor{}
	dash := dashboard(
		[]config.CommandInfo{{HTTPPath: "/files", Description: "Shadowed", Command: "ls"}},
		[]config.StaticPathInfo{{HTTPPath: "/files", FSPath: dir}},
	)

	srv := newTestServer(t, dash, WithExecutor(exec))

	routes := srv.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, RouteStaticMount, routes[1].Kind)

	get(t, srv.Handler(), "/files/")
	assert.Empty(t, exec.Calls())
}

func TestRoutesOrder(t *testing.T) {
	dir := t.TempDir()
	srv := newTestServer(t, dashboard(
		[]config.CommandInfo{
			{HTTPPath: "/b", Description: "B", Command: "echo", Args: []string{"b"}},
			{HTTPPath: "/a/", Description: "A", Command: "echo"},
		},
		[]config.StaticPathInfo{{HTTPPath: "/files/", FSPath: dir, IncludeInMainPage: false}},
	))

	routes := srv.Routes()
	require.Len(t, routes, 4)

	expected := []struct {
		kind    RouteKind
		pattern string
		target  string
		listed  bool
	}{
		{RouteIndex, "GET /{$}", "", false},
		{RouteCommand, "GET /b", "echo b", true},
		{RouteCommand, "GET /a/{$}", "echo", true},
		{RouteStaticMount, "GET /files/", dir, false},
	}
	for i, e := range expected {
		assert.Equal(t, e.kind, routes[i].Kind, "route %d", i)
		assert.Equal(t, e.pattern, routes[i].Pattern, "route %d", i)
		assert.Equal(t, e.target, routes[i].Target, "route %d", i)
		assert.Equal(t, e.listed, routes[i].Listed, "route %d", i)
		assert.NotNil(t, routes[i].Handler, "route %d", i)
	}
}

func TestRouteKindString(t *testing.T) {
	assert.Equal(t, "index", RouteIndex.String())
	assert.Equal(t, "command", RouteCommand.String())
	assert.Equal(t, "static", RouteStaticMount.String())
	assert.Equal(t, "unknown", RouteKind(42).String())

	text, err := RouteStaticMount.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "static", string(text))
}

func TestUnknownRouteAndMethod(t *testing.T) {
	srv := newTestServer(t, dashboard([]config.CommandInfo{
		{HTTPPath: "/run", Description: "Run", Command: "true"},
	}, nil), WithExecutor(&recordingExecutor{}))

	assert.Equal(t, http.StatusNotFound, get(t, srv.Handler(), "/nope").Code)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/run", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, dashboard(nil, nil))
	w := get(t, srv.Handler(), "/")
	assert.NotEmpty(t, w.Header().Get(constants.RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 1
	srv, err := New(cfg, dashboard(nil, nil), logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)

	assert.Equal(t, http.StatusOK, get(t, srv.Handler(), "/").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, srv.Handler(), "/").Code)
}

func TestRateLimitTrustedProxy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = 1
	cfg.TrustedProxies = []string{"192.0.2.0/24"}
	srv, err := New(cfg, dashboard(nil, nil), logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)

	fromProxy := func(client string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:4000"
		req.Header.Set("X-Forwarded-For", client)
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, fromProxy("203.0.113.1"))
	assert.Equal(t, http.StatusOK, fromProxy("203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, fromProxy("203.0.113.1"))
}

func TestNewInvalidTrustedProxy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrustedProxies = []string{"nope"}
	_, err := New(cfg, dashboard(nil, nil), logging.NewNopLogger())

	var valErr *errors.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "trusted_proxies", valErr.Field)
}

func TestNewInvalidPattern(t *testing.T) {
	_, err := New(DefaultConfig(), dashboard([]config.CommandInfo{
		{HTTPPath: "/a{b}", Description: "Bad", Command: "true"},
	}, nil), logging.NewNopLogger())

	require.Error(t, err)
	var resErr *errors.ResourceError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "/a{b}", resErr.ID)
}

func TestNewNilConfiguration(t *testing.T) {
	_, err := New(DefaultConfig(), nil, nil)
	assert.True(t, errors.IsValidationError(err))
}

func TestNewCopiesConfiguration(t *testing.T) {
	dash := dashboard([]config.CommandInfo{
		{HTTPPath: "/a", Description: "A", Command: "echo", Args: []string{"one"}},
	}, nil)
	exec := &recordingExecutor{}
	srv := newTestServer(t, dash, WithExecutor(exec))

	dash.Commands[0].Args[0] = "two"
	get(t, srv.Handler(), "/a")
	assert.Equal(t, []string{"echo one"}, exec.Calls())
}

func TestListenAddress(t *testing.T) {
	srv := newTestServer(t, dashboard(nil, nil))
	assert.Equal(t, "127.0.0.1:0", srv.Addr())

	cfg := DefaultConfig()
	cfg.ListenAddress = "127.0.0.1:9999"
	override, err := New(cfg, dashboard(nil, nil), nil)
	require.NoError(t, err)
	t.Cleanup(override.Shutdown)
	assert.Equal(t, "127.0.0.1:9999", override.Addr())
}

func TestListenBindFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := DefaultConfig()
	cfg.ListenAddress = busy.Addr().String()
	srv, err := New(cfg, dashboard(nil, nil), nil)
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)

	_, err = srv.Listen()
	require.Error(t, err)
	var ioErr *errors.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "listen", ioErr.Operation)
}

func TestServeAndShutdown(t *testing.T) {
	srv := newTestServer(t, dashboard([]config.CommandInfo{
		{HTTPPath: "/hello", Description: "Hello", Command: "echo", Args: []string{"hello"}},
	}, nil))

	ln, err := srv.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/hello")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "hello\n")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
