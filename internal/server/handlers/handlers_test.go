package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/cmdboard/internal/server/response"
	"github.com/agentstation/cmdboard/pkg/config"
)

type fakeExecutor struct {
	mu    sync.Mutex
	calls [][]string
	out   string
}

func (f *fakeExecutor) Execute(command string, args []string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{command}, args...))
	return f.out
}

type fakeRenderer struct{}

func (fakeRenderer) RenderCommandResult(description, command string, args []string, output string, format config.OutputFormat) string {
	return strings.Join([]string{description, command, strings.Join(args, ","), output, string(format)}, "|")
}

func TestIndex(t *testing.T) {
	h := NewIndex("<h1>Board</h1>")

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, response.ContentTypeHTML, w.Header().Get("Content-Type"))
		assert.Equal(t, "<h1>Board</h1>", w.Body.String())
	}

	page := h.Page()
	page[0] = 'X'
	assert.Equal(t, "<h1>Board</h1>", string(h.Page()))
}

func TestCommand(t *testing.T) {
	exec := &fakeExecutor{out: "up 3 days\n"}
	info := config.CommandInfo{
		HTTPPath:     "/uptime",
		Description:  "Uptime",
		Command:      "uptime",
		Args:         []string{"-p"},
		OutputFormat: config.OutputText,
	}

	h := NewCommand(info, exec, fakeRenderer{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uptime", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.ContentTypeHTML, w.Header().Get("Content-Type"))
	assert.Equal(t, "Uptime|uptime|-p|up 3 days\n|text", w.Body.String())
	assert.Equal(t, [][]string{{"uptime", "-p"}}, exec.calls)
}

func TestCommand_RunsPerRequest(t *testing.T) {
	exec := &fakeExecutor{out: "ok"}
	h := NewCommand(config.CommandInfo{HTTPPath: "/a", Description: "A", Command: "true"}, exec, fakeRenderer{})

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/a", nil))
	}
	assert.Len(t, exec.calls, 3)
}

func TestCommand_StartFailureIsStillOK(t *testing.T) {
	exec := &fakeExecutor{out: "command error: exec: \"nope\": executable file not found in $PATH"}
	h := NewCommand(config.CommandInfo{HTTPPath: "/x", Description: "X", Command: "nope"}, exec, fakeRenderer{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "command error: ")
}

func TestCommand_OwnsItsInfo(t *testing.T) {
	info := config.CommandInfo{HTTPPath: "/ls", Description: "List", Command: "ls", Args: []string{"-l"}}
	h := NewCommand(info, &fakeExecutor{}, fakeRenderer{})

	info.Args[0] = "-a"
	assert.Equal(t, []string{"-l"}, h.Info().Args)

	got := h.Info()
	got.Args[0] = "-R"
	assert.Equal(t, []string{"-l"}, h.Info().Args)
}

func TestStatic(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hi there"), 0o644))

	h := Static("/files", dir)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/hello.txt", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi there", w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hello.txt")

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/missing.txt", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
