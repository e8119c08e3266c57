package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points settings lookups at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
	return dir
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	isolate(t)
	logger := zerolog.Nop()
	app, err := New("1.0.0", "abc123", "2024-01-01", "test", WithLogger(&logger))
	require.NoError(t, err)
	return app
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, "1.0.0", app.Version())
	assert.Equal(t, "abc123", app.Commit())
	assert.Equal(t, "2024-01-01", app.Date())
	assert.Equal(t, "test", app.BuiltBy())
	assert.NotNil(t, app.Logger())
	assert.NotNil(t, app.Config())
}

func TestApp_ServerConfig(t *testing.T) {
	isolate(t)
	app, err := New("dev", "", "", "", WithConfig(&Config{
		ListenAddress:  "0.0.0.0:9000",
		RateLimit:      12,
		IdleTimeout:    3 * time.Second,
		TrustedProxies: []string{"127.0.0.1"},
	}))
	require.NoError(t, err)

	cfg := app.ServerConfig()
	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddress)
	assert.Equal(t, 12, cfg.RateLimit)
	assert.Equal(t, 3*time.Second, cfg.IdleTimeout)
	assert.Equal(t, []string{"127.0.0.1"}, cfg.TrustedProxies)
	assert.NotZero(t, cfg.ReadHeaderTimeout)
	assert.NotZero(t, cfg.ShutdownTimeout)
}

func execute(t *testing.T, app *App, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := app.createRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	app := newTestApp(t)

	out, err := execute(t, app, context.Background(), "version")
	require.NoError(t, err)
	assert.Equal(t, "cmdboard 1.0.0\n", out)

	out, err = execute(t, app, context.Background(), "version", "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "commit:     abc123")
}

func TestRootWithoutArgsShowsHelp(t *testing.T) {
	out, err := execute(t, newTestApp(t), context.Background())
	require.NoError(t, err)
	assert.Contains(t, out, "serve")
	assert.Contains(t, out, "validate")
	assert.Contains(t, out, "routes")
}

func writeDashboard(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	doc := `listen_address: "127.0.0.1:0"
main_page_title: "Shorthand"
commands:
  - {http_path: /hi, description: Hi, command: echo, args: [hi]}
static_paths: []
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestRootShorthandServes(t *testing.T) {
	app := newTestApp(t)
	path := writeDashboard(t)

	// A cancelled context makes serve shut down as soon as it has bound.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := execute(t, app, ctx, path)
	require.NoError(t, err)
	assert.Contains(t, out, `Serving "Shorthand" on http://127.0.0.1:`)
}

func TestRootShorthandMissingConfig(t *testing.T) {
	_, err := execute(t, newTestApp(t), context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateThroughRoot(t *testing.T) {
	out, err := execute(t, newTestApp(t), context.Background(), "validate", writeDashboard(t), "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"main_page_title": "Shorthand"`)
}

func TestSetupCommandRebuildsLogger(t *testing.T) {
	app := newTestApp(t)
	before := app.Logger()

	_, err := execute(t, app, context.Background(), "version", "--log-level", "error")
	require.NoError(t, err)

	assert.NotSame(t, before, app.Logger())
	assert.Equal(t, zerolog.ErrorLevel, app.Logger().GetLevel())
}

func TestApp_OutputFormat(t *testing.T) {
	isolate(t)
	app, err := New("dev", "", "", "", WithConfig(&Config{Output: "YAML"}))
	require.NoError(t, err)
	assert.Equal(t, "yaml", app.OutputFormat())

	app.Config().Output = ""
	assert.Contains(t, []string{"table", "json"}, app.OutputFormat())
}
