// Package executor runs configured commands to completion and captures
// their standard output for display.
package executor

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/unicode"

	pkgerrors "github.com/agentstation/cmdboard/pkg/errors"
)

// Executor spawns one child process per call. It holds no per-call state and
// is safe for concurrent use.
type Executor struct {
	logger *zerolog.Logger
}

// New creates an Executor that logs process lifecycle events to logger.
func New(logger *zerolog.Logger) *Executor {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Executor{logger: logger}
}

// Execute starts command with exactly args as its argument vector, waits for
// it to exit and returns everything it wrote to stdout, decoded as UTF-8 with
// invalid sequences replaced. No shell is involved, so metacharacters in args
// reach the program literally. stderr is discarded and the exit status is
// ignored.
//
// When the process cannot be started the returned text is
// "command error: " followed by the start error.
func (e *Executor) Execute(command string, args []string) string {
	var stdout bytes.Buffer

	cmd := exec.Command(command, args...)
	cmd.Stdout = &stdout

	start := time.Now()
	if err := cmd.Start(); err != nil {
		perr := pkgerrors.NewProcessError(command, args, err)
		e.logger.Warn().
			Err(err).
			Str("command", command).
			Strs("args", args).
			Msg("Command failed to start")
		return perr.Error()
	}

	waitErr := cmd.Wait()

	event := e.logger.Debug().
		Str("command", command).
		Int("pid", cmd.Process.Pid).
		Int("exit_code", cmd.ProcessState.ExitCode()).
		Int("stdout_bytes", stdout.Len()).
		Dur("duration", time.Since(start))
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		event = event.Err(waitErr)
	}
	event.Msg("Command finished")

	return decodeLossy(stdout.Bytes())
}

// decodeLossy decodes b as UTF-8, replacing invalid byte sequences with
// U+FFFD. It never fails.
func decodeLossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	decoded, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}
	return string(decoded)
}
