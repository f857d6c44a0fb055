// Package sitebuild runs the documentation site generator.
//
// The generator is an external collaborator: it either succeeds or fails. On
// failure the tail of its log is kept so it can be shown to the author of the
// pull request.
package sitebuild

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	derrors "git.home.luguber.info/inful/docdraft/internal/foundation/errors"
	"git.home.luguber.info/inful/docdraft/internal/logfields"
)

// ErrCommandNotFound indicates the generator executable was not detected on PATH.
var ErrCommandNotFound = errors.New("site generator command not found")

// DefaultTailLines is how much of the build log a failure report carries.
const DefaultTailLines = 50

// Builder renders the documentation site inside dir.
type Builder interface {
	Build(ctx context.Context, dir string) error
}

// CommandBuilder invokes an external command (e.g. `npm run build`) and
// captures its combined output into LogPath.
type CommandBuilder struct {
	Command   []string
	Env       []string
	LogPath   string
	TailLines int
	Stream    io.Writer // optional live copy of the output
}

// NewCommandBuilder returns a builder for command writing its log to logPath.
func NewCommandBuilder(command []string, logPath string) *CommandBuilder {
	return &CommandBuilder{Command: command, LogPath: logPath, TailLines: DefaultTailLines}
}

func (b *CommandBuilder) Build(ctx context.Context, dir string) error {
	if len(b.Command) == 0 {
		return derrors.ConfigError("build command is empty").Build()
	}
	bin, err := exec.LookPath(b.Command[0])
	if err != nil {
		return derrors.WrapError(fmt.Errorf("%w: %w", ErrCommandNotFound, err), derrors.CategoryBuild, "site generator unavailable").
			Fatal().WithContext("command", b.Command[0]).Build()
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return derrors.FileSystemError("docs directory not found").WithContext("path", dir).Build()
	}

	if err := os.MkdirAll(filepath.Dir(b.LogPath), 0o750); err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "create build log directory").Build()
	}
	logFile, err := os.Create(b.LogPath)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "create build log").
			WithContext("path", b.LogPath).Build()
	}
	defer func() { _ = logFile.Close() }()

	var out io.Writer = logFile
	if b.Stream != nil {
		out = io.MultiWriter(logFile, b.Stream)
	}

	cmd := exec.CommandContext(ctx, bin, b.Command[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), b.Env...)
	cmd.Stdout = out
	cmd.Stderr = out

	slog.Info("Running site generator", slog.Any("command", b.Command), logfields.Path(dir))
	runErr := cmd.Run()
	if syncErr := logFile.Sync(); syncErr != nil {
		slog.Warn("Failed to flush build log", logfields.Error(syncErr))
	}
	if runErr == nil {
		return nil
	}

	tail, tailErr := Tail(b.LogPath, b.tailLines())
	if tailErr != nil {
		slog.Warn("Failed to read build log tail", logfields.Error(tailErr))
	}
	return derrors.BuildError("site build failed").
		WithCause(&Failure{Err: runErr, LogPath: b.LogPath, Tail: tail}).
		WithContext("log_path", b.LogPath).
		Build()
}

func (b *CommandBuilder) tailLines() int {
	if b.TailLines > 0 {
		return b.TailLines
	}
	return DefaultTailLines
}

// Failure is the cause of the build error returned when the generator exits
// unsuccessfully.
type Failure struct {
	Err     error
	LogPath string
	Tail    string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("site build failed: %v", f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure extracts a build Failure from err's chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
