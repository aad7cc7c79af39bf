// Package executor runs single git invocations with an output ceiling and
// records every invocation in a bounded command log.
package executor

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitnet/internal/config"
	"gitnet/internal/errors"
)

const (
	// DefaultBinary is the version-control binary invoked when none is configured
	DefaultBinary = "git"

	// DefaultMaxOutputBytes is the stdout ceiling (10 MiB)
	DefaultMaxOutputBytes int64 = 10 * 1024 * 1024

	// maxStderrBytes bounds the captured diagnostic text
	maxStderrBytes = 64 * 1024

	// waitDelay bounds how long Wait blocks on pipes held open by grandchildren
	waitDelay = 2 * time.Second
)

// Runner abstracts executing git operations.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// Options configures an Executor.
type Options struct {
	Binary         string
	MaxOutputBytes int64
	// Timeout of zero means the command may run until the caller's context ends.
	Timeout       time.Duration
	AuditCapacity int
}

// OptionsFromConfig builds executor options from the git section of the config.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return Options{
		Binary:         cfg.Git.Binary,
		MaxOutputBytes: cfg.Git.MaxOutputBytes,
		Timeout:        time.Duration(cfg.Git.TimeoutMs) * time.Millisecond,
		AuditCapacity:  cfg.Git.AuditCapacity,
	}
}

// Executor spawns one process per call. It is safe for concurrent use.
type Executor struct {
	opts   Options
	audit  *CommandLog
	logger *slog.Logger
}

// New creates an Executor. Zero-valued options fall back to the defaults.
func New(opts Options, logger *slog.Logger) *Executor {
	if strings.TrimSpace(opts.Binary) == "" {
		opts.Binary = DefaultBinary
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if opts.AuditCapacity <= 0 {
		opts.AuditCapacity = DefaultAuditCapacity
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{
		opts:   opts,
		audit:  NewCommandLog(opts.AuditCapacity),
		logger: logger,
	}
}

// CommandLog returns the audit log owned by this executor.
func (e *Executor) CommandLog() *CommandLog {
	return e.audit
}

// Run executes the binary with args in dir and returns its full stdout.
func (e *Executor) Run(ctx context.Context, dir string, args ...string) (string, error) {
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	entry := AuditEntry{
		ID:        uuid.NewString(),
		Command:   commandName(args),
		Args:      append([]string(nil), args...),
		Timestamp: start.UTC(),
		ExitCode:  -1,
	}

	e.logger.Debug("Executing git command",
		"args", args,
		"dir", dir,
	)

	out, exitCode, err := e.run(ctx, dir, args)

	entry.Duration = time.Since(start)
	entry.ExitCode = exitCode
	entry.Success = err == nil
	if err != nil {
		entry.Error = err.Error()
	}
	e.audit.Add(entry)

	if err != nil {
		e.logger.Debug("Git command failed",
			"args", args,
			"exitCode", exitCode,
			"durationMs", entry.Duration.Milliseconds(),
			"error", err.Error(),
		)
		return "", err
	}

	e.logger.Debug("Git command completed",
		"command", entry.Command,
		"bytes", len(out),
		"durationMs", entry.Duration.Milliseconds(),
	)
	return out, nil
}

func (e *Executor) run(ctx context.Context, dir string, args []string) (string, int, error) {
	cmd := exec.CommandContext(ctx, e.opts.Binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "LC_ALL=C")
	cmd.WaitDelay = waitDelay

	stderr := &cappedBuffer{limit: maxStderrBytes}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", -1, errors.New(errors.SpawnFailed, "Failed to open git stdout", err, nil)
	}

	if err := cmd.Start(); err != nil {
		return "", -1, errors.New(
			errors.SpawnFailed,
			"Failed to execute git command",
			err,
			errors.GetSuggestedFixes(errors.SpawnFailed),
		).WithDetails(map[string]interface{}{
			"binary": e.opts.Binary,
			"dir":    dir,
		})
	}

	var out bytes.Buffer
	n, copyErr := io.Copy(&out, io.LimitReader(stdout, e.opts.MaxOutputBytes+1))
	if n > e.opts.MaxOutputBytes {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return "", -1, errors.New(
			errors.OutputTooLarge,
			fmt.Sprintf("Git output exceeded %d bytes", e.opts.MaxOutputBytes),
			nil,
			errors.GetSuggestedFixes(errors.OutputTooLarge),
		).WithDetails(map[string]interface{}{
			"args":  args,
			"limit": e.opts.MaxOutputBytes,
		})
	}

	waitErr := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if ctxErr == context.DeadlineExceeded {
			return "", -1, errors.New(errors.Timeout, "Git command timed out", ctxErr, nil).
				WithDetails(map[string]interface{}{"args": args})
		}
		return "", -1, errors.New(errors.CommandFailed, "Git command cancelled", ctxErr, nil)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if stderrors.As(waitErr, &exitErr) {
			code := exitErr.ExitCode()
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = fmt.Sprintf("exit code %d", code)
			}
			return "", code, errors.New(errors.CommandFailed, msg, nil, nil).
				WithDetails(map[string]interface{}{
					"args":     args,
					"exitCode": code,
				})
		}
		return "", -1, errors.New(errors.SpawnFailed, "Failed to execute git command", waitErr, nil)
	}
	if copyErr != nil {
		return "", 0, errors.New(errors.InternalError, "Failed to read git output", copyErr, nil)
	}

	return out.String(), 0, nil
}

// ExitCode returns the exit status recorded on a COMMAND_FAILED error.
func ExitCode(err error) (int, bool) {
	var gerr *errors.GitNetError
	if !stderrors.As(err, &gerr) || gerr.Code != errors.CommandFailed {
		return 0, false
	}
	details, ok := gerr.Details.(map[string]interface{})
	if !ok {
		return 0, false
	}
	code, ok := details["exitCode"].(int)
	return code, ok
}

func commandName(args []string) string {
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			return a
		}
	}
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// cappedBuffer keeps the first limit bytes written and discards the rest.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if room := c.limit - c.buf.Len(); room > 0 {
		if len(p) > room {
			c.buf.Write(p[:room])
		} else {
			c.buf.Write(p)
		}
	}
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	return c.buf.String()
}

// Lines splits command output into trimmed, non-empty lines.
func Lines(output string) []string {
	if output == "" {
		return []string{}
	}
	raw := strings.Split(output, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
