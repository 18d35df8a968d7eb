// Package command runs the external pipeline tools (ffmpeg, colmap, the
// trainer) with captured output and typed failures.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"gsplat/internal/logger"
)

// stderrExcerptLen bounds how much captured stderr ends up in an ExitError
// message. Full output stays available on the struct.
const stderrExcerptLen = 2048

// LaunchError means the process could not be started at all: binary not on
// PATH, permission denied, bad working directory.
type LaunchError struct {
	Name string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s: %v", e.Name, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ExitError means the process ran and terminated with a nonzero status.
type ExitError struct {
	Name     string
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *ExitError) Error() string {
	excerpt := strings.TrimSpace(e.Stderr)
	if len(excerpt) > stderrExcerptLen {
		excerpt = excerpt[len(excerpt)-stderrExcerptLen:]
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Name, e.ExitCode, excerpt)
}

// Result holds the output of a completed invocation.
type Result struct {
	Stdout string
	Stderr string
}

// Runner executes one external process to completion. The single-method
// interface lets the dataset and scene services swap in fakes under test.
type Runner interface {
	Run(ctx context.Context, name string, args []string, dir string) (Result, error)
}

// Exec is the production Runner backed by os/exec.
type Exec struct {
	log *logger.Logger
}

func NewExec() *Exec { return &Exec{log: logger.New("Command")} }

// Run executes name with args, optionally in dir. Stdout and stderr are
// captured separately. Nonzero exit returns *ExitError; failure to start
// returns *LaunchError. No retries at this layer.
func (e *Exec) Run(ctx context.Context, name string, args []string, dir string) (Result, error) {
	e.log.LogInfof("RUN: %s %s", name, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	res := Result{Stdout: stdoutBuf.String(), Stderr: stderrBuf.String()}
	if err == nil {
		return res, nil
	}

	// Prefer the context error so a cancelled or timed-out invocation reads
	// as an interruption whether the child was killed mid-run or never
	// started, not as a signal exit or a launch failure.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, fmt.Errorf("%s interrupted: %w", name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, &ExitError{
			Name:     name,
			Args:     args,
			ExitCode: exitErr.ExitCode(),
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
		}
	}
	return res, &LaunchError{Name: name, Err: err}
}
