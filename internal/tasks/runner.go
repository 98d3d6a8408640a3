package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
)

// Command is one shell command line. Secrets are masked wherever the line is printed.
type Command struct {
	Line    string
	Secrets []string
}

// Cmd joins the non-empty parts into a command line. Parts are taken verbatim;
// quote dynamic values with Quote.
func Cmd(parts ...string) Command {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return Command{Line: strings.Join(kept, " ")}
}

// String returns the line with secrets masked
func (c Command) String() string {
	line := c.Line
	for _, s := range c.Secrets {
		if s != "" {
			line = strings.ReplaceAll(line, s, "****")
		}
	}
	return line
}

// Quote makes s a single shell word
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=:,+@%", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// QuoteAll quotes every element
func QuoteAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = Quote(w)
	}
	return out
}

// ExitError reports a command that ran and exited non-zero
type ExitError struct {
	Task    string
	Command string // masked
	Code    int
	Message string // optional summary, e.g. "Tests failed"
}

func (e *ExitError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("%q exited with code %d", e.Command, e.Code)
	} else {
		msg = fmt.Sprintf("%s (exit code %d)", msg, e.Code)
	}
	if e.Task != "" {
		return "task " + e.Task + ": " + msg
	}
	return msg
}

// CommandRunner runs a command line to completion.
// A non-zero exit is reported as *ExitError; other errors mean the command could not run.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) error
}

// ShellRunner runs command lines through the platform shell
type ShellRunner struct {
	Dir    string
	Stdin  io.Reader // nil: no input
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes cmd via "sh -c" ("cmd /C" on Windows), streaming its output
func (r *ShellRunner) Run(ctx context.Context, cmd Command) error {
	name, flag := "sh", "-c"
	if runtime.GOOS == "windows" {
		name, flag = "cmd", "/C"
	}
	c := exec.CommandContext(ctx, name, flag, cmd.Line)
	c.Dir = r.Dir
	c.Stdin = r.Stdin
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr

	err := c.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return &ExitError{Command: cmd.String(), Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("run %q: %w", cmd.String(), err)
}

// DryRunner prints command lines instead of running them
type DryRunner struct {
	Out io.Writer
}

func (r *DryRunner) Run(_ context.Context, cmd Command) error {
	_, err := fmt.Fprintf(r.Out, "+ %s\n", cmd)
	return err
}
