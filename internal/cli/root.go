// Package cli is the command line of the spend-pi task runner.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/go-while/go-spendpi/internal/tasks"
)

// Version is shown by --version
var Version = "-unset-"

// Deps are the side effects of the CLI, replaceable in tests
type Deps struct {
	Runner       tasks.CommandRunner // nil: shell runner, or dry runner with --dry-run
	Stdin        *os.File
	Stdout       io.Writer
	Stderr       io.Writer
	OpenURL      func(ctx context.Context, url string) error // nil: system browser
	ReadPassword func(prompt string) (string, error)         // nil: no prompting
}

func defaultDeps() Deps {
	deps := Deps{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if isTerminal(os.Stdin) {
		deps.ReadPassword = func(prompt string) (string, error) {
			fmt.Fprint(os.Stderr, prompt)
			pw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			return string(pw), err
		}
	}
	return deps
}

func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Execute runs the task runner and exits with the wrapped tool's exit code on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := Run(ctx, os.Args[1:], defaultDeps())
	stop()
	os.Exit(code)
}

// Run executes args and returns the process exit code
func Run(ctx context.Context, args []string, deps Deps) int {
	cmd := newRootCmd(deps)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintf(deps.Stderr, "Error: %v\n", err)
	var exitErr *tasks.ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	return 1
}

type rootFlags struct {
	root   string
	source string
	tests  string
	dryRun bool
}

func newRootCmd(deps Deps) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:           "tasks",
		Short:         "Tasks for maintaining the " + tasks.ProjectName + " project",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	cmd.PersistentFlags().StringVar(&flags.root, "root", ".", "project root directory")
	cmd.PersistentFlags().StringVar(&flags.source, "source", tasks.DefaultSourceDir, "source directory, relative to --root")
	cmd.PersistentFlags().StringVar(&flags.tests, "tests", tasks.DefaultTestDir, "test directory, relative to --root")
	cmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "print commands instead of running them")

	for _, task := range tasks.Catalog() {
		cmd.AddCommand(newTaskCmd(task, &flags, deps))
	}
	return cmd
}

func newTaskCmd(task *tasks.Task, flags *rootFlags, deps Deps) *cobra.Command {
	opts := tasks.DefaultOptions()
	name := task.Name

	cmd := &cobra.Command{
		Use:   name,
		Short: task.Help,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if name == "release-poetry" && opts.PyPIUser != "" && opts.PyPIPass == "" && deps.ReadPassword != nil {
				pw, err := deps.ReadPassword("PyPI password: ")
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				opts.PyPIPass = pw
			}

			paths, err := tasks.NewPaths(flags.root, flags.source, flags.tests)
			if err != nil {
				return err
			}

			x := tasks.NewExecutor(newRunner(deps, flags, paths.Root), paths, opts)
			x.DryRun = flags.dryRun
			if deps.OpenURL != nil {
				x.OpenURL = deps.OpenURL
			}
			return x.Run(cmd.Context(), name)
		},
	}

	f := cmd.Flags()
	switch name {
	case "format":
		f.BoolVar(&opts.Check, "check", false, "check formatting without applying changes")
	case "test":
		f.BoolVar(&opts.JUnit, "junit", false, "write a junit xml report")
		f.StringVar(&opts.Coverage, "coverage", "", `measure coverage; "html" or "xml" add a report`)
		f.Lookup("coverage").NoOptDefVal = "term"
		cmd.Args = coverageValueArg(cmd, &opts)
		f.IntVar(&opts.FailUnder, "fail-under", tasks.CoverageFailUnder, "minimum coverage percentage")
		f.StringVar(&opts.Args, "args", "", "arguments passed to pytest")
		f.StringVar(&opts.Key, "key", "", "pytest -k expression")
		cmd.Example = "  tasks test --junit --coverage=html --args=\"-vv\"\n  tasks test --coverage --fail-under=75 --key=\"not integration\""
	case "docs":
		f.BoolVar(&opts.Launch, "launch", true, "open the documentation in the web browser")
	case "release-poetry":
		f.StringVar(&opts.PyPIUser, "pypi-user", "", "PyPI user name")
		f.StringVar(&opts.PyPIPass, "pypi-pass", "", "PyPI password (prompted when omitted on a terminal)")
		f.StringVar(&opts.RepositoryURL, "repository-url", tasks.PyPIUploadURL, "upload endpoint")
		_ = cmd.MarkFlagRequired("pypi-user")
	}
	return cmd
}

// coverageValueArg accepts "--coverage html" as well as "--coverage=html":
// an optional-value flag leaves the separated value as the only positional argument.
func coverageValueArg(cmd *cobra.Command, opts *tasks.Options) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) == 0 {
			return nil
		}
		if len(args) == 1 && cmd.Flags().Changed("coverage") && opts.Coverage == "term" {
			switch args[0] {
			case "term", "html", "xml":
				opts.Coverage = args[0]
				return nil
			}
		}
		return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
	}
}

func newRunner(deps Deps, flags *rootFlags, dir string) tasks.CommandRunner {
	if deps.Runner != nil {
		return deps.Runner
	}
	if flags.dryRun {
		return &tasks.DryRunner{Out: deps.Stdout}
	}
	r := &tasks.ShellRunner{Dir: dir, Stdout: deps.Stdout, Stderr: deps.Stderr}
	// hand the terminal to interactive tools, except on Windows
	if runtime.GOOS != "windows" && isTerminal(deps.Stdin) {
		r.Stdin = deps.Stdin
	}
	return r
}
