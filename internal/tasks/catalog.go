package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Catalog returns the task definitions in the order they are listed
func Catalog() []*Task {
	return []*Task{
		{Name: "format", Help: "Run black and isort on the source and test directories", Run: runFormat},
		{Name: "lint-pylint", Help: "Run pylint on the source and test directories", Run: runLintPylint},
		{Name: "lint-ruff", Help: "Run ruff on the source and test directories", Run: runLintRuff},
		{Name: "lint-mypy", Help: "Run mypy on the source and test directories", Run: runLintMypy},
		{Name: "lint", Help: "Run all linters", Pre: []string{"lint-pylint", "lint-ruff", "lint-mypy"}},
		{Name: "security-bandit", Help: "Run bandit security checks on the source directory", Run: runSecurityBandit},
		{Name: "security-safety", Help: "Run safety checks on the exported dependencies", Run: runSecuritySafety},
		{Name: "security", Help: "Run all security checks", Pre: []string{"security-bandit", "security-safety"}},
		{Name: "test", Help: "Run the test suite with pytest", Check: checkTest, Run: runTest},
		{Name: "clean-docs", Help: "Remove generated documentation", Run: runCleanDocs},
		{Name: "docs", Help: "Generate the documentation and open it", Pre: []string{"clean-docs"}, Run: runDocs},
		{Name: "clean-build", Help: "Remove build and distribution artifacts", Run: runCleanBuild},
		{Name: "clean-python", Help: "Remove Python bytecode and editor backups", Run: runCleanPython},
		{Name: "clean-tests", Help: "Remove test and coverage artifacts", Run: runCleanTests},
		{Name: "clean", Help: "Run all clean stages", Pre: []string{"clean-build", "clean-python", "clean-tests", "clean-docs"}},
		{Name: "dist", Help: "Build source and wheel packages with poetry", Pre: []string{"clean"}, Run: runDist},
		{Name: "release-poetry", Help: "Publish the package to PyPI with poetry", Pre: []string{"clean", "dist"}, Check: checkRelease, Run: runReleasePoetry},
	}
}

func codeDirs(x *Executor) string {
	return strings.Join(QuoteAll(x.Paths.CodeDirs()), " ")
}

func runFormat(ctx context.Context, x *Executor) error {
	blackOptions, isortOptions := "", ""
	if x.Options.Check {
		blackOptions = "--check"
		isortOptions = "--check-only --diff"
	}
	return x.runAll(ctx,
		Cmd("black", blackOptions, codeDirs(x)),
		Cmd("isort", isortOptions, codeDirs(x)),
	)
}

func runLintPylint(ctx context.Context, x *Executor) error {
	return x.run(ctx, Cmd("pylint", codeDirs(x)))
}

func runLintRuff(ctx context.Context, x *Executor) error {
	return x.run(ctx, Cmd("ruff", "check", codeDirs(x)))
}

func runLintMypy(ctx context.Context, x *Executor) error {
	return x.run(ctx, Cmd("mypy", codeDirs(x)))
}

func runSecurityBandit(ctx context.Context, x *Executor) error {
	return x.run(ctx, Cmd("bandit", "-c", "pyproject.toml", "-r", Quote(x.Paths.SourceDir)))
}

func runSecuritySafety(ctx context.Context, x *Executor) error {
	if err := x.mkdirAll(x.Paths.BinDir); err != nil {
		return err
	}
	req := x.Paths.SafetyRequirementsFile
	return x.runAll(ctx,
		Cmd("poetry", "export", "--with", "dev", "--format=requirements.txt", "--without-hashes", Quote("--output="+req)),
		Cmd("safety", "check", Quote("--file="+req), "--full-report"),
	)
}

func checkTest(o Options) error {
	switch o.Coverage {
	case "", "term", "html", "xml":
		return nil
	default:
		return fmt.Errorf("coverage must be one of term, html or xml, got %q", o.Coverage)
	}
}

// pytestArgs builds the pytest argument list from the test options
func pytestArgs(p Paths, o Options) []string {
	args := []string{"-n", "auto"}
	for _, a := range strings.Fields(o.Args) {
		args = append(args, Quote(a))
	}
	if o.Key != "" {
		args = append(args, Quote("-k="+o.Key))
	}
	if o.JUnit {
		args = append(args, Quote("--junitxml="+p.JUnitXMLFile))
	}
	if o.Coverage != "" {
		args = append(args,
			Quote("--cov="+p.SourceDir),
			"--cov-report=term",
			"--cov-fail-under="+strconv.Itoa(o.FailUnder),
		)
		switch o.Coverage {
		case "html":
			args = append(args, Quote("--cov-report=html:"+p.CoverageHTMLDir))
		case "xml":
			args = append(args, Quote("--cov-report=xml:"+p.CoverageXMLFile))
		}
	}
	return append(args, Quote(p.TestDir))
}

func runTest(ctx context.Context, x *Executor) error {
	cmd := Cmd(append([]string{"pytest"}, pytestArgs(x.Paths, x.Options)...)...)
	if err := x.run(ctx, cmd); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			exitErr.Message = "Tests failed"
		}
		return err
	}
	if x.Options.Coverage == "html" {
		x.open(ctx, fileURL(x.Paths.CoverageHTMLFile))
	}
	return nil
}

func runDocs(ctx context.Context, x *Executor) error {
	p := x.Paths
	err := x.runAll(ctx,
		// autodoc stub files
		Cmd("sphinx-apidoc", "-e", "-P", "-o", Quote(p.DocsSourceDir), Quote(p.SourceDir)),
		Cmd("sphinx-build", "-b", "html", Quote(p.DocsDir), Quote(p.DocsBuildDir)),
	)
	if err != nil {
		return err
	}
	if x.Options.Launch {
		x.open(ctx, fileURL(p.DocsIndex))
	}
	return nil
}

func runDist(ctx context.Context, x *Executor) error {
	return x.run(ctx, Cmd("poetry", "build"))
}

func checkRelease(o Options) error {
	if o.PyPIUser == "" {
		return fmt.Errorf("%w: pypi user", ErrMissingOption)
	}
	if o.PyPIPass == "" {
		return fmt.Errorf("%w: pypi password", ErrMissingOption)
	}
	if o.RepositoryURL == "" {
		return fmt.Errorf("%w: repository url", ErrMissingOption)
	}
	return nil
}

func runReleasePoetry(ctx context.Context, x *Executor) error {
	o := x.Options
	publish := Cmd("poetry", "publish", "-r", PyPIRepository, "-u", Quote(o.PyPIUser), "-p", Quote(o.PyPIPass))
	publish.Secrets = []string{Quote(o.PyPIPass)}
	return x.runAll(ctx,
		Cmd("poetry", "config", "repositories."+PyPIRepository, Quote(o.RepositoryURL)),
		publish,
	)
}
