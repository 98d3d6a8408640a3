package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRunner records command lines and fails those starting with a prefix in fail
type recordingRunner struct {
	lines  []string
	masked []string
	fail   map[string]int
}

func (r *recordingRunner) Run(_ context.Context, cmd Command) error {
	r.lines = append(r.lines, cmd.Line)
	r.masked = append(r.masked, cmd.String())
	for prefix, code := range r.fail {
		if strings.HasPrefix(cmd.Line, prefix) {
			return &ExitError{Command: cmd.String(), Code: code}
		}
	}
	return nil
}

type fixture struct {
	x      *Executor
	runner *recordingRunner
	opened []string
	paths  Paths
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	paths, err := NewPaths(t.TempDir(), "", "")
	require.NoError(t, err)
	f := &fixture{runner: &recordingRunner{}, paths: paths}
	f.x = NewExecutor(f.runner, paths, opts)
	f.x.OpenURL = func(_ context.Context, url string) error {
		f.opened = append(f.opened, url)
		return nil
	}
	return f
}

func planNames(t *testing.T, x *Executor, name string) []string {
	t.Helper()
	plan, err := x.Plan(name)
	require.NoError(t, err)
	names := make([]string, len(plan))
	for i, task := range plan {
		names[i] = task.Name
	}
	return names
}

func TestPlanRunsPreTasksOnce(t *testing.T) {
	f := newFixture(t, DefaultOptions())

	assert.Equal(t,
		[]string{"clean-build", "clean-python", "clean-tests", "clean-docs", "clean", "dist", "release-poetry"},
		planNames(t, f.x, "release-poetry"))
	assert.Equal(t, []string{"lint-pylint", "lint-ruff", "lint-mypy", "lint"}, planNames(t, f.x, "lint"))
	assert.Equal(t, []string{"security-bandit", "security-safety", "security"}, planNames(t, f.x, "security"))
	assert.Equal(t, []string{"clean-docs", "docs"}, planNames(t, f.x, "docs"))
	assert.Equal(t, []string{"format"}, planNames(t, f.x, "format"))
}

func TestPlanErrors(t *testing.T) {
	f := newFixture(t, DefaultOptions())

	_, err := f.x.Plan("deploy")
	assert.ErrorIs(t, err, ErrUnknownTask)

	f.x.register(&Task{Name: "a", Pre: []string{"b"}})
	f.x.register(&Task{Name: "b", Pre: []string{"a"}})
	_, err = f.x.Plan("a")
	assert.ErrorContains(t, err, "depends on itself")

	assert.ErrorIs(t, f.x.Run(context.Background(), "deploy"), ErrUnknownTask)
}

func TestCatalogIsComplete(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	var names []string
	for _, task := range f.x.Tasks() {
		names = append(names, task.Name)
		assert.NotEmpty(t, task.Help, task.Name)
		assert.True(t, task.Run != nil || len(task.Pre) > 0, task.Name)
	}
	for _, want := range []string{
		"format", "lint", "lint-pylint", "lint-ruff", "lint-mypy",
		"security", "security-bandit", "security-safety", "test", "docs",
		"clean", "clean-build", "clean-python", "clean-tests", "clean-docs", "dist", "release-poetry",
	} {
		assert.Contains(t, names, want)
	}
}

func TestFormat(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	dirs := f.paths.SourceDir + " " + f.paths.TestDir

	require.NoError(t, f.x.Run(context.Background(), "format"))
	assert.Equal(t, []string{"black " + dirs, "isort " + dirs}, f.runner.lines)

	f.runner.lines = nil
	f.x.Options.Check = true
	require.NoError(t, f.x.Run(context.Background(), "format"))
	assert.Equal(t, []string{"black --check " + dirs, "isort --check-only --diff " + dirs}, f.runner.lines)
}

func TestLint(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	dirs := f.paths.SourceDir + " " + f.paths.TestDir

	require.NoError(t, f.x.Run(context.Background(), "lint"))
	assert.Equal(t, []string{"pylint " + dirs, "ruff check " + dirs, "mypy " + dirs}, f.runner.lines)
}

func TestLintStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.runner.fail = map[string]int{"ruff": 2}

	err := f.x.Run(context.Background(), "lint")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Equal(t, "lint-ruff", exitErr.Task)
	assert.Len(t, f.runner.lines, 2, "mypy must not run after ruff failed")
}

func TestSecurity(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	req := f.paths.SafetyRequirementsFile

	require.NoError(t, f.x.Run(context.Background(), "security"))
	assert.Equal(t, []string{
		"bandit -c pyproject.toml -r " + f.paths.SourceDir,
		"poetry export --with dev --format=requirements.txt --without-hashes --output=" + req,
		"safety check --file=" + req + " --full-report",
	}, f.runner.lines)
	assert.DirExists(t, f.paths.BinDir)
}

func TestPytestArgs(t *testing.T) {
	p, err := NewPaths("/srv/spend-pi", "", "")
	require.NoError(t, err)
	tests := p.TestDir

	cases := []struct {
		name string
		opts Options
		want string
	}{
		{"defaults", DefaultOptions(), "-n auto " + tests},
		{
			"args and key",
			Options{Args: "-vv  -x", Key: "not integration"},
			"-n auto -vv -x '-k=not integration' " + tests,
		},
		{
			"junit",
			Options{JUnit: true},
			"-n auto --junitxml=" + p.JUnitXMLFile + " " + tests,
		},
		{
			"coverage term",
			Options{Coverage: "term", FailUnder: 75},
			"-n auto --cov=" + p.SourceDir + " --cov-report=term --cov-fail-under=75 " + tests,
		},
		{
			"coverage html",
			Options{Coverage: "html"},
			"-n auto --cov=" + p.SourceDir + " --cov-report=term --cov-fail-under=0 --cov-report=html:" + p.CoverageHTMLDir + " " + tests,
		},
		{
			"coverage xml",
			Options{Coverage: "xml"},
			"-n auto --cov=" + p.SourceDir + " --cov-report=term --cov-fail-under=0 --cov-report=xml:" + p.CoverageXMLFile + " " + tests,
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, strings.Join(pytestArgs(p, tt.opts), " "))
		})
	}
}

func TestTestTask(t *testing.T) {
	f := newFixture(t, Options{Coverage: "html"})

	require.NoError(t, f.x.Run(context.Background(), "test"))
	require.Len(t, f.runner.lines, 1)
	assert.True(t, strings.HasPrefix(f.runner.lines[0], "pytest -n auto "))
	require.Len(t, f.opened, 1)
	assert.True(t, strings.HasPrefix(f.opened[0], "file://"))
	assert.True(t, strings.HasSuffix(f.opened[0], "/bin/coverage_html/index.html"))
}

func TestTestTaskFailure(t *testing.T) {
	f := newFixture(t, Options{Coverage: "html"})
	f.runner.fail = map[string]int{"pytest": 3}

	err := f.x.Run(context.Background(), "test")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "Tests failed", exitErr.Message)
	assert.Equal(t, "task test: Tests failed (exit code 3)", exitErr.Error())
	assert.Empty(t, f.opened, "no report is opened for a failed run")
}

func TestTestTaskRejectsUnknownCoverage(t *testing.T) {
	f := newFixture(t, Options{Coverage: "pdf"})
	assert.Error(t, f.x.Run(context.Background(), "test"))
	assert.Empty(t, f.runner.lines)
}

func TestDocs(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	p := f.paths
	require.NoError(t, os.MkdirAll(p.DocsBuildDir, 0o755))
	require.NoError(t, os.MkdirAll(p.DocsSourceDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(p.DocsDir, "conf.py"), nil, 0o644))

	require.NoError(t, f.x.Run(context.Background(), "docs"))
	assert.NoDirExists(t, p.DocsBuildDir)
	assert.NoDirExists(t, p.DocsSourceDir)
	assert.FileExists(t, filepath.Join(p.DocsDir, "conf.py"))
	assert.Equal(t, []string{
		"sphinx-apidoc -e -P -o " + p.DocsSourceDir + " " + p.SourceDir,
		"sphinx-build -b html " + p.DocsDir + " " + p.DocsBuildDir,
	}, f.runner.lines)
	assert.Equal(t, []string{fileURL(p.DocsIndex)}, f.opened)

	f.opened = nil
	f.x.Options.Launch = false
	require.NoError(t, f.x.Run(context.Background(), "docs"))
	assert.Empty(t, f.opened)
}

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		path := filepath.Join(root, filepath.FromSlash(r))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
}

func TestClean(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	root := f.paths.Root

	removed := []string{
		"build/lib/a.py",
		"dist/spend_pi-0.1.0.tar.gz",
		".eggs/x/y",
		"spend_pi.egg-info/PKG-INFO",
		"lib/old.egg",
		"api/__pycache__/index.cpython-311.pyc",
		"api/index.pyc",
		"api/index.pyo",
		"api/index.py~",
		"bin/report.xml",
		"bin/coverage_html/index.html",
		".tox/py311/log",
		"docs/_build/index.html",
		"docs/source/api.rst",
	}
	kept := []string{
		"api/index.py",
		"tests/test_routes.py",
		"docs/conf.py",
		"pyproject.toml",
	}
	touch(t, root, removed...)
	touch(t, root, kept...)

	require.NoError(t, f.x.Run(context.Background(), "clean"))
	assert.Empty(t, f.runner.lines)

	for _, r := range removed {
		assert.NoFileExists(t, filepath.Join(root, filepath.FromSlash(r)), r)
	}
	for _, r := range kept {
		assert.FileExists(t, filepath.Join(root, filepath.FromSlash(r)), r)
	}
	for _, d := range []string{"build", "dist", ".eggs", "spend_pi.egg-info", "api/__pycache__", "bin", ".tox"} {
		assert.NoDirExists(t, filepath.Join(root, filepath.FromSlash(d)), d)
	}
}

func TestDryRunKeepsFiles(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.x.DryRun = true
	touch(t, f.paths.Root, "build/a", "api/index.pyc", "docs/_build/index.html")

	require.NoError(t, f.x.Run(context.Background(), "dist"))
	assert.Equal(t, []string{"poetry build"}, f.runner.lines)
	assert.FileExists(t, filepath.Join(f.paths.Root, "build", "a"))
	assert.FileExists(t, filepath.Join(f.paths.Root, "api", "index.pyc"))
	assert.FileExists(t, filepath.Join(f.paths.Root, "docs", "_build", "index.html"))
}

func TestReleasePoetry(t *testing.T) {
	opts := DefaultOptions()
	f := newFixture(t, opts)
	err := f.x.Run(context.Background(), "release-poetry")
	assert.ErrorIs(t, err, ErrMissingOption)
	assert.Empty(t, f.runner.lines, "nothing runs when options are missing")

	opts.PyPIUser = "spend"
	opts.PyPIPass = "s3cr3t!"
	f = newFixture(t, opts)
	require.NoError(t, f.x.Run(context.Background(), "release-poetry"))
	assert.Equal(t, []string{
		"poetry build",
		"poetry config repositories.pypi_upload " + PyPIUploadURL,
		"poetry publish -r pypi_upload -u spend -p 's3cr3t!'",
	}, f.runner.lines)
	assert.Equal(t, "poetry publish -r pypi_upload -u spend -p ****", f.runner.masked[2])
}

func TestExecutorWrapsNonExitErrors(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	boom := errors.New("boom")
	f.x.register(&Task{Name: "broken", Help: "fails", Run: func(context.Context, *Executor) error { return boom }})

	err := f.x.Run(context.Background(), "broken")
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "task broken")
}

func TestNewPaths(t *testing.T) {
	p, err := NewPaths("/srv/app", "spend_pi", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.Root, "spend_pi"), p.SourceDir)
	assert.Equal(t, filepath.Join(p.Root, DefaultTestDir), p.TestDir)
	assert.Equal(t, filepath.Join(p.Root, "bin", "coverage_html", "index.html"), p.CoverageHTMLFile)
	assert.Equal(t, filepath.Join(p.Root, "docs", "_build", "index.html"), p.DocsIndex)
	assert.Equal(t, []string{p.SourceDir, p.TestDir}, p.CodeDirs())
}
