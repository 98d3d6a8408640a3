package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
)

// ErrUnknownTask is returned for a name that is not in the catalog
var ErrUnknownTask = errors.New("unknown task")

// ErrMissingOption is returned when a task is started without a required option
var ErrMissingOption = errors.New("missing required option")

// Task is one entry of the catalog. Aggregate tasks have only Pre.
type Task struct {
	Name  string
	Help  string
	Pre   []string
	Check func(o Options) error // validates options before anything runs
	Run   func(ctx context.Context, x *Executor) error
}

// Options carries the flags of the task being invoked. Pre-tasks see the same values
// but none of them reads any.
type Options struct {
	Check         bool   // format: check only
	JUnit         bool   // test: write junit xml
	Coverage      string // test: "" off, "term", "html" or "xml"
	FailUnder     int    // test: coverage threshold
	Args          string // test: extra pytest arguments, whitespace separated
	Key           string // test: pytest -k expression
	Launch        bool   // docs: open the built docs
	PyPIUser      string // release-poetry
	PyPIPass      string // release-poetry
	RepositoryURL string // release-poetry: upload endpoint
}

// DefaultOptions mirrors the flag defaults of the CLI
func DefaultOptions() Options {
	return Options{
		FailUnder:     CoverageFailUnder,
		Launch:        true,
		RepositoryURL: PyPIUploadURL,
	}
}

// Executor runs tasks with their pre-tasks, each at most once per Run
type Executor struct {
	Runner  CommandRunner
	Paths   Paths
	Options Options
	DryRun  bool // skip file system changes; Runner is expected to be a DryRunner
	OpenURL func(ctx context.Context, url string) error

	tasks map[string]*Task
	order []string
}

// NewExecutor returns an executor over the default catalog
func NewExecutor(runner CommandRunner, paths Paths, opts Options) *Executor {
	x := &Executor{
		Runner:  runner,
		Paths:   paths,
		Options: opts,
		tasks:   make(map[string]*Task),
	}
	x.OpenURL = func(ctx context.Context, url string) error {
		return openBrowser(ctx, x.Runner, url)
	}
	for _, t := range Catalog() {
		x.register(t)
	}
	return x
}

func (x *Executor) register(t *Task) {
	if _, dup := x.tasks[t.Name]; !dup {
		x.order = append(x.order, t.Name)
	}
	x.tasks[t.Name] = t
}

// Tasks returns the registered tasks in catalog order
func (x *Executor) Tasks() []*Task {
	out := make([]*Task, 0, len(x.order))
	for _, name := range x.order {
		out = append(out, x.tasks[name])
	}
	return out
}

// Plan lists the tasks Run would execute for name, pre-tasks first, without duplicates
func (x *Executor) Plan(name string) ([]*Task, error) {
	var (
		plan     []*Task
		done     = make(map[string]bool)
		visiting = make(map[string]bool)
	)
	var visit func(name string) error
	visit = func(name string) error {
		if done[name] {
			return nil
		}
		t, ok := x.tasks[name]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownTask, name)
		}
		if visiting[name] {
			return fmt.Errorf("task %s depends on itself", name)
		}
		visiting[name] = true
		for _, pre := range t.Pre {
			if err := visit(pre); err != nil {
				return err
			}
		}
		visiting[name] = false
		done[name] = true
		plan = append(plan, t)
		return nil
	}
	if err := visit(name); err != nil {
		return nil, err
	}
	return plan, nil
}

// Run executes name and its pre-tasks sequentially, stopping at the first failure
func (x *Executor) Run(ctx context.Context, name string) error {
	plan, err := x.Plan(name)
	if err != nil {
		return err
	}
	if target := plan[len(plan)-1]; target.Check != nil {
		if err := target.Check(x.Options); err != nil {
			return fmt.Errorf("task %s: %w", name, err)
		}
	}

	for _, t := range plan {
		if t.Run == nil {
			continue
		}
		log.Printf("[TASKS]: Running %s", t.Name)
		if err := t.Run(ctx, x); err != nil {
			var exitErr *ExitError
			if errors.As(err, &exitErr) {
				if exitErr.Task == "" {
					exitErr.Task = t.Name
				}
				return exitErr
			}
			return fmt.Errorf("task %s: %w", t.Name, err)
		}
	}
	return nil
}

// run executes a single command line
func (x *Executor) run(ctx context.Context, cmd Command) error {
	log.Printf("[TASKS]: %s", cmd)
	return x.Runner.Run(ctx, cmd)
}

// runAll executes commands in order, stopping at the first failure
func (x *Executor) runAll(ctx context.Context, cmds ...Command) error {
	for _, cmd := range cmds {
		if err := x.run(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// open shows url in a browser; failures are only logged
func (x *Executor) open(ctx context.Context, url string) {
	if x.OpenURL == nil {
		return
	}
	if err := x.OpenURL(ctx, url); err != nil {
		log.Printf("[TASKS]: Warning: cannot open %s: %v", url, err)
	}
}

func (x *Executor) mkdirAll(path string) error {
	if x.DryRun {
		log.Printf("[TASKS]: would create %s", path)
		return nil
	}
	return os.MkdirAll(path, 0o755)
}
