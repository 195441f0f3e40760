package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/arcsim/arconnect"
	"github.com/sarchlab/arcsim/machine"
)

// ErrConfigMismatch is returned when a scenario pins a machine configuration
// that differs from the machine it is run on.
var ErrConfigMismatch = errors.New("scenario config does not match machine")

// Failure describes one step or line check whose outcome was not the
// expected one.
type Failure struct {
	Phase   string `json:"phase"`
	Step    int    `json:"step"`
	Core    int    `json:"core"`
	Message string `json:"message"`
}

// String formats the failure as phase[step]: core N: message. Line check
// failures omit the step.
func (f Failure) String() string {
	if f.Step < 0 {
		return fmt.Sprintf("%s: core %d: %s", f.Phase, f.Core, f.Message)
	}
	return fmt.Sprintf("%s[%d]: core %d: %s", f.Phase, f.Step, f.Core, f.Message)
}

// Result holds the outcome of one scenario run.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Steps is the number of steps executed.
	Steps int `json:"steps"`

	// Failures lists every unmet expectation.
	Failures []Failure `json:"failures,omitempty"`

	// Stats are the machine counters after the run.
	Stats machine.Stats `json:"stats"`

	// WallTime is the time taken to run the scenario.
	WallTime time.Duration `json:"wall_time_ns"`
}

// Passed reports whether every expectation was met.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Runner runs scenarios against one machine.
type Runner struct {
	machine *machine.Machine
	logger  *slog.Logger

	// overrideConfig runs scenarios whatever config they pin.
	overrideConfig bool
}

// RunnerOption is a functional option for configuring the Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger used for phase progress.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithConfigOverride runs scenarios on the runner's machine even when they
// pin a different config. Core and line references are still checked.
func WithConfigOverride() RunnerOption {
	return func(r *Runner) {
		r.overrideConfig = true
	}
}

// NewRunner creates a runner for the given machine.
func NewRunner(m *machine.Machine, opts ...RunnerOption) *Runner {
	r := &Runner{
		machine: m,
		logger:  slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run executes every phase of s in order. Unmet expectations are collected
// in the result; the returned error is reserved for scenarios that cannot
// run on this machine and for cancellation.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Result, error) {
	if err := r.check(s); err != nil {
		return nil, err
	}

	result := &Result{Name: s.Name}
	start := time.Now()

	for _, phase := range s.Phases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r.logger.Info("Phase",
			"Scenario", s.Name,
			"Phase", phase.Name,
			"Steps", len(phase.Steps),
			"Parallel", phase.Parallel,
		)

		var (
			failures []Failure
			err      error
		)
		if phase.Parallel {
			failures, err = r.runParallel(ctx, phase)
		} else {
			failures, err = r.runSequential(ctx, phase)
		}
		if err != nil {
			return nil, err
		}

		result.Steps += len(phase.Steps)
		result.Failures = append(result.Failures, failures...)
		result.Failures = append(result.Failures, r.checkLines(phase)...)
	}

	result.WallTime = time.Since(start)
	result.Stats = r.machine.Stats()

	return result, nil
}

// check rejects scenarios that reference cores or lines the machine lacks.
func (r *Runner) check(s *Scenario) error {
	config := r.machine.Config()
	if !r.overrideConfig && s.Config != nil && *s.Config != *config {
		return fmt.Errorf("%w: %q", ErrConfigMismatch, s.Name)
	}

	for _, phase := range s.Phases {
		for i, step := range phase.Steps {
			if _, err := r.machine.Core(step.Core); err != nil {
				return fmt.Errorf("phase %q step %d: %w", phase.Name, i, err)
			}
		}
		for _, lc := range phase.Lines {
			if _, err := r.machine.Core(lc.Core); err != nil {
				return fmt.Errorf("phase %q line check: %w", phase.Name, err)
			}
			if lc.Cirq != nil && (*lc.Cirq < 0 || *lc.Cirq >= config.NumCirqs) {
				return fmt.Errorf("phase %q line check: %w: cirq %d",
					phase.Name, arconnect.ErrInvalidLineIndex, *lc.Cirq)
			}
		}
	}

	return nil
}

func (r *Runner) runSequential(ctx context.Context, phase Phase) ([]Failure, error) {
	var failures []Failure
	for i, step := range phase.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f, failed := r.runStep(phase.Name, i, step); failed {
			failures = append(failures, f)
		}
	}
	return failures, nil
}

// runParallel gives every core its own goroutine. A core's steps keep their
// file order; steps of different cores interleave freely.
func (r *Runner) runParallel(ctx context.Context, phase Phase) ([]Failure, error) {
	byCore := make([][]int, r.machine.NumCores())
	for i, step := range phase.Steps {
		byCore[step.Core] = append(byCore[step.Core], i)
	}

	perCore := make([][]Failure, len(byCore))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(byCore))

	for core, indices := range byCore {
		if len(indices) == 0 {
			continue
		}
		g.Go(func() error {
			for _, i := range indices {
				if err := gctx.Err(); err != nil {
					return err
				}
				if f, failed := r.runStep(phase.Name, i, phase.Steps[i]); failed {
					perCore[core] = append(perCore[core], f)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var failures []Failure
	for _, fs := range perCore {
		failures = append(failures, fs...)
	}
	return failures, nil
}

func (r *Runner) runStep(phase string, index int, step Step) (Failure, bool) {
	fail := func(format string, args ...any) (Failure, bool) {
		return Failure{
			Phase:   phase,
			Step:    index,
			Core:    step.Core,
			Message: fmt.Sprintf(format, args...),
		}, true
	}

	c, err := r.machine.Core(step.Core)
	if err != nil {
		return fail("%v", err)
	}
	cmd, err := arconnect.CommandByName(step.Command)
	if err != nil {
		return fail("%v", err)
	}

	value, err := c.Exec(cmd, step.Param, step.Data)

	if step.ExpectError != "" {
		want := errorsByName[step.ExpectError]
		if err == nil {
			return fail("%s: expected error %s, got none", step.Command, step.ExpectError)
		}
		if !errors.Is(err, want) {
			return fail("%s: expected error %s, got %v", step.Command, step.ExpectError, err)
		}
		return Failure{}, false
	}

	if err != nil {
		return fail("%s: unexpected error: %v", step.Command, err)
	}

	if step.Expect != nil && value != *step.Expect {
		return fail("%s: readback 0x%x, expected 0x%x", step.Command, value, *step.Expect)
	}

	return Failure{}, false
}

func (r *Runner) checkLines(phase Phase) []Failure {
	var failures []Failure
	for _, lc := range phase.Lines {
		c, _ := r.machine.Core(lc.Core)

		name := "ici"
		level := c.ICIPending()
		if lc.Cirq != nil {
			name = fmt.Sprintf("cirq %d", *lc.Cirq)
			level = c.CirqPending(*lc.Cirq)
		}

		if level != lc.Level {
			failures = append(failures, Failure{
				Phase:   phase.Name,
				Step:    -1,
				Core:    lc.Core,
				Message: fmt.Sprintf("%s line is %v, expected %v", name, level, lc.Level),
			})
		}
	}
	return failures
}
