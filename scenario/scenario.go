// Package scenario describes multi-core ARConnect workloads as JSON files and
// runs them against a machine.
//
// A scenario is a list of phases. Each phase is a list of steps, one command
// per step, issued by the step's core. In a parallel phase every core issues
// its own steps from its own goroutine; otherwise steps run in file order.
// After a phase, optional line checks compare interrupt line levels.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/arcsim/arconnect"
)

// Step is one command issued by one core.
type Step struct {
	// Core is the issuing core.
	Core int `json:"core"`
	// Command is the command name, e.g. "idu_gen_cirq".
	Command string `json:"command"`
	// Param is the 16-bit command parameter.
	Param uint16 `json:"param,omitempty"`
	// Data is staged in the write data register before the command.
	Data uint32 `json:"data,omitempty"`
	// Expect, if set, is the expected readback value after the command.
	Expect *uint32 `json:"expect,omitempty"`
	// ExpectError, if set, names the error the command must fail with.
	ExpectError string `json:"expect_error,omitempty"`
}

// LineCheck asserts the level of one interrupt line of one core.
type LineCheck struct {
	// Core is the core whose line is checked.
	Core int `json:"core"`
	// Cirq selects a common IRQ line. Nil selects the ICI line.
	Cirq *int `json:"cirq,omitempty"`
	// Level is the expected line level.
	Level bool `json:"level"`
}

// Phase is a group of steps.
type Phase struct {
	// Name identifies the phase in reports.
	Name string `json:"name"`
	// Parallel runs each core's steps on its own goroutine.
	Parallel bool `json:"parallel,omitempty"`
	// Steps are the commands of the phase.
	Steps []Step `json:"steps"`
	// Lines are checked after every step of the phase completed.
	Lines []LineCheck `json:"lines,omitempty"`
}

// Scenario is a complete workload.
type Scenario struct {
	// Name identifies the scenario.
	Name string `json:"name"`
	// Description explains what the scenario exercises.
	Description string `json:"description,omitempty"`
	// Config, if set, is the machine the scenario expects.
	Config *arconnect.Config `json:"config,omitempty"`
	// Phases run in order.
	Phases []Phase `json:"phases"`
}

var errorsByName = map[string]error{
	"unknown_core":            arconnect.ErrUnknownCore,
	"invalid_line_index":      arconnect.ErrInvalidLineIndex,
	"invalid_access":          arconnect.ErrInvalidAccess,
	"unsupported_command":     arconnect.ErrUnsupportedCommand,
	"no_destination":          arconnect.ErrNoDestination,
	"invalid_mode":            arconnect.ErrInvalidMode,
	"invalid_semaphore_index": arconnect.ErrInvalidSemaphoreIndex,
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	// Config fields missing from the file keep their default values.
	var raw struct {
		Scenario
		Config json.RawMessage `json:"config,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	s := &raw.Scenario
	if len(raw.Config) > 0 {
		s.Config = arconnect.DefaultConfig()
		if err := json.Unmarshal(raw.Config, s.Config); err != nil {
			return nil, fmt.Errorf("failed to parse scenario config: %w", err)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate checks that every command and expected error name is known.
// Core ids are checked when the scenario runs, since they depend on the
// machine.
func (s *Scenario) Validate() error {
	if s.Config != nil {
		if err := s.Config.Validate(); err != nil {
			return fmt.Errorf("scenario %q: %w", s.Name, err)
		}
	}

	for _, phase := range s.Phases {
		for i, step := range phase.Steps {
			if _, err := arconnect.CommandByName(step.Command); err != nil {
				return fmt.Errorf("phase %q step %d: %w", phase.Name, i, err)
			}
			if step.ExpectError == "" {
				continue
			}
			if _, ok := errorsByName[step.ExpectError]; !ok {
				return fmt.Errorf("phase %q step %d: unknown error name %q",
					phase.Name, i, step.ExpectError)
			}
		}
	}

	return nil
}

// NumSteps returns the number of steps over all phases.
func (s *Scenario) NumSteps() int {
	n := 0
	for _, phase := range s.Phases {
		n += len(phase.Steps)
	}
	return n
}
