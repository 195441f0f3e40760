package arconnect

import (
	"fmt"
	"sync/atomic"
)

// CoreID identifies one core of the machine.
type CoreID uint8

// InterruptLines is the interrupt input of one core.
type InterruptLines interface {
	// Raise asserts a line.
	Raise(line int)
	// Lower deasserts a line.
	Lower(line int)
	// Level reports whether a line is asserted.
	Level(line int) bool
}

// CoreState is the per-core state owned by the unit.
//
// The status word, the write data register and the readback register are
// accessed atomically so that they can be polled without the command lock.
type CoreState struct {
	id    CoreID
	lines InterruptLines

	// status has bit s set while core s has an unacknowledged inter-core
	// interrupt pending against this core.
	status   atomic.Uint32
	wdata    atomic.Uint32
	readback atomic.Uint32
}

// ID returns the core id.
func (s *CoreState) ID() CoreID {
	return s.id
}

// Status returns the inter-core interrupt status word.
func (s *CoreState) Status() uint32 {
	return s.status.Load()
}

// WriteData returns the staged write data.
func (s *CoreState) WriteData() uint32 {
	return s.wdata.Load()
}

// Readback returns the result of the last read-type command.
func (s *CoreState) Readback() uint32 {
	return s.readback.Load()
}

// Lines returns the core's interrupt input.
func (s *CoreState) Lines() InterruptLines {
	return s.lines
}

func (s *CoreState) reset() {
	s.status.Store(0)
	s.wdata.Store(0)
	s.readback.Store(0)
}

// Registry resolves core ids to core state. The topology is fixed at
// construction, so lookups take no lock.
type Registry struct {
	cores []*CoreState
}

// NewRegistry creates a registry with one core per entry of lines. Core i
// uses lines[i] as its interrupt input.
func NewRegistry(lines []InterruptLines) (*Registry, error) {
	if len(lines) == 0 || len(lines) > MaxCores {
		return nil, fmt.Errorf("core count must be in [1, %d], got %d", MaxCores, len(lines))
	}

	r := &Registry{cores: make([]*CoreState, len(lines))}
	for i, l := range lines {
		if l == nil {
			return nil, fmt.Errorf("core %d has no interrupt lines", i)
		}
		r.cores[i] = &CoreState{id: CoreID(i), lines: l}
	}
	return r, nil
}

// NumCores returns the number of cores.
func (r *Registry) NumCores() int {
	return len(r.cores)
}

// Resolve returns the state of a core.
func (r *Registry) Resolve(id CoreID) (*CoreState, error) {
	if int(id) >= len(r.cores) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCore, id)
	}
	return r.cores[id], nil
}

// Cores returns every core in id order.
func (r *Registry) Cores() []*CoreState {
	cores := make([]*CoreState, len(r.cores))
	copy(cores, r.cores)
	return cores
}
