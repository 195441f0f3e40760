// Package machine assembles a multi-core ARC machine around one ARConnect
// unit. It gives each core its own interrupt controller and a handle for
// auxiliary register access.
package machine

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/arcsim/arconnect"
	"github.com/sarchlab/arcsim/irq"
)

// Stats holds activity counters for the whole machine.
type Stats struct {
	// Unit holds the ARConnect counters.
	Unit arconnect.Statistics
	// Raises is the total number of line raises over all cores.
	Raises uint64
	// Lowers is the total number of line lowers over all cores.
	Lowers uint64
}

// Machine is a set of cores sharing one ARConnect unit.
type Machine struct {
	config *arconnect.Config
	unit   *arconnect.Unit
	cores  []*Core

	logger    *slog.Logger
	traceIRQs bool
}

// Option is a functional option for configuring the Machine.
type Option func(*Machine)

// WithLogger sets the logger shared by the unit and the IRQ tracer.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithIRQTrace logs every interrupt line change at debug level.
func WithIRQTrace() Option {
	return func(m *Machine) {
		m.traceIRQs = true
	}
}

// New creates a machine with config.NumCores cores.
func New(config *arconnect.Config, opts ...Option) (*Machine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid machine config: %w", err)
	}

	m := &Machine{
		config: config.Clone(),
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(m)
	}

	controllers := make([]*irq.Controller, config.NumCores)
	lines := make([]arconnect.InterruptLines, config.NumCores)
	for i := range controllers {
		controllers[i] = irq.NewController(i, config.NumLines())
		if m.traceIRQs {
			controllers[i].AcceptHook(irq.NewLogTracer(m.logger))
		}
		lines[i] = controllers[i]
	}

	unit, err := arconnect.NewUnit(config, lines, arconnect.WithLogger(m.logger))
	if err != nil {
		return nil, err
	}
	m.unit = unit

	m.cores = make([]*Core, config.NumCores)
	for i := range m.cores {
		m.cores[i] = &Core{
			id:    arconnect.CoreID(i),
			irq:   controllers[i],
			unit:  unit,
			ici:   config.ICILine,
			base:  config.CirqLineBase,
			ncirq: config.NumCirqs,
		}
	}

	return m, nil
}

// Config returns a copy of the machine configuration.
func (m *Machine) Config() *arconnect.Config {
	return m.config.Clone()
}

// Unit returns the shared ARConnect unit.
func (m *Machine) Unit() *arconnect.Unit {
	return m.unit
}

// NumCores returns the number of cores.
func (m *Machine) NumCores() int {
	return len(m.cores)
}

// Core returns the handle of a core.
func (m *Machine) Core(id int) (*Core, error) {
	if id < 0 || id >= len(m.cores) {
		return nil, fmt.Errorf("%w: %d", arconnect.ErrUnknownCore, id)
	}
	return m.cores[id], nil
}

// Cores returns every core handle in id order.
func (m *Machine) Cores() []*Core {
	return m.cores
}

// Stats returns activity counters for the whole machine.
func (m *Machine) Stats() Stats {
	stats := Stats{Unit: m.unit.Stats()}
	for _, c := range m.cores {
		s := c.irq.Stats()
		stats.Raises += s.Raises
		stats.Lowers += s.Lowers
	}
	return stats
}

// Reset returns the unit and every core's interrupt input to power-on
// state.
func (m *Machine) Reset() {
	m.unit.Reset()
	for _, c := range m.cores {
		c.irq.Reset()
	}
}
