// Package arconnect models the ARConnect inter-core unit of a multi-core ARC
// machine.
//
// The unit offers three kinds of inter-core services, all driven by command
// words that a core writes into its command register:
//   - ICI: point-to-point inter-core interrupts with acknowledge.
//   - IDU: common IRQ lines distributed to a set of cores in round-robin,
//     first-acknowledge or all-destination mode.
//   - Semaphores: hardware semaphores claimed and released by cores.
//
// Usage:
//
//	unit, _ := arconnect.NewUnit(arconnect.DefaultConfig(), lines)
//	_ = unit.WriteRegister(0, arconnect.RegCommand,
//		arconnect.EncodeCommand(arconnect.CmdIntrptGenerateIRQ, 1))
package arconnect

import (
	"fmt"
	"log/slog"
	"sync"
)

// Statistics holds activity counters of the unit.
type Statistics struct {
	// Commands is the number of command words processed.
	Commands uint64
	// Errors is the number of command words that failed.
	Errors uint64
	// ICIRaised is the number of inter-core interrupts delivered.
	ICIRaised uint64
	// CirqDelivered is the number of per-core common IRQ deliveries.
	CirqDelivered uint64
}

// Unit is one ARConnect instance shared by all cores of a machine.
type Unit struct {
	config   *Config
	registry *Registry
	logger   *slog.Logger

	ici  *ICI
	idu  *IDU
	sema *Semaphores

	// mu serializes command processing across cores. The IDU's
	// first-acknowledge lock is only ever taken while mu is held.
	mu       sync.Mutex
	commands uint64
	errors   uint64
}

// Option is a functional option for configuring the Unit.
type Option func(*Unit)

// WithLogger sets the logger used for command tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(u *Unit) {
		u.logger = logger
	}
}

// NewUnit creates a unit for the given topology. lines holds the interrupt
// input of every core; its length must equal config.NumCores.
func NewUnit(config *Config, lines []InterruptLines, opts ...Option) (*Unit, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid arconnect config: %w", err)
	}
	if len(lines) != config.NumCores {
		return nil, fmt.Errorf("got interrupt lines for %d cores, config has %d",
			len(lines), config.NumCores)
	}

	registry, err := NewRegistry(lines)
	if err != nil {
		return nil, err
	}

	u := &Unit{
		config:   config.Clone(),
		registry: registry,
		logger:   slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(u)
	}

	u.ici = NewICI(registry, config.ICILine, u.logger)
	u.idu = NewIDU(registry, config.NumCirqs, config.CirqLineBase, u.logger)
	u.sema = NewSemaphores(config.NumSemaphores)

	return u, nil
}

// Config returns a copy of the unit's configuration.
func (u *Unit) Config() *Config {
	return u.config.Clone()
}

// Registry returns the core registry.
func (u *Unit) Registry() *Registry {
	return u.registry
}

// Stats returns the unit's activity counters.
func (u *Unit) Stats() Statistics {
	u.mu.Lock()
	defer u.mu.Unlock()

	return Statistics{
		Commands:      u.commands,
		Errors:        u.errors,
		ICIRaised:     u.ici.Raised(),
		CirqDelivered: u.idu.Delivered(),
	}
}

// Reset returns the unit to its power-on state: IDU disabled and cleared,
// semaphores free, status, write data and readback registers zero, counters
// zero. Interrupt line levels belong to the cores and are left alone.
func (u *Unit) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.idu.Disable()
	u.sema.Reset()
	for _, core := range u.registry.Cores() {
		core.reset()
	}

	u.commands = 0
	u.errors = 0
	u.ici.raised.Store(0)
	u.idu.delivered.Store(0)
}

// Execute processes one command word on behalf of a core, exactly as a write
// to the command register does.
func (u *Unit) Execute(id CoreID, word uint32) error {
	core, err := u.registry.Resolve(id)
	if err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	return u.process(core, word)
}

// process dispatches a command word. The caller holds u.mu.
func (u *Unit) process(core *CoreState, word uint32) error {
	cmd, param := DecodeCommand(word)

	u.logger.Debug("Command",
		"Core", core.id,
		"Command", cmd.String(),
		"Param", param,
	)

	u.commands++

	result, err := u.dispatch(core, cmd, param)
	if err != nil {
		u.errors++
		u.logger.Warn("Command",
			"Behavior", "Failed",
			"Core", core.id,
			"Command", cmd.String(),
			"Param", param,
			"Error", err,
		)
		return err
	}

	if cmd.IsRead() {
		core.readback.Store(result)
	}
	return nil
}

func (u *Unit) dispatch(core *CoreState, cmd Command, param uint16) (uint32, error) {
	switch cmd {
	case CmdCheckCoreID:
		return uint32(core.id) & iciCoreMask, nil

	case CmdIntrptGenerateIRQ,
		CmdIntrptGenerateAck,
		CmdIntrptReadStatus,
		CmdIntrptCheckSource:
		return u.dispatchICI(core, cmd, param)

	case CmdSemaClaimAndRead,
		CmdSemaRelease,
		CmdSemaForceRelease:
		return u.dispatchSema(core, cmd, param)

	case CmdIDUEnable,
		CmdIDUDisable,
		CmdIDUReadEnable,
		CmdIDUSetMode,
		CmdIDUReadMode,
		CmdIDUSetDest,
		CmdIDUReadDest,
		CmdIDUGenCirq,
		CmdIDUAckCirq,
		CmdIDUCheckStatus,
		CmdIDUSetMask,
		CmdIDUReadMask,
		CmdIDUCheckFirst:
		return u.dispatchIDU(core, cmd, param)

	default:
		return 0, fmt.Errorf("%w: opcode 0x%02x", ErrUnsupportedCommand, uint8(cmd))
	}
}

func (u *Unit) dispatchICI(core *CoreState, cmd Command, param uint16) (uint32, error) {
	switch cmd {
	case CmdIntrptGenerateIRQ:
		return 0, u.ici.GenerateIRQ(core.id, param)
	case CmdIntrptGenerateAck:
		return 0, u.ici.GenerateAck(core.id, param)
	case CmdIntrptReadStatus:
		return u.ici.ReadStatus(core.id, param)
	default:
		return u.ici.CheckSource(core.id)
	}
}

func (u *Unit) dispatchSema(core *CoreState, cmd Command, param uint16) (uint32, error) {
	switch cmd {
	case CmdSemaClaimAndRead:
		owned, err := u.sema.Claim(core.id, param)
		return boolToWord(owned), err
	case CmdSemaRelease:
		return 0, u.sema.Release(core.id, param)
	default:
		return 0, u.sema.ForceRelease(param)
	}
}

func (u *Unit) dispatchIDU(core *CoreState, cmd Command, param uint16) (uint32, error) {
	wdata := core.wdata.Load()

	switch cmd {
	case CmdIDUEnable:
		u.idu.Enable()
		return 0, nil
	case CmdIDUDisable:
		u.idu.Disable()
		return 0, nil
	case CmdIDUReadEnable:
		return boolToWord(u.idu.Enabled()), nil
	case CmdIDUSetMode:
		return 0, u.idu.SetMode(param, wdata)
	case CmdIDUReadMode:
		mode, err := u.idu.Mode(param)
		return uint32(mode), err
	case CmdIDUSetDest:
		return 0, u.idu.SetDest(param, wdata)
	case CmdIDUReadDest:
		return u.idu.Dest(param)
	case CmdIDUGenCirq:
		return 0, u.idu.Generate(param)
	case CmdIDUAckCirq:
		return 0, u.idu.Ack(core.id, param)
	case CmdIDUCheckStatus:
		asserted, err := u.idu.CheckStatus(core.id, param)
		return boolToWord(asserted), err
	case CmdIDUSetMask:
		return 0, u.idu.SetMask(param, wdata)
	case CmdIDUReadMask:
		return u.idu.Mask(param)
	default:
		first, err := u.idu.CheckAndClearFirst(core.id, param)
		return boolToWord(first), err
	}
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// LineConfig is a snapshot of one common IRQ line.
type LineConfig struct {
	Cirq int
	Mode Mode
	Dest uint32
	Mask uint32
}

// Enabled reports whether the IDU delivers common IRQs.
func (u *Unit) Enabled() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.idu.Enabled()
}

// Lines returns a snapshot of every common IRQ line.
func (u *Unit) Lines() []LineConfig {
	u.mu.Lock()
	defer u.mu.Unlock()

	lines := make([]LineConfig, len(u.idu.lines))
	for i, l := range u.idu.lines {
		lines[i] = LineConfig{
			Cirq: i,
			Mode: l.mode,
			Dest: l.dest,
			Mask: l.mask,
		}
	}
	return lines
}
