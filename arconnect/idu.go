package arconnect

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Mode is the distribution mode of a common IRQ line.
type Mode uint32

// Distribution modes.
const (
	// RoundRobin delivers each raise to the next destination core in turn.
	RoundRobin Mode = iota
	// FirstAcknowledge delivers to every destination core and lets the
	// first core that checks claim the interrupt.
	FirstAcknowledge
	// AllDestination delivers to every destination core.
	AllDestination
)

const modeMask = 0x3

var titleCaser = cases.Title(language.English)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case RoundRobin:
		return "round robin"
	case FirstAcknowledge:
		return "first acknowledge"
	case AllDestination:
		return "all destination"
	default:
		return fmt.Sprintf("mode %d", uint32(m))
	}
}

// Title returns the mode name in title case, for reports.
func (m Mode) Title() string {
	return titleCaser.String(m.String())
}

type cirqLine struct {
	mode    Mode
	dest    uint32
	mask    uint32
	counter uint32
}

// IDU is the inter-core distribution unit. It routes common IRQ lines to a
// configurable set of destination cores.
//
// Line configuration is only touched from the unit's command path, which is
// serialized by the caller. The first-acknowledge flags have their own lock
// so that the check-and-clear sequence is atomic.
type IDU struct {
	registry *Registry
	lineBase int
	destMask uint32
	logger   *slog.Logger

	enabled bool
	lines   []cirqLine

	faMu sync.Mutex
	// firstAck has bit c set while core c is a first-acknowledge candidate
	// for the line.
	firstAck []uint32

	delivered atomic.Uint64
}

// NewIDU creates an IDU with numCirqs lines. Common IRQ n is delivered on
// interrupt line lineBase+n of each core.
func NewIDU(registry *Registry, numCirqs, lineBase int, logger *slog.Logger) *IDU {
	destMask := uint32(0xffffffff)
	if registry.NumCores() < 32 {
		destMask = uint32(1)<<registry.NumCores() - 1
	}

	return &IDU{
		registry: registry,
		lineBase: lineBase,
		destMask: destMask,
		logger:   logger,
		lines:    make([]cirqLine, numCirqs),
		firstAck: make([]uint32, numCirqs),
	}
}

// NumLines returns the number of common IRQ lines.
func (d *IDU) NumLines() int {
	return len(d.lines)
}

// Delivered returns the number of per-core common IRQ deliveries.
func (d *IDU) Delivered() uint64 {
	return d.delivered.Load()
}

func (d *IDU) line(cirq uint16) (*cirqLine, error) {
	if int(cirq) >= len(d.lines) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLineIndex, cirq)
	}
	return &d.lines[cirq], nil
}

// Enable turns on interrupt delivery.
func (d *IDU) Enable() {
	d.enabled = true
}

// Disable turns off interrupt delivery and clears the configuration of every
// line together with all first-acknowledge flags.
func (d *IDU) Disable() {
	d.faMu.Lock()
	defer d.faMu.Unlock()

	d.enabled = false
	for i := range d.lines {
		d.lines[i] = cirqLine{}
		d.firstAck[i] = 0
	}
}

// Enabled reports whether delivery is on.
func (d *IDU) Enabled() bool {
	return d.enabled
}

// SetMask stores the mask field of a line.
func (d *IDU) SetMask(cirq uint16, mask uint32) error {
	l, err := d.line(cirq)
	if err != nil {
		return err
	}
	l.mask = mask
	return nil
}

// Mask returns the mask field of a line.
func (d *IDU) Mask(cirq uint16) (uint32, error) {
	l, err := d.line(cirq)
	if err != nil {
		return 0, err
	}
	return l.mask, nil
}

// SetDest sets the destination cores of a line. Bits beyond the last core
// are dropped.
func (d *IDU) SetDest(cirq uint16, dest uint32) error {
	l, err := d.line(cirq)
	if err != nil {
		return err
	}
	l.dest = dest & d.destMask
	return nil
}

// Dest returns the destination cores of a line.
func (d *IDU) Dest(cirq uint16) (uint32, error) {
	l, err := d.line(cirq)
	if err != nil {
		return 0, err
	}
	return l.dest & d.destMask, nil
}

// SetMode sets the distribution mode of a line from the low two bits of
// value.
func (d *IDU) SetMode(cirq uint16, value uint32) error {
	l, err := d.line(cirq)
	if err != nil {
		return err
	}

	mode := Mode(value & modeMask)
	if mode > AllDestination {
		return fmt.Errorf("%w: %d", ErrInvalidMode, uint32(mode))
	}
	l.mode = mode
	return nil
}

// Mode returns the distribution mode of a line.
func (d *IDU) Mode(cirq uint16) (Mode, error) {
	l, err := d.line(cirq)
	if err != nil {
		return 0, err
	}
	return l.mode, nil
}

// Generate raises a common IRQ according to the line's mode. It does nothing
// while the IDU is disabled.
func (d *IDU) Generate(cirq uint16) error {
	l, err := d.line(cirq)
	if err != nil {
		return err
	}

	if !d.enabled {
		d.logger.Debug("IDU",
			"Behavior", "GenerateWhileDisabled",
			"Cirq", cirq,
		)
		return nil
	}

	switch l.mode {
	case RoundRobin:
		return d.raiseRoundRobin(cirq, l)
	case FirstAcknowledge:
		d.markFirstAcknowledge(cirq, l.dest)
		return d.raiseAll(cirq, l.dest)
	case AllDestination:
		return d.raiseAll(cirq, l.dest)
	default:
		return fmt.Errorf("%w: %d", ErrInvalidMode, uint32(l.mode))
	}
}

// raiseRoundRobin delivers to the first destination at or after the line's
// cursor and advances the cursor past it.
func (d *IDU) raiseRoundRobin(cirq uint16, l *cirqLine) error {
	n := uint32(d.registry.NumCores())
	counter := l.counter

	for i := uint32(0); i < n; i++ {
		core := (counter + uint32(cirq)) % n
		counter++

		if (l.dest>>core)&0x1 == 0 {
			continue
		}

		l.counter = counter
		return d.raise(cirq, CoreID(core))
	}

	return fmt.Errorf("%w: common IRQ %d", ErrNoDestination, cirq)
}

func (d *IDU) markFirstAcknowledge(cirq uint16, dest uint32) {
	d.faMu.Lock()
	defer d.faMu.Unlock()

	d.firstAck[cirq] |= dest
}

// raiseAll delivers to every destination core in ascending id order.
func (d *IDU) raiseAll(cirq uint16, dest uint32) error {
	for core := 0; dest != 0; core++ {
		if dest&0x1 != 0 {
			if err := d.raise(cirq, CoreID(core)); err != nil {
				return err
			}
		}
		dest >>= 1
	}
	return nil
}

func (d *IDU) raise(cirq uint16, id CoreID) error {
	core, err := d.registry.Resolve(id)
	if err != nil {
		return err
	}

	d.logger.Debug("IDU",
		"Behavior", "Raise",
		"Cirq", cirq,
		"Core", id,
	)

	core.lines.Raise(d.lineBase + int(cirq))
	d.delivered.Add(1)
	return nil
}

// Ack lowers the caller's own line for a common IRQ.
func (d *IDU) Ack(caller CoreID, cirq uint16) error {
	if _, err := d.line(cirq); err != nil {
		return err
	}

	core, err := d.registry.Resolve(caller)
	if err != nil {
		return err
	}

	core.lines.Lower(d.lineBase + int(cirq))
	return nil
}

// CheckStatus reports whether the caller's line for a common IRQ is
// asserted.
func (d *IDU) CheckStatus(caller CoreID, cirq uint16) (bool, error) {
	if _, err := d.line(cirq); err != nil {
		return false, err
	}

	core, err := d.registry.Resolve(caller)
	if err != nil {
		return false, err
	}

	return core.lines.Level(d.lineBase + int(cirq)), nil
}

// CheckAndClearFirst reports whether the caller is still a first-acknowledge
// candidate for the line and clears the flag of every destination core.
// Only the first core to check after a raise sees true.
func (d *IDU) CheckAndClearFirst(caller CoreID, cirq uint16) (bool, error) {
	l, err := d.line(cirq)
	if err != nil {
		return false, err
	}

	d.faMu.Lock()
	defer d.faMu.Unlock()

	first := (d.firstAck[cirq]>>caller)&0x1 != 0
	d.firstAck[cirq] &^= l.dest | uint32(1)<<caller

	d.logger.Debug("IDU",
		"Behavior", "CheckFirst",
		"Cirq", cirq,
		"Core", caller,
		"First", first,
	)

	return first, nil
}
