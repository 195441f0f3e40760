package arconnect

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Fields of an inter-core interrupt command parameter.
const (
	iciCoreMask  = 0x1f
	iciGuardMask = 0x80
)

// ICI is the inter-core interrupt unit: one core interrupts another and the
// receiver acknowledges.
//
// Status words are updated with atomic bit operations, so concurrent senders
// to the same target never lose each other's bit.
type ICI struct {
	registry *Registry
	line     int
	logger   *slog.Logger

	raised atomic.Uint64
}

// NewICI creates an ICI unit that signals on the given interrupt line.
func NewICI(registry *Registry, line int, logger *slog.Logger) *ICI {
	return &ICI{
		registry: registry,
		line:     line,
		logger:   logger,
	}
}

// Raised returns the number of inter-core interrupts delivered.
func (u *ICI) Raised() uint64 {
	return u.raised.Load()
}

// GenerateIRQ interrupts the core named by the low 5 bits of param on behalf
// of sender. Targeting the sender itself, or setting the guard bit 0x80, is
// a no-op.
func (u *ICI) GenerateIRQ(sender CoreID, param uint16) error {
	if param&iciGuardMask != 0 {
		return nil
	}

	target := CoreID(param & iciCoreMask)
	if target == sender {
		return nil
	}

	dst, err := u.registry.Resolve(target)
	if err != nil {
		return err
	}

	u.logger.Debug("ICI",
		"Behavior", "SetStatus",
		"Core", sender,
		"Target", target,
	)

	// The status bit must be visible before the line goes high.
	dst.status.Or(1 << sender)
	dst.lines.Raise(u.line)
	u.raised.Add(1)

	return nil
}

// GenerateAck acknowledges the interrupt from the source core named by the
// low 5 bits of param and lowers the sender's own ICI line.
func (u *ICI) GenerateAck(sender CoreID, param uint16) error {
	source := CoreID(param & iciCoreMask)
	if int(source) >= u.registry.NumCores() {
		return fmt.Errorf("%w: acknowledged source %d", ErrUnknownCore, source)
	}

	self, err := u.registry.Resolve(sender)
	if err != nil {
		return err
	}

	u.logger.Debug("ICI",
		"Behavior", "ClearStatus",
		"Core", sender,
		"Source", source,
	)

	self.status.And(^(uint32(1) << source))
	self.lines.Lower(u.line)

	return nil
}

// ReadStatus returns 1 if reader still has an unacknowledged interrupt
// pending against the core named by the low 5 bits of param, 0 otherwise.
func (u *ICI) ReadStatus(reader CoreID, param uint16) (uint32, error) {
	target, err := u.registry.Resolve(CoreID(param & iciCoreMask))
	if err != nil {
		return 0, err
	}

	status := target.status.Load()

	u.logger.Debug("ICI",
		"Behavior", "ReadStatus",
		"Core", reader,
		"Target", target.id,
		"Status", status,
	)

	return (status >> reader) & 0x1, nil
}

// CheckSource returns the reader's own status word: one bit per core with
// an interrupt pending against the reader.
func (u *ICI) CheckSource(reader CoreID) (uint32, error) {
	self, err := u.registry.Resolve(reader)
	if err != nil {
		return 0, err
	}

	status := self.status.Load()

	u.logger.Debug("ICI",
		"Behavior", "CheckSource",
		"Core", reader,
		"Status", status,
	)

	return status, nil
}
