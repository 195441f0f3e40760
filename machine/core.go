package machine

import (
	"github.com/sarchlab/arcsim/arconnect"
	"github.com/sarchlab/arcsim/irq"
)

// Core is the view one core has of the machine: its auxiliary registers and
// its interrupt input. A Core may be driven from its own goroutine.
type Core struct {
	id   arconnect.CoreID
	irq  *irq.Controller
	unit *arconnect.Unit

	ici   int
	base  int
	ncirq int
}

// ID returns the core id.
func (c *Core) ID() arconnect.CoreID {
	return c.id
}

// IRQ returns the core's interrupt controller.
func (c *Core) IRQ() *irq.Controller {
	return c.irq
}

// ReadAux reads an ARConnect auxiliary register.
func (c *Core) ReadAux(reg arconnect.Register) (uint32, error) {
	return c.unit.ReadRegister(c.id, reg)
}

// WriteAux writes an ARConnect auxiliary register.
func (c *Core) WriteAux(reg arconnect.Register, value uint32) error {
	return c.unit.WriteRegister(c.id, reg, value)
}

// Issue writes a command word built from cmd and param.
func (c *Core) Issue(cmd arconnect.Command, param uint16) error {
	return c.WriteAux(arconnect.RegCommand, arconnect.EncodeCommand(cmd, param))
}

// Exec runs the usual guest sequence: stage data, issue the command, read
// the readback register. For commands that are not read-type the returned
// value is whatever the readback register held before.
func (c *Core) Exec(cmd arconnect.Command, param uint16, data uint32) (uint32, error) {
	if err := c.WriteAux(arconnect.RegWriteData, data); err != nil {
		return 0, err
	}
	if err := c.Issue(cmd, param); err != nil {
		return 0, err
	}
	return c.ReadAux(arconnect.RegReadback)
}

// ICIPending reports whether the core's inter-core interrupt line is high.
func (c *Core) ICIPending() bool {
	return c.irq.Level(c.ici)
}

// CirqPending reports whether the core's line for a common IRQ is high.
// Common IRQs outside the configured range are never pending.
func (c *Core) CirqPending(cirq int) bool {
	if cirq < 0 || cirq >= c.ncirq {
		return false
	}
	return c.irq.Level(c.base + cirq)
}

// PendingCirqs returns the common IRQs whose line is high on this core.
func (c *Core) PendingCirqs() []int {
	var cirqs []int
	for _, line := range c.irq.Pending() {
		if line >= c.base && line < c.base+c.ncirq {
			cirqs = append(cirqs, line-c.base)
		}
	}
	return cirqs
}
