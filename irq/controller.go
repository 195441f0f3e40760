// Package irq models the interrupt inputs of an emulated core.
//
// A Controller tracks the level of every interrupt line of one core. Raising
// or lowering a line takes effect immediately and is reported to any akita
// hooks attached to the controller, which lets tracers observe the exact
// order in which lines change across cores.
package irq

import (
	"sync"

	"github.com/sarchlab/akita/v4/sim"
)

// HookPosRaise marks a line being raised.
var HookPosRaise = &sim.HookPos{Name: "IRQ Raise"}

// HookPosLower marks a line being lowered.
var HookPosLower = &sim.HookPos{Name: "IRQ Lower"}

// Event is the hook item carried for every line change.
type Event struct {
	// Core is the id of the core that owns the line.
	Core int
	// Line is the interrupt line number.
	Line int
	// Level is the line level after the change.
	Level bool
}

// Statistics holds line activity counters for one controller.
type Statistics struct {
	// Raises is the number of Raise calls on valid lines.
	Raises uint64
	// Lowers is the number of Lower calls on valid lines.
	Lowers uint64
}

// Controller holds the interrupt line levels of a single core.
// It is safe for concurrent use.
type Controller struct {
	*sim.HookableBase

	mu     sync.Mutex
	core   int
	levels []bool
	stats  Statistics
}

// NewController creates a controller for the given core with numLines lines,
// all initially low.
func NewController(core, numLines int) *Controller {
	return &Controller{
		HookableBase: sim.NewHookableBase(),
		core:         core,
		levels:       make([]bool, numLines),
	}
}

// Core returns the id of the core that owns this controller.
func (c *Controller) Core() int {
	return c.core
}

// NumLines returns the number of lines.
func (c *Controller) NumLines() int {
	return len(c.levels)
}

// Raise asserts a line. Lines outside the controller are ignored.
func (c *Controller) Raise(line int) {
	c.set(line, true, HookPosRaise)
}

// Lower deasserts a line. Lines outside the controller are ignored.
func (c *Controller) Lower(line int) {
	c.set(line, false, HookPosLower)
}

func (c *Controller) set(line int, level bool, pos *sim.HookPos) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if line < 0 || line >= len(c.levels) {
		return
	}

	c.levels[line] = level
	if level {
		c.stats.Raises++
	} else {
		c.stats.Lowers++
	}

	// Hooks run under the lock so per-core event order matches level order.
	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    pos,
			Item:   Event{Core: c.core, Line: line, Level: level},
		})
	}
}

// Level reports whether a line is asserted.
func (c *Controller) Level(line int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if line < 0 || line >= len(c.levels) {
		return false
	}
	return c.levels[line]
}

// Pending returns the asserted lines in ascending order.
func (c *Controller) Pending() []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lines []int
	for line, level := range c.levels {
		if level {
			lines = append(lines, line)
		}
	}
	return lines
}

// Stats returns the line activity counters.
func (c *Controller) Stats() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Reset lowers every line without invoking hooks and clears the counters.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.levels {
		c.levels[i] = false
	}
	c.stats = Statistics{}
}
