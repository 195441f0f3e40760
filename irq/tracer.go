package irq

import (
	"log/slog"
	"sync"

	"github.com/sarchlab/akita/v4/sim"
)

// LogTracer is a hook that logs every line change at debug level.
type LogTracer struct {
	logger *slog.Logger
}

// NewLogTracer creates a LogTracer writing to the given logger.
func NewLogTracer(logger *slog.Logger) *LogTracer {
	return &LogTracer{logger: logger}
}

// Func implements sim.Hook.
func (t *LogTracer) Func(ctx sim.HookCtx) {
	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	t.logger.Debug("IRQ",
		"Behavior", ctx.Pos.Name,
		"Core", evt.Core,
		"Line", evt.Line,
	)
}

// Recorder is a hook that keeps every event it sees, in arrival order.
// A single Recorder may be attached to several controllers.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Func implements sim.Hook.
func (r *Recorder) Func(ctx sim.HookCtx) {
	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Raised returns the cores that saw a raise on the given line, in order.
func (r *Recorder) Raised(line int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var cores []int
	for _, evt := range r.events {
		if evt.Line == line && evt.Level {
			cores = append(cores, evt.Core)
		}
	}
	return cores
}

// Clear drops all recorded events.
func (r *Recorder) Clear() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
