package arconnect

import "errors"

// Errors reported by the unit. Every failure is returned to the caller of the
// register access; none of them stop the machine.
var (
	// ErrUnknownCore is returned when a core id does not resolve.
	ErrUnknownCore = errors.New("unknown core")

	// ErrInvalidLineIndex is returned when a common IRQ line index is out of
	// range.
	ErrInvalidLineIndex = errors.New("invalid common IRQ line index")

	// ErrInvalidAccess is returned for a read of a write-only register, a
	// write of a read-only register, or an access to an unknown register.
	ErrInvalidAccess = errors.New("invalid register access")

	// ErrUnsupportedCommand is returned for an unrecognized command opcode.
	ErrUnsupportedCommand = errors.New("unsupported command")

	// ErrNoDestination is returned when a round-robin line has no
	// destination core.
	ErrNoDestination = errors.New("no eligible destination core")

	// ErrInvalidMode is returned when setting an unknown distribution mode.
	ErrInvalidMode = errors.New("invalid distribution mode")

	// ErrInvalidSemaphoreIndex is returned when a semaphore index is out of
	// range.
	ErrInvalidSemaphoreIndex = errors.New("invalid semaphore index")
)
