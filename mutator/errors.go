package mutator

import "errors"

var (
	ErrEmptyID    = errors.New("mutator: empty module id")
	ErrNilMutator = errors.New("mutator: nil module")
	ErrNotFound   = errors.New("mutator: module not found")
	ErrPanic      = errors.New("mutator: module panicked")
	ErrBadResult  = errors.New("mutator: module returned an unusable result")

	// InterruptedMessage is the value the script watchdog interrupts
	// with; Interrupted is what callers observe.
	InterruptedMessage = "RuntimeError: timeout"
	Interrupted        = errors.New("mutator: " + InterruptedMessage)
)
