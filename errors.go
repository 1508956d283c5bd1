package winselect

import (
	"errors"
	"fmt"
)

// Standard errors returned by Selector and SelectionKey operations.
var (
	// ErrClosedSelector is returned by Register, Select, SelectTimeout,
	// and SelectNow once the selector has been closed. Keys, SelectedKeys,
	// and Deregister do not report it; the keys of a closed selector are
	// invalid, so their accessors return ErrCancelledKey instead.
	ErrClosedSelector = errors.New("winselect: selector is closed")

	// ErrClosedChannel is returned when an operation is attempted on a
	// channel whose open flag has already been cleared.
	ErrClosedChannel = errors.New("winselect: channel is closed")

	// ErrCancelledKey is returned by SelectionKey accessors other than
	// Channel, Selector, and Attachment once the key is no longer valid.
	ErrCancelledKey = errors.New("winselect: selection key is cancelled")

	// ErrIllegalArgument is returned when interest ops outside a
	// channel's ValidOps are supplied, or a negative timeout is passed
	// to SelectTimeout.
	ErrIllegalArgument = errors.New("winselect: illegal argument")

	// ErrAsyncClose is returned from end(false) when the channel was
	// closed out from under a blocked caller by a concurrent Close,
	// rather than by a thread interrupt.
	ErrAsyncClose = errors.New("winselect: channel closed by another goroutine")

	// ErrClosedByInterrupt is returned from end(false) when the
	// goroutine's own Interruptor fired during the bracketed I/O call.
	ErrClosedByInterrupt = errors.New("winselect: blocked call aborted by interrupt")
)

// PollError wraps an error returned by the native poll call. One such
// error, captured by whichever sub-selector hits it first, is surfaced
// from the main goroutine only after every helper has reported back to
// finishBarrier — never mid-round, and never more than once per round.
type PollError struct {
	// Helper identifies which sub-selector observed the error (0 is the
	// main sub-selector; 1..N are helpers).
	Helper int
	Cause  error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("winselect: native poll failed on sub-selector %d: %v", e.Helper, e.Cause)
}

func (e *PollError) Unwrap() error { return e.Cause }
