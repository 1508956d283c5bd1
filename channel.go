package winselect

import (
	"context"
	"sync"
	"sync/atomic"
)

// Interruptor is the pluggable mechanism by which one goroutine causes
// another goroutine's pending blocked native I/O call to return early
// (spec.md §9 "Thread-local interruptor hook"). The JVM back door the
// original design relies on has no Go equivalent, so the contract is
// reduced to its essential shape: a callback fired from any goroutine
// that must cause the in-progress syscall to unblock. asyncChannel is
// itself an Interruptor — firing it closes the channel's FD, which is
// the only portable way to unblock a stuck read/write/accept/connect.
type Interruptor interface {
	Interrupt()
}

// callState tracks one begin()/end() bracketed blocking call.
type callState struct {
	interrupted atomic.Bool
}

// asyncChannel is the interruptible-channel base every channel the
// Selector manages embeds. It provides begin()/end() scoped guards
// around a single potentially-blocking native I/O call, and a single
// implCloseChannel template invoked exactly once no matter whether the
// channel was closed by the application, by Interrupt, or both racing.
//
// The cyclic channel/key/selector graph of the original design (spec.md
// §9) is avoided here: asyncChannel holds no back-reference to any
// SelectionKey or Selector at all; those own the channel only through
// the ChannelOps interface value they were registered with.
type asyncChannel struct {
	fd int

	open      atomic.Bool
	closeOnce sync.Once
	closeMu   sync.Mutex

	// implClose performs the concrete close of fd. Set once by the
	// embedding channel type's constructor.
	implClose func() error

	// current is the callState for whichever begin()/end() bracket is
	// presently open on this channel. nil when no call is in flight.
	current atomic.Pointer[callState]
}

func newAsyncChannel(fd int, implClose func() error) *asyncChannel {
	c := &asyncChannel{fd: fd, implClose: implClose}
	c.open.Store(true)
	return c
}

// isOpen reports the channel's user-visible open state.
func (c *asyncChannel) isOpen() bool { return c.open.Load() }

// begin brackets the start of a potentially blocking native I/O call.
// It fails fast with ErrClosedChannel if the channel is already closed,
// sparing the caller a doomed syscall. ctx, if non-nil, stands in for
// "the calling thread's interrupt flag": if already cancelled at begin
// time, the interruptor fires synchronously, exactly as the original's
// begin() does for a thread that was already marked interrupted.
func (c *asyncChannel) begin(ctx context.Context) (*callState, error) {
	if !c.open.Load() {
		return nil, ErrClosedChannel
	}
	cs := &callState{}
	c.current.Store(cs)
	if ctx != nil && ctx.Err() != nil {
		cs.interrupted.Store(true)
		_ = c.closeInternal()
	}
	return cs, nil
}

// end brackets the end of a potentially blocking native I/O call begun
// with begin. completed indicates whether the native call itself
// returned normally (true) or was abandoned because the channel
// appeared closed (false).
func (c *asyncChannel) end(cs *callState, completed bool) error {
	c.current.CompareAndSwap(cs, nil)
	if cs.interrupted.Load() {
		return ErrClosedByInterrupt
	}
	if !completed && !c.open.Load() {
		return ErrAsyncClose
	}
	return nil
}

// Interrupt aborts whatever call is currently bracketed by begin/end on
// this channel, as if another thread had interrupted the blocked one:
// it marks the in-flight callState interrupted and forces the channel
// closed so the native call returns.
func (c *asyncChannel) Interrupt() {
	if cs := c.current.Load(); cs != nil {
		cs.interrupted.Store(true)
	}
	_ = c.closeInternal()
}

// Close is idempotent and serialized: it flips open false and invokes
// implCloseChannel exactly once, regardless of how many goroutines call
// Close or Interrupt concurrently.
func (c *asyncChannel) Close() error {
	return c.closeInternal()
}

func (c *asyncChannel) closeInternal() error {
	var err error
	c.closeOnce.Do(func() {
		c.closeMu.Lock()
		c.open.Store(false)
		c.closeMu.Unlock()
		if c.implClose != nil {
			err = c.implClose()
		}
	})
	return err
}
