package winselect

import (
	"context"
	"errors"
	"testing"
)

func TestAsyncChannelEndReturnsNilOnNormalCompletion(t *testing.T) {
	c := newAsyncChannel(1, func() error { return nil })
	cs, err := c.begin(context.Background())
	if err != nil {
		t.Fatalf("begin() = %v, want nil", err)
	}
	if err := c.end(cs, true); err != nil {
		t.Fatalf("end(completed=true) = %v, want nil", err)
	}
	if !c.isOpen() {
		t.Fatalf("channel closed after a normal completed call")
	}
}

func TestAsyncChannelInterruptAbortsInFlightCall(t *testing.T) {
	closed := false
	c := newAsyncChannel(2, func() error { closed = true; return nil })
	cs, err := c.begin(context.Background())
	if err != nil {
		t.Fatalf("begin() = %v, want nil", err)
	}

	c.Interrupt()

	if err := c.end(cs, false); !errors.Is(err, ErrClosedByInterrupt) {
		t.Fatalf("end after Interrupt = %v, want ErrClosedByInterrupt", err)
	}
	if !closed {
		t.Fatalf("Interrupt did not close the channel")
	}
	if c.isOpen() {
		t.Fatalf("channel reports open after Interrupt")
	}
}

func TestAsyncChannelConcurrentCloseYieldsAsyncClose(t *testing.T) {
	c := newAsyncChannel(3, func() error { return nil })
	cs, err := c.begin(context.Background())
	if err != nil {
		t.Fatalf("begin() = %v, want nil", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() = %v, want nil", err)
	}

	if err := c.end(cs, false); !errors.Is(err, ErrAsyncClose) {
		t.Fatalf("end after concurrent Close = %v, want ErrAsyncClose", err)
	}
}

func TestAsyncChannelBeginWithCancelledContextInterruptsImmediately(t *testing.T) {
	c := newAsyncChannel(4, func() error { return nil })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cs, err := c.begin(ctx)
	if err != nil {
		t.Fatalf("begin() = %v, want nil", err)
	}
	if err := c.end(cs, false); !errors.Is(err, ErrClosedByInterrupt) {
		t.Fatalf("end after already-cancelled begin = %v, want ErrClosedByInterrupt", err)
	}
}

func TestAsyncChannelCloseIsIdempotent(t *testing.T) {
	calls := 0
	c := newAsyncChannel(5, func() error { calls++; return nil })
	if err := c.Close(); err != nil {
		t.Fatalf("first Close() = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}
	if calls != 1 {
		t.Fatalf("implClose invoked %d times, want 1", calls)
	}
}

func TestAsyncChannelBeginOnClosedChannelFailsFast(t *testing.T) {
	c := newAsyncChannel(6, func() error { return nil })
	if err := c.Close(); err != nil {
		t.Fatalf("Close() = %v, want nil", err)
	}
	if _, err := c.begin(context.Background()); !errors.Is(err, ErrClosedChannel) {
		t.Fatalf("begin() on closed channel = %v, want ErrClosedChannel", err)
	}
}
