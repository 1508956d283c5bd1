package winselect

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

// Scenario 5 (spec.md §8): goroutine A is blocked in a read bracketed by
// begin/end on an interruptible channel; goroutine B interrupts it. A's
// end() fails with ErrClosedByInterrupt and the channel reports closed.
func TestInterruptAbortsConcurrentBlockedRead(t *testing.T) {
	server, client, err := rawLoopbackPair()
	if err != nil {
		t.Fatalf("rawLoopbackPair failed: %v", err)
	}
	defer client.Close()

	c := newAsyncChannel(0, func() error { return server.Close() })

	result := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		cs, err := c.begin(context.Background())
		if err != nil {
			result <- err
			close(started)
			return
		}
		close(started)
		buf := make([]byte, 1)
		_, readErr := server.Read(buf) // blocks: nothing is ever written
		completed := readErr == nil
		result <- c.end(cs, completed)
	}()

	<-started
	time.Sleep(20 * time.Millisecond) // let the read actually block
	c.Interrupt()

	select {
	case err := <-result:
		if !errors.Is(err, ErrClosedByInterrupt) {
			t.Fatalf("end() = %v, want ErrClosedByInterrupt", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("blocked read did not return after Interrupt")
	}
	if c.isOpen() {
		t.Fatalf("channel reports open after Interrupt")
	}
}

func rawLoopbackPair() (server, client net.Conn, err error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, err
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	acceptErr := make(chan error, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- c
	}()

	client, err = net.Dial("tcp", ln.Addr().String())
	if err != nil {
		return nil, nil, err
	}
	select {
	case server = <-accepted:
		return server, client, nil
	case err := <-acceptErr:
		return nil, nil, err
	}
}
