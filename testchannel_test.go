package winselect

import "sync/atomic"

// testChannel is the test-only ChannelOps implementation used across this
// package's test files, standing in for the concrete socket/pipe channels
// spec.md explicitly keeps out of scope. It translates the neutral
// pollIn/pollOut bits the same way a real TCP socket channel would:
// pollIn maps to both OP_READ and OP_ACCEPT, pollOut/pollConn to both
// OP_WRITE and OP_CONNECT, masked down to the key's current interest.
type testChannel struct {
	fd      int
	valid   InterestOp
	kind    SocketKind
	killed  atomic.Bool
	closed  atomic.Bool
	killErr error
}

func newTestChannel(fd int, valid InterestOp) *testChannel {
	return &testChannel{fd: fd, valid: valid}
}

func (c *testChannel) FD() int { return c.fd }

func (c *testChannel) TranslateAndSetReadyOps(native uint32, key *SelectionKey) bool {
	ready := c.nativeToReady(native, key)
	old, _ := key.ReadyOps()
	key.setReadyOps(ready)
	return ready != old
}

func (c *testChannel) TranslateAndUpdateReadyOps(native uint32, key *SelectionKey) bool {
	add := c.nativeToReady(native, key)
	return key.orReadyOps(add)
}

func (c *testChannel) nativeToReady(native uint32, key *SelectionKey) InterestOp {
	var ready InterestOp
	if native&pollIn != 0 {
		ready |= OpRead | OpAccept
	}
	if native&(pollOut|pollConn) != 0 {
		ready |= OpWrite | OpConnect
	}
	interest, _ := key.InterestOps()
	return ready & interest
}

func (c *testChannel) TranslateInterestOps(ops InterestOp) uint32 {
	var n uint32
	if ops&(OpRead|OpAccept) != 0 {
		n |= pollIn
	}
	if ops&(OpWrite|OpConnect) != 0 {
		n |= pollOut | pollConn
	}
	return n
}

func (c *testChannel) ValidOps() InterestOp { return c.valid }

func (c *testChannel) Kill() error {
	c.killed.Store(true)
	return c.killErr
}

func (c *testChannel) SocketKind() SocketKind { return c.kind }

func (c *testChannel) Closed() bool { return c.closed.Load() }
