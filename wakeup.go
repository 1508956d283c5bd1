package winselect

import (
	"net"
	"sync"
	"time"
)

// wakeupPipe is the portable self-pipe spec.md §4.7 describes: a
// loopback TCP socket pair rather than a real OS pipe, because the
// sentinel fd it produces has to sit in the same pollEntry array as
// every other registered socket and be pollable by the same native
// poll/WSAPoll call. Nagle's algorithm is disabled on both ends so a
// signal byte reaches the source side as soon as it's written, instead
// of waiting on the usual coalescing delay.
type wakeupPipe struct {
	source *net.TCPConn // read side; its fd sits in every sub-selector's slot 0
	sink   *net.TCPConn // write side; Wakeup writes to this
	srcFD  int

	mu        sync.Mutex
	closeOnce sync.Once
}

type acceptResult struct {
	conn *net.TCPConn
	err  error
}

func newWakeupPipe() (*wakeupPipe, error) {
	ln, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return nil, err
	}
	accepted := make(chan acceptResult, 1)
	go func() {
		c, aerr := ln.AcceptTCP()
		accepted <- acceptResult{c, aerr}
	}()

	sink, err := net.DialTCP("tcp", nil, ln.Addr().(*net.TCPAddr))
	if err != nil {
		_ = ln.Close()
		return nil, err
	}
	res := <-accepted
	_ = ln.Close()
	if res.err != nil {
		_ = sink.Close()
		return nil, res.err
	}
	source := res.conn
	_ = source.SetNoDelay(true)
	_ = sink.SetNoDelay(true)

	var fd int
	rc, err := source.SyscallConn()
	if err != nil {
		_ = source.Close()
		_ = sink.Close()
		return nil, err
	}
	if cerr := rc.Control(func(f uintptr) { fd = int(f) }); cerr != nil {
		_ = source.Close()
		_ = sink.Close()
		return nil, cerr
	}

	return &wakeupPipe{source: source, sink: sink, srcFD: fd}, nil
}

func (w *wakeupPipe) fd() int { return w.srcFD }

// signal writes one byte so the source side's fd wakes a blocked poll
// call. Called at most once between a drain and the next one, since
// Selector.Wakeup dedups against its own interruptTriggered flag.
func (w *wakeupPipe) signal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = w.sink.Write([]byte{1})
}

// drain discards every byte presently sitting in the pipe, leaving it
// quiescent for the next signal. A Read whose deadline has already
// passed returns without reading, so the deadline is set a few
// milliseconds ahead: queued bytes come back at once, and an empty pipe
// costs one such short wait.
func (w *wakeupPipe) drain() {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.source.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
	var buf [64]byte
	for {
		n, err := w.source.Read(buf[:])
		if n < len(buf) || err != nil {
			break
		}
	}
	_ = w.source.SetReadDeadline(time.Time{})
}

func (w *wakeupPipe) close() {
	w.closeOnce.Do(func() {
		_ = w.source.Close()
		_ = w.sink.Close()
	})
}
