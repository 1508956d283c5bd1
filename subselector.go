package winselect

// subSelector owns one contiguous slice of the selector's poll array,
// `[start, start+count)`, and the three native-poll result arrays for
// that slice (spec.md §4.6). Position `start` always holds the wakeup
// sentinel for as long as this slice exists. id 0 is the selector's own
// (main) sub-selector; ids 1..N are helper sub-selectors running on
// their own goroutine.
type subSelector struct {
	id    int
	start int

	readFds   []int32 // [0] = count, [1..count] = fd
	writeFds  []int32
	exceptFds []int32
}

func newSubSelector(id, start, maxFDs int) *subSelector {
	return &subSelector{
		id:        id,
		start:     start,
		readFds:   make([]int32, maxFDs+1),
		writeFds:  make([]int32, maxFDs+1),
		exceptFds: make([]int32, maxFDs+1),
	}
}

// poll runs the native poll call over this slice's share of sel's poll
// array and classifies the results into readFds/writeFds/exceptFds.
// Caller (the Selector, via doSelect or a helper goroutine) must already
// hold sel.mu for the duration of the round.
func (s *subSelector) poll(sel *Selector, timeoutMs int) error {
	count := sel.sliceLen(s.start)
	s.readFds[0], s.writeFds[0], s.exceptFds[0] = 0, 0, 0
	if count == 0 {
		return nil
	}
	entries := sel.poll.entries[s.start : s.start+count]
	if err := nativePoll(entries, timeoutMs); err != nil {
		return &PollError{Helper: s.id, Cause: err}
	}
	for _, e := range entries {
		if e.revents == 0 {
			continue
		}
		fd := e.fd
		if e.revents&pollIn != 0 {
			appendFd(s.readFds, fd)
		}
		if e.revents&(pollOut|pollConn) != 0 {
			appendFd(s.writeFds, fd)
		}
		if e.revents&(pollErr|pollHup) != 0 {
			appendFd(s.exceptFds, fd)
		}
	}
	return nil
}

func appendFd(fds []int32, fd int32) {
	n := fds[0]
	fds[int(n)+1] = fd
	fds[0] = n + 1
}

// processSelectedKeys runs processFDSet over this slice's three result
// arrays in the order spec.md §4.6 requires (read, then write, then
// except) and returns the number of keys it caused to be newly counted
// as updated this round.
func (s *subSelector) processSelectedKeys(sel *Selector, updateCount uint64) int {
	n := 0
	n += sel.processFDSet(updateCount, s.readFds, pollIn, false)
	n += sel.processFDSet(updateCount, s.writeFds, pollConn|pollOut, false)
	n += sel.processFDSet(updateCount, s.exceptFds, pollIn|pollConn|pollOut, true)
	return n
}
