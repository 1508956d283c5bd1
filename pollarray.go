package winselect

// pollEntry mirrors one kernel pollfd triple: (fd, requested events,
// returned events). Kept in our own layout rather than the raw ABI
// struct so growth and slot manipulation stay platform-independent;
// poll_unix.go / poll_windows.go translate to the native array
// immediately before the blocking syscall.
type pollEntry struct {
	fd      int32
	events  uint32
	revents uint32
}

// pollArray is the contiguous, growable mirror of a kernel pollfd array
// described in spec.md §4.1. Go's slice backing array already gives the
// "contiguous, pinned" property the original native-memory buffer
// needed; grow() still doubles capacity rather than relying on append's
// amortized growth, so callers can reason about exact capacity the way
// the original pollArrayBuffer / grow(newCapacity) contract does.
type pollArray struct {
	entries []pollEntry
}

func newPollArray() *pollArray {
	return &pollArray{entries: make([]pollEntry, initCap)}
}

func (p *pollArray) capacity() int { return len(p.entries) }

// addEntry writes fd = key.channel.FD(), events = 0, revents = 0 at
// index.
func (p *pollArray) addEntry(index int, key *SelectionKey) {
	p.entries[index] = pollEntry{fd: int32(key.channel.FD())}
}

// addWakeupSocket writes a sticky POLLIN entry for the wakeup pipe's
// source fd at index. This slot is never reused for a user channel
// while its helper slice exists.
func (p *pollArray) addWakeupSocket(fd int, index int) {
	p.entries[index] = pollEntry{fd: int32(fd), events: pollIn}
}

// putEventOps overwrites only the events word at index with nativeEvents,
// which the caller has already translated from an InterestOp bitset via
// the channel's TranslateInterestOps. It is the single write path used both at registration time and for every
// subsequent SelectionKey.SetInterestOps.
func (p *pollArray) putEventOps(index int, nativeEvents uint32) {
	p.entries[index].events = nativeEvents
}

// replaceEntry copies one slot's (fd, events) verbatim from src to dst;
// revents is not meaningful across a copy and is cleared.
func (p *pollArray) replaceEntry(srcIdx, dstIdx int) {
	e := p.entries[srcIdx]
	e.revents = 0
	p.entries[dstIdx] = e
}

func (p *pollArray) clearEntry(index int) {
	p.entries[index] = pollEntry{}
}

// grow doubles capacity until it is at least newCapacity, copying
// existing entries into the new backing array. Must only be called
// while no helper is mid-poll; the Selector enforces this by holding
// its close lock across every register/deregister/grow.
func (p *pollArray) grow(newCapacity int) {
	cap := len(p.entries)
	if cap == 0 {
		cap = initCap
	}
	for cap < newCapacity {
		cap *= 2
	}
	grown := make([]pollEntry, cap)
	copy(grown, p.entries)
	p.entries = grown
}

// free releases the backing allocation. Safe to call more than once.
func (p *pollArray) free() {
	p.entries = nil
}
