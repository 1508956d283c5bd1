package winselect

import "testing"

func TestPollArrayGrowPreservesEntries(t *testing.T) {
	p := newPollArray()
	if p.capacity() != initCap {
		t.Fatalf("capacity = %d, want %d", p.capacity(), initCap)
	}
	p.entries[3] = pollEntry{fd: 42, events: pollIn}

	p.grow(initCap + 1)

	if p.capacity() < initCap+1 {
		t.Fatalf("capacity after grow = %d, want >= %d", p.capacity(), initCap+1)
	}
	if p.entries[3].fd != 42 || p.entries[3].events != pollIn {
		t.Fatalf("grow did not preserve existing entry: %+v", p.entries[3])
	}
}

func TestPollArrayReplaceAndClearEntry(t *testing.T) {
	p := newPollArray()
	p.entries[5] = pollEntry{fd: 7, events: pollOut, revents: pollErr}

	p.replaceEntry(5, 1)

	if p.entries[1].fd != 7 || p.entries[1].events != pollOut {
		t.Fatalf("replaceEntry did not copy fd/events: %+v", p.entries[1])
	}
	if p.entries[1].revents != 0 {
		t.Fatalf("replaceEntry should not carry revents across, got %d", p.entries[1].revents)
	}

	p.clearEntry(1)
	if p.entries[1] != (pollEntry{}) {
		t.Fatalf("clearEntry left non-zero entry: %+v", p.entries[1])
	}
}

func TestPollArrayPutEventOps(t *testing.T) {
	p := newPollArray()
	p.putEventOps(2, pollIn|pollOut)
	if p.entries[2].events != pollIn|pollOut {
		t.Fatalf("putEventOps = %d, want %d", p.entries[2].events, pollIn|pollOut)
	}
}
