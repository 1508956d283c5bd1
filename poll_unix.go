//go:build linux || darwin

package winselect

import "golang.org/x/sys/unix"

// nativePoll is the level-triggered, bounded, array-based poll
// primitive spec.md §4.1/§4.6 builds on. unix.Poll is the faithful
// analog of the original's native poll(2)/select() call: one syscall,
// one contiguous fd array, level-triggered results copied back into
// the same slots.
func nativePoll(entries []pollEntry, timeoutMs int) error {
	if len(entries) == 0 {
		return nil
	}
	fds := make([]unix.PollFd, len(entries))
	for i, e := range entries {
		fds[i] = unix.PollFd{Fd: e.fd, Events: toNativeEvents(e.events)}
	}
	_, err := unix.Poll(fds, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			for i := range entries {
				entries[i].revents = 0
			}
			return nil
		}
		return err
	}
	for i := range fds {
		entries[i].revents = fromNativeEvents(fds[i].Revents)
	}
	return nil
}

func toNativeEvents(neutral uint32) int16 {
	var n int16
	if neutral&pollIn != 0 {
		n |= unix.POLLIN
	}
	if neutral&(pollOut|pollConn) != 0 {
		n |= unix.POLLOUT
	}
	return n
}

func fromNativeEvents(native int16) uint32 {
	var n uint32
	if native&unix.POLLIN != 0 {
		n |= pollIn
	}
	if native&unix.POLLOUT != 0 {
		n |= pollOut
	}
	if native&unix.POLLERR != 0 {
		n |= pollErr
	}
	if native&unix.POLLHUP != 0 {
		n |= pollHup
	}
	return n
}
