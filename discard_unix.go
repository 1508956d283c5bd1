//go:build linux || darwin

package winselect

import "golang.org/x/sys/unix"

// discardUrgentData implements spec.md §4.6's exceptFds filter: a TCP
// socket reported via exceptFds might be signaling a real error, or it
// might just have arrived-but-unread out-of-band data sitting at the
// urgent mark. SIOCATMARK tells us which; if the read pointer isn't at
// the mark yet, there's OOB data to drain, and this exceptFds hit is
// not a real exceptional condition.
func discardUrgentData(fd int) bool {
	atMark, err := unix.IoctlGetInt(fd, unix.SIOCATMARK)
	if err != nil {
		return false
	}
	if atMark != 0 {
		return false
	}
	var buf [1]byte
	n, _, err := unix.Recvfrom(fd, buf[:], unix.MSG_OOB)
	return err == nil && n > 0
}
