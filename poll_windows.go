//go:build windows

package winselect

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// golang.org/x/sys/windows has no WSAPoll wrapper, so it is dynamically
// linked from ws2_32.dll directly, the same way the corpus's own
// IOCP-adjacent Windows poller does for the identical gap.
var (
	ws2_32      = windows.NewLazySystemDLL("ws2_32.dll")
	procWSAPoll = ws2_32.NewProc("WSAPoll")
)

// wsaPollFD mirrors WSAPOLLFD from winsock2.h.
type wsaPollFD struct {
	Fd      uintptr
	Events  int16
	Revents int16
}

// WSAPoll constants from winsock2.h; POLLIN/POLLOUT are macro
// combinations of the raw bits, not single flags.
const (
	wsaPollErr    = int16(0x0001)
	wsaPollHup    = int16(0x0002)
	wsaPollWrNorm = int16(0x0010)
	wsaPollWrBand = int16(0x0020)
	wsaPollRdNorm = int16(0x0100)
	wsaPollRdBand = int16(0x0200)

	wsaPollIn  = wsaPollRdNorm | wsaPollRdBand
	wsaPollOut = wsaPollWrNorm | wsaPollWrBand
)

// nativePoll backs the multiplexer with WSAPoll: the Windows analog of
// poll(2), and the syscall spec.md's bounded per-call fd ceiling is
// modeled on in the first place (the legacy select() 64-fd-per-set
// limit WSAPoll exists to route around). Using it here, rather than the
// teacher's IOCP-based poller, is the one deliberate departure from
// "copy the teacher's poll mechanism": spec.md calls for a level-
// triggered, bounded, array-based primitive, and WSAPoll is the
// platform's version of exactly that.
func nativePoll(entries []pollEntry, timeoutMs int) error {
	if len(entries) == 0 {
		return nil
	}
	fds := make([]wsaPollFD, len(entries))
	for i, e := range entries {
		fds[i] = wsaPollFD{Fd: uintptr(e.fd), Events: toNativeEvents(e.events)}
	}
	if _, err := wsaPoll(fds, timeoutMs); err != nil {
		return err
	}
	for i := range fds {
		entries[i].revents = fromNativeEvents(fds[i].Revents)
	}
	return nil
}

func wsaPoll(fds []wsaPollFD, timeoutMs int) (int, error) {
	if len(fds) == 0 {
		return 0, nil
	}
	r1, _, e1 := procWSAPoll.Call(
		uintptr(unsafe.Pointer(&fds[0])),
		uintptr(uint32(len(fds))),
		uintptr(int32(timeoutMs)),
	)
	n := int(int32(r1))
	if n == -1 {
		return -1, e1
	}
	return n, nil
}

func toNativeEvents(neutral uint32) int16 {
	var n int16
	if neutral&pollIn != 0 {
		n |= wsaPollIn
	}
	if neutral&(pollOut|pollConn) != 0 {
		n |= wsaPollOut
	}
	return n
}

func fromNativeEvents(native int16) uint32 {
	var n uint32
	if native&wsaPollIn != 0 {
		n |= pollIn
	}
	if native&wsaPollOut != 0 {
		n |= pollOut
	}
	if native&wsaPollErr != 0 {
		n |= pollErr
	}
	if native&wsaPollHup != 0 {
		n |= pollHup
	}
	return n
}
