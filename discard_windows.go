//go:build windows

package winselect

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// sioAtMark is SIOCATMARK from winsock2.h (_IOR('s', 7, u_long));
// golang.org/x/sys/windows only exports the SIO_* extension-function
// ioctls, not this one, so it is defined locally the way
// discard_unix.go would if unix.SIOCATMARK didn't exist.
const sioAtMark = 0x40047307

// discardUrgentData is the Windows counterpart of discard_unix.go's
// SIOCATMARK check: the same ioctl code distinguishes a socket sitting
// at the urgent mark (a real exceptional condition) from one with
// ordinary out-of-band data still unread ahead of it.
func discardUrgentData(fd int) bool {
	handle := windows.Handle(fd)
	var atMark, bytesReturned uint32
	err := windows.WSAIoctl(
		handle,
		sioAtMark,
		nil, 0,
		(*byte)(unsafe.Pointer(&atMark)), 4,
		&bytesReturned,
		nil, 0,
	)
	if err != nil {
		return false
	}
	if atMark != 0 {
		return false
	}
	var buf [1]byte
	n, _, err := windows.Recvfrom(handle, buf[:], 0x1) // MSG_OOB
	return err == nil && n > 0
}
