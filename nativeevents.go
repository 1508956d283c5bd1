package winselect

// Neutral native-event bits, translated to and from the real platform
// poll(2)/WSAPoll ABI at the syscall boundary in poll_unix.go and
// poll_windows.go. Keeping pollArray and ChannelOps implementations in
// terms of these bits (rather than unix.POLLIN etc directly) keeps the
// multiplexer core buildable on every platform without build tags.
const (
	pollIn   uint32 = 1 << 0
	pollOut  uint32 = 1 << 1
	pollErr  uint32 = 1 << 2
	pollHup  uint32 = 1 << 3
	pollConn uint32 = 1 << 4 // POLLOUT-on-connect-completion, kept distinct per spec.md's translation table
)
